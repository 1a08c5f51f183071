package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"

	"ludo/internal/app"
	"ludo/internal/bot"
	"ludo/internal/config"
	"ludo/internal/domain"
	"ludo/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// eventBufferSize bounds the per-match event queue between ticks. The session
// sink must never block, so an overflowing queue drops events instead.
const eventBufferSize = 128

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Session   *app.GameSession            `json:"-"` // Authoritative game session (roster, board, clock)
	Events    chan app.Event              `json:"-"` // Session events pending dispatch, drained every tick
	Presences map[string]runtime.Presence `json:"-"` // Map UserID -> Presence for targeted messaging
	Tick      int64                       `json:"tick"`

	BotsEnabled          bool  `json:"bots_enabled"`            // Whether AI players are allowed
	BotMinDelay          int   `json:"bot_min_delay"`           // Min seconds a bot waits before acting
	BotMaxDelay          int   `json:"bot_max_delay"`           // Max seconds a bot waits before acting
	BotAutoFillDelay     int   `json:"bot_auto_fill_delay"`     // Seconds to wait before adding bots to a solo human lobby
	BotWaitUntil         int64 `json:"bot_wait_until"`          // Tick when the current bot should act
	LastSinglePlayerTick int64 `json:"last_single_player_tick"` // Tick when a single player started waiting

	DisconnectGrace   int64                 `json:"disconnect_grace"` // Ticks a disconnected player may stay seated
	DisconnectedSince map[string]int64      `json:"-"`                // UserID -> tick of disconnect
	Bots              map[string]*bot.Agent `json:"-"`                // Active bot agents
	Economy           ports.EconomyPort     `json:"-"`                // Interface to Nakama wallets
	Stake             int64                 `json:"stake"`            // Entry stake charged per player at settlement
	LastLabel         string                `json:"-"`                // Last published label, to skip no-op updates
}

// OpenSeatCount returns the number of joinable seats. A running game has none.
func (ms *MatchState) OpenSeatCount() int {
	if ms.Session.GetPhase() != domain.PhaseWaiting {
		return 0
	}
	return domain.MaxPlayers - len(ms.Session.GetPlayersArray())
}

// HumanPlayerCount returns the number of seated non-bot players.
func (ms *MatchState) HumanPlayerCount() int {
	count := 0
	for _, p := range ms.Session.GetPlayersArray() {
		if !isBotUserID(p.UserID) {
			count++
		}
	}
	return count
}

// OwnerID returns the first seated human, who controls the lobby, or "".
func (ms *MatchState) OwnerID() string {
	for _, p := range ms.Session.GetPlayersArray() {
		if !isBotUserID(p.UserID) {
			return p.UserID
		}
	}
	return ""
}

// isBotUserID reports whether the given user id represents a bot seat.
func isBotUserID(userID string) bool {
	return bot.IsBot(userID)
}

// firstBotID returns a seated bot's user id, or "".
func firstBotID(session *app.GameSession) string {
	for _, p := range session.GetPlayersArray() {
		if isBotUserID(p.UserID) {
			return p.UserID
		}
	}
	return ""
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	events := make(chan app.Event, eventBufferSize)
	sink := func(ev app.Event) {
		select {
		case events <- ev:
		default:
			// The queue is drained every tick; dropping here beats blocking
			// the session behind a stalled dispatcher.
		}
	}

	tier := ""
	if v, ok := params["tier"].(string); ok {
		tier = v
	}

	state := &MatchState{
		Session:           app.NewGameSession(config.SessionConfig(), nil, sink),
		Events:            events,
		Presences:         make(map[string]runtime.Presence),
		DisconnectedSince: make(map[string]int64),
		Bots:              make(map[string]*bot.Agent),
		Economy:           NewNakamaEconomyAdapter(nk),
		Stake:             config.GetStake(tier),
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["ludo_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["ludo_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["ludo_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["ludo_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
		}
	}
	if val, ok := env["ludo_disconnect_grace_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.DisconnectGrace = int64(i)
		}
	}

	// Defaults if not set
	if state.BotMinDelay == 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay == 0 {
		state.BotMaxDelay = 3
	}
	if state.BotAutoFillDelay == 0 {
		if cfg := config.GetGameConfig(); cfg != nil && cfg.BotAutoFillDelaySeconds > 0 {
			state.BotAutoFillDelay = cfg.BotAutoFillDelaySeconds
		} else {
			state.BotAutoFillDelay = 5
		}
	}
	if state.DisconnectGrace == 0 {
		state.DisconnectGrace = 60
	}

	tickRate := 1
	state.LastLabel = mh.labelString(state)
	return state, tickRate, state.LastLabel
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Seated players may always rejoin, including mid-game reconnects.
	if matchState.Session.GetPlayer(presence.GetUserId()) != nil {
		return matchState, true, ""
	}

	// New joiners need an open seat or a replaceable bot in the lobby.
	if matchState.OpenSeatCount() > 0 {
		return matchState, true, ""
	}
	if matchState.Session.GetPhase() == domain.PhaseWaiting && firstBotID(matchState.Session) != "" {
		return matchState, true, ""
	}
	return matchState, false, "Match full"
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if matchState.Session.GetPlayer(userID) != nil {
			delete(matchState.DisconnectedSince, userID)
			matchState.Session.HandleReconnect(userID)
			logger.Info("MatchJoin: User %s reconnected.", userID)
			continue
		}

		// Replace a lobby bot when the table is otherwise full.
		if matchState.OpenSeatCount() == 0 && matchState.Session.GetPhase() == domain.PhaseWaiting {
			if botID := firstBotID(matchState.Session); botID != "" {
				logger.Info("MatchJoin: Replacing bot %s with human %s", botID, userID)
				matchState.Session.RemovePlayer(botID)
				delete(matchState.Bots, botID)
			}
		}

		if matchState.Session.AddPlayer(userID, p.GetUsername(), "") == nil {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", userID)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.drainEvents(ctx, matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match. In the lobby
// the seat is freed; mid-game the player keeps the seat for a reconnection
// window and is dropped when it lapses.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		if matchState.Session.GetPlayer(userID) == nil {
			continue
		}

		if matchState.Session.GetPhase() == domain.PhasePlaying {
			matchState.Session.HandleDisconnect(userID)
			matchState.DisconnectedSince[userID] = tick
			logger.Debug("MatchLeave: User %s disconnected mid-game, grace until tick %d.", userID, tick+matchState.DisconnectGrace)
		} else {
			matchState.Session.RemovePlayer(userID)
			logger.Debug("MatchLeave: User %s left the lobby.", userID)
		}
	}

	if mh.shouldTerminate(matchState) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		matchState.Session.Destroy()
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.drainEvents(ctx, matchState, dispatcher, logger)
	return matchState
}

// shouldTerminate reports whether nothing human remains: no connected human
// presence and no disconnected human inside the grace window.
func (mh *matchHandler) shouldTerminate(state *MatchState) bool {
	for userID := range state.Presences {
		if !isBotUserID(userID) {
			return false
		}
	}
	for _, p := range state.Session.GetPlayersArray() {
		if !isBotUserID(p.UserID) {
			if _, waiting := state.DisconnectedSince[p.UserID]; waiting {
				return false
			}
		}
	}
	return true
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(matchState, dispatcher, logger, msg)
		case OpRollDice:
			mh.handleRollDice(matchState, dispatcher, logger, msg)
		case OpMoveToken:
			mh.handleMoveToken(matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	mh.expireDisconnected(matchState, logger)

	if matchState.BotsEnabled {
		mh.processBots(matchState, dispatcher, logger)
	}

	mh.drainEvents(ctx, matchState, dispatcher, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// expireDisconnected drops players whose reconnection window lapsed.
func (mh *matchHandler) expireDisconnected(state *MatchState, logger runtime.Logger) {
	for userID, since := range state.DisconnectedSince {
		if state.Tick-since < state.DisconnectGrace {
			continue
		}
		delete(state.DisconnectedSince, userID)
		if state.Session.GetPlayer(userID) != nil {
			logger.Info("expireDisconnected: Removing %s after reconnection window.", userID)
			state.Session.RemovePlayer(userID)
		}
	}
}

func (mh *matchHandler) processBots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Auto-fill the lobby with bots when a lone human has waited long enough.
	if state.Session.GetPhase() == domain.PhaseWaiting {
		if state.HumanPlayerCount() == 1 {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
				logger.Debug("processBots: Single player detected, starting auto-fill timer.")
			}

			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				for seat := len(state.Session.GetPlayersArray()); seat < domain.MaxPlayers; seat++ {
					identity := bot.GetBotIdentity(seat)
					botID := identity.UserID
					if state.Session.GetPlayer(botID) != nil {
						continue
					}
					brain, err := bot.NewBrain(bot.LevelFromDifficulty(identity.Difficulty))
					if err != nil {
						logger.Error("processBots: Failed to create bot brain for %s: %v", botID, err)
						continue
					}
					if state.Session.AddPlayer(botID, identity.DisplayName, identity.AvatarURL()) == nil {
						continue
					}
					state.Bots[botID] = &bot.Agent{ID: botID, Name: identity.DisplayName, Strategy: brain}
					logger.Info("processBots: Added bot %s (%s) to seat %d", identity.DisplayName, botID, seat)
				}
				state.LastSinglePlayerTick = 0
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
		return
	}

	// 2. Handle bot turns in-game with a human-looking delay.
	if state.Session.GetPhase() != domain.PhasePlaying {
		return
	}
	currentID := state.Session.GetGameState().CurrentTurn
	if !isBotUserID(currentID) {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bot %s will act at tick %d (current %d)", currentID, state.BotWaitUntil, state.Tick)
		return
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	agent, exists := state.Bots[currentID]
	if !exists {
		identity, _ := bot.GetBotConfig(currentID)
		brain, err := bot.NewBrain(bot.LevelFromDifficulty(identity.Difficulty))
		if err != nil {
			logger.Error("processBots: Failed to create fallback agent: %v", err)
			return
		}
		agent = &bot.Agent{ID: currentID, Name: identity.DisplayName, Strategy: brain}
		state.Bots[currentID] = agent
	}

	agent.TakeTurn(state.Session)
}

func (mh *matchHandler) handleStartGame(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if senderID != state.OwnerID() {
		logger.Warn("handleStartGame: User %s tried to start the game but is not the owner.", senderID)
		mh.sendError(state, dispatcher, logger, senderID, 403, "Only the lobby owner can start the game")
		return
	}

	if !state.Session.StartGame() {
		logger.Warn("handleStartGame: Cannot start with %d players. Need at least %d.", len(state.Session.GetPlayersArray()), app.MinPlayersToStart)
		mh.sendError(state, dispatcher, logger, senderID, 400, "Not enough players to start")
		return
	}

	logger.Info("handleStartGame: Game started with %d players.", len(state.Session.GetPlayersArray()))
}

func (mh *matchHandler) handleRollDice(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	out := state.Session.RollDice(senderID)
	if !out.OK {
		logger.Debug("handleRollDice: Rejected roll by %s: %s", senderID, out.Reason)
		mh.sendError(state, dispatcher, logger, senderID, 400, out.Reason)
	}
}

func (mh *matchHandler) handleMoveToken(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var req MoveTokenMessage
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handleMoveToken: Invalid payload from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "Invalid move payload")
		return
	}

	out := state.Session.ExecuteMove(senderID, req.TokenID, req.MoveSequence)
	if !out.OK {
		logger.Debug("handleMoveToken: Rejected move by %s (token %d, seq %d): %s", senderID, req.TokenID, req.MoveSequence, out.Reason)
		mh.sendError(state, dispatcher, logger, senderID, 400, out.Reason)
	}
}

// drainEvents flushes the session event queue to connected clients. Dispatch
// happens here, on the match goroutine, because the dispatcher is not safe to
// use from session timer goroutines.
func (mh *matchHandler) drainEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for {
		select {
		case ev := <-state.Events:
			mh.dispatchEvent(ctx, state, dispatcher, logger, ev)
		default:
			return
		}
	}
}

func (mh *matchHandler) dispatchEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCode(ev.Kind)
	if !ok {
		logger.Warn("dispatchEvent: Unknown event kind: %v", ev.Kind)
		return
	}

	data, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("dispatchEvent: Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast).
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		// If we had intended recipients but none are connected (e.g. they are
		// bots), we MUST NOT broadcast to everyone else.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("dispatchEvent: Broadcast failed for %v: %v", ev.Kind, err)
	}

	if ev.Kind == app.EventGameEnded {
		if payload, ok := ev.Payload.(app.GameEndedPayload); ok {
			mh.settle(ctx, state, logger, payload)
		}
		mh.resetLobby(state, logger)
	}
}

// settle applies the entry stakes to the finished game's standings: every
// loser pays the stake, the winner collects the pot minus the house tax.
func (mh *matchHandler) settle(ctx context.Context, state *MatchState, logger runtime.Logger, payload app.GameEndedPayload) {
	if state.Economy == nil || state.Stake <= 0 || len(payload.Rankings) < 2 {
		return
	}

	taxRate := 0.0
	if cfg := config.GetGameConfig(); cfg != nil {
		taxRate = cfg.TaxRate
	}
	pot := state.Stake * int64(len(payload.Rankings)-1)
	winnings := pot - int64(float64(pot)*taxRate)

	updates := make([]ports.WalletUpdate, 0, len(payload.Rankings))
	for _, r := range payload.Rankings {
		if isBotUserID(r.UserID) {
			continue
		}
		amount := -state.Stake
		if r.Winner {
			amount = winnings
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: r.UserID,
			Amount: amount,
			Metadata: map[string]interface{}{
				"match_id": ctx.Value(runtime.RUNTIME_CTX_MATCH_ID),
				"reason":   "game_settlement",
			},
		})
	}

	if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("settle: Failed to update balances: %v", err)
	}
}

// resetLobby replaces the finished session with a fresh waiting one, keeping
// the connected human players seated.
func (mh *matchHandler) resetLobby(state *MatchState, logger runtime.Logger) {
	previous := state.Session.GetPlayersArray()
	state.Session.Destroy()

	events := state.Events
	sink := func(ev app.Event) {
		select {
		case events <- ev:
		default:
		}
	}
	state.Session = app.NewGameSession(config.SessionConfig(), nil, sink)
	state.Bots = make(map[string]*bot.Agent)
	state.DisconnectedSince = make(map[string]int64)
	state.BotWaitUntil = 0
	state.LastSinglePlayerTick = 0

	for _, p := range previous {
		if isBotUserID(p.UserID) {
			continue
		}
		if _, connected := state.Presences[p.UserID]; !connected {
			continue
		}
		state.Session.AddPlayer(p.UserID, p.DisplayName, p.AvatarURL)
	}
	logger.Debug("resetLobby: Back to lobby with %d players.", len(state.Session.GetPlayersArray()))
}

// sendError sends a GameErrorMessage to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	data, err := json.Marshal(GameErrorMessage{Code: code, Message: message})
	if err != nil {
		logger.Error("sendError: Failed to marshal error: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) labelString(state *MatchState) string {
	phase := "lobby"
	if state.Session.GetPhase() == domain.PhasePlaying {
		phase = "playing"
	}
	label := MatchLabel{
		Open:  state.OpenSeatCount(),
		Phase: phase,
		Game:  MatchLabelGame,
	}
	b, _ := json.Marshal(label)
	return string(b)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label := mh.labelString(state)
	if label == state.LastLabel {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("updateLabel: Failed to update: %v", err)
		return
	}
	state.LastLabel = label
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	if matchState, ok := state.(*MatchState); ok {
		matchState.Session.Destroy()
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
