package app

import (
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"ludo/internal/domain"
)

// Rejection reasons for protocol-ordering violations. Rule violations reuse
// the reasons defined in the domain package.
const (
	ReasonNotInProgress = "Game not in progress"
	ReasonNotYourTurn   = "Not your turn"
	ReasonAlreadyRolled = "Already rolled"
	ReasonMustRollFirst = "Must roll first"
	ReasonNoDiceValue   = "No dice roll recorded"
	ReasonStaleSequence = "Stale move sequence"
	ReasonInvalidToken  = "Invalid token selection"
)

// DefaultAutoSkipDelay is how long the session waits after an empty roll
// before skipping the turn, so clients can display the die first.
const DefaultAutoSkipDelay = 1500 * time.Millisecond

// SessionConfig fixes per-session tuning.
type SessionConfig struct {
	Clock         ClockConfig
	AutoSkipDelay time.Duration
}

// DefaultSessionConfig returns the standard session tuning.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Clock:         DefaultClockConfig(),
		AutoSkipDelay: DefaultAutoSkipDelay,
	}
}

// RollOutcome is the result of a RollDice call.
type RollOutcome struct {
	OK         bool
	Reason     string
	Value      int
	ValidMoves []int
	Commitment string
}

// MoveOutcome is the result of an ExecuteMove call.
type MoveOutcome struct {
	OK     bool
	Reason string
	Result domain.MoveResult
}

// GameState is a read-only projection of a session, recomputed on demand.
type GameState struct {
	SessionID   string              `json:"session_id"`
	Phase       domain.Phase        `json:"phase"`
	TurnPhase   domain.TurnPhase    `json:"turn_phase"`
	Players     []*domain.Player    `json:"players"`
	PlayerOrder []string            `json:"player_order"`
	CurrentTurn string              `json:"current_turn,omitempty"`
	TurnNumber  int                 `json:"turn_number"`
	DiceValue   int                 `json:"dice_value,omitempty"`
	ValidMoves  []int               `json:"valid_moves,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	Winner      string              `json:"winner,omitempty"`
}

// GameSession is the authoritative controller for one game. It owns the
// roster and board state, delegates timing to TurnClock and fairness to the
// dice commitment scheme, applies the move rules, and emits events consumed
// by the gateway.
//
// All operations are safe for concurrent use; timer callbacks re-enter
// through the same mutex.
type GameSession struct {
	mu sync.Mutex

	id        string
	phase     domain.Phase
	turnPhase domain.TurnPhase

	players   map[string]*domain.Player
	joinOrder []string
	turnOrder []string

	clock *TurnClock
	cfg   SessionConfig

	diceValue  int
	commitment *domain.DiceCommitment
	validMoves []int

	lastSequence int64

	winner   string
	rankings []Ranking

	startedAt time.Time

	rng  *rand.Rand
	sink func(Event)

	// skipGen invalidates a pending empty-roll auto-skip when the turn moves
	// on for any other reason.
	skipGen uint64

	destroyed bool
}

// NewGameSession constructs a session. rng may be nil for a time-seeded
// default (tests inject a fixed seed); sink receives every emitted event and
// must not block.
func NewGameSession(cfg SessionConfig, rng *rand.Rand, sink func(Event)) *GameSession {
	if cfg.AutoSkipDelay <= 0 {
		cfg.AutoSkipDelay = DefaultAutoSkipDelay
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &GameSession{
		phase:     domain.PhaseWaiting,
		turnPhase: domain.TurnPhaseWaiting,
		players:   make(map[string]*domain.Player),
		cfg:       cfg,
		rng:       rng,
		sink:      sink,
	}
	s.clock = NewTurnClock(cfg.Clock, ClockHooks{
		OnTurnWarning: s.handleTurnWarning,
		OnTimeout:     s.handleTurnTimeout,
		OnForfeit:     s.handleForfeit,
	})
	return s
}

// AddPlayer joins a player in the waiting phase. Returns the existing player
// unchanged on a repeated id, and nil when the game already started or is
// full.
func (s *GameSession) AddPlayer(userID, displayName, avatarURL string) *domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[userID]; ok {
		return p
	}
	if s.phase != domain.PhaseWaiting || len(s.players) >= domain.MaxPlayers {
		return nil
	}

	// A joiner takes the first color nobody holds. A lobby removal frees the
	// leaver's color for whoever joins next.
	used := make(map[domain.Color]bool, len(s.players))
	for _, held := range s.players {
		used[held.Color] = true
	}
	color := domain.Colors[0]
	for _, c := range domain.Colors {
		if !used[c] {
			color = c
			break
		}
	}
	p := domain.NewPlayer(userID, displayName, avatarURL, color)
	s.players[userID] = p
	s.joinOrder = append(s.joinOrder, userID)

	s.emitLocked(Event{Kind: EventPlayerJoined, Payload: PlayerJoinedPayload{
		UserID:      userID,
		DisplayName: displayName,
		Color:       color,
	}})
	return p
}

// RemovePlayer drops a player from the game. During play the game ends
// immediately when fewer than two players remain. Returns false for an
// unknown id.
func (s *GameSession) RemovePlayer(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removePlayerLocked(userID)
}

// StartGame shuffles the turn order and begins play. Returns false when the
// game is not in the waiting phase or has fewer than two players.
func (s *GameSession) StartGame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseWaiting || len(s.players) < MinPlayersToStart {
		return false
	}

	s.id = uuid.NewString()
	s.phase = domain.PhasePlaying
	s.startedAt = time.Now()
	s.lastSequence = 0

	s.turnOrder = append([]string(nil), s.joinOrder...)
	s.rng.Shuffle(len(s.turnOrder), func(i, j int) {
		s.turnOrder[i], s.turnOrder[j] = s.turnOrder[j], s.turnOrder[i]
	})
	s.clock.Initialize(s.turnOrder)

	s.emitLocked(Event{Kind: EventGameStarted, Payload: GameStartedPayload{State: s.stateLocked()}})
	s.startTurnLocked()
	return true
}

// RollDice rolls for the current player under a fresh commitment. The
// commitment hash is disclosed with the value; the secret never leaves the
// session. An empty valid-move list schedules an automatic skip.
func (s *GameSession) RollDice(userID string) RollOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhasePlaying {
		return RollOutcome{Reason: ReasonNotInProgress}
	}
	if s.clock.CurrentPlayer() != userID {
		return RollOutcome{Reason: ReasonNotYourTurn}
	}
	if s.turnPhase != domain.TurnPhaseRolling {
		return RollOutcome{Reason: ReasonAlreadyRolled}
	}

	return s.rollLocked(userID, false)
}

// ExecuteMove applies the current player's chosen token move. The sequence
// number must be strictly greater than the last accepted one.
func (s *GameSession) ExecuteMove(userID string, tokenID int, moveSequence int64) MoveOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhasePlaying {
		return MoveOutcome{Reason: ReasonNotInProgress}
	}
	if s.clock.CurrentPlayer() != userID {
		return MoveOutcome{Reason: ReasonNotYourTurn}
	}
	if s.turnPhase != domain.TurnPhaseMoving {
		return MoveOutcome{Reason: ReasonMustRollFirst}
	}
	if s.diceValue == 0 {
		return MoveOutcome{Reason: ReasonNoDiceValue}
	}
	if moveSequence <= s.lastSequence {
		return MoveOutcome{Reason: ReasonStaleSequence}
	}
	if !containsInt(s.validMoves, tokenID) {
		return MoveOutcome{Reason: ReasonInvalidToken}
	}

	player := s.players[userID]
	result := domain.ValidateMove(player, tokenID, s.diceValue, s.playersArrayLocked())
	if !result.Valid {
		return MoveOutcome{Reason: result.Reason}
	}

	s.lastSequence = moveSequence
	won := s.applyMoveLocked(player, tokenID, result, moveSequence, false)
	if won {
		return MoveOutcome{OK: true, Result: result}
	}

	s.turnPhase = domain.TurnPhaseWaiting
	s.clearRollLocked()
	s.clock.CompleteTurn(result.BonusTurn)
	s.startTurnLocked()
	return MoveOutcome{OK: true, Result: result}
}

// HandleDisconnect marks the player disconnected and pauses the clock when
// they are the one on it.
func (s *GameSession) HandleDisconnect(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[userID]
	if !ok || !p.Connected {
		return
	}
	p.Connected = false
	s.emitLocked(Event{Kind: EventPlayerDisconnected, Payload: PlayerConnectionPayload{UserID: userID}})
	if s.phase == domain.PhasePlaying && s.clock.CurrentPlayer() == userID {
		s.clock.Pause()
	}
}

// HandleReconnect marks the player connected again and resumes the clock
// when their turn was frozen.
func (s *GameSession) HandleReconnect(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[userID]
	if !ok || p.Connected {
		return
	}
	p.Connected = true
	s.emitLocked(Event{Kind: EventPlayerReconnected, Payload: PlayerConnectionPayload{UserID: userID, Connected: true}})
	if s.phase == domain.PhasePlaying && s.clock.CurrentPlayer() == userID {
		s.clock.Resume()
	}
}

// GetGameState returns a point-in-time projection of the session.
func (s *GameSession) GetGameState() GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// GetPlayer returns the player with the given id, or nil.
func (s *GameSession) GetPlayer(userID string) *domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[userID]
}

// GetPlayersArray returns the players in join order.
func (s *GameSession) GetPlayersArray() []*domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playersArrayLocked()
}

// NextMoveSequence returns the smallest sequence number ExecuteMove will
// accept. Local autonomous players use it; remote clients count on their own.
func (s *GameSession) NextMoveSequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSequence + 1
}

// GetPhase returns the session lifecycle phase.
func (s *GameSession) GetPhase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// GetRemainingTurnTime returns the time left on the current turn.
func (s *GameSession) GetRemainingTurnTime() time.Duration {
	return s.clock.RemainingTime()
}

// Destroy tears down the clock and all state. Terminal.
func (s *GameSession) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.clock.Destroy()
	s.skipGen++
	s.players = make(map[string]*domain.Player)
	s.joinOrder = nil
	s.turnOrder = nil
	s.sink = nil
}

// --- internal ---

func (s *GameSession) emitLocked(ev Event) {
	if s.sink != nil {
		s.sink(ev)
	}
}

func (s *GameSession) playersArrayLocked() []*domain.Player {
	arr := make([]*domain.Player, 0, len(s.players))
	for _, id := range s.joinOrder {
		if p, ok := s.players[id]; ok {
			arr = append(arr, p)
		}
	}
	return arr
}

func (s *GameSession) stateLocked() GameState {
	players := make([]*domain.Player, 0, len(s.players))
	for _, p := range s.playersArrayLocked() {
		cp := *p
		for i, tok := range p.Tokens {
			t := *tok
			cp.Tokens[i] = &t
		}
		players = append(players, &cp)
	}
	order := make([]string, 0, len(s.turnOrder))
	for _, id := range s.turnOrder {
		if _, ok := s.players[id]; ok {
			order = append(order, id)
		}
	}
	return GameState{
		SessionID:   s.id,
		Phase:       s.phase,
		TurnPhase:   s.turnPhase,
		Players:     players,
		PlayerOrder: order,
		CurrentTurn: s.clock.CurrentPlayer(),
		TurnNumber:  s.clock.TurnNumber(),
		DiceValue:   s.diceValue,
		ValidMoves:  append([]int(nil), s.validMoves...),
		StartedAt:   s.startedAt,
		Winner:      s.winner,
	}
}

func (s *GameSession) clearRollLocked() {
	s.diceValue = 0
	s.commitment = nil
	s.validMoves = nil
	s.skipGen++
}

// startTurnLocked begins the next turn for whoever the clock points at and
// announces it. The clock's turn-start hook is unused by the session to keep
// all state changes under one lock.
func (s *GameSession) startTurnLocked() {
	if s.phase != domain.PhasePlaying {
		return
	}
	s.turnPhase = domain.TurnPhaseRolling
	s.clearRollLocked()
	s.clock.StartTurn()
	s.emitLocked(Event{Kind: EventTurnStart, Payload: TurnStartPayload{
		UserID:     s.clock.CurrentPlayer(),
		TurnNumber: s.clock.TurnNumber(),
		Duration:   s.cfg.Clock.TurnDuration,
		StartedAt:  s.clock.TurnStartedAt(),
	}})
}

// rollLocked performs the roll for userID, assuming all gates have passed.
func (s *GameSession) rollLocked(userID string, auto bool) RollOutcome {
	c := domain.GenerateCommitment()
	if v, ok := domain.VerifyCommitment(c.Secret+":"+strconv.Itoa(c.Value), c.Commitment); !ok || v != c.Value {
		// A failed self-check means the commitment scheme is broken.
		panic("app: dice commitment self-verification failed")
	}

	s.commitment = &c
	s.diceValue = c.Value
	s.validMoves = domain.GetValidMoves(s.players[userID], c.Value, s.playersArrayLocked())
	s.turnPhase = domain.TurnPhaseMoving

	s.emitLocked(Event{Kind: EventDiceRolled, Payload: DiceRolledPayload{
		UserID:     userID,
		Value:      c.Value,
		ValidMoves: append([]int(nil), s.validMoves...),
		Commitment: c.Commitment,
		AutoRolled: auto,
	}})

	if len(s.validMoves) == 0 {
		s.scheduleAutoSkipLocked()
	}

	return RollOutcome{
		OK:         true,
		Value:      c.Value,
		ValidMoves: append([]int(nil), s.validMoves...),
		Commitment: c.Commitment,
	}
}

// scheduleAutoSkipLocked advances the turn after a short delay when a roll
// left no legal move, so clients get to display the die first.
func (s *GameSession) scheduleAutoSkipLocked() {
	s.skipGen++
	gen := s.skipGen
	time.AfterFunc(s.cfg.AutoSkipDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.destroyed || gen != s.skipGen || s.phase != domain.PhasePlaying {
			return
		}
		s.turnPhase = domain.TurnPhaseWaiting
		s.clock.SkipTurn()
		s.startTurnLocked()
	})
}

// applyMoveLocked mutates the board for an already validated move, emits the
// move event, and ends the game on a win. Returns true when the mover won.
func (s *GameSession) applyMoveLocked(player *domain.Player, tokenID int, result domain.MoveResult, moveSequence int64, auto bool) bool {
	token := player.Token(tokenID)
	from := token.Position
	token.Position = result.NewPosition
	if result.IsHome && !token.IsHome {
		token.IsHome = true
		player.TokensHome++
	}

	for _, cap := range result.Captures {
		victim := s.players[cap.UserID]
		if victim == nil {
			continue
		}
		vt := victim.Token(cap.TokenID)
		vt.Position = domain.YardPosition
		vt.IsHome = false
	}

	s.emitLocked(Event{Kind: EventMoveExecuted, Payload: MoveExecutedPayload{
		UserID:       player.UserID,
		TokenID:      tokenID,
		FromPosition: from,
		ToPosition:   result.NewPosition,
		Captures:     result.Captures,
		BonusTurn:    result.BonusTurn,
		IsHome:       result.IsHome,
		MoveSequence: moveSequence,
		AutoPlayed:   auto,
		State:        s.stateLocked(),
	}})

	if domain.HasPlayerWon(player) {
		s.winner = player.UserID
		s.endGameLocked()
		return true
	}
	return false
}

// removePlayerLocked is the shared removal path for explicit leaves and
// forfeits.
func (s *GameSession) removePlayerLocked(userID string) bool {
	if _, ok := s.players[userID]; !ok {
		return false
	}
	wasCurrent := s.phase == domain.PhasePlaying && s.clock.CurrentPlayer() == userID
	delete(s.players, userID)
	s.joinOrder = removeString(s.joinOrder, userID)
	s.turnOrder = removeString(s.turnOrder, userID)

	s.emitLocked(Event{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{UserID: userID}})

	if s.phase == domain.PhasePlaying {
		s.clock.RemovePlayer(userID)
		if len(s.players) < MinPlayersToStart {
			s.endGameLocked()
		} else if wasCurrent {
			s.turnPhase = domain.TurnPhaseWaiting
			s.startTurnLocked()
		}
	}
	return true
}

// endGameLocked finishes the game, computes rankings and announces them.
// One-way; the clock is destroyed.
func (s *GameSession) endGameLocked() {
	if s.phase == domain.PhaseFinished {
		return
	}
	s.phase = domain.PhaseFinished
	s.turnPhase = domain.TurnPhaseWaiting
	s.clearRollLocked()
	s.clock.Destroy()

	players := s.playersArrayLocked()
	sort.SliceStable(players, func(i, j int) bool {
		if (players[i].UserID == s.winner) != (players[j].UserID == s.winner) {
			return players[i].UserID == s.winner
		}
		return players[i].TokensHome > players[j].TokensHome
	})
	s.rankings = make([]Ranking, 0, len(players))
	for i, p := range players {
		s.rankings = append(s.rankings, Ranking{
			UserID:     p.UserID,
			Rank:       i + 1,
			TokensHome: p.TokensHome,
			Winner:     p.UserID == s.winner,
		})
	}

	s.emitLocked(Event{Kind: EventGameEnded, Payload: GameEndedPayload{
		WinnerID: s.winner,
		Rankings: append([]Ranking(nil), s.rankings...),
	}})
}

// --- clock hooks (timer goroutines only) ---

func (s *GameSession) handleTurnWarning(userID string, remaining time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhasePlaying {
		return
	}
	s.emitLocked(Event{Kind: EventTurnWarning, Payload: TurnWarningPayload{
		UserID:    userID,
		Remaining: remaining,
	}})
}

// handleTurnTimeout auto-plays for an unresponsive player so a turn can
// never stall: a precomputed valid move is picked uniformly at random, or
// the die is rolled on the player's behalf first. The consecutive-timeout
// streak is preserved (only a player-initiated completion resets it), so the
// forfeit cascade still applies to auto-played turns.
func (s *GameSession) handleTurnTimeout(userID string, consecutive int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhasePlaying {
		return true
	}
	s.emitLocked(Event{Kind: EventTurnTimeout, Payload: TurnTimeoutPayload{
		UserID:              userID,
		ConsecutiveTimeouts: consecutive,
	}})
	if s.clock.CurrentPlayer() != userID {
		// Forfeit pending: the clock already dropped the player, and the
		// forfeit hook restarts the turn cycle.
		return true
	}

	if s.turnPhase == domain.TurnPhaseRolling {
		s.rollLocked(userID, true)
		if len(s.validMoves) == 0 {
			// The scheduled auto-skip will advance; nothing else to do.
			return true
		}
	}

	if s.turnPhase == domain.TurnPhaseMoving && len(s.validMoves) > 0 {
		player := s.players[userID]
		tokenID := s.validMoves[s.rng.Intn(len(s.validMoves))]
		result := domain.ValidateMove(player, tokenID, s.diceValue, s.playersArrayLocked())
		if result.Valid {
			seq := s.lastSequence + 1
			s.lastSequence = seq
			if s.applyMoveLocked(player, tokenID, result, seq, true) {
				return true
			}
			s.turnPhase = domain.TurnPhaseWaiting
			s.clearRollLocked()
			if result.BonusTurn {
				// Same player keeps the turn; the timeout streak stands.
				s.startTurnLocked()
				return true
			}
		}
	}

	s.turnPhase = domain.TurnPhaseWaiting
	s.clearRollLocked()
	s.clock.SkipTurn()
	s.startTurnLocked()
	return true
}

func (s *GameSession) handleForfeit(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhasePlaying {
		return
	}
	s.emitLocked(Event{Kind: EventPlayerForfeited, Payload: PlayerForfeitedPayload{UserID: userID}})
	s.removePlayerLocked(userID)
	// The clock dropped the forfeited player before notifying, so the
	// removal path above saw a non-current player; restart the cycle here.
	if s.phase == domain.PhasePlaying {
		s.turnPhase = domain.TurnPhaseWaiting
		s.startTurnLocked()
	}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func removeString(xs []string, x string) []string {
	for i, v := range xs {
		if v == x {
			return append(xs[:i], xs[i+1:]...)
		}
	}
	return xs
}
