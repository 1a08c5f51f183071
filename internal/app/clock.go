package app

import (
	"sync"
	"time"
)

// ClockConfig fixes the timing rules for one game session.
type ClockConfig struct {
	// TurnDuration is the total time a player has for one turn.
	TurnDuration time.Duration
	// GracePeriod is the tail of the turn announced by a warning.
	// Must be strictly smaller than TurnDuration.
	GracePeriod time.Duration
	// MaxConsecutiveTimeouts is how many turns in a row a player may lose to
	// the clock before being forfeited.
	MaxConsecutiveTimeouts int
}

// DefaultClockConfig returns the standard session timing.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		TurnDuration:           30 * time.Second,
		GracePeriod:            5 * time.Second,
		MaxConsecutiveTimeouts: 3,
	}
}

// ClockHooks are the turn notifications a TurnClock owner subscribes to.
// Hooks are invoked from timer goroutines or from inside clock operations,
// always with the clock lock released, so they may call back into the clock.
type ClockHooks struct {
	OnTurnStart    func(userID string, turnNumber int, duration time.Duration, startedAt time.Time)
	OnTurnWarning  func(userID string, remaining time.Duration)
	OnTurnComplete func(userID string, elapsed time.Duration)
	// OnTimeout fires after the grace period expires. The return value tells
	// the clock whether the consumer already arranged turn continuation
	// (auto-play with bonus, game over); false lets the clock advance and
	// start the next turn itself.
	OnTimeout func(userID string, consecutive int) (handled bool)
	// OnForfeit fires when a player's consecutive timeouts reach the
	// configured maximum. The player is already removed from the turn order.
	OnForfeit func(userID string)
}

// TurnClock tracks whose turn it is and enforces turn deadlines. One clock
// belongs to exactly one game session.
//
// Exactly one warning/timeout timer pair is armed at a time; every
// state-changing operation cancels the current handle before arming a new
// one, and a cancelled timer firing late is a no-op (generation check).
type TurnClock struct {
	mu    sync.Mutex
	cfg   ClockConfig
	hooks ClockHooks

	order    []string
	current  int
	timeouts map[string]int

	turnNumber int
	startedAt  time.Time
	running    bool
	warned     bool

	paused          bool
	frozenRemaining time.Duration

	timer    *time.Timer
	timerGen uint64

	destroyed bool
}

// NewTurnClock creates a clock with the given timing rules and hooks.
func NewTurnClock(cfg ClockConfig, hooks ClockHooks) *TurnClock {
	if cfg.TurnDuration <= 0 {
		cfg.TurnDuration = DefaultClockConfig().TurnDuration
	}
	if cfg.GracePeriod <= 0 || cfg.GracePeriod >= cfg.TurnDuration {
		cfg.GracePeriod = cfg.TurnDuration / 6
	}
	if cfg.MaxConsecutiveTimeouts <= 0 {
		cfg.MaxConsecutiveTimeouts = DefaultClockConfig().MaxConsecutiveTimeouts
	}
	return &TurnClock{
		cfg:      cfg,
		hooks:    hooks,
		timeouts: make(map[string]int),
	}
}

// Initialize sets the turn order (already shuffled by the caller) and resets
// all counters.
func (c *TurnClock) Initialize(playerIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = append([]string(nil), playerIDs...)
	c.current = 0
	c.turnNumber = 0
	c.timeouts = make(map[string]int)
	for _, id := range playerIDs {
		c.timeouts[id] = 0
	}
	c.cancelTimerLocked()
	c.running = false
	c.paused = false
}

// CurrentPlayer returns the player on the clock, or "" if the order is empty.
func (c *TurnClock) CurrentPlayer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

// Order returns a copy of the remaining turn order.
func (c *TurnClock) Order() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// TurnNumber returns the number of turns started so far.
func (c *TurnClock) TurnNumber() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnNumber
}

// TurnStartedAt returns the instant the current turn began, the same one the
// warning and timeout deadlines are measured from.
func (c *TurnClock) TurnStartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt
}

// ConsecutiveTimeouts returns the player's current timeout streak.
func (c *TurnClock) ConsecutiveTimeouts(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeouts[userID]
}

// StartTurn begins the current player's turn and arms the warning timer.
// No-op on an empty order or a destroyed clock.
func (c *TurnClock) StartTurn() {
	c.mu.Lock()
	if c.destroyed || len(c.order) == 0 {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	c.turnNumber++
	c.startedAt = time.Now()
	c.running = true
	c.paused = false
	c.warned = false

	userID := c.currentLocked()
	turnNumber := c.turnNumber
	startedAt := c.startedAt
	c.armWarningLocked(c.cfg.TurnDuration - c.cfg.GracePeriod)
	onStart := c.hooks.OnTurnStart
	c.mu.Unlock()

	if onStart != nil {
		onStart(userID, turnNumber, c.cfg.TurnDuration, startedAt)
	}
}

// CompleteTurn ends the current turn normally, resets the player's timeout
// streak, and advances unless a bonus turn was granted. Returns the new
// current player, or "" if the order is empty.
func (c *TurnClock) CompleteTurn(bonusTurn bool) string {
	c.mu.Lock()
	if c.destroyed || len(c.order) == 0 {
		c.mu.Unlock()
		return ""
	}
	c.cancelTimerLocked()
	userID := c.currentLocked()
	elapsed := time.Since(c.startedAt)
	c.timeouts[userID] = 0
	c.running = false
	c.paused = false
	if !bonusTurn {
		c.advanceLocked()
	}
	next := c.currentLocked()
	onComplete := c.hooks.OnTurnComplete
	c.mu.Unlock()

	if onComplete != nil {
		onComplete(userID, elapsed)
	}
	return next
}

// SkipTurn abandons the current turn and unconditionally advances. Used when
// a roll produced no valid moves.
func (c *TurnClock) SkipTurn() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || len(c.order) == 0 {
		return ""
	}
	c.cancelTimerLocked()
	c.running = false
	c.paused = false
	c.advanceLocked()
	return c.currentLocked()
}

// Pause freezes the running turn, capturing the remaining time. Idempotent.
func (c *TurnClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || c.paused || !c.running {
		return
	}
	c.frozenRemaining = c.remainingLocked()
	c.paused = true
	c.cancelTimerLocked()
}

// Resume re-arms the frozen turn. If the remaining time already fell inside
// the grace window it resumes straight into the warning state; if nothing is
// left the timeout fires immediately. No-op when not paused.
func (c *TurnClock) Resume() {
	c.mu.Lock()
	if c.destroyed || !c.paused {
		c.mu.Unlock()
		return
	}
	remaining := c.frozenRemaining
	c.paused = false
	c.running = true
	c.startedAt = time.Now().Add(remaining - c.cfg.TurnDuration)

	// Immediate firings are routed through zero-delay timers so hooks never
	// run on the caller's goroutine.
	if remaining <= 0 {
		c.armTimeoutLocked(0)
		c.mu.Unlock()
		return
	}

	if remaining <= c.cfg.GracePeriod {
		alreadyWarned := c.warned
		c.warned = true
		userID := c.currentLocked()
		c.armTimeoutLocked(remaining)
		onWarning := c.hooks.OnTurnWarning
		c.mu.Unlock()
		if !alreadyWarned && onWarning != nil {
			go onWarning(userID, remaining)
		}
		return
	}

	c.armWarningLocked(remaining - c.cfg.GracePeriod)
	c.mu.Unlock()
}

// RemovePlayer drops a player from the turn order, keeping the current index
// pointed at the same logical player. If the removed player was on the clock
// the timers are cancelled and the caller must start a new turn explicitly.
// Unknown players are ignored.
func (c *TurnClock) RemovePlayer(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(userID)
}

// RemainingTime returns the frozen snapshot while paused, otherwise the time
// left in the running turn.
func (c *TurnClock) RemainingTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return c.frozenRemaining
	}
	if !c.running {
		return 0
	}
	return c.remainingLocked()
}

// Destroy cancels all timers and drops all state. Terminal.
func (c *TurnClock) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimerLocked()
	c.destroyed = true
	c.running = false
	c.paused = false
	c.order = nil
	c.timeouts = nil
	c.hooks = ClockHooks{}
}

func (c *TurnClock) currentLocked() string {
	if len(c.order) == 0 {
		return ""
	}
	return c.order[c.current]
}

func (c *TurnClock) advanceLocked() {
	if len(c.order) == 0 {
		return
	}
	c.current = (c.current + 1) % len(c.order)
}

func (c *TurnClock) remainingLocked() time.Duration {
	remaining := c.cfg.TurnDuration - time.Since(c.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *TurnClock) removeLocked(userID string) {
	idx := -1
	for i, id := range c.order {
		if id == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	c.order = append(c.order[:idx], c.order[idx+1:]...)
	delete(c.timeouts, userID)

	switch {
	case idx < c.current:
		c.current--
	case idx == c.current:
		c.cancelTimerLocked()
		c.running = false
		c.paused = false
	}
	if len(c.order) == 0 {
		c.current = 0
	} else if c.current >= len(c.order) {
		c.current = 0
	}
}

// cancelTimerLocked stops the armed timer and invalidates any in-flight
// firing.
func (c *TurnClock) cancelTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *TurnClock) armWarningLocked(delay time.Duration) {
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(delay, func() { c.fireWarning(gen) })
}

func (c *TurnClock) armTimeoutLocked(delay time.Duration) {
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(delay, func() { c.fireTimeout(gen) })
}

func (c *TurnClock) fireWarning(gen uint64) {
	c.mu.Lock()
	if c.destroyed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.warned = true
	userID := c.currentLocked()
	remaining := c.cfg.GracePeriod
	c.armTimeoutLocked(remaining)
	onWarning := c.hooks.OnTurnWarning
	c.mu.Unlock()

	if onWarning != nil {
		onWarning(userID, remaining)
	}
}

func (c *TurnClock) fireTimeout(gen uint64) {
	c.mu.Lock()
	if c.destroyed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.running = false
	userID := c.currentLocked()
	if userID == "" {
		c.mu.Unlock()
		return
	}
	c.timeouts[userID]++
	count := c.timeouts[userID]
	forfeit := count >= c.cfg.MaxConsecutiveTimeouts
	if forfeit {
		c.removeLocked(userID)
	}
	onTimeout := c.hooks.OnTimeout
	onForfeit := c.hooks.OnForfeit
	c.mu.Unlock()

	handled := false
	if onTimeout != nil {
		handled = onTimeout(userID, count)
	}
	if forfeit {
		if onForfeit != nil {
			onForfeit(userID)
		}
		return
	}
	if handled {
		return
	}

	c.mu.Lock()
	if c.destroyed || len(c.order) == 0 {
		c.mu.Unlock()
		return
	}
	c.advanceLocked()
	c.mu.Unlock()
	c.StartTurn()
}
