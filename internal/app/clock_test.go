package app

import (
	"sync"
	"testing"
	"time"
)

// clockRecorder collects clock notifications for assertions.
type clockRecorder struct {
	mu        sync.Mutex
	starts    []string
	warnings  []string
	completes []string
	timeouts  []string
	counts    []int
	forfeits  []string
}

func (r *clockRecorder) hooks() ClockHooks {
	return ClockHooks{
		OnTurnStart: func(userID string, turnNumber int, duration time.Duration, startedAt time.Time) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.starts = append(r.starts, userID)
		},
		OnTurnWarning: func(userID string, remaining time.Duration) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.warnings = append(r.warnings, userID)
		},
		OnTurnComplete: func(userID string, elapsed time.Duration) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completes = append(r.completes, userID)
		},
		OnTimeout: func(userID string, consecutive int) bool {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.timeouts = append(r.timeouts, userID)
			r.counts = append(r.counts, consecutive)
			return false
		},
		OnForfeit: func(userID string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.forfeits = append(r.forfeits, userID)
		},
	}
}

func (r *clockRecorder) snapshot() (timeouts []string, counts []int, forfeits []string, warnings []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.timeouts...),
		append([]int(nil), r.counts...),
		append([]string(nil), r.forfeits...),
		append([]string(nil), r.warnings...)
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestTurnOrderIntegrity(t *testing.T) {
	c := NewTurnClock(DefaultClockConfig(), ClockHooks{})
	defer c.Destroy()
	c.Initialize([]string{"a", "b", "c"})

	if got := c.CurrentPlayer(); got != "a" {
		t.Fatalf("current = %s, want a", got)
	}
	c.CompleteTurn(false)
	c.CompleteTurn(false)
	if got := c.CompleteTurn(false); got != "a" {
		t.Errorf("after three completions current = %s, want a", got)
	}
	if got := c.CompleteTurn(true); got != "a" {
		t.Errorf("bonus turn moved current to %s, want a", got)
	}
}

func TestSkipTurnAdvancesUnconditionally(t *testing.T) {
	c := NewTurnClock(DefaultClockConfig(), ClockHooks{})
	defer c.Destroy()
	c.Initialize([]string{"a", "b"})

	if got := c.SkipTurn(); got != "b" {
		t.Errorf("SkipTurn advanced to %s, want b", got)
	}
}

func TestRemovePlayerIndexBookkeeping(t *testing.T) {
	tests := []struct {
		name        string
		complete    int // advance this many turns before removing
		remove      string
		wantCurrent string
		wantOrder   int
	}{
		{name: "Remove before current", complete: 2, remove: "a", wantCurrent: "c", wantOrder: 2},
		{name: "Remove current", complete: 1, remove: "b", wantCurrent: "c", wantOrder: 2},
		{name: "Remove after current", complete: 0, remove: "c", wantCurrent: "a", wantOrder: 2},
		{name: "Remove last while current wraps", complete: 2, remove: "c", wantCurrent: "a", wantOrder: 2},
		{name: "Unknown id ignored", complete: 0, remove: "zz", wantCurrent: "a", wantOrder: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTurnClock(DefaultClockConfig(), ClockHooks{})
			defer c.Destroy()
			c.Initialize([]string{"a", "b", "c"})
			for i := 0; i < tt.complete; i++ {
				c.CompleteTurn(false)
			}
			c.RemovePlayer(tt.remove)
			if got := c.CurrentPlayer(); got != tt.wantCurrent {
				t.Errorf("current = %s, want %s", got, tt.wantCurrent)
			}
			if got := len(c.Order()); got != tt.wantOrder {
				t.Errorf("order size = %d, want %d", got, tt.wantOrder)
			}
		})
	}
}

func TestWarningPrecedesTimeout(t *testing.T) {
	rec := &clockRecorder{}
	c := NewTurnClock(ClockConfig{
		TurnDuration:           150 * time.Millisecond,
		GracePeriod:            60 * time.Millisecond,
		MaxConsecutiveTimeouts: 5,
	}, rec.hooks())
	defer c.Destroy()
	c.Initialize([]string{"a", "b"})
	c.StartTurn()

	ok := waitFor(t, 2*time.Second, func() bool {
		timeouts, _, _, warnings := rec.snapshot()
		return len(warnings) >= 1 && len(timeouts) >= 1
	})
	if !ok {
		t.Fatal("warning/timeout never fired")
	}
	timeouts, _, _, warnings := rec.snapshot()
	if warnings[0] != "a" || timeouts[0] != "a" {
		t.Errorf("warning for %s, timeout for %s, want a/a", warnings[0], timeouts[0])
	}
}

func TestTimeoutCascadeAutoForfeit(t *testing.T) {
	rec := &clockRecorder{}
	c := NewTurnClock(ClockConfig{
		TurnDuration:           120 * time.Millisecond,
		GracePeriod:            40 * time.Millisecond,
		MaxConsecutiveTimeouts: 2,
	}, rec.hooks())
	defer c.Destroy()
	c.Initialize([]string{"a", "b"})
	c.StartTurn()

	ok := waitFor(t, 5*time.Second, func() bool {
		_, _, forfeits, _ := rec.snapshot()
		return len(forfeits) == 1
	})
	if !ok {
		t.Fatal("auto-forfeit never fired")
	}

	timeouts, counts, forfeits, _ := rec.snapshot()
	// a times out, b times out, then a again: the forfeit comes exactly on
	// the third timeout overall, a's second.
	if len(timeouts) < 3 {
		t.Fatalf("timeouts = %v, want at least 3", timeouts)
	}
	if timeouts[0] != "a" || timeouts[1] != "b" || timeouts[2] != "a" {
		t.Errorf("timeout order = %v, want [a b a]", timeouts[:3])
	}
	if counts[0] != 1 || counts[1] != 1 || counts[2] != 2 {
		t.Errorf("timeout counts = %v, want [1 1 2]", counts[:3])
	}
	if forfeits[0] != "a" {
		t.Errorf("forfeited %s, want a", forfeits[0])
	}

	order := c.Order()
	if len(order) != 1 || order[0] != "b" {
		t.Errorf("order after forfeit = %v, want [b]", order)
	}
}

func TestCompleteTurnResetsStreak(t *testing.T) {
	rec := &clockRecorder{}
	c := NewTurnClock(ClockConfig{
		TurnDuration:           100 * time.Millisecond,
		GracePeriod:            30 * time.Millisecond,
		MaxConsecutiveTimeouts: 3,
	}, rec.hooks())
	defer c.Destroy()
	c.Initialize([]string{"a", "b"})
	c.StartTurn()

	if !waitFor(t, 2*time.Second, func() bool { return c.ConsecutiveTimeouts("a") == 1 }) {
		t.Fatal("first timeout never recorded")
	}
	// b is on the clock now; cycle back to a and complete normally.
	if !waitFor(t, 2*time.Second, func() bool { return c.CurrentPlayer() == "a" && c.ConsecutiveTimeouts("b") == 1 }) {
		t.Fatal("turn never returned to a")
	}
	c.CompleteTurn(false)
	if got := c.ConsecutiveTimeouts("a"); got != 0 {
		t.Errorf("streak after completion = %d, want 0", got)
	}
}

func TestPauseFreezesRemainingTime(t *testing.T) {
	rec := &clockRecorder{}
	c := NewTurnClock(ClockConfig{
		TurnDuration:           300 * time.Millisecond,
		GracePeriod:            50 * time.Millisecond,
		MaxConsecutiveTimeouts: 3,
	}, rec.hooks())
	defer c.Destroy()
	c.Initialize([]string{"a"})
	c.StartTurn()

	time.Sleep(50 * time.Millisecond)
	c.Pause()
	c.Pause() // idempotent
	frozen := c.RemainingTime()
	if frozen <= 0 || frozen >= 300*time.Millisecond {
		t.Fatalf("frozen remaining = %v, want within turn", frozen)
	}

	time.Sleep(100 * time.Millisecond)
	if got := c.RemainingTime(); got != frozen {
		t.Errorf("remaining drifted while paused: %v != %v", got, frozen)
	}
	timeouts, _, _, _ := rec.snapshot()
	if len(timeouts) != 0 {
		t.Fatal("timer fired while paused")
	}

	c.Resume()
	if !waitFor(t, 2*time.Second, func() bool {
		timeouts, _, _, _ := rec.snapshot()
		return len(timeouts) >= 1
	}) {
		t.Error("timeout never fired after resume")
	}
}

func TestResumeInsideGraceDoesNotRepeatWarning(t *testing.T) {
	rec := &clockRecorder{}
	c := NewTurnClock(ClockConfig{
		TurnDuration:           200 * time.Millisecond,
		GracePeriod:            120 * time.Millisecond,
		MaxConsecutiveTimeouts: 3,
	}, rec.hooks())
	defer c.Destroy()
	c.Initialize([]string{"a", "b"})
	c.StartTurn()

	// Let the warning fire, then pause inside the grace window.
	if !waitFor(t, 2*time.Second, func() bool {
		_, _, _, warnings := rec.snapshot()
		return len(warnings) == 1
	}) {
		t.Fatal("warning never fired")
	}
	c.Pause()
	c.Resume()

	if !waitFor(t, 2*time.Second, func() bool {
		timeouts, _, _, _ := rec.snapshot()
		return len(timeouts) >= 1
	}) {
		t.Fatal("timeout never fired after grace resume")
	}
	_, _, _, warnings := rec.snapshot()
	if len(warnings) != 1 {
		t.Errorf("warnings = %d, want exactly 1", len(warnings))
	}
}

func TestResumeNoOpWhenNotPaused(t *testing.T) {
	c := NewTurnClock(DefaultClockConfig(), ClockHooks{})
	defer c.Destroy()
	c.Initialize([]string{"a"})
	c.Resume() // must not panic or arm anything
	if got := c.RemainingTime(); got != 0 {
		t.Errorf("remaining = %v, want 0 with no running turn", got)
	}
}

func TestDestroySilencesTimers(t *testing.T) {
	rec := &clockRecorder{}
	c := NewTurnClock(ClockConfig{
		TurnDuration:           60 * time.Millisecond,
		GracePeriod:            20 * time.Millisecond,
		MaxConsecutiveTimeouts: 3,
	}, rec.hooks())
	c.Initialize([]string{"a", "b"})
	c.StartTurn()
	c.Destroy()

	time.Sleep(200 * time.Millisecond)
	timeouts, _, _, warnings := rec.snapshot()
	if len(timeouts) != 0 || len(warnings) != 0 {
		t.Errorf("timers fired after destroy: timeouts=%v warnings=%v", timeouts, warnings)
	}
}

func TestStartTurnEmptyOrderNoOp(t *testing.T) {
	rec := &clockRecorder{}
	c := NewTurnClock(DefaultClockConfig(), rec.hooks())
	defer c.Destroy()
	c.Initialize(nil)
	c.StartTurn()
	if got := c.TurnNumber(); got != 0 {
		t.Errorf("turn number = %d, want 0", got)
	}
}
