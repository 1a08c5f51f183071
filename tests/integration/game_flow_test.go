package integration

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"ludo/internal/app"
	"ludo/internal/bot"
	"ludo/internal/domain"
)

// fastConfig keeps real timers but shrinks them so a complete game finishes
// in seconds. The turn clock still has to outlast a full roll-and-move cycle.
func fastConfig() app.SessionConfig {
	return app.SessionConfig{
		Clock: app.ClockConfig{
			TurnDuration:           3 * time.Second,
			GracePeriod:            200 * time.Millisecond,
			MaxConsecutiveTimeouts: 3,
		},
		AutoSkipDelay: 2 * time.Millisecond,
	}
}

type eventCounter struct {
	mu     sync.Mutex
	counts map[app.EventKind]int
	ended  app.GameEndedPayload
}

func newEventCounter() *eventCounter {
	return &eventCounter{counts: make(map[app.EventKind]int)}
}

func (c *eventCounter) sink(ev app.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[ev.Kind]++
	if ev.Kind == app.EventGameEnded {
		if p, ok := ev.Payload.(app.GameEndedPayload); ok {
			c.ended = p
		}
	}
}

func (c *eventCounter) count(kind app.EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

func (c *eventCounter) gameEnded() app.GameEndedPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// waitTurnChange polls until the current turn differs from prev or the game
// leaves the playing phase.
func waitTurnChange(t *testing.T, s *app.GameSession, prev string, d time.Duration) app.GameState {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		state := s.GetGameState()
		if state.Phase != domain.PhasePlaying || state.CurrentTurn != prev {
			return state
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("turn did not move on from %s within %v", prev, d)
	return app.GameState{}
}

// TestBonusTurnAfterYardExit plays the opening by hand: roll until a six
// comes up, leave the yard, and confirm the six grants another roll.
func TestBonusTurnAfterYardExit(t *testing.T) {
	events := newEventCounter()
	s := app.NewGameSession(fastConfig(), rand.New(rand.NewSource(11)), events.sink)
	t.Cleanup(s.Destroy)

	s.AddPlayer("alice", "Alice", "")
	s.AddPlayer("bob", "Bob", "")
	if !s.StartGame() {
		t.Fatal("StartGame failed")
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		state := s.GetGameState()
		if state.TurnPhase != domain.TurnPhaseRolling {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		current := state.CurrentTurn
		roll := s.RollDice(current)
		if !roll.OK {
			t.Fatalf("RollDice(%s) rejected: %s", current, roll.Reason)
		}
		if roll.Value != domain.DiceMax {
			// All tokens are in the yard, so anything but a six is
			// moveless and skips on its own.
			if len(roll.ValidMoves) != 0 {
				t.Fatalf("roll of %d from the yard yielded moves %v", roll.Value, roll.ValidMoves)
			}
			waitTurnChange(t, s, current, 5*time.Second)
			continue
		}

		move := s.ExecuteMove(current, roll.ValidMoves[0], s.NextMoveSequence())
		if !move.OK {
			t.Fatalf("ExecuteMove rejected: %s", move.Reason)
		}
		if !move.Result.BonusTurn {
			t.Fatal("six did not grant a bonus turn")
		}

		after := s.GetGameState()
		if after.CurrentTurn != current {
			t.Fatalf("bonus turn passed to %s, want %s to keep it", after.CurrentTurn, current)
		}
		if after.TurnPhase != domain.TurnPhaseRolling {
			t.Fatalf("turn phase after bonus = %s, want rolling", after.TurnPhase)
		}
		return
	}
	t.Fatal("no six rolled within the deadline")
}

// TestFullGameRunsToCompletion seats two greedy agents and lets them play to
// the end, then checks the final state and rankings agree.
func TestFullGameRunsToCompletion(t *testing.T) {
	if testing.Short() {
		t.Skip("full game simulation")
	}

	events := newEventCounter()
	s := app.NewGameSession(fastConfig(), rand.New(rand.NewSource(42)), events.sink)
	t.Cleanup(s.Destroy)

	agents := []*bot.Agent{
		{ID: "north", Name: "North", Strategy: &bot.GreedyBot{}},
		{ID: "south", Name: "South", Strategy: &bot.GreedyBot{}},
	}
	for _, a := range agents {
		if s.AddPlayer(a.ID, a.Name, "") == nil {
			t.Fatalf("AddPlayer(%s) failed", a.ID)
		}
	}
	if !s.StartGame() {
		t.Fatal("StartGame failed")
	}

	deadline := time.Now().Add(2 * time.Minute)
	for s.GetPhase() == domain.PhasePlaying {
		if time.Now().After(deadline) {
			state := s.GetGameState()
			t.Fatalf("game still running at turn %d, phase %s/%s", state.TurnNumber, state.Phase, state.TurnPhase)
		}
		acted := false
		for _, a := range agents {
			if a.TakeTurn(s) {
				acted = true
			}
		}
		if !acted {
			// Waiting on the auto-skip after a moveless roll.
			time.Sleep(2 * time.Millisecond)
		}
	}

	state := s.GetGameState()
	if state.Phase != domain.PhaseFinished {
		t.Fatalf("final phase = %s, want finished", state.Phase)
	}
	if state.Winner == "" {
		t.Fatal("finished game has no winner")
	}
	winner := s.GetPlayer(state.Winner)
	if winner == nil {
		t.Fatalf("winner %s not on the roster", state.Winner)
	}
	if winner.TokensHome != domain.TokensPerPlayer {
		t.Fatalf("winner has %d tokens home, want %d", winner.TokensHome, domain.TokensPerPlayer)
	}

	ended := events.gameEnded()
	if ended.WinnerID != state.Winner {
		t.Fatalf("game_ended winner = %s, state winner = %s", ended.WinnerID, state.Winner)
	}
	if len(ended.Rankings) != len(agents) {
		t.Fatalf("rankings length = %d, want %d", len(ended.Rankings), len(agents))
	}
	if !ended.Rankings[0].Winner || ended.Rankings[0].UserID != state.Winner {
		t.Fatalf("rankings[0] = %+v, want the winner in first place", ended.Rankings[0])
	}
	for i := 1; i < len(ended.Rankings); i++ {
		if ended.Rankings[i].TokensHome > ended.Rankings[i-1].TokensHome {
			t.Fatalf("rankings out of order at %d: %+v", i, ended.Rankings)
		}
	}

	if n := events.count(app.EventGameEnded); n != 1 {
		t.Fatalf("game_ended emitted %d times, want 1", n)
	}
	if events.count(app.EventDiceRolled) == 0 || events.count(app.EventMoveExecuted) == 0 {
		t.Fatal("expected dice and move events over a full game")
	}
}
