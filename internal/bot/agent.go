package bot

import (
	"ludo/internal/app"
	"ludo/internal/domain"
)

// Agent represents an autonomous bot player seated in a game session.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// TakeTurn advances the agent's turn by one step: a roll when the die is
// pending, a move when one is owed. Returns true when the agent acted.
func (a *Agent) TakeTurn(session *app.GameSession) bool {
	state := session.GetGameState()
	if state.Phase != domain.PhasePlaying || state.CurrentTurn != a.ID {
		return false
	}

	switch state.TurnPhase {
	case domain.TurnPhaseRolling:
		return session.RollDice(a.ID).OK
	case domain.TurnPhaseMoving:
		if len(state.ValidMoves) == 0 {
			// A moveless roll skips on its own.
			return false
		}
		player := session.GetPlayer(a.ID)
		if player == nil {
			return false
		}
		tokenID := a.Strategy.ChooseToken(player, state.DiceValue, state.ValidMoves, session.GetPlayersArray())
		return session.ExecuteMove(a.ID, tokenID, session.NextMoveSequence()).OK
	}
	return false
}
