package nakama

import "ludo/internal/app"

const (
	// MatchLabelKeyOpenSeats is the label key quick-match filters on.
	MatchLabelKeyOpenSeats = "open"

	// MatchLabelGame identifies this game in mixed-module deployments.
	MatchLabelGame = "ludo"
)

// MatchLabel is the JSON label published for match listing queries.
type MatchLabel struct {
	Open  int    `json:"open"`
	Phase string `json:"phase"`
	Game  string `json:"game"`
}

// MoveTokenMessage is the client payload for OpMoveToken.
type MoveTokenMessage struct {
	TokenID      int   `json:"token_id"`
	MoveSequence int64 `json:"move_sequence"`
}

// GameErrorMessage is sent privately to the offending client.
type GameErrorMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// eventOpCode maps app events onto the wire opcodes.
func eventOpCode(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventPlayerJoined:
		return OpPlayerJoined, true
	case app.EventPlayerLeft:
		return OpPlayerLeft, true
	case app.EventGameStarted:
		return OpGameStarted, true
	case app.EventTurnStart:
		return OpTurnStart, true
	case app.EventTurnWarning:
		return OpTurnWarning, true
	case app.EventTurnTimeout:
		return OpTurnTimeout, true
	case app.EventDiceRolled:
		return OpDiceRolled, true
	case app.EventMoveExecuted:
		return OpMoveExecuted, true
	case app.EventPlayerForfeited:
		return OpPlayerForfeited, true
	case app.EventPlayerDisconnected:
		return OpPlayerDisconnected, true
	case app.EventPlayerReconnected:
		return OpPlayerReconnected, true
	case app.EventGameEnded:
		return OpGameEnded, true
	default:
		return 0, false
	}
}
