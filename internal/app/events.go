package app

import (
	"time"

	"ludo/internal/domain"
)

// EventKind identifies emitted game events for gateway dispatch.
type EventKind string

const (
	EventPlayerJoined       EventKind = "player_joined"
	EventPlayerLeft         EventKind = "player_left"
	EventGameStarted        EventKind = "game_started"
	EventTurnStart          EventKind = "turn_start"
	EventTurnWarning        EventKind = "turn_warning"
	EventTurnTimeout        EventKind = "turn_timeout"
	EventDiceRolled         EventKind = "dice_rolled"
	EventMoveExecuted       EventKind = "move_executed"
	EventPlayerForfeited    EventKind = "player_forfeited"
	EventPlayerDisconnected EventKind = "player_disconnected"
	EventPlayerReconnected  EventKind = "player_reconnected"
	EventGameEnded          EventKind = "game_ended"
)

// Event is a game event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type PlayerJoinedPayload struct {
	UserID      string       `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Color       domain.Color `json:"color"`
}

type PlayerLeftPayload struct {
	UserID string `json:"user_id"`
}

type GameStartedPayload struct {
	State GameState `json:"state"`
}

type TurnStartPayload struct {
	UserID     string        `json:"user_id"`
	TurnNumber int           `json:"turn_number"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
}

type TurnWarningPayload struct {
	UserID    string        `json:"user_id"`
	Remaining time.Duration `json:"remaining"`
}

type TurnTimeoutPayload struct {
	UserID              string `json:"user_id"`
	ConsecutiveTimeouts int    `json:"consecutive_timeouts"`
}

// DiceRolledPayload discloses the commitment hash alongside the value; the
// secret stays server-side for the lifetime of the roll.
type DiceRolledPayload struct {
	UserID     string `json:"user_id"`
	Value      int    `json:"value"`
	ValidMoves []int  `json:"valid_moves"`
	Commitment string `json:"commitment"`
	AutoRolled bool   `json:"auto_rolled,omitempty"`
}

type MoveExecutedPayload struct {
	UserID       string           `json:"user_id"`
	TokenID      int              `json:"token_id"`
	FromPosition int              `json:"from_position"`
	ToPosition   int              `json:"to_position"`
	Captures     []domain.Capture `json:"captures,omitempty"`
	BonusTurn    bool             `json:"bonus_turn"`
	IsHome       bool             `json:"is_home"`
	MoveSequence int64            `json:"move_sequence"`
	AutoPlayed   bool             `json:"auto_played,omitempty"`
	State        GameState        `json:"state"`
}

type PlayerForfeitedPayload struct {
	UserID string `json:"user_id"`
}

type PlayerConnectionPayload struct {
	UserID    string `json:"user_id"`
	Connected bool   `json:"connected"`
}

// Ranking is one row of the final standings.
type Ranking struct {
	UserID     string `json:"user_id"`
	Rank       int    `json:"rank"`
	TokensHome int    `json:"tokens_home"`
	Winner     bool   `json:"winner"`
}

type GameEndedPayload struct {
	WinnerID string    `json:"winner_id,omitempty"`
	Rankings []Ranking `json:"rankings"`
}
