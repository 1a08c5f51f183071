package domain

// Move rules are pure functions over board state. They never mutate the
// players passed in, so they are safe to call speculatively when precomputing
// valid-move lists.

// Rejection reasons surfaced on MoveResult. The session returns these to the
// gateway verbatim; mapping to client error codes happens there.
const (
	ReasonTokenNotFound = "Token not found"
	ReasonTokenHome     = "Token already home"
	ReasonNeedSix       = "Need a 6 to leave the yard"
	ReasonOvershoot     = "Would overshoot home"
)

// Capture identifies an opposing token sent back to its yard.
type Capture struct {
	UserID   string `json:"user_id"`
	TokenID  int    `json:"token_id"`
	Position int    `json:"position"`
}

// MoveResult is the full outcome of validating one token move.
type MoveResult struct {
	Valid       bool      `json:"valid"`
	NewPosition int       `json:"new_position"`
	Captures    []Capture `json:"captures,omitempty"`
	BonusTurn   bool      `json:"bonus_turn"`
	IsHome      bool      `json:"is_home"`
	Reason      string    `json:"reason,omitempty"`
}

// CalculateNewPosition computes where a token ends up after a die roll.
// Returns YardPosition when a yarded token cannot leave, and
// OvershootPosition when the move would run past home.
//
// The ring portion walks cell by cell: the home-stretch turnoff is a specific
// per-color cell that can be crossed mid-move, so a closed-form jump would
// miss the diversion.
func CalculateNewPosition(current, diceValue int, color Color) int {
	if current == YardPosition {
		if diceValue == ExitRoll {
			return StartPosition(color)
		}
		return YardPosition
	}

	if current >= HomeStretchStart {
		next := current + diceValue
		if next > HomePosition {
			return OvershootPosition
		}
		return next
	}

	entry := HomeEntryPosition(color)
	pos := current
	for step := 0; step < diceValue; step++ {
		if pos == entry {
			// Remaining steps continue inside the private stretch.
			remaining := diceValue - step
			next := HomeStretchStart + remaining - 1
			if next > HomePosition {
				return OvershootPosition
			}
			return next
		}
		pos = (pos + 1) % TrackSize
	}
	return pos
}

// ValidateMove checks a single token move and computes its full consequences.
// A bonus turn is granted for rolling a 6 or capturing; reaching home alone
// does not keep the turn.
func ValidateMove(player *Player, tokenID, diceValue int, allPlayers []*Player) MoveResult {
	token := player.Token(tokenID)
	if token == nil {
		return MoveResult{Reason: ReasonTokenNotFound}
	}
	if token.IsHome {
		return MoveResult{Reason: ReasonTokenHome}
	}
	if token.Position == YardPosition && diceValue != ExitRoll {
		return MoveResult{Reason: ReasonNeedSix}
	}

	newPos := CalculateNewPosition(token.Position, diceValue, player.Color)
	if newPos == OvershootPosition {
		return MoveResult{Reason: ReasonOvershoot}
	}
	if newPos == YardPosition {
		return MoveResult{Reason: ReasonNeedSix}
	}

	captures := FindCaptures(player.UserID, newPos, allPlayers)
	return MoveResult{
		Valid:       true,
		NewPosition: newPos,
		Captures:    captures,
		BonusTurn:   diceValue == ExitRoll || len(captures) > 0,
		IsHome:      newPos == HomePosition,
	}
}

// GetValidMoves returns the ids of the player's tokens that can legally move
// with the given die value, in token id order.
func GetValidMoves(player *Player, diceValue int, allPlayers []*Player) []int {
	var moves []int
	for _, token := range player.Tokens {
		if token.IsHome {
			continue
		}
		if ValidateMove(player, token.ID, diceValue, allPlayers).Valid {
			moves = append(moves, token.ID)
		}
	}
	return moves
}

// FindCaptures lists every opposing token sitting on the destination cell.
// The yard, the home stretch (a private lane) and safe-zone cells never
// produce captures. Own tokens stack freely and are never captured.
func FindCaptures(playerID string, position int, allPlayers []*Player) []Capture {
	if !IsOnTrack(position) || IsSafeZone(position) {
		return nil
	}

	var captures []Capture
	for _, other := range allPlayers {
		if other.UserID == playerID {
			continue
		}
		for _, token := range other.Tokens {
			if token.Position == position && !token.IsHome {
				captures = append(captures, Capture{
					UserID:   other.UserID,
					TokenID:  token.ID,
					Position: position,
				})
			}
		}
	}
	return captures
}

// HasPlayerWon reports whether all of the player's tokens reached home.
func HasPlayerWon(player *Player) bool {
	for _, token := range player.Tokens {
		if !token.IsHome {
			return false
		}
	}
	return true
}
