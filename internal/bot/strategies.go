package bot

import (
	"math/rand"

	"ludo/internal/domain"
)

// RandomBot picks uniformly among the legal tokens.
type RandomBot struct {
	Rng *rand.Rand
}

func (b *RandomBot) ChooseToken(player *domain.Player, diceValue int, validMoves []int, players []*domain.Player) int {
	if len(validMoves) == 1 {
		return validMoves[0]
	}
	if b.Rng == nil {
		return validMoves[0]
	}
	return validMoves[b.Rng.Intn(len(validMoves))]
}

// GreedyBot takes a capture or a finishing move whenever one is on the table,
// otherwise advances its farthest token.
type GreedyBot struct{}

func (b *GreedyBot) ChooseToken(player *domain.Player, diceValue int, validMoves []int, players []*domain.Player) int {
	best := validMoves[0]
	bestScore := -1
	for _, tokenID := range validMoves {
		result := domain.ValidateMove(player, tokenID, diceValue, players)
		if !result.Valid {
			continue
		}
		score := 0
		if len(result.Captures) > 0 {
			score = 300
		} else if result.IsHome {
			score = 200
		} else {
			// Prefer the token closest to home.
			score = tokenProgress(player.Token(tokenID), player.Color)
		}
		if score > bestScore {
			bestScore = score
			best = tokenID
		}
	}
	return best
}

// Tuning weighs the move features scored by ScoredBot.
type Tuning struct {
	Capture    int
	FinishHome int
	LeaveYard  int
	EnterSafe  int
	EscapeRisk int
	Progress   int
}

// DefaultTuning is the hard-tier weighting.
var DefaultTuning = Tuning{
	Capture:    120,
	FinishHome: 100,
	LeaveYard:  40,
	EnterSafe:  25,
	EscapeRisk: 30,
	Progress:   1,
}

// ScoredBot evaluates every legal token against the weighted features and
// plays the best one. Ties keep the lowest token id for determinism.
type ScoredBot struct {
	Weights Tuning
}

func (b *ScoredBot) ChooseToken(player *domain.Player, diceValue int, validMoves []int, players []*domain.Player) int {
	w := b.Weights
	if w == (Tuning{}) {
		w = DefaultTuning
	}

	best := validMoves[0]
	bestScore := -1 << 30
	for _, tokenID := range validMoves {
		result := domain.ValidateMove(player, tokenID, diceValue, players)
		if !result.Valid {
			continue
		}
		token := player.Token(tokenID)

		score := 0
		score += w.Capture * len(result.Captures)
		if result.IsHome {
			score += w.FinishHome
		}
		if token.Position == domain.YardPosition {
			score += w.LeaveYard
		}
		if domain.IsSafeZone(result.NewPosition) || domain.IsInHomeStretch(result.NewPosition) {
			score += w.EnterSafe
		}
		if tokenThreatened(token, player, players) {
			score += w.EscapeRisk
		}
		score += w.Progress * tokenProgress(token, player.Color)

		if score > bestScore {
			bestScore = score
			best = tokenID
		}
	}
	return best
}

// tokenProgress counts how many of the token's steps toward home are already
// behind it. Yard tokens score zero.
func tokenProgress(token *domain.Token, color domain.Color) int {
	switch {
	case token.Position == domain.YardPosition:
		return 0
	case token.Position == domain.HomePosition:
		return domain.TrackSize + 7
	case domain.IsInHomeStretch(token.Position):
		return domain.TrackSize + 1 + (token.Position - domain.HomeStretchStart)
	default:
		start := domain.StartPosition(color)
		return ((token.Position - start + domain.TrackSize) % domain.TrackSize) + 1
	}
}

// tokenThreatened reports whether an opposing token sits within one die roll
// behind the token on an unprotected track cell.
func tokenThreatened(token *domain.Token, owner *domain.Player, players []*domain.Player) bool {
	if !domain.IsOnTrack(token.Position) || domain.IsSafeZone(token.Position) {
		return false
	}
	for _, p := range players {
		if p.UserID == owner.UserID {
			continue
		}
		for _, opp := range p.Tokens {
			if !domain.IsOnTrack(opp.Position) {
				continue
			}
			behind := (token.Position - opp.Position + domain.TrackSize) % domain.TrackSize
			if behind >= 1 && behind <= domain.DiceMax {
				return true
			}
		}
	}
	return false
}
