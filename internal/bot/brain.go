package bot

import (
	"ludo/internal/domain"
)

// BotLevel selects a strategy tier.
type BotLevel int

const (
	BotLevelEasy BotLevel = iota
	BotLevelMedium
	BotLevelHard
)

// LevelFromDifficulty maps an identity difficulty string to a strategy tier.
// Unknown strings fall back to medium.
func LevelFromDifficulty(difficulty string) BotLevel {
	switch difficulty {
	case "easy":
		return BotLevelEasy
	case "hard":
		return BotLevelHard
	default:
		return BotLevelMedium
	}
}

// Brain is the interface that all bot strategies must implement. ChooseToken
// picks one of validMoves for the given die; validMoves is never empty.
type Brain interface {
	ChooseToken(player *domain.Player, diceValue int, validMoves []int, players []*domain.Player) int
}
