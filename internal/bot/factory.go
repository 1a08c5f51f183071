package bot

import (
	"fmt"
	"math/rand"
	"time"
)

// NewBrain creates a new AI brain for the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelEasy:
		return &RandomBot{Rng: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
	case BotLevelMedium:
		return &GreedyBot{}, nil
	case BotLevelHard:
		return &ScoredBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
