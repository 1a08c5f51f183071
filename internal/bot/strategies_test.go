package bot

import (
	"math/rand"
	"testing"

	"ludo/internal/domain"
)

func twoPlayerBoard() (*domain.Player, *domain.Player, []*domain.Player) {
	me := domain.NewPlayer("bot", "Bot", "", domain.ColorRed)
	opp := domain.NewPlayer("human", "Human", "", domain.ColorBlue)
	return me, opp, []*domain.Player{me, opp}
}

func TestRandomBotStaysWithinValidMoves(t *testing.T) {
	me, _, players := twoPlayerBoard()
	me.Token(1).Position = 1
	me.Token(2).Position = 20

	b := &RandomBot{Rng: rand.New(rand.NewSource(3))}
	valid := []int{1, 2}
	for i := 0; i < 50; i++ {
		got := b.ChooseToken(me, 3, valid, players)
		if got != 1 && got != 2 {
			t.Fatalf("chose token %d outside %v", got, valid)
		}
	}
}

func TestGreedyBotPrefersCapture(t *testing.T) {
	me, opp, players := twoPlayerBoard()
	me.Token(0).Position = 1
	me.Token(1).Position = 30
	opp.Token(0).Position = 4

	b := &GreedyBot{}
	if got := b.ChooseToken(me, 3, []int{0, 1}, players); got != 0 {
		t.Errorf("chose token %d, want the capturing token 0", got)
	}
}

func TestGreedyBotPrefersFinishingMove(t *testing.T) {
	me, _, players := twoPlayerBoard()
	me.Token(0).Position = domain.HomeStretchEnd
	me.Token(1).Position = 10

	b := &GreedyBot{}
	if got := b.ChooseToken(me, 1, []int{0, 1}, players); got != 0 {
		t.Errorf("chose token %d, want the finishing token 0", got)
	}
}

func TestGreedyBotAdvancesFarthestToken(t *testing.T) {
	me, _, players := twoPlayerBoard()
	me.Token(0).Position = 2
	me.Token(1).Position = 40

	b := &GreedyBot{}
	if got := b.ChooseToken(me, 2, []int{0, 1}, players); got != 1 {
		t.Errorf("chose token %d, want the farthest token 1", got)
	}
}

func TestScoredBotTakesCaptureOverProgress(t *testing.T) {
	me, opp, players := twoPlayerBoard()
	me.Token(0).Position = 1
	me.Token(1).Position = 45
	opp.Token(0).Position = 4

	b := &ScoredBot{}
	if got := b.ChooseToken(me, 3, []int{0, 1}, players); got != 0 {
		t.Errorf("chose token %d, want the capturing token 0", got)
	}
}

func TestScoredBotLeavesYardOnSix(t *testing.T) {
	me, _, players := twoPlayerBoard()
	me.Token(1).Position = 1

	b := &ScoredBot{}
	if got := b.ChooseToken(me, domain.ExitRoll, []int{0, 1}, players); got != 0 {
		t.Errorf("chose token %d, want the yard token 0", got)
	}
}

func TestScoredBotEscapesThreatenedToken(t *testing.T) {
	me, opp, players := twoPlayerBoard()
	// Token 0 sits three cells ahead of an opponent, token 1 is out of the
	// opponent's reach and slightly ahead of token 0.
	me.Token(0).Position = 30
	me.Token(1).Position = 35
	opp.Token(0).Position = 27

	b := &ScoredBot{}
	if got := b.ChooseToken(me, 2, []int{0, 1}, players); got != 0 {
		t.Errorf("chose token %d, want the threatened token 0", got)
	}
}

func TestLevelFromDifficulty(t *testing.T) {
	tests := []struct {
		difficulty string
		want       BotLevel
	}{
		{"easy", BotLevelEasy},
		{"medium", BotLevelMedium},
		{"hard", BotLevelHard},
		{"", BotLevelMedium},
		{"nightmare", BotLevelMedium},
	}
	for _, tt := range tests {
		if got := LevelFromDifficulty(tt.difficulty); got != tt.want {
			t.Errorf("LevelFromDifficulty(%q) = %v, want %v", tt.difficulty, got, tt.want)
		}
	}
}

func TestNewBrainLevels(t *testing.T) {
	if b, err := NewBrain(BotLevelEasy); err != nil {
		t.Errorf("easy brain: %v", err)
	} else if _, ok := b.(*RandomBot); !ok {
		t.Errorf("easy brain is %T", b)
	}
	if b, err := NewBrain(BotLevelMedium); err != nil {
		t.Errorf("medium brain: %v", err)
	} else if _, ok := b.(*GreedyBot); !ok {
		t.Errorf("medium brain is %T", b)
	}
	if b, err := NewBrain(BotLevelHard); err != nil {
		t.Errorf("hard brain: %v", err)
	} else if _, ok := b.(*ScoredBot); !ok {
		t.Errorf("hard brain is %T", b)
	}
	if _, err := NewBrain(BotLevel(99)); err == nil {
		t.Error("unknown level must error")
	}
}
