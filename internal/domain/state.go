package domain

// Phase represents the lifecycle stage of a Ludo game.
type Phase string

const (
	// PhaseWaiting is the pre-game state where players can join.
	PhaseWaiting Phase = "waiting"
	// PhasePlaying is the active game state.
	PhasePlaying Phase = "playing"
	// PhaseFinished is the state after a game concludes. Terminal.
	PhaseFinished Phase = "finished"
)

// TurnPhase tracks where the current player is inside their own turn.
type TurnPhase string

const (
	// TurnPhaseRolling means the player still has to roll the die.
	TurnPhaseRolling TurnPhase = "rolling"
	// TurnPhaseMoving means the die is rolled and a token must be chosen.
	TurnPhaseMoving TurnPhase = "moving"
	// TurnPhaseWaiting means the turn is between players.
	TurnPhaseWaiting TurnPhase = "waiting"
)

// Color identifies one of the four seats, in fixed join order.
type Color int

const (
	ColorRed Color = iota
	ColorBlue
	ColorGreen
	ColorYellow
)

// Colors lists all colors in assignment order.
var Colors = [MaxPlayers]Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorBlue:
		return "blue"
	case ColorGreen:
		return "green"
	case ColorYellow:
		return "yellow"
	default:
		return "unknown"
	}
}

// Token is a single piece on the board.
type Token struct {
	ID       int  `json:"id"`       // 0..3 within the owning player
	Position int  `json:"position"` // yard(-1), ring 0..51, stretch 100..105, home 106
	IsHome   bool `json:"is_home"`
}

// Player holds state for a participant in the game.
type Player struct {
	UserID      string                  `json:"user_id"`
	DisplayName string                  `json:"display_name"`
	AvatarURL   string                  `json:"avatar_url"`
	Color       Color                   `json:"color"`
	Connected   bool                    `json:"connected"`
	Tokens      [TokensPerPlayer]*Token `json:"tokens"`
	TokensHome  int                     `json:"tokens_home"`
}

// NewPlayer creates a player with all tokens in the yard.
func NewPlayer(userID, displayName, avatarURL string, color Color) *Player {
	p := &Player{
		UserID:      userID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Color:       color,
		Connected:   true,
	}
	for i := range p.Tokens {
		p.Tokens[i] = &Token{ID: i, Position: YardPosition}
	}
	return p
}

// Token returns the player's token with the given id, or nil.
func (p *Player) Token(id int) *Token {
	if id < 0 || id >= TokensPerPlayer {
		return nil
	}
	return p.Tokens[id]
}
