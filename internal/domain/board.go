package domain

// Board geometry for the standard four-color Ludo track.
const (
	// TrackSize is the number of shared ring cells, walked clockwise by all colors.
	TrackSize = 52
	// HomeStretchStart is the first private stretch cell (uniform per color).
	HomeStretchStart = 100
	// HomeStretchEnd is the last private stretch cell before home.
	HomeStretchEnd = 105
	// HomePosition is the terminal cell; a token here is finished.
	HomePosition = 106
	// YardPosition marks a token that has not entered the track.
	YardPosition = -1
	// OvershootPosition marks a move that would run past home. Never stored on a token.
	OvershootPosition = -2

	// TokensPerPlayer is the number of tokens each color owns.
	TokensPerPlayer = 4
	// MaxPlayers is the seat capacity of one game.
	MaxPlayers = 4
	// StartSpacing is the ring distance between consecutive color start cells.
	StartSpacing = 13
	// ExitRoll is the die value required to move a token out of the yard.
	ExitRoll = 6
)

// safeZones are the ring cells where captures cannot occur: the four start
// cells plus the four star cells between them.
var safeZones = map[int]bool{
	0: true, 8: true, 13: true, 21: true, 26: true, 34: true, 39: true, 47: true,
}

// StartPosition returns the ring cell where the given color enters the track.
func StartPosition(c Color) int {
	return int(c) * StartSpacing
}

// HomeEntryPosition returns the last ring cell the color passes before
// peeling into its private home stretch.
func HomeEntryPosition(c Color) int {
	return (StartPosition(c) - 1 + TrackSize) % TrackSize
}

// IsSafeZone reports whether the ring cell is capture-proof.
func IsSafeZone(position int) bool {
	return safeZones[position]
}

// IsOnTrack reports whether the position is a shared ring cell.
func IsOnTrack(position int) bool {
	return position >= 0 && position < TrackSize
}

// IsInHomeStretch reports whether the position is a private stretch cell.
func IsInHomeStretch(position int) bool {
	return position >= HomeStretchStart && position <= HomeStretchEnd
}
