package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"

	// RpcVoiceToken is the Nakama RPC id clients call to obtain a voice room token.
	RpcVoiceToken = "voice_token"

	// MatchNameLudo is the authoritative match handler name registered with Nakama.
	MatchNameLudo = "ludo_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame int64 = 1
	OpRollDice  int64 = 2
	OpMoveToken int64 = 3

	// Server -> Client events
	OpPlayerJoined       int64 = 101
	OpPlayerLeft         int64 = 102
	OpGameStarted        int64 = 103
	OpTurnStart          int64 = 104
	OpTurnWarning        int64 = 105
	OpTurnTimeout        int64 = 106
	OpDiceRolled         int64 = 107
	OpMoveExecuted       int64 = 108
	OpPlayerForfeited    int64 = 109
	OpPlayerDisconnected int64 = 110
	OpPlayerReconnected  int64 = 111
	OpGameEnded          int64 = 112
	OpGameError          int64 = 199
)
