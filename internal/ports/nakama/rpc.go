package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"ludo/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// voiceService signs voice room tokens; tests swap it out directly.
var voiceService *app.VoiceService

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcVoiceToken, RpcGetVoiceToken)
}

// RpcGetVoiceToken issues a signed token for the voice backend.
// Payload: {"action": "login" | "join", "channel_name": "..."}
func RpcGetVoiceToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("Unauthenticated", 16) // UNAUTHENTICATED
	}

	var req struct {
		Action      string `json:"action"`
		ChannelName string `json:"channel_name"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
	}

	svc := voiceService
	if svc == nil {
		env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
		secret := env["voice_secret"]
		issuer := env["voice_issuer"]
		domain := env["voice_domain"]
		if secret == "" || issuer == "" || domain == "" {
			return "", runtime.NewError("Voice service not configured", 13) // INTERNAL
		}
		svc = app.NewVoiceService(secret, issuer, domain)
		voiceService = svc
	}

	token, err := svc.GenerateToken(userID, req.Action, req.ChannelName)
	if err != nil {
		logger.Error("RpcGetVoiceToken: Failed to generate token for %s: %v", userID, err)
		return "", runtime.NewError("Failed to generate token", 13)
	}

	res := map[string]string{"token": token}
	b, _ := json.Marshal(res)
	return string(b), nil
}
