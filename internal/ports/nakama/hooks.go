package nakama

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"ludo/internal/app/onboarding"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// AfterAuthenticateDevice onboards freshly created accounts: a friendly
// profile name and the one-time welcome bonus. Existing accounts pass
// through untouched.
func AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if !out.Created {
		return nil
	}

	userID, err := resolveUserID(ctx, out.Token)
	if err != nil {
		logger.Error("AfterAuthenticateDevice: resolve user ID: %v", err)
		return err
	}

	logger.Info("Onboarding new user %s", userID)

	service := onboarding.NewService(NewNakamaAccountAdapter(nk), NewNakamaWelcomeBonusAdapter(nk), nil)
	result, err := service.OnboardNewUser(ctx, userID)
	if result.ProfileUpdateErr != nil {
		logger.Warn("AfterAuthenticateDevice: profile update failed for %s: %v", userID, result.ProfileUpdateErr)
	}
	if !result.WelcomeBonusGranted {
		logger.Info("AfterAuthenticateDevice: welcome bonus already granted for %s", userID)
	}
	if err != nil {
		logger.Error("AfterAuthenticateDevice: onboarding failed for %s: %v", userID, err)
		return err
	}
	return nil
}

// resolveUserID prefers the runtime context value and falls back to the uid
// claim of the freshly issued session token. Some auth paths invoke the hook
// without a user ID in the context.
func resolveUserID(ctx context.Context, token string) (string, error) {
	if userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); ok && userID != "" {
		return userID, nil
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("session token is not a JWT")
	}
	// JWT payloads are base64url without padding.
	data, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode token payload: %w", err)
	}

	var claims struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(data, &claims); err != nil {
		return "", fmt.Errorf("parse token claims: %w", err)
	}
	if claims.UID == "" {
		return "", fmt.Errorf("token claims missing uid")
	}
	return claims.UID, nil
}
