package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
)

// BotIdentity is one entry of the bot account pool. UserID is filled in at
// provisioning time for production pools; test fixtures may set it directly.
type BotIdentity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "easy", "medium", "hard"
	AvatarIndex int    `json:"avatar_index"`
}

// AvatarURL returns the client asset path for the identity's avatar.
func (b BotIdentity) AvatarURL() string {
	return fmt.Sprintf("avatars/bot_%02d.png", b.AvatarIndex)
}

var (
	pool          []BotIdentity
	poolByUserID  map[string]BotIdentity
	loadOnce      sync.Once
	provisionOnce sync.Once
	loadErr       error
)

// LoadIdentities reads the bot pool from the given JSON file. Entries that
// already carry a user ID become addressable immediately; the rest wait for
// ProvisionBots.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("read bot identities: %w", err)
			return
		}
		if err := json.Unmarshal(data, &pool); err != nil {
			loadErr = fmt.Errorf("parse bot identities: %w", err)
			return
		}

		poolByUserID = make(map[string]BotIdentity, len(pool))
		for _, identity := range pool {
			if identity.UserID != "" {
				poolByUserID[identity.UserID] = identity
			}
		}
	})
	return loadErr
}

// ProvisionBots authenticates every pooled identity against Nakama, creating
// the accounts on first run, and stamps them with is_bot metadata so other
// services can tell them apart from humans.
func ProvisionBots(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) error {
	provisionOnce.Do(func() {
		for i := range pool {
			identity := &pool[i]
			if identity.DeviceID == "" {
				continue
			}

			userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
			if err != nil {
				logger.Error("ProvisionBots: authenticate %s: %v", identity.Username, err)
				continue
			}
			identity.UserID = userID
			identity.Username = username

			metadata := map[string]interface{}{
				"is_bot":       true,
				"difficulty":   identity.Difficulty,
				"avatar_index": identity.AvatarIndex,
			}
			if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
				logger.Warn("ProvisionBots: update account %s: %v", userID, err)
			}

			poolByUserID[userID] = *identity
			logger.Info("ProvisionBots: %s (%s) ready, difficulty %s", identity.DisplayName, userID, identity.Difficulty)
		}
	})
	return nil
}

// GetBotIdentity picks an identity for a seat index, wrapping around the
// pool. With an empty pool it fabricates a placeholder so a lobby can still
// fill.
func GetBotIdentity(index int) BotIdentity {
	if len(pool) == 0 {
		return BotIdentity{
			UserID:      fmt.Sprintf("bot-%d", index),
			DisplayName: fmt.Sprintf("AI Player %d", index),
		}
	}
	return pool[index%len(pool)]
}

// GetBotConfig returns the identity behind a provisioned bot user ID.
func GetBotConfig(userID string) (BotIdentity, bool) {
	identity, ok := poolByUserID[userID]
	return identity, ok
}

// IsBot reports whether the user ID belongs to the bot pool.
func IsBot(userID string) bool {
	_, ok := poolByUserID[userID]
	return ok
}
