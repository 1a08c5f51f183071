package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"ludo/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// currencyKey is the wallet key holding the game currency.
const currencyKey = "coins"

// NakamaEconomyAdapter backs ports.EconomyPort with Nakama wallets.
type NakamaEconomyAdapter struct {
	nk runtime.NakamaModule
}

func NewNakamaEconomyAdapter(nk runtime.NakamaModule) *NakamaEconomyAdapter {
	return &NakamaEconomyAdapter{nk: nk}
}

// GetBalance reads the user's coin balance from the wallet.
func (a *NakamaEconomyAdapter) GetBalance(ctx context.Context, userID string) (int64, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get account %s: %w", userID, err)
	}

	var wallet map[string]int64
	if err := json.Unmarshal([]byte(account.Wallet), &wallet); err != nil {
		return 0, fmt.Errorf("parse wallet for %s: %w", userID, err)
	}
	return wallet[currencyKey], nil
}

// UpdateBalances applies the settlement changeset. Zero-amount entries are
// skipped so callers can pass the full roster.
func (a *NakamaEconomyAdapter) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	for _, update := range updates {
		if update.Amount == 0 {
			continue
		}
		changeset := map[string]int64{currencyKey: update.Amount}
		if _, _, err := a.nk.WalletUpdate(ctx, update.UserID, changeset, update.Metadata, true); err != nil {
			return fmt.Errorf("wallet update for %s: %w", update.UserID, err)
		}
	}
	return nil
}

var _ ports.EconomyPort = (*NakamaEconomyAdapter)(nil)
