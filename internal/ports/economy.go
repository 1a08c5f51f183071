package ports

import "context"

// WalletUpdate is one currency change applied during settlement.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort manages the game currency.
type EconomyPort interface {
	// GetBalance returns the user's current coin balance.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// UpdateBalances applies a batch of wallet changes, used to settle the
	// entry stakes when a game ends.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
