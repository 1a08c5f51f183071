package ports

import "context"

// WelcomeBonusPort credits the signup bonus, at most once per user no matter
// how often onboarding retries.
type WelcomeBonusPort interface {
	// GrantWelcomeBonusOnce returns granted=false when the user already
	// received the bonus. An error means the attempt itself failed and may
	// be retried.
	GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error)
}
