package ports

import "context"

// AccountPort updates player profile fields on the backing account system.
type AccountPort interface {
	// UpdateProfile sets the username and display name for a user.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}
