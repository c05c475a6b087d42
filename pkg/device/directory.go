package device

import (
	"context"
	"time"
)

// Directory gives read/write access to persisted devices and user records.
// Implementations must be safe for concurrent use.
type Directory interface {
	// ListDevicesForUser returns every device owned by the user. A user with
	// no devices yields an empty slice, not an error.
	ListDevicesForUser(ctx context.Context, userID string) ([]Descriptor, error)

	// GetDeviceForUser returns ErrNotFound when the device is absent or owned
	// by a different user.
	GetDeviceForUser(ctx context.Context, userID, deviceID string) (*Descriptor, error)

	// FindDeviceGlobally looks a device up by id alone and returns its owner.
	FindDeviceGlobally(ctx context.Context, deviceID string) (*Descriptor, string, error)

	// UpdateDeviceState applies a partial update, last write wins.
	UpdateDeviceState(ctx context.Context, userID, deviceID string, update StateUpdate) error

	// AccessTokenForUser returns the stored platform credential. ok is false
	// when none is stored or it has expired.
	AccessTokenForUser(ctx context.Context, userID string) (token string, ok bool, err error)

	// UserByEmail resolves a user from their login email.
	UserByEmail(ctx context.Context, email string) (*User, error)

	// SetAccessToken stores a platform credential for the user. A zero
	// expiresAt means the token does not expire.
	SetAccessToken(ctx context.Context, userID, token string, expiresAt time.Time) error
}
