package device

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrMappingNotFound = errors.New("no user mapped to this terminal identity")
)

// Device is a registered biometric terminal. APIKeyHash is a bcrypt hash
// of the key the terminal authenticates with; SigningSecret feeds the
// webhook HMAC check.
type Device struct {
	ID            string
	Name          string
	LocationScope string
	APIKeyHash    string
	SigningSecret string
	CreatedAt     time.Time
}

// DeviceRepository looks up registered terminals and their user mappings.
type DeviceRepository interface {
	// GetByID retrieves a device by ID
	GetByID(ctx context.Context, id string) (Device, error)

	// ResolveUser maps a device-local user identity to a system user, or
	// ErrMappingNotFound when no mapping exists yet.
	ResolveUser(ctx context.Context, terminalUserID string, deviceID string) (string, error)
}
