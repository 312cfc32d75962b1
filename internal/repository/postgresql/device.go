package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/device"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type deviceRepository struct {
	db *database.DB
}

func NewDeviceRepository(db *database.DB) device.DeviceRepository {
	return &deviceRepository{db: db}
}

// GetByID implements device.DeviceRepository.
func (r *deviceRepository) GetByID(ctx context.Context, id string) (device.Device, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, location_scope, api_key_hash, signing_secret, created_at
		FROM devices
		WHERE id = $1
	`

	var d device.Device
	err := q.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.LocationScope, &d.APIKeyHash, &d.SigningSecret, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return device.Device{}, device.ErrDeviceNotFound
		}
		return device.Device{}, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

// ResolveUser implements device.DeviceRepository. A device-specific
// mapping wins over a global one for the same terminal identity.
func (r *deviceRepository) ResolveUser(ctx context.Context, terminalUserID string, deviceID string) (string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT user_id
		FROM device_user_mappings
		WHERE terminal_user_id = $1
		  AND (device_id = $2 OR device_id IS NULL)
		ORDER BY device_id NULLS LAST
		LIMIT 1
	`

	var userID string
	err := q.QueryRow(ctx, query, terminalUserID, deviceID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", device.ErrMappingNotFound
		}
		return "", fmt.Errorf("failed to resolve user mapping: %w", err)
	}
	return userID, nil
}
