package repository

import (
	"context"
	"fmt"

	"shepherd-api/pkg/database"
)

// DeviceTokenRepository stores push-notification device tokens per user.
type DeviceTokenRepository struct {
	db *database.PostgresDB
}

func NewDeviceTokenRepository(db *database.PostgresDB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

// SaveToken registers a device token for a user. Re-registering the same
// token is a no-op.
func (r *DeviceTokenRepository) SaveToken(ctx context.Context, userID, token string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO device_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id, token) DO NOTHING
	`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

// TokensForUser returns every registered token of a user.
func (r *DeviceTokenRepository) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT token FROM device_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// DeleteToken removes a token, e.g. after FCM reports it invalid.
func (r *DeviceTokenRepository) DeleteToken(ctx context.Context, userID, token string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM device_tokens WHERE user_id = $1 AND token = $2
	`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}
