package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// GetSettingValue retrieves a setting's raw value. The second return is false
// when the key is not present.
func (d *DB) GetSettingValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSettingValue inserts or updates a setting
func (d *DB) SetSettingValue(ctx context.Context, key, value, valueType, description string) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO settings (key, value, value_type, description, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, value_type = EXCLUDED.value_type,
			description = EXCLUDED.description, updated_at = NOW()
	`, key, value, valueType, description)
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}
	return nil
}

// GetAllSettings retrieves every setting ordered by key
func (d *DB) GetAllSettings(ctx context.Context) ([]db.Setting, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT key, value, value_type, description, updated_at
		FROM settings
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var settings []db.Setting
	for rows.Next() {
		var s db.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.ValueType, &s.Description, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return settings, nil
}
