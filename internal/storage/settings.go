package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Setting keys read at startup.
const (
	SettingDestinationChannel = "destination_channel"
	SettingEmojis             = "emojis"
)

func (db *DB) SaveSetting(ctx context.Context, key string, value interface{}) error {
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting value: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, val,
	); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}

	return nil
}

// GetSetting unmarshals a setting into target. A missing key leaves
// target untouched and returns nil.
func (db *DB) GetSetting(ctx context.Context, key string, target interface{}) error {
	var val []byte

	err := db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&val)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}

		return fmt.Errorf("get setting: %w", err)
	}

	if err := json.Unmarshal(val, target); err != nil {
		return fmt.Errorf("unmarshal setting value: %w", err)
	}

	return nil
}
