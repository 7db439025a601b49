package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egtopup/card-relay/internal/domain"
)

// InsertCard persists a forwarded card. The unique constraint on
// card_number makes the check-then-insert atomic: a conflicting insert
// affects zero rows and is reported as a duplicate, never an error.
func (db *DB) InsertCard(ctx context.Context, card domain.ForwardedCard) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO cards (id, card_number, provider, units, source_channel, forwarded_at, ts)
		VALUES ($1, $2, $3, $4, $5, now(), $6)
		ON CONFLICT (card_number) DO NOTHING`,
		uuid.NewString(), card.NormalizedCode, string(card.Provider), card.Units,
		card.SourceChannel, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("insert card: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// UpdateCardUnits records the single Pending-to-final units transition
// for a code. Rows already holding a final value are left untouched.
func (db *DB) UpdateCardUnits(ctx context.Context, normalizedCode, units string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE cards SET units = $2
		WHERE card_number = $1 AND units = $3`,
		normalizedCode, units, domain.UnitsPending,
	); err != nil {
		return fmt.Errorf("update card units: %w", err)
	}

	return nil
}

// GetCard fetches a forwarded card by its normalized code.
func (db *DB) GetCard(ctx context.Context, normalizedCode string) (domain.ForwardedCard, error) {
	var card domain.ForwardedCard

	var provider string

	err := db.Pool.QueryRow(ctx, `
		SELECT id, card_number, provider, units, source_channel, forwarded_at, ts
		FROM cards WHERE card_number = $1`,
		normalizedCode,
	).Scan(&card.ID, &card.NormalizedCode, &provider, &card.Units, &card.SourceChannel, &card.ForwardedAt, &card.Timestamp)
	if err != nil {
		return domain.ForwardedCard{}, fmt.Errorf("get card: %w", err)
	}

	card.Provider = domain.Provider(provider)

	return card, nil
}

// CountCardsSince reports how many cards were forwarded at or after
// the given epoch timestamp. Used by the status endpoint.
func (db *DB) CountCardsSince(ctx context.Context, since int64) (int, error) {
	var count int

	if err := db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM cards WHERE ts >= $1`, since,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}

	return count, nil
}
