package storage

import (
	"context"
	"fmt"
)

// Channel is a tracked source channel. TGPeerID and AccessHash are
// cached after the first successful resolution so later fetch cycles
// skip the resolve call.
type Channel struct {
	ID              string
	Username        string
	Title           string
	TGPeerID        int64
	AccessHash      int64
	LastTGMessageID int64
}

func (db *DB) GetSourceChannels(ctx context.Context) ([]Channel, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, username, title, tg_peer_id, access_hash, last_tg_message_id
		FROM channels WHERE is_source ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("get source channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel

	for rows.Next() {
		var ch Channel
		if err := rows.Scan(&ch.ID, &ch.Username, &ch.Title, &ch.TGPeerID, &ch.AccessHash, &ch.LastTGMessageID); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}

		channels = append(channels, ch)
	}

	return channels, rows.Err()
}

// UpdateChannelPeer caches resolved peer info for a channel.
func (db *DB) UpdateChannelPeer(ctx context.Context, id string, peerID, accessHash int64, title string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE channels SET tg_peer_id = $2, access_hash = $3, title = $4
		WHERE id = $1`,
		id, peerID, accessHash, title,
	); err != nil {
		return fmt.Errorf("update channel peer: %w", err)
	}

	return nil
}

func (db *DB) UpdateChannelLastMessageID(ctx context.Context, id string, lastID int64) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE channels SET last_tg_message_id = $2 WHERE id = $1 AND last_tg_message_id < $2`,
		id, lastID,
	); err != nil {
		return fmt.Errorf("update channel last message id: %w", err)
	}

	return nil
}
