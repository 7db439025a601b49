// Package relay turns extracted card candidates into forwarded
// destination messages and resolves pending units values after the
// fact by watching the source channel.
package relay

import (
	"context"

	"github.com/egtopup/card-relay/internal/domain"
)

// Messenger posts and edits messages in the destination channel.
type Messenger interface {
	Send(ctx context.Context, text string) (messageID int, err error)
	Edit(ctx context.Context, messageID int, text string) error
}

// History reads back messages from a source channel.
type History interface {
	RecentMessages(ctx context.Context, channel string, limit int) ([]domain.ChannelMessage, error)
}

// CardStore is the persistence surface the relay needs.
type CardStore interface {
	InsertCard(ctx context.Context, card domain.ForwardedCard) (bool, error)
	UpdateCardUnits(ctx context.Context, normalizedCode, units string) error
}

// UnitsOracle is the last-resort units resolver. Implementations must
// always return a value, using the Unknown sentinel on failure.
type UnitsOracle interface {
	ResolveUnits(ctx context.Context, code, contextText string) string
}
