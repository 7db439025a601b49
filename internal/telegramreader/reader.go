// Package telegramreader polls source channels over MTProto and feeds
// new messages into the card pipeline. It also serves channel history
// lookups for deferred units resolution.
package telegramreader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/egtopup/card-relay/internal/config"
	"github.com/egtopup/card-relay/internal/domain"
	"github.com/egtopup/card-relay/internal/observability"
	"github.com/egtopup/card-relay/internal/storage"
)

// ErrChannelNotFound indicates the channel was not found.
var ErrChannelNotFound = errors.New("channel not found")

// ErrNotAChannel indicates the peer is not a channel.
var ErrNotAChannel = errors.New("peer is not a channel")

// ErrNoChannelIdentifier indicates the channel row has neither a
// username nor cached peer info.
var ErrNoChannelIdentifier = errors.New("channel has no username or peer id")

// ErrNotConnected indicates the MTProto client is not running yet.
var ErrNotConnected = errors.New("telegram client not connected")

// Handler consumes one source channel message.
type Handler interface {
	HandleMessage(ctx context.Context, channel string, msg domain.ChannelMessage)
}

type Reader struct {
	cfg      *config.Config
	database *storage.DB
	client   *telegram.Client
	logger   *zerolog.Logger
	limiter  *rate.Limiter

	mu    sync.RWMutex
	api   *tg.Client
	peers map[string]*tg.InputPeerChannel
}

func New(cfg *config.Config, database *storage.DB, logger *zerolog.Logger) *Reader {
	rps := cfg.RateLimitRPS
	if rps < 1 {
		rps = 1
	}

	return &Reader{
		cfg:      cfg,
		database: database,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		peers:    make(map[string]*tg.InputPeerChannel),
	}
}

func (r *Reader) Run(ctx context.Context, handler Handler) error {
	client := telegram.NewClient(r.cfg.TGAPIID, r.cfg.TGAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: r.cfg.TGSessionPath,
		},
	})

	r.client = client

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, r.authFlow()); err != nil {
			return err
		}

		r.logger.Info().Msg("Successfully authenticated as user")

		r.mu.Lock()
		r.api = tg.NewClient(client)
		r.mu.Unlock()

		return r.poll(ctx, handler)
	})
}

func (r *Reader) poll(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		channels, err := r.database.GetSourceChannels(ctx)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to get source channels")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Second):
			}

			continue
		}

		if len(channels) == 0 {
			r.logger.Info().Msg("No source channels to track. Waiting...")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(30 * time.Second):
			}

			continue
		}

		for _, ch := range channels {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}

			if err := r.fetchChannel(ctx, ch, handler); err != nil {
				observability.FetchErrors.Inc()
				r.logger.Error().Err(err).Str("channel", ch.Username).Msg("failed to fetch messages for channel")
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.ReaderPollDelay):
		}
	}
}

func (r *Reader) fetchChannel(ctx context.Context, ch storage.Channel, handler Handler) error {
	peer, err := r.resolvePeer(ctx, &ch)
	if err != nil {
		return err
	}

	req := &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: r.cfg.ReaderFetchLimit,
	}

	if ch.LastTGMessageID > 0 {
		// Fetch messages newer than last seen
		req.OffsetID = int(ch.LastTGMessageID)
		req.AddOffset = -r.cfg.ReaderFetchLimit
	}

	history, err := r.getHistory(ctx, req)
	if err != nil {
		floodErr, ok := tgerr.As(err)
		if ok && floodErr.Type == "FLOOD_WAIT" {
			r.logger.Warn().Int("seconds", floodErr.Argument).Str("channel", ch.Username).Msg("flood wait")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(floodErr.Argument) * time.Second):
			}

			return nil
		}

		return fmt.Errorf("failed to get history: %w", err)
	}

	msgs := historyMessages(history)
	maxID := ch.LastTGMessageID

	// History arrives newest first; process oldest first so a units
	// line never lands before its card.
	for i := len(msgs) - 1; i >= 0; i-- {
		msg, ok := msgs[i].(*tg.Message)
		if !ok {
			continue
		}

		if int64(msg.ID) <= ch.LastTGMessageID {
			continue
		}

		if int64(msg.ID) > maxID {
			maxID = int64(msg.ID)
		}

		if msg.Message == "" {
			continue
		}

		observability.MessagesSeen.Inc()
		handler.HandleMessage(ctx, ch.Username, toChannelMessage(msg))
	}

	if maxID > ch.LastTGMessageID {
		if err := r.database.UpdateChannelLastMessageID(ctx, ch.ID, maxID); err != nil {
			r.logger.Error().Err(err).Str("channel", ch.Username).Int64("max_id", maxID).Msg("failed to update last message id")
		}
	}

	return nil
}

// RecentMessages returns the latest messages of a channel, newest
// first. Used by the validator while a card is pending.
func (r *Reader) RecentMessages(ctx context.Context, channel string, limit int) ([]domain.ChannelMessage, error) {
	ch := storage.Channel{Username: channel}

	r.mu.RLock()
	if cached, ok := r.peers[channel]; ok {
		ch.TGPeerID = cached.ChannelID
		ch.AccessHash = cached.AccessHash
	}
	r.mu.RUnlock()

	peer, err := r.resolvePeer(ctx, &ch)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	history, err := r.getHistory(ctx, &tg.MessagesGetHistoryRequest{Peer: peer, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	var out []domain.ChannelMessage

	for _, m := range historyMessages(history) {
		msg, ok := m.(*tg.Message)
		if !ok || msg.Message == "" {
			continue
		}

		out = append(out, toChannelMessage(msg))
	}

	return out, nil
}

func (r *Reader) getHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	r.mu.RLock()
	api := r.api
	r.mu.RUnlock()

	if api == nil {
		return nil, ErrNotConnected
	}

	return api.MessagesGetHistory(ctx, req)
}

// resolvePeer returns the input peer for a channel, resolving the
// username once and caching peer id and access hash in memory and in
// the database.
func (r *Reader) resolvePeer(ctx context.Context, ch *storage.Channel) (tg.InputPeerClass, error) {
	if ch.TGPeerID != 0 && ch.AccessHash != 0 {
		peer := &tg.InputPeerChannel{ChannelID: ch.TGPeerID, AccessHash: ch.AccessHash}

		r.mu.Lock()
		r.peers[ch.Username] = peer
		r.mu.Unlock()

		return peer, nil
	}

	if ch.Username == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoChannelIdentifier, ch.ID)
	}

	r.mu.RLock()
	cached, ok := r.peers[ch.Username]
	api := r.api
	r.mu.RUnlock()

	if ok {
		return cached, nil
	}

	if api == nil {
		return nil, ErrNotConnected
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: ch.Username})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, ch.Username)
	}

	channel, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAChannel, ch.Username)
	}

	r.logger.Info().Str("username", ch.Username).Int64("peer_id", channel.ID).Str("title", channel.Title).Msg("Caching channel info")

	ch.TGPeerID = channel.ID
	ch.AccessHash = channel.AccessHash
	ch.Title = channel.Title

	peer := &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}

	r.mu.Lock()
	r.peers[ch.Username] = peer
	r.mu.Unlock()

	if ch.ID != "" {
		if err := r.database.UpdateChannelPeer(ctx, ch.ID, channel.ID, channel.AccessHash, channel.Title); err != nil {
			r.logger.Error().Err(err).Str("username", ch.Username).Msg("failed to cache channel peer info")
		}
	}

	return peer, nil
}

func historyMessages(history tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := history.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	}

	return nil
}

func toChannelMessage(msg *tg.Message) domain.ChannelMessage {
	out := domain.ChannelMessage{
		ID:   int64(msg.ID),
		Text: msg.Message,
	}

	if replyTo, ok := msg.GetReplyTo(); ok {
		if header, ok := replyTo.(*tg.MessageReplyHeader); ok {
			out.ReplyToID = int64(header.ReplyToMsgID)
		}
	}

	return out
}
