package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/egtopup/card-relay/internal/cards"
	"github.com/egtopup/card-relay/internal/domain"
	"github.com/egtopup/card-relay/internal/observability"
)

// Processor runs the per-message pipeline: extract, deduplicate,
// format, forward, and hand pending cards to the validator.
type Processor struct {
	store     CardStore
	messenger Messenger
	formatter *cards.Formatter
	validator *Validator
	logger    zerolog.Logger
}

func NewProcessor(
	store CardStore,
	messenger Messenger,
	formatter *cards.Formatter,
	validator *Validator,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		store:     store,
		messenger: messenger,
		formatter: formatter,
		validator: validator,
		logger:    logger.With().Str("component", "processor").Logger(),
	}
}

// HandleMessage processes one source channel message. Failures on a
// single candidate are logged and never abort the rest of the message
// or the stream.
func (p *Processor) HandleMessage(ctx context.Context, channel string, msg domain.ChannelMessage) {
	candidates := cards.Extract(msg.Text, channel)
	if len(candidates) == 0 {
		return
	}

	observability.CardsExtracted.Add(float64(len(candidates)))

	for _, candidate := range candidates {
		if err := p.forward(ctx, candidate); err != nil {
			p.logger.Error().Err(err).
				Str("channel", channel).
				Str("provider", string(candidate.Provider)).
				Msg("failed to forward card")
		}
	}
}

func (p *Processor) forward(ctx context.Context, candidate domain.CardCandidate) error {
	inserted, err := p.store.InsertCard(ctx, domain.ForwardedCard{
		NormalizedCode: candidate.NormalizedCode,
		Provider:       candidate.Provider,
		Units:          candidate.Units,
		SourceChannel:  candidate.SourceChannel,
	})
	if err != nil {
		return err
	}

	if !inserted {
		observability.CardsDuplicate.Inc()
		p.logger.Debug().Str("provider", string(candidate.Provider)).Msg("duplicate card skipped")

		return nil
	}

	text := p.formatter.Format(candidate.Provider, candidate.NormalizedCode, candidate.Units, time.Now())

	messageID, err := p.messenger.Send(ctx, text)
	if err != nil {
		return err
	}

	observability.CardsForwarded.WithLabelValues(string(candidate.Provider)).Inc()
	p.logger.Info().
		Str("provider", string(candidate.Provider)).
		Str("channel", candidate.SourceChannel).
		Str("units", candidate.Units).
		Msg("card forwarded")

	if candidate.Units == domain.UnitsPending && p.validator != nil {
		p.validator.Track(ctx, candidate, messageID)
	}

	return nil
}
