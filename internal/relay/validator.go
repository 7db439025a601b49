package relay

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/egtopup/card-relay/internal/cards"
	"github.com/egtopup/card-relay/internal/domain"
	"github.com/egtopup/card-relay/internal/observability"
)

const concludeTimeout = 15 * time.Second

// Validator resolves cards forwarded with a pending units value. Each
// tracked card gets one goroutine that polls the source channel until
// the value appears or the budget runs out, then edits the forwarded
// message exactly once.
type Validator struct {
	history    History
	oracle     UnitsOracle
	messenger  Messenger
	store      CardStore
	formatter  *cards.Formatter
	fetchLimit int
	interval   time.Duration
	budget     time.Duration
	logger     zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
}

func NewValidator(
	history History,
	oracle UnitsOracle,
	messenger Messenger,
	store CardStore,
	formatter *cards.Formatter,
	fetchLimit int,
	interval, budget time.Duration,
	logger zerolog.Logger,
) *Validator {
	return &Validator{
		history:    history,
		oracle:     oracle,
		messenger:  messenger,
		store:      store,
		formatter:  formatter,
		fetchLimit: fetchLimit,
		interval:   interval,
		budget:     budget,
		logger:     logger.With().Str("component", "validator").Logger(),
		pending:    make(map[string]struct{}),
	}
}

// Track starts watching a pending card. A code already being watched
// is ignored, so at most one goroutine runs per code. Cancelling ctx
// abandons the watch without an edit.
func (v *Validator) Track(ctx context.Context, candidate domain.CardCandidate, messageID int) {
	v.mu.Lock()
	if _, ok := v.pending[candidate.NormalizedCode]; ok {
		v.mu.Unlock()
		return
	}

	v.pending[candidate.NormalizedCode] = struct{}{}
	v.mu.Unlock()

	v.wg.Add(1)

	go func() {
		defer v.wg.Done()
		defer func() {
			v.mu.Lock()
			delete(v.pending, candidate.NormalizedCode)
			v.mu.Unlock()
		}()

		v.watch(ctx, candidate, messageID)
	}()
}

// Wait blocks until all tracked cards have concluded. Used on shutdown.
func (v *Validator) Wait() {
	v.wg.Wait()
}

// watch runs the poll loop. Each iteration tries the channel scan and
// then the oracle; the budget expiring concludes the card as Unknown.
func (v *Validator) watch(parent context.Context, candidate domain.CardCandidate, messageID int) {
	ctx, cancel := context.WithTimeout(parent, v.budget)
	defer cancel()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if parent.Err() != nil {
				// Shutdown, not budget expiry. No edit.
				v.logger.Debug().Str("provider", string(candidate.Provider)).Msg("validation abandoned on shutdown")
				return
			}

			observability.ValidationOutcomes.WithLabelValues("unknown").Inc()
			v.conclude(parent, candidate, messageID, domain.UnitsUnknown)

			return
		case <-ticker.C:
			if units, ok := v.scan(ctx, candidate); ok {
				observability.ValidationOutcomes.WithLabelValues("resolved").Inc()
				v.conclude(parent, candidate, messageID, units)

				return
			}

			units := v.oracle.ResolveUnits(ctx, candidate.NormalizedCode, v.oracleContext(ctx, candidate))
			if units != domain.UnitsUnknown {
				observability.ValidationOutcomes.WithLabelValues("oracle").Inc()
				v.conclude(parent, candidate, messageID, units)

				return
			}
		}
	}
}

// scan checks the latest source messages for the units value: replies
// to messages carrying the code first, then any standalone in-range
// number in the fetched window. The standalone pass runs even when the
// code message has scrolled out of the window.
func (v *Validator) scan(ctx context.Context, candidate domain.CardCandidate) (string, bool) {
	msgs, err := v.history.RecentMessages(ctx, candidate.SourceChannel, v.fetchLimit)
	if err != nil {
		v.logger.Warn().Err(err).Str("channel", candidate.SourceChannel).Msg("history fetch failed")
		return "", false
	}

	// History arrives newest first, so replies precede the code message
	// in the slice; collect the code ids before checking replies.
	codeIDs := make(map[int64]struct{})

	for _, msg := range msgs {
		if strings.Contains(msg.Text, candidate.RawCode) || strings.Contains(msg.Text, candidate.NormalizedCode) {
			codeIDs[msg.ID] = struct{}{}
		}
	}

	for _, msg := range msgs {
		if _, ok := codeIDs[msg.ReplyToID]; !ok {
			continue
		}

		if units, ok := cards.LabeledUnits(msg.Text); ok {
			return units, true
		}

		if units, ok := cards.StandaloneUnits(msg.Text); ok {
			return units, true
		}
	}

	for _, msg := range msgs {
		if _, ok := codeIDs[msg.ID]; ok {
			continue
		}

		if units, ok := cards.StandaloneUnits(msg.Text); ok {
			return units, true
		}
	}

	return "", false
}

// oracleContext collects source messages mentioning the code so the
// oracle sees the same text a human reader would.
func (v *Validator) oracleContext(ctx context.Context, candidate domain.CardCandidate) string {
	msgs, err := v.history.RecentMessages(ctx, candidate.SourceChannel, v.fetchLimit)
	if err != nil {
		return ""
	}

	var parts []string

	for _, msg := range msgs {
		if strings.Contains(msg.Text, candidate.RawCode) || strings.Contains(msg.Text, candidate.NormalizedCode) {
			parts = append(parts, msg.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// conclude performs the single edit of the forwarded message and
// records the final value. An edit failure is terminal for this card:
// no retry, the stored value still reflects the outcome.
func (v *Validator) conclude(parent context.Context, candidate domain.CardCandidate, messageID int, units string) {
	ctx, cancel := context.WithTimeout(parent, concludeTimeout)
	defer cancel()

	text := v.formatter.Format(candidate.Provider, candidate.NormalizedCode, units, time.Now())

	if err := v.messenger.Edit(ctx, messageID, text); err != nil {
		v.logger.Error().Err(err).
			Str("provider", string(candidate.Provider)).
			Msg("failed to edit forwarded message")
	}

	if err := v.store.UpdateCardUnits(ctx, candidate.NormalizedCode, units); err != nil {
		v.logger.Error().Err(err).Msg("failed to record final units")
	}

	v.logger.Info().
		Str("provider", string(candidate.Provider)).
		Str("units", units).
		Msg("card concluded")
}
