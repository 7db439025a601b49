// Package genai resolves card units through a chat completion model
// when the regex scan over the channel history comes up empty.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/egtopup/card-relay/internal/cards"
	"github.com/egtopup/card-relay/internal/domain"
	"github.com/egtopup/card-relay/internal/observability"
)

const (
	callTimeout     = 5 * time.Second
	maxAttempts     = 2
	backoffBase     = time.Second
	rateCooldown    = 60 * time.Second
	maxContextChars = 1000
)

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	api     completionAPI
	model   string
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu            sync.Mutex
	lastRateLimit time.Time
}

func New(apiKey, model string, rps int, logger zerolog.Logger) *Client {
	var api completionAPI
	if apiKey != "" {
		api = openai.NewClient(apiKey)
	}

	return &Client{
		api:     api,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger.With().Str("component", "genai").Logger(),
	}
}

// ResolveUnits returns the units value for a code given surrounding
// channel text. It never returns an error to the caller: any failure
// collapses to the Unknown sentinel so the relay can conclude the card.
func (c *Client) ResolveUnits(ctx context.Context, code, contextText string) string {
	// A labeled value hiding in the context is cheaper than a model call.
	if units, ok := cards.LabeledUnits(contextText); ok {
		return units
	}

	if c.api == nil {
		return domain.UnitsUnknown
	}

	c.mu.Lock()
	cooling := time.Since(c.lastRateLimit) < rateCooldown
	c.mu.Unlock()

	if cooling {
		c.logger.Debug().Msg("rate limit cooldown active, skipping model call")
		return domain.UnitsUnknown
	}

	// Truncate by runes, not bytes: Arabic context must stay valid UTF-8.
	if runes := []rune(contextText); len(runes) > maxContextChars {
		contextText = string(runes[:maxContextChars])
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.UnitsUnknown
			case <-time.After(backoffBase << (attempt - 1)):
			}
		}

		units, err := c.complete(ctx, code, contextText)
		if err == nil {
			observability.GenAICalls.WithLabelValues("ok").Inc()
			return units
		}

		if isRateLimited(err) {
			c.mu.Lock()
			c.lastRateLimit = time.Now()
			c.mu.Unlock()

			observability.GenAICalls.WithLabelValues("rate_limited").Inc()
			c.logger.Warn().Err(err).Msg("model rate limited, entering cooldown")

			return domain.UnitsUnknown
		}

		observability.GenAICalls.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("model call failed")
	}

	return domain.UnitsUnknown
}

func (c *Client) complete(ctx context.Context, code, contextText string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"The following Telegram channel text mentions a recharge card with code %s. "+
			"Reply with only the integer units value of that card, nothing else. "+
			"If the value is not stated, reply with 0.\n\n%s",
		code, contextText,
	)

	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   16,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	return parseUnits(resp.Choices[0].Message.Content), nil
}

// parseUnits extracts the integer from a model reply and range-checks
// it. Fractions are truncated, out-of-range values become Unknown.
func parseUnits(reply string) string {
	reply = strings.TrimSpace(reply)

	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if len(fields) == 0 {
		return domain.UnitsUnknown
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return domain.UnitsUnknown
	}

	units := int(value)
	if !cards.InRange(units) {
		return domain.UnitsUnknown
	}

	return strconv.Itoa(units)
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}

	return false
}
