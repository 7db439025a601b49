// Package app wires the application dependencies and exposes the
// operational modes:
//
//   - Relay mode: MTProto reader feeding the extract-and-forward
//     pipeline plus the deferred units validator
//   - Check mode: one-shot extraction over stdin for debugging
//     channel text without touching Telegram
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/egtopup/card-relay/internal/cards"
	"github.com/egtopup/card-relay/internal/config"
	"github.com/egtopup/card-relay/internal/genai"
	"github.com/egtopup/card-relay/internal/observability"
	"github.com/egtopup/card-relay/internal/relay"
	"github.com/egtopup/card-relay/internal/storage"
	"github.com/egtopup/card-relay/internal/telegramreader"
	"github.com/egtopup/card-relay/internal/telegramsender"
)

type App struct {
	cfg      *config.Config
	database *storage.DB
	logger   *zerolog.Logger
}

func New(cfg *config.Config, database *storage.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.database, a.cfg.HealthPort, a.logger).Start(ctx)
}

// RunRelay runs the full pipeline until the context is cancelled. On
// shutdown it waits for in-flight validations to conclude so pending
// cards still get their single edit.
func (a *App) RunRelay(ctx context.Context) error {
	formatter, err := a.loadFormatter(ctx)
	if err != nil {
		return err
	}

	destChatID := a.cfg.DestinationChatID
	if err := a.database.GetSetting(ctx, storage.SettingDestinationChannel, &destChatID); err != nil {
		return fmt.Errorf("load destination setting: %w", err)
	}

	sender, err := telegramsender.New(a.cfg.BotToken, destChatID, *a.logger)
	if err != nil {
		return fmt.Errorf("sender init: %w", err)
	}

	reader := telegramreader.New(a.cfg, a.database, a.logger)

	oracle := genai.New(a.cfg.LLMAPIKey, a.cfg.LLMModel, a.cfg.RateLimitRPS, *a.logger)

	validator := relay.NewValidator(
		reader, oracle, sender, a.database, formatter,
		a.cfg.ReaderFetchLimit, a.cfg.ValidationPollInterval, a.cfg.ValidationBudget,
		*a.logger,
	)

	processor := relay.NewProcessor(a.database, sender, formatter, validator, *a.logger)

	err = reader.Run(ctx, processor)

	a.logger.Info().Msg("reader stopped, waiting for pending validations")
	validator.Wait()

	return err
}

// RunCheck extracts cards from text on in and prints the formatted
// forwards to out. Pending values stay pending, no Telegram calls.
func (a *App) RunCheck(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(bufio.NewReader(in))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	formatter := cards.NewFormatter(cards.DefaultEmojis)
	candidates := cards.Extract(string(data), "stdin")

	if len(candidates) == 0 {
		_, _ = fmt.Fprintln(out, "no cards found")
		return nil
	}

	for _, c := range candidates {
		_, _ = fmt.Fprintln(out, formatter.Format(c.Provider, c.NormalizedCode, c.Units, time.Now()))
		_, _ = fmt.Fprintln(out, strings.Repeat("-", 20))
	}

	return nil
}

func (a *App) loadFormatter(ctx context.Context) (*cards.Formatter, error) {
	stored := make(map[string]string)
	if err := a.database.GetSetting(ctx, storage.SettingEmojis, &stored); err != nil {
		return nil, fmt.Errorf("load emoji setting: %w", err)
	}

	return cards.NewFormatter(cards.EmojiOverrides(stored)), nil
}
