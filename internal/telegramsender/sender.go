// Package telegramsender posts and edits card messages in the
// destination channel through the Bot API.
package telegramsender

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type Sender struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

func New(token string, chatID int64, logger zerolog.Logger) (*Sender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Sender{
		api:    api,
		chatID: chatID,
		logger: logger.With().Str("component", "sender").Logger(),
	}, nil
}

func (s *Sender) Send(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(s.chatID, text)

	sent, err := s.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}

	return sent.MessageID, nil
}

func (s *Sender) Edit(ctx context.Context, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(s.chatID, messageID, text)

	if _, err := s.api.Send(edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}

	return nil
}
