package genai

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	openai "github.com/sashabaranov/go-openai"

	"github.com/egtopup/card-relay/internal/domain"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "plain integer", reply: "500", want: "500"},
		{name: "with whitespace", reply: " 500\n", want: "500"},
		{name: "fraction truncated", reply: "500.7", want: "500"},
		{name: "embedded in prose", reply: "The card has 750 units", want: "750"},
		{name: "below range", reply: "10", want: domain.UnitsUnknown},
		{name: "above range", reply: "20000", want: domain.UnitsUnknown},
		{name: "zero means unstated", reply: "0", want: domain.UnitsUnknown},
		{name: "no number", reply: "unknown", want: domain.UnitsUnknown},
		{name: "empty", reply: "", want: domain.UnitsUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseUnits(tt.reply))
		})
	}
}

func TestResolveUnitsPrefersLocalScan(t *testing.T) {
	// No API key configured: only the local scan can answer.
	c := New("", "gpt-4o-mini", 1, zerolog.Nop())

	got := c.ResolveUnits(context.Background(), "*858*1234567890123#", "الكارت ده 500 وحدة")
	assert.Equal(t, "500", got)
}

func TestResolveUnitsWithoutClientReturnsUnknown(t *testing.T) {
	c := New("", "gpt-4o-mini", 1, zerolog.Nop())

	got := c.ResolveUnits(context.Background(), "*858*1234567890123#", "no value here")
	assert.Equal(t, domain.UnitsUnknown, got)
}

type scriptedAPI struct {
	replies    []string
	errs       []error
	calls      int
	lastPrompt string
}

func (s *scriptedAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := s.calls
	s.calls++

	if len(req.Messages) > 0 {
		s.lastPrompt = req.Messages[0].Content
	}

	if i < len(s.errs) && s.errs[i] != nil {
		return openai.ChatCompletionResponse{}, s.errs[i]
	}

	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}

	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: reply}},
		},
	}, nil
}

func TestResolveUnitsFromModel(t *testing.T) {
	c := New("key", "gpt-4o-mini", 10, zerolog.Nop())
	c.api = &scriptedAPI{replies: []string{"600"}}

	got := c.ResolveUnits(context.Background(), "*858*1234567890123#", "some channel text")
	assert.Equal(t, "600", got)
}

func TestResolveUnitsRetriesOnce(t *testing.T) {
	api := &scriptedAPI{
		errs:    []error{assert.AnError, nil},
		replies: []string{"", "600"},
	}

	c := New("key", "gpt-4o-mini", 10, zerolog.Nop())
	c.api = api

	got := c.ResolveUnits(context.Background(), "*858*1234567890123#", "some channel text")
	assert.Equal(t, "600", got)
	assert.Equal(t, 2, api.calls)
}

func TestResolveUnitsTruncatesContextOnRuneBoundary(t *testing.T) {
	api := &scriptedAPI{replies: []string{"600"}}

	c := New("key", "gpt-4o-mini", 10, zerolog.Nop())
	c.api = api

	longContext := strings.Repeat("شحن ", 600)

	got := c.ResolveUnits(context.Background(), "*858*1234567890123#", longContext)
	assert.Equal(t, "600", got)
	assert.True(t, utf8.ValidString(api.lastPrompt))
	assert.Less(t, len(api.lastPrompt), len(longContext))
}

func TestResolveUnitsRateLimitTriggersCooldown(t *testing.T) {
	api := &scriptedAPI{
		errs: []error{&openai.APIError{HTTPStatusCode: 429}},
	}

	c := New("key", "gpt-4o-mini", 10, zerolog.Nop())
	c.api = api

	got := c.ResolveUnits(context.Background(), "*858*1234567890123#", "some channel text")
	assert.Equal(t, domain.UnitsUnknown, got)
	assert.Equal(t, 1, api.calls)

	// Cooldown: the next call never reaches the model.
	got = c.ResolveUnits(context.Background(), "*858*1234567890123#", "some channel text")
	assert.Equal(t, domain.UnitsUnknown, got)
	assert.Equal(t, 1, api.calls)
}
