package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "postgres://localhost/cards")
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("TG_API_ID", "12345")
	t.Setenv("TG_API_HASH", "hash")
	t.Setenv("DESTINATION_CHAT_ID", "-100123")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, 12345, cfg.TGAPIID)
	assert.Equal(t, int64(-100123), cfg.DestinationChatID)
	assert.Equal(t, 20, cfg.ReaderFetchLimit)
	assert.Equal(t, 5*time.Second, cfg.ValidationPollInterval)
	assert.Equal(t, 60*time.Second, cfg.ValidationBudget)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VALIDATION_BUDGET", "90s")
	t.Setenv("READER_FETCH_LIMIT", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.ValidationBudget)
	assert.Equal(t, 50, cfg.ReaderFetchLimit)
}
