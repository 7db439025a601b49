package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN   string `env:"POSTGRES_DSN,required"`
	BotToken      string `env:"BOT_TOKEN,required"`
	TGAPIID       int    `env:"TG_API_ID,required"`
	TGAPIHash     string `env:"TG_API_HASH,required"`
	TGPhone       string `env:"TG_PHONE"`
	TG2FAPassword string `env:"TG_2FA_PASSWORD"`
	TGSessionPath string `env:"TG_SESSION_PATH" envDefault:"./tg.session"`

	// Destination channel for forwarded cards. The settings table may
	// override it at startup.
	DestinationChatID int64 `env:"DESTINATION_CHAT_ID,required"`

	LLMAPIKey string `env:"LLM_API_KEY"`
	LLMModel  string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	HealthPort       int           `env:"HEALTH_PORT" envDefault:"8080"`
	RateLimitRPS     int           `env:"RATE_LIMIT_RPS" envDefault:"1"`
	ReaderFetchLimit int           `env:"READER_FETCH_LIMIT" envDefault:"20"`
	ReaderPollDelay  time.Duration `env:"READER_POLL_DELAY" envDefault:"5s"`

	ValidationPollInterval time.Duration `env:"VALIDATION_POLL_INTERVAL" envDefault:"5s"`
	ValidationBudget       time.Duration `env:"VALIDATION_BUDGET" envDefault:"60s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
