package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/pscheid92/codedrop/internal/domain"
)

const maxChannels = 10

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"3000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	TelegramAPIID       int      `env:"TELEGRAM_API_ID"`
	TelegramAPIHash     string   `env:"TELEGRAM_API_HASH"`
	TelegramSession     string   `env:"TELEGRAM_SESSION"`
	TelegramSessionFile string   `env:"TELEGRAM_SESSION_FILE" default:"session.json"`
	TelegramChannels    []string `env:"TELEGRAM_CHANNELS"`

	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" default:"10s"`
	EventWorkers   int           `env:"EVENT_WORKERS" default:"16"`

	RedisURL       string        `env:"REDIS_URL"`
	LeaderLeaseTTL time.Duration `env:"LEADER_LEASE_TTL" default:"15s"`

	MaxWebSocketConnections int      `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	WebSocketConnectRate    float64  `env:"WS_CONNECT_RATE" default:"5"`
	WebSocketConnectBurst   int      `env:"WS_CONNECT_BURST" default:"10"`
	WebSocketAllowedOrigins []string `env:"WS_ALLOWED_ORIGINS"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Subjects returns the configured channels in canonical form, without duplicates or blanks.
func (c *Config) Subjects() []string {
	seen := make(map[string]struct{}, len(c.TelegramChannels))
	subjects := make([]string, 0, len(c.TelegramChannels))
	for _, raw := range c.TelegramChannels {
		name := domain.CanonicalName(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		subjects = append(subjects, name)
	}
	return subjects
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func validate(cfg *Config) error {
	if cfg.TelegramAPIID <= 0 {
		return errors.New("TELEGRAM_API_ID is required")
	}
	if cfg.TelegramAPIHash == "" {
		return errors.New("TELEGRAM_API_HASH is required")
	}

	subjects := cfg.Subjects()
	if len(subjects) == 0 {
		return errors.New("TELEGRAM_CHANNELS is required")
	}
	if len(subjects) > maxChannels {
		return fmt.Errorf("TELEGRAM_CHANNELS supports at most %d channels, got %d", maxChannels, len(subjects))
	}

	if cfg.ResolveTimeout <= 0 {
		return errors.New("RESOLVE_TIMEOUT must be positive")
	}
	if cfg.EventWorkers < 1 {
		return errors.New("EVENT_WORKERS must be at least 1")
	}
	if cfg.LeaderLeaseTTL < time.Second {
		return errors.New("LEADER_LEASE_TTL must be at least 1s")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}
	if cfg.WebSocketConnectRate <= 0 || cfg.WebSocketConnectBurst < 1 {
		return errors.New("WS_CONNECT_RATE and WS_CONNECT_BURST must be positive")
	}

	return nil
}
