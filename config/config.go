package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

type Config struct {
	Beacon   BeaconConfig
	Content  ContentConfig
	Payments PaymentsConfig
	Player   PlayerConfig
	Pushover PushoverConfig
}

type BeaconConfig struct {
	Port           string `env:"PORT"`
	DbPath         string `env:"DB_PATH"`
	LogLevel       string `env:"LOG_LEVEL"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	SyncEnabled    bool   `env:"CONTENT_SYNC_ENABLED"`
	WebhookSecret  string `env:"CONTENT_WEBHOOK_SECRET"`
	AdminToken     string `env:"ADMIN_TOKEN"`
}

type ContentConfig struct {
	BaseURL string `env:"CONTENT_BASE_URL"`
	APIKey  string `env:"CONTENT_API_KEY"`
	Bucket  string `env:"CONTENT_BUCKET"`
}

type PaymentsConfig struct {
	USDCheckoutURL  string `env:"PAYMENTS_USD_CHECKOUT_URL"`
	NGNCheckoutURL  string `env:"PAYMENTS_NGN_CHECKOUT_URL"`
	RedirectDelayMs int    `env:"PAYMENTS_REDIRECT_DELAY_MS"`
}

type PlayerConfig struct {
	MediaDir string `env:"PLAYER_MEDIA_DIR"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

func Load() (Config, error) {
	var c Config

	loader := config.New().AddFeeder(feeder.Env{})
	if _, err := os.Stat(".env"); err == nil {
		loader = loader.AddFeeder(feeder.DotEnv{Path: ".env"})
	}

	if err := loader.AddStruct(&c).Feed(); err != nil {
		return c, err
	}

	if c.Beacon.Port == "" {
		c.Beacon.Port = "8080"
	}
	if c.Beacon.DbPath == "" {
		c.Beacon.DbPath = "beacon.db"
	}
	if c.Player.MediaDir == "" {
		c.Player.MediaDir = "/tmp"
	}
	if c.Payments.RedirectDelayMs == 0 {
		c.Payments.RedirectDelayMs = 3000
	}

	return c, nil
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Beacon.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
