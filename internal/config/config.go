package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken    string  `envconfig:"BOT_TOKEN" required:"true"`
	StoreDriver string  `envconfig:"STORE_DRIVER" default:"sqlite"` // sqlite|redis|memory
	DBPath      string  `envconfig:"DB_PATH" default:"./data/report.db"`
	RedisURL    string  `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RunMode     string  `envconfig:"RUN_MODE" default:"polling"` // polling|webhook
	WebhookURL  string  `envconfig:"WEBHOOK_URL"`                // public base URL, webhook mode only
	LogLevel    string  `envconfig:"LOG_LEVEL" default:"info"`   // debug|info|warn|error
	LogFormat   string  `envconfig:"LOG_FORMAT" default:"json"`  // json|console
	HTTPAddr    string  `envconfig:"HTTP_ADDR" default:":8080"`  // healthz, metrics, webhook
	ReportRate  float64 `envconfig:"REPORT_RATE" default:"6"`    // reports per minute per chat; 0 disables
	ReportBurst int     `envconfig:"REPORT_BURST" default:"3"`
}

// Load reads an optional .env file, then environment variables, into Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks values envconfig can't.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return errors.New("BOT_TOKEN: empty")
	}
	switch c.StoreDriver {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver)
	}
	switch c.RunMode {
	case "polling":
	case "webhook":
		if !strings.HasPrefix(c.WebhookURL, "https://") {
			return errors.New("WEBHOOK_URL: https URL required in webhook mode")
		}
	default:
		return fmt.Errorf("RUN_MODE: unknown mode %q", c.RunMode)
	}
	if c.ReportRate < 0 {
		return errors.New("REPORT_RATE: must not be negative")
	}
	return nil
}

// StoreDSN returns the connection string for the selected store driver.
func (c Config) StoreDSN() string {
	if c.StoreDriver == "redis" {
		return c.RedisURL
	}
	return c.DBPath
}
