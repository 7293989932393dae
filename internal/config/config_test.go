package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "polling", cfg.RunMode)
	assert.Equal(t, "./data/report.db", cfg.StoreDSN())
	assert.Equal(t, 6.0, cfg.ReportRate)
	assert.Equal(t, 3, cfg.ReportBurst)
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	_, err := Load()
	assert.Error(t, err, "empty token")

	require.NoError(t, os.Unsetenv("BOT_TOKEN"))
	_, err = Load()
	assert.Error(t, err, "missing token")
}

func TestLoad_Redis(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/2", cfg.StoreDSN())
}

func TestValidate(t *testing.T) {
	base := Config{BotToken: "t", StoreDriver: "sqlite", RunMode: "polling"}
	require.NoError(t, base.Validate())

	c := base
	c.StoreDriver = "mongo"
	assert.Error(t, c.Validate())

	c = base
	c.RunMode = "webhook"
	assert.Error(t, c.Validate(), "webhook needs a URL")
	c.WebhookURL = "https://bot.example.com"
	assert.NoError(t, c.Validate())

	c = base
	c.RunMode = "push"
	assert.Error(t, c.Validate())

	c = base
	c.ReportRate = -1
	assert.Error(t, c.Validate())
}
