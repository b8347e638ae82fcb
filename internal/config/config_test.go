package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/tweet-timeline-scraper/internal/parser"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:*", "https://localhost:*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://twitter.com", cfg.Scraper.BaseURL)
	assert.Equal(t, 1000, cfg.Scraper.MaxRounds)
	assert.Equal(t, 3*time.Second, cfg.Scraper.SettleDelay)
	assert.Equal(t, time.Second, cfg.Scraper.ScrollMin)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "stream:tweets", cfg.Redis.Stream)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, parser.DefaultSelectors(), cfg.Selectors())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SCRAPER_SELECTOR_SET", "legacy")
	t.Setenv("SCRAPER_SCROLL_DELAY_MIN", "2s")
	t.Setenv("SCRAPER_SCROLL_DELAY_MAX", "3s")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_USER_DATA_DIR", "/tmp/chrome-profile")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, parser.LegacySelectors(), cfg.Selectors())
	assert.Equal(t, 2*time.Second, cfg.Scraper.ScrollMin)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/tmp/chrome-profile", cfg.Browser.UserDataDir)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	t.Setenv("SCRAPER_MAX_ROUNDS", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown selector set", func(c *Config) { c.Scraper.SelectorSet = "mobile" }},
		{"no rounds", func(c *Config) { c.Scraper.MaxRounds = 0 }},
		{"inverted scroll delay", func(c *Config) { c.Scraper.ScrollMin = 2 * time.Second }},
		{"empty viewport", func(c *Config) { c.Browser.ViewportWidth = 0 }},
		{"redis without address", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBrowserOptions(t *testing.T) {
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_PROXY", "http://proxy:3128")
	t.Setenv("BROWSER_USER_DATA_DIR", "/tmp/chrome-profile")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.BrowserOptions()
	assert.False(t, opts.Headless)
	assert.Equal(t, "http://proxy:3128", opts.ProxyServer)
	assert.Equal(t, "/tmp/chrome-profile", opts.UserDataDir)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, "zh-CN", opts.Locale)
	assert.NotEmpty(t, opts.UserAgent)
	assert.Equal(t, "1", opts.ExtraHeaders["DNT"])
}
