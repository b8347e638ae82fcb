package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/maltedev/tweet-timeline-scraper/internal/browser"
	"github.com/maltedev/tweet-timeline-scraper/internal/parser"
)

type Config struct {
	Server  ServerConfig  `envconfig:"SERVER"`
	Scraper ScraperConfig `envconfig:"SCRAPER"`
	Browser BrowserConfig `envconfig:"BROWSER"`
	Redis   RedisConfig   `envconfig:"REDIS"`
	Logging LoggingConfig `envconfig:"LOG"`
}

type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30m"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	CrawlTimeout    time.Duration `envconfig:"CRAWL_TIMEOUT" default:"20m"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:*,https://localhost:*"`
}

type ScraperConfig struct {
	BaseURL     string        `envconfig:"BASE_URL" default:"https://twitter.com"`
	SelectorSet string        `envconfig:"SELECTOR_SET" default:"default"`
	MaxRounds   int           `envconfig:"MAX_ROUNDS" default:"1000"`
	SettleDelay time.Duration `envconfig:"SETTLE_DELAY" default:"3s"`
	ScrollMin   time.Duration `envconfig:"SCROLL_DELAY_MIN" default:"1s"`
	ScrollMax   time.Duration `envconfig:"SCROLL_DELAY_MAX" default:"1500ms"`
}

type BrowserConfig struct {
	Headless       bool          `envconfig:"HEADLESS" default:"true"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"30s"`
	UserAgent      string        `envconfig:"USER_AGENT"`
	ViewportWidth  int           `envconfig:"VIEWPORT_WIDTH" default:"1920"`
	ViewportHeight int           `envconfig:"VIEWPORT_HEIGHT" default:"1080"`
	AcceptLanguage string        `envconfig:"ACCEPT_LANGUAGE" default:"zh-CN,zh;q=0.9,en;q=0.8"`
	TimezoneID     string        `envconfig:"TIMEZONE" default:"UTC"`
	Locale         string        `envconfig:"LOCALE" default:"zh-CN"`
	ProxyServer    string        `envconfig:"PROXY"`
	UserDataDir    string        `envconfig:"USER_DATA_DIR"`
}

type RedisConfig struct {
	Addr     string `envconfig:"ADDR" default:"localhost:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
	Stream   string `envconfig:"STREAM" default:"stream:tweets"`
	MaxLen   int64  `envconfig:"STREAM_MAX_LEN" default:"100000"`
	// Enabled turns on publishing of scraped records.
	Enabled bool `envconfig:"ENABLED" default:"false"`
}

type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if _, ok := parser.SelectorsByName(c.Scraper.SelectorSet); !ok {
		return fmt.Errorf("unknown SCRAPER_SELECTOR_SET %q", c.Scraper.SelectorSet)
	}

	if c.Scraper.MaxRounds < 1 {
		return fmt.Errorf("SCRAPER_MAX_ROUNDS must be at least 1")
	}

	if c.Scraper.ScrollMin > c.Scraper.ScrollMax {
		return fmt.Errorf("SCRAPER_SCROLL_DELAY_MIN cannot be greater than SCRAPER_SCROLL_DELAY_MAX")
	}

	if c.Browser.ViewportWidth < 1 || c.Browser.ViewportHeight < 1 {
		return fmt.Errorf("invalid viewport %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED is set")
	}

	return nil
}

func (c *Config) Selectors() parser.Selectors {
	sel, _ := parser.SelectorsByName(c.Scraper.SelectorSet)
	return sel
}

// BrowserOptions maps the BROWSER_ section onto browser.Options, keeping
// the browser package defaults for anything left empty.
func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Browser.Headless
	if c.Browser.Timeout > 0 {
		opts.Timeout = c.Browser.Timeout
	}
	if c.Browser.UserAgent != "" {
		opts.UserAgent = c.Browser.UserAgent
	}
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	if c.Browser.AcceptLanguage != "" {
		opts.AcceptLanguage = c.Browser.AcceptLanguage
	}
	if c.Browser.TimezoneID != "" {
		opts.TimezoneID = c.Browser.TimezoneID
	}
	if c.Browser.Locale != "" {
		opts.Locale = c.Browser.Locale
	}
	opts.ProxyServer = c.Browser.ProxyServer
	opts.UserDataDir = c.Browser.UserDataDir
	return opts
}
