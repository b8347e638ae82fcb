package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrLoginRequired is returned when the site redirects the search to its
// login flow. Logging in is left to the Chrome profile in UserDataDir.
var ErrLoginRequired = errors.New("search redirected to login")

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	// UserDataDir reuses a Chrome profile (cookies, login) across runs.
	UserDataDir  string
	ExtraHeaders map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
		TimezoneID:     "UTC",
		Locale:         "zh-CN",
		ExtraHeaders: map[string]string{
			"DNT": "1",
		},
	}
}

func (o *Options) launchArgs() []string {
	return []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-sandbox",
		"--disable-setuid-sandbox",
		fmt.Sprintf("--window-size=%d,%d", o.ViewportWidth, o.ViewportHeight),
		"--user-agent=" + o.UserAgent,
	}
}

func (o *Options) headers() map[string]string {
	headers := make(map[string]string, len(o.ExtraHeaders)+1)
	for k, v := range o.ExtraHeaders {
		headers[k] = v
	}
	if o.AcceptLanguage != "" {
		headers["Accept-Language"] = o.AcceptLanguage
	}
	return headers
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var proxy *playwright.Proxy
	if opts.ProxyServer != "" {
		proxy = &playwright.Proxy{Server: opts.ProxyServer}
	}
	viewport := &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}

	b := &Browser{
		pw:     pw,
		opts:   opts,
		logger: slog.Default().With("component", "browser"),
	}

	if opts.UserDataDir != "" {
		b.context, err = pw.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:          &opts.Headless,
			Args:              opts.launchArgs(),
			Proxy:             proxy,
			UserAgent:         &opts.UserAgent,
			AcceptDownloads:   playwright.Bool(false),
			JavaScriptEnabled: playwright.Bool(true),
			Locale:            &opts.Locale,
			TimezoneId:        &opts.TimezoneID,
			Viewport:          viewport,
			ExtraHttpHeaders:  opts.headers(),
		})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}
		return b, nil
	}

	b.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args:     opts.launchArgs(),
		Proxy:    proxy,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b.context, err = b.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport:          viewport,
		ExtraHttpHeaders:  opts.headers(),
	})
	if err != nil {
		b.browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return b, nil
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	return page, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Navigate opens url once and reports a redirect to the login flow.
func (b *Browser) Navigate(page playwright.Page, url string) error {
	b.logger.Info("navigating", "url", url)

	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if IsLoginURL(page.URL()) {
		return ErrLoginRequired
	}

	return nil
}

func IsLoginURL(url string) bool {
	return strings.Contains(url, "/i/flow/login") || strings.Contains(url, "/login?")
}
