package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/tweet-timeline-scraper/internal/browser"
	"github.com/maltedev/tweet-timeline-scraper/internal/config"
	"github.com/maltedev/tweet-timeline-scraper/internal/parser"
	"github.com/maltedev/tweet-timeline-scraper/internal/scraper"
	"github.com/maltedev/tweet-timeline-scraper/internal/search"
	"github.com/maltedev/tweet-timeline-scraper/pkg/logger"
)

// selector-check opens one live search and reports how each selector set
// fares against the markup currently served.
func main() {
	var (
		user     = flag.String("user", "", "Twitter screen name to search for")
		headless = flag.Bool("headless", false, "Run browser in headless mode")
	)
	flag.Parse()

	if *user == "" {
		fmt.Println("Please provide a user with -user")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	q := search.Query{User: *user}
	url, err := search.BuildURL(cfg.Scraper.BaseURL, q)
	if err != nil {
		log.Fatalf("Invalid query: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.BrowserOptions()
	opts.Headless = *headless

	b, err := browser.New(opts)
	if err != nil {
		logger.Error("Failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	for _, name := range []string{"default", "legacy"} {
		sel, _ := parser.SelectorsByName(name)
		fmt.Printf("%-8s ", name)
		if err := check(ctx, b, sel, url, cfg.Scraper.SettleDelay); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func check(ctx context.Context, b *browser.Browser, sel parser.Selectors, url string, settle time.Duration) error {
	page, err := scraper.NewPlaywrightOpener(b, sel)(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	if err := page.Goto(ctx, url); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
	}

	probe, err := page.ProbeText(ctx)
	if err != nil {
		return err
	}
	if parser.IsNoResults(probe) {
		fmt.Println("search returned no results")
		return nil
	}

	cells, err := page.Cells(ctx)
	if err != nil {
		return err
	}

	p := parser.NewTweetParser(sel)
	var ids, parsed int
	var first string
	for _, cell := range cells {
		html, err := cell.HTML(ctx)
		if err != nil {
			return err
		}
		if _, err := p.ParseID(html); err != nil {
			continue
		}
		ids++
		tweet, err := p.ParseCell(html)
		if err != nil {
			continue
		}
		parsed++
		if first == "" {
			first = fmt.Sprintf("%s %s %q", tweet.ID, parser.FormatTime(tweet.Time), tweet.Text)
		}
	}

	fmt.Printf("cells=%d ids=%d parsed=%d\n", len(cells), ids, parsed)
	if first != "" {
		fmt.Printf("  first: %s\n", first)
	}
	return nil
}
