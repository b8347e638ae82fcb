package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/tweet-timeline-scraper/internal/browser"
	"github.com/maltedev/tweet-timeline-scraper/internal/config"
	"github.com/maltedev/tweet-timeline-scraper/internal/events"
	"github.com/maltedev/tweet-timeline-scraper/internal/models"
	"github.com/maltedev/tweet-timeline-scraper/internal/parser"
	"github.com/maltedev/tweet-timeline-scraper/internal/ratelimit"
	"github.com/maltedev/tweet-timeline-scraper/internal/scraper"
	"github.com/maltedev/tweet-timeline-scraper/internal/search"
	"github.com/maltedev/tweet-timeline-scraper/pkg/logger"
)

func main() {
	var (
		user     = flag.String("user", "", "Twitter screen name to scrape")
		since    = flag.String("since", "", "Earliest day to include (YYYY-MM-DD)")
		until    = flag.String("until", "", "Day to stop before (YYYY-MM-DD)")
		retweets = flag.Bool("retweets", false, "Include retweets")
		output   = flag.String("output", "stdout", "Output format: stdout, json or csv")
		headless = flag.Bool("headless", true, "Run browser in headless mode")
		publish  = flag.Bool("publish", false, "Publish scraped tweets to the Redis stream")
	)
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "Please provide a user with -user")
		flag.Usage()
		os.Exit(1)
	}

	sinceDate, err := search.ParseDate(*since)
	if err != nil {
		log.Fatalf("Invalid -since: %v", err)
	}
	untilDate, err := search.ParseDate(*until)
	if err != nil {
		log.Fatalf("Invalid -until: %v", err)
	}
	q := search.Query{User: *user, Since: sinceDate, Until: untilDate, IncludeRetweets: *retweets}
	if err := q.Validate(); err != nil {
		log.Fatalf("Invalid query: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// stdout carries the tweets
	logger := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting tweet scraper", "query", q.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	browserOpts := cfg.BrowserOptions()
	browserOpts.Headless = *headless && cfg.Browser.Headless

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("Failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	sel := cfg.Selectors()
	timeline := scraper.NewTimeline(
		scraper.NewPlaywrightOpener(b, sel),
		parser.NewTweetParser(sel),
		ratelimit.NewPacer(cfg.Scraper.ScrollMin, cfg.Scraper.ScrollMax),
		scraper.Options{
			BaseURL:     cfg.Scraper.BaseURL,
			MaxRounds:   cfg.Scraper.MaxRounds,
			SettleDelay: cfg.Scraper.SettleDelay,
		},
		logger,
	)

	records, crawlErr := timeline.Crawl(ctx, q, models.DefaultTemplate())
	if crawlErr != nil {
		if errors.Is(crawlErr, browser.ErrLoginRequired) {
			logger.Error("Search needs a logged-in session, set BROWSER_USER_DATA_DIR to a Chrome profile")
		}
		logger.Error("Crawl stopped early", "error", crawlErr, "tweets", len(records))
	}

	if err := writeRecords(os.Stdout, *output, records); err != nil {
		logger.Error("Failed to write output", "error", err)
		os.Exit(1)
	}

	if (*publish || cfg.Redis.Enabled) && len(records) > 0 {
		// an interrupted crawl still hands off what it printed
		pubCtx, pubCancel := handoffContext(ctx)
		err := publishRecords(pubCtx, cfg, logger, q.Handle(), records)
		pubCancel()
		if err != nil {
			logger.Error("Failed to publish tweets", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Scraping completed", "tweets", len(records))
	if crawlErr != nil {
		os.Exit(1)
	}
}

const handoffTimeout = 30 * time.Second

// handoffContext keeps the parent's values but not its cancellation, and
// bounds the publish on its own.
func handoffContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), handoffTimeout)
}

func publishRecords(ctx context.Context, cfg *config.Config, logger *slog.Logger, user string, records []models.Record) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	runID := events.NewRunID()
	n, err := events.NewPublisher(client, cfg.Redis.Stream, cfg.Redis.MaxLen, logger).Publish(ctx, runID, user, records)
	logger.Info("Published tweets", "run_id", runID, "stream", cfg.Redis.Stream, "count", n)
	return err
}
