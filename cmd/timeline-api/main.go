package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/tweet-timeline-scraper/internal/api"
	"github.com/maltedev/tweet-timeline-scraper/internal/browser"
	"github.com/maltedev/tweet-timeline-scraper/internal/config"
	"github.com/maltedev/tweet-timeline-scraper/internal/events"
	"github.com/maltedev/tweet-timeline-scraper/internal/parser"
	"github.com/maltedev/tweet-timeline-scraper/internal/ratelimit"
	"github.com/maltedev/tweet-timeline-scraper/internal/scraper"
	"github.com/maltedev/tweet-timeline-scraper/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Browser setup
	b, err := browser.New(cfg.BrowserOptions())
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sel := cfg.Selectors()
	var crawler scraper.Crawler = scraper.NewTimeline(
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
	crawler = scraper.NewMetricMiddleware(crawler, registry)

	var publisher api.RecordPublisher
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		publisher = events.NewPublisher(redisClient, cfg.Redis.Stream, cfg.Redis.MaxLen, logger)
	}

	handlers := api.NewHandlers(crawler, publisher, cfg.Server.CrawlTimeout, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers, cfg.Server.AllowedOrigins, registry, cfg.Server.WriteTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr, "publishing", publisher != nil)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
