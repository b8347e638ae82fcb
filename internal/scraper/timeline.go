package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/tweet-timeline-scraper/internal/models"
	"github.com/maltedev/tweet-timeline-scraper/internal/parser"
	"github.com/maltedev/tweet-timeline-scraper/internal/ratelimit"
	"github.com/maltedev/tweet-timeline-scraper/internal/search"
)

type Options struct {
	BaseURL string
	// MaxRounds caps the scan-and-scroll rounds of one crawl.
	MaxRounds int
	// SettleDelay is the wait between navigation and the first scan.
	SettleDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		BaseURL:     search.DefaultBaseURL,
		MaxRounds:   1000,
		SettleDelay: 3 * time.Second,
	}
}

type Timeline struct {
	open   PageOpener
	parser parser.Parser
	pauser ratelimit.Pauser
	opts   Options
	logger *slog.Logger
}

func NewTimeline(open PageOpener, p parser.Parser, pauser ratelimit.Pauser, opts Options, logger *slog.Logger) *Timeline {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultOptions().MaxRounds
	}
	return &Timeline{
		open:   open,
		parser: p,
		pauser: pauser,
		opts:   opts,
		logger: logger.With("component", "timeline"),
	}
}

// Crawl opens the live search for q and scans the timeline, scrolling to
// the last newly seen cell after each round, until a round finds nothing
// new. Records come back in discovery order with unique tweet ids. On
// cancellation the records gathered so far are returned with the error.
func (t *Timeline) Crawl(ctx context.Context, q search.Query, tmpl models.Template) ([]models.Record, error) {
	url, err := search.BuildURL(t.opts.BaseURL, q)
	if err != nil {
		return nil, err
	}

	logger := t.logger.With("user", q.Handle())
	logger.Info("crawling timeline", "url", url)

	page, err := t.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := page.Goto(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to open search: %w", err)
	}

	if err := sleep(ctx, t.opts.SettleDelay); err != nil {
		return nil, err
	}

	records := make([]models.Record, 0)

	probe, err := page.ProbeText(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	if parser.IsNoResults(probe) {
		logger.Info("search returned no results")
		return records, nil
	}

	seen := make(map[string]struct{})
	rounds := 0

	for rounds < t.opts.MaxRounds {
		rounds++

		if err := ctx.Err(); err != nil {
			return records, err
		}

		cells, err := page.Cells(ctx)
		if err != nil {
			return records, fmt.Errorf("failed to list timeline cells: %w", err)
		}

		var lastNew Cell
		for _, cell := range cells {
			html, err := cell.HTML(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return records, ctxErr
				}
				logger.Warn("skipping cell", "error", err)
				continue
			}

			id, err := t.parser.ParseID(html)
			if err != nil {
				logger.Warn("tweet id not found", "error", err)
				continue
			}

			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			lastNew = cell

			tweet, err := t.parser.ParseCell(html)
			if err != nil {
				logger.Warn("skipping tweet", "tweet_id", id, "error", err)
				continue
			}

			records = append(records, tweet.Record(tmpl))
		}

		if err := ctx.Err(); err != nil {
			return records, err
		}

		if lastNew == nil {
			break
		}

		if err := page.ScrollTo(ctx, lastNew); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return records, err
			}
			logger.Warn("failed to scroll timeline", "error", err)
		}

		if err := t.pauser.Pause(ctx); err != nil {
			return records, err
		}
	}

	logger.Info("timeline crawled", "tweets", len(records), "seen", len(seen), "rounds", rounds)
	return records, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
