package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/tweet-timeline-scraper/internal/models"
)

const (
	DefaultStream = "stream:tweets"

	EventTypeTweetScraped = "TWEET_SCRAPED"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// Publisher hands scraped records to a Redis stream, one entry per tweet.
type Publisher struct {
	redis  RedisClient
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, maxLen int64, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		maxLen: maxLen,
		logger: logger.With("component", "event_publisher"),
	}
}

func NewRunID() string {
	return uuid.New().String()
}

// Publish stops at the first failed XADD and reports how many entries
// made it onto the stream.
func (p *Publisher) Publish(ctx context.Context, runID, user string, records []models.Record) (int, error) {
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return i, fmt.Errorf("failed to marshal record %s: %w", rec.TweetID(), err)
		}

		args := &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]interface{}{
				"event_id":   uuid.New().String(),
				"event_type": EventTypeTweetScraped,
				"run_id":     runID,
				"user":       user,
				"tweet_id":   rec.TweetID(),
				"data":       string(data),
				"timestamp":  fmt.Sprintf("%d", time.Now().UnixNano()),
			},
		}
		if p.maxLen > 0 {
			args.MaxLen = p.maxLen
			args.Approx = true
		}

		if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
			return i, fmt.Errorf("failed to publish to redis: %w", err)
		}
	}

	p.logger.Info("records published",
		"stream", p.stream,
		"run_id", runID,
		"user", user,
		"count", len(records))

	return len(records), nil
}
