package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/maltedev/tweet-timeline-scraper/internal/events"
	"github.com/maltedev/tweet-timeline-scraper/internal/models"
	"github.com/maltedev/tweet-timeline-scraper/internal/scraper"
	"github.com/maltedev/tweet-timeline-scraper/internal/search"
)

type RecordPublisher interface {
	Publish(ctx context.Context, runID, user string, records []models.Record) (int, error)
}

type Handlers struct {
	crawler      scraper.Crawler
	publisher    RecordPublisher
	crawlTimeout time.Duration
	logger       *slog.Logger
}

// NewHandlers wires the crawler into HTTP. publisher may be nil.
func NewHandlers(crawler scraper.Crawler, publisher RecordPublisher, crawlTimeout time.Duration, logger *slog.Logger) *Handlers {
	return &Handlers{
		crawler:      crawler,
		publisher:    publisher,
		crawlTimeout: crawlTimeout,
		logger:       logger.With("component", "api"),
	}
}

// TimelineRequest represents a request to scrape one user's timeline
type TimelineRequest struct {
	User            string          `json:"user"`
	Since           string          `json:"since,omitempty"`
	Until           string          `json:"until,omitempty"`
	IncludeRetweets bool            `json:"include_retweets,omitempty"`
	Template        models.Template `json:"template,omitempty"`
}

// TimelineResponse carries the scraped records; on a failed crawl it still
// holds whatever was gathered before the failure.
type TimelineResponse struct {
	RunID     string          `json:"run_id"`
	User      string          `json:"user"`
	Count     int             `json:"count"`
	Tweets    []models.Record `json:"tweets"`
	Published int             `json:"published"`
	Error     string          `json:"error,omitempty"`
}

func (r *TimelineRequest) query() (search.Query, error) {
	since, err := search.ParseDate(r.Since)
	if err != nil {
		return search.Query{}, err
	}
	until, err := search.ParseDate(r.Until)
	if err != nil {
		return search.Query{}, err
	}

	q := search.Query{
		User:            r.User,
		Since:           since,
		Until:           until,
		IncludeRetweets: r.IncludeRetweets,
	}
	return q, q.Validate()
}

// ScrapeTimeline handles synchronous timeline scraping requests
func (h *Handlers) ScrapeTimeline(w http.ResponseWriter, r *http.Request) {
	var req TimelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := req.query()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl := req.Template
	if tmpl == nil {
		tmpl = models.DefaultTemplate()
	}

	ctx := r.Context()
	if h.crawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.crawlTimeout)
		defer cancel()
	}

	runID := events.NewRunID()
	resp := TimelineResponse{RunID: runID, User: q.Handle()}

	records, err := h.crawler.Crawl(ctx, q, tmpl)
	resp.Tweets = records
	resp.Count = len(records)
	if resp.Tweets == nil {
		resp.Tweets = []models.Record{}
	}

	if err != nil {
		h.logger.Error("failed to scrape timeline", "error", err, "user", q.Handle(), "run_id", runID)
		resp.Error = err.Error()
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.respondJSON(w, status, resp)
		return
	}

	if h.publisher != nil && len(records) > 0 {
		n, err := h.publisher.Publish(r.Context(), runID, q.Handle(), records)
		if err != nil {
			h.logger.Error("failed to publish records", "error", err, "run_id", runID, "published", n)
		}
		resp.Published = n
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"publishing": h.publisher != nil,
	})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
