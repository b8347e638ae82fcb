package scraper

import (
	"context"
	"errors"

	"github.com/maltedev/tweet-timeline-scraper/internal/models"
	"github.com/maltedev/tweet-timeline-scraper/internal/search"
)

var (
	ErrNoContainer = errors.New("timeline container not found")
	ErrCellGone    = errors.New("timeline cell detached")
)

// Crawler scrapes one user's search timeline into template records.
type Crawler interface {
	Crawl(ctx context.Context, q search.Query, tmpl models.Template) ([]models.Record, error)
}

// Page is the slice of a browser tab the timeline loop needs.
type Page interface {
	Goto(ctx context.Context, url string) error
	// ProbeText returns the visible text of the results area.
	ProbeText(ctx context.Context) (string, error)
	// Cells lists the timeline cells currently in the DOM, top to bottom.
	Cells(ctx context.Context) ([]Cell, error)
	ScrollTo(ctx context.Context, cell Cell) error
	Close() error
}

type Cell interface {
	HTML(ctx context.Context) (string, error)
}

type PageOpener func(ctx context.Context) (Page, error)
