package parser

import (
	"errors"

	"github.com/maltedev/tweet-timeline-scraper/internal/models"
)

var (
	ErrIDNotFound       = errors.New("tweet id not found")
	ErrTimeNotFound     = errors.New("tweet time not found")
	ErrContentNotFound  = errors.New("tweet content not found")
	ErrFeedbackNotFound = errors.New("tweet feedback not found")
)

type Parser interface {
	ParseID(html string) (string, error)
	ParseCell(html string) (*models.Tweet, error)
}

// Selectors locate the parts of the search timeline. The site changes its
// markup often; keep every selector here.
type Selectors struct {
	// Probe holds the results area; its text reveals an empty search.
	Probe string
	// Container is the element whose direct children are timeline cells.
	Container string
	// Cell selects the cells, relative to the page.
	Cell string

	ID       string
	Time     string
	Content  string
	Feedback string
}

// DefaultSelectors target the data-testid markup served by the current site.
func DefaultSelectors() Selectors {
	container := `[data-testid="primaryColumn"] section > div > div`
	return Selectors{
		Probe:     `[data-testid="primaryColumn"]`,
		Container: container,
		Cell:      container + ` > div`,
		ID:        `article a[href*="/status/"]:has(time)`,
		Time:      `article a[href*="/status/"] > time`,
		Content:   `article [data-testid="tweetText"]`,
		Feedback:  `article div[role="group"]`,
	}
}

// LegacySelectors are the positional selectors of the 2020 layout.
func LegacySelectors() Selectors {
	probe := "main > div > div > div > div:nth-child(1) > div > div:nth-child(2) > div > div"
	container := probe + " > section > div > div"
	header := "article > div > div > div > div:nth-child(2) > div:nth-child(2) > div:nth-child(1) > div > div > div:nth-child(1) > a"
	body := "article > div > div > div > div:nth-child(2) > div:nth-child(2) > div:nth-child(2)"
	return Selectors{
		Probe:     probe,
		Container: container,
		Cell:      container + " > div",
		ID:        header,
		Time:      header + " > time",
		Content:   body + " > div:nth-child(1)",
		Feedback:  body + " > div[role='group']",
	}
}

// SelectorsByName maps a configuration value to a selector set.
func SelectorsByName(name string) (Selectors, bool) {
	switch name {
	case "", "default", "testid":
		return DefaultSelectors(), true
	case "legacy":
		return LegacySelectors(), true
	}
	return Selectors{}, false
}
