package search

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://twitter.com"
	DateLayout     = "2006-01-02"
)

var ErrInvalidQuery = errors.New("invalid search query")

// Query selects one user's tweets on the "Latest" search timeline.
// Since is inclusive, Until is exclusive.
type Query struct {
	User            string
	Since           *time.Time
	Until           *time.Time
	IncludeRetweets bool
}

func (q Query) Validate() error {
	if q.Handle() == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidQuery)
	}
	if strings.ContainsAny(q.Handle(), " \t\n") {
		return fmt.Errorf("%w: user %q contains whitespace", ErrInvalidQuery, q.User)
	}
	if q.Since != nil && q.Until != nil && !q.Since.Before(*q.Until) {
		return fmt.Errorf("%w: since %s is not before until %s",
			ErrInvalidQuery, q.Since.Format(DateLayout), q.Until.Format(DateLayout))
	}
	return nil
}

func (q Query) String() string {
	terms := []string{"from:" + q.Handle()}
	if !q.IncludeRetweets {
		terms = append(terms, "-filter:retweets")
	}
	if q.Since != nil {
		terms = append(terms, "since:"+q.Since.Format(DateLayout))
	}
	if q.Until != nil {
		terms = append(terms, "until:"+q.Until.Format(DateLayout))
	}
	return strings.Join(terms, " ")
}

// BuildURL returns the live search URL for q under base.
func BuildURL(base string, q Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + "/search")
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %w", err)
	}

	params := url.Values{}
	params.Set("q", q.String())
	params.Set("f", "live")
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// ParseDate parses a YYYY-MM-DD flag value. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidQuery, s)
	}
	return &t, nil
}

// Handle is the screen name without surrounding space or a leading "@".
func (q Query) Handle() string {
	return strings.TrimPrefix(strings.TrimSpace(q.User), "@")
}
