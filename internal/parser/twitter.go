package parser

import (
	"fmt"
	stdhtml "html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/tweet-timeline-scraper/internal/models"
)

var (
	tweetIDPattern  = regexp.MustCompile(`[0-9]+$`)
	feedbackPattern = regexp.MustCompile(`(\d[\d,.]*)\s*([^\d,，、]+)`)

	noResultsMarkers = []string{
		"你输入的词没有找到任何结果",
		"No results for",
	}
)

type TweetParser struct {
	sel Selectors
}

func NewTweetParser(sel Selectors) *TweetParser {
	return &TweetParser{sel: sel}
}

func (p *TweetParser) Selectors() Selectors {
	return p.sel
}

func (p *TweetParser) ParseID(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return p.extractID(doc)
}

// ParseCell extracts every field of one timeline cell. The first missing
// node aborts the parse with the matching Err*NotFound.
func (p *TweetParser) ParseCell(html string) (*models.Tweet, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	id, err := p.extractID(doc)
	if err != nil {
		return nil, err
	}

	tweet := &models.Tweet{ID: id}

	if tweet.Time, err = p.extractTime(doc); err != nil {
		return nil, err
	}

	if tweet.Text, err = p.extractContent(doc); err != nil {
		return nil, err
	}

	label, ok := doc.Find(p.sel.Feedback).First().Attr("aria-label")
	if !ok {
		return nil, ErrFeedbackNotFound
	}
	tweet.Replies, tweet.Retweets, tweet.Likes = ParseFeedback(label)

	return tweet, nil
}

func (p *TweetParser) extractID(doc *goquery.Document) (string, error) {
	href, ok := doc.Find(p.sel.ID).First().Attr("href")
	if !ok {
		return "", ErrIDNotFound
	}
	id := tweetIDPattern.FindString(strings.TrimSpace(href))
	if id == "" {
		return "", fmt.Errorf("%w: no numeric suffix in %q", ErrIDNotFound, href)
	}
	return id, nil
}

func (p *TweetParser) extractTime(doc *goquery.Document) (time.Time, error) {
	raw, ok := doc.Find(p.sel.Time).First().Attr("datetime")
	if !ok || raw == "" {
		return time.Time{}, ErrTimeNotFound
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad datetime %q", ErrTimeNotFound, raw)
	}
	return t.UTC(), nil
}

func (p *TweetParser) extractContent(doc *goquery.Document) (string, error) {
	content := doc.Find(p.sel.Content).First()
	if content.Length() == 0 {
		return "", ErrContentNotFound
	}

	// Emoji are rendered as images; keep their alt text in place.
	content.Find("img").Each(func(_ int, img *goquery.Selection) {
		img.ReplaceWithHtml(stdhtml.EscapeString(img.AttrOr("alt", "")))
	})

	return strings.TrimSpace(content.Text()), nil
}

// ParseFeedback reads the reply, retweet and like counts out of the
// engagement group's aria-label. Counts that are absent stay zero.
func ParseFeedback(label string) (replies, retweets, likes int) {
	for _, m := range feedbackPattern.FindAllStringSubmatch(label, -1) {
		n := parseCount(m[1])
		word := strings.ToLower(strings.TrimSpace(m[2]))

		switch {
		case strings.Contains(word, "回复"), strings.HasPrefix(word, "repl"):
			replies = n
		case strings.Contains(word, "转推"), strings.Contains(word, "转帖"),
			strings.Contains(word, "retweet"), strings.Contains(word, "repost"):
			retweets = n
		case strings.Contains(word, "喜欢"), strings.HasPrefix(word, "like"):
			likes = n
		}
	}
	return replies, retweets, likes
}

func parseCount(s string) int {
	s = strings.NewReplacer(",", "", ".", "").Replace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// IsNoResults reports whether the probe text is the empty-search notice.
func IsNoResults(text string) bool {
	for _, marker := range noResultsMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(models.TimeLayout)
}
