package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/tweet-timeline-scraper/internal/models"
	"github.com/maltedev/tweet-timeline-scraper/internal/parser"
	"github.com/maltedev/tweet-timeline-scraper/internal/search"
)

type fakeCell struct {
	html string
}

func (c *fakeCell) HTML(ctx context.Context) (string, error) {
	return c.html, nil
}

// cancellingCell cancels the crawl while its markup is being read, the way
// a detached tab fails mid-round.
type cancellingCell struct {
	cancel context.CancelFunc
}

func (c *cancellingCell) HTML(ctx context.Context) (string, error) {
	c.cancel()
	return "", ctx.Err()
}

// fakePage serves one screen of cells per Cells call and repeats the last
// screen once the script runs out.
type fakePage struct {
	probe    string
	screens  [][]Cell
	next     func(round int) []Cell
	gotoErr  error
	visited  []string
	scrolled []Cell
	rounds   int
	closed   bool
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	p.visited = append(p.visited, url)
	return p.gotoErr
}

func (p *fakePage) ProbeText(ctx context.Context) (string, error) {
	return p.probe, nil
}

func (p *fakePage) Cells(ctx context.Context) ([]Cell, error) {
	p.rounds++
	if p.next != nil {
		return p.next(p.rounds), nil
	}
	if len(p.screens) == 0 {
		return nil, nil
	}
	i := p.rounds - 1
	if i >= len(p.screens) {
		i = len(p.screens) - 1
	}
	return p.screens[i], nil
}

func (p *fakePage) ScrollTo(ctx context.Context, cell Cell) error {
	p.scrolled = append(p.scrolled, cell)
	return nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type countingPauser struct {
	pauses int
	err    error
}

func (c *countingPauser) Pause(ctx context.Context) error {
	c.pauses++
	return c.err
}

func tweetCell(id string) *fakeCell {
	return &fakeCell{html: fmt.Sprintf(`<div data-testid="cellInnerDiv"><article>
		<a href="/nasa/status/%s"><time datetime="2020-09-10T16:53:02.000Z">Sep 10</time></a>
		<div data-testid="tweetText">tweet %s</div>
		<div role="group" aria-label="1 reply, 2 reposts, 3 likes"></div>
	</article></div>`, id, id)}
}

func newTestTimeline(page *fakePage, pauser *countingPauser, maxRounds int) (*Timeline, *int) {
	opened := 0
	open := func(ctx context.Context) (Page, error) {
		opened++
		return page, nil
	}
	opts := Options{BaseURL: "https://twitter.com", MaxRounds: maxRounds}
	return NewTimeline(open, parser.NewTweetParser(parser.DefaultSelectors()), pauser, opts, slog.Default()), &opened
}

func ids(records []models.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.TweetID())
	}
	return out
}

func TestTimelineCrawlDeduplicatesAndScrolls(t *testing.T) {
	c1, c2, c3, c4 := tweetCell("1"), tweetCell("2"), tweetCell("3"), tweetCell("4")
	page := &fakePage{
		probe: "Latest",
		screens: [][]Cell{
			{c1, c2, c3},
			{c2, c3, c4},
			{c3, c4},
		},
	}
	pauser := &countingPauser{}
	timeline, _ := newTestTimeline(page, pauser, 0)

	records, err := timeline.Crawl(context.Background(), search.Query{User: "nasa"}, models.DefaultTemplate())
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(records))
	assert.Equal(t, []Cell{c3, c4}, page.scrolled)
	assert.Equal(t, 2, pauser.pauses)
	assert.Equal(t, 3, page.rounds)
	assert.True(t, page.closed)
	require.Len(t, page.visited, 1)
	assert.Contains(t, page.visited[0], "https://twitter.com/search?")

	first := records[0]
	assert.Equal(t, "tweet 1", first[models.FieldText])
	assert.Equal(t, "2020-09-10 16:53:02", first[models.FieldTime])
	assert.Equal(t, 1, first[models.FieldReplies])
	assert.Equal(t, 2, first[models.FieldRetweets])
	assert.Equal(t, 3, first[models.FieldLikes])
	assert.Equal(t, 0, first["is_retweet"])
}

func TestTimelineCrawlNoResults(t *testing.T) {
	page := &fakePage{probe: "你输入的词没有找到任何结果"}
	timeline, _ := newTestTimeline(page, &countingPauser{}, 0)

	records, err := timeline.Crawl(context.Background(), search.Query{User: "nobody"}, nil)
	require.NoError(t, err)

	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, 0, page.rounds)
	assert.True(t, page.closed)
}

func TestTimelineCrawlSkipsBrokenCells(t *testing.T) {
	spacer := &fakeCell{html: `<div data-testid="cellInnerDiv"><div>Show more</div></div>`}
	noFeedback := &fakeCell{html: `<div><article>
		<a href="/nasa/status/2"><time datetime="2020-09-10T16:53:02.000Z"></time></a>
		<div data-testid="tweetText">no buttons</div>
	</article></div>`}
	good := tweetCell("1")

	page := &fakePage{
		screens: [][]Cell{
			{good, noFeedback, spacer},
			{noFeedback, spacer},
		},
	}
	timeline, _ := newTestTimeline(page, &countingPauser{}, 0)

	records, err := timeline.Crawl(context.Background(), search.Query{User: "nasa"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, ids(records))
	// the cell whose parse failed still counts as seen and is the scroll target
	assert.Equal(t, []Cell{noFeedback}, page.scrolled)
	assert.Equal(t, 2, page.rounds)
}

func TestTimelineCrawlStopsAtMaxRounds(t *testing.T) {
	page := &fakePage{
		next: func(round int) []Cell {
			return []Cell{tweetCell(fmt.Sprint(round))}
		},
	}
	pauser := &countingPauser{}
	timeline, _ := newTestTimeline(page, pauser, 3)

	records, err := timeline.Crawl(context.Background(), search.Query{User: "nasa"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, ids(records))
	assert.Equal(t, 3, page.rounds)
	assert.Equal(t, 3, pauser.pauses)
}

func TestTimelineCrawlReturnsPartialResultsOnCancel(t *testing.T) {
	page := &fakePage{
		next: func(round int) []Cell {
			return []Cell{tweetCell(fmt.Sprint(round))}
		},
	}
	pauser := &countingPauser{err: context.Canceled}
	timeline, _ := newTestTimeline(page, pauser, 0)

	records, err := timeline.Crawl(context.Background(), search.Query{User: "nasa"}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1"}, ids(records))
	assert.True(t, page.closed)
}

func TestTimelineCrawlCancelledWhileReadingCells(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := &fakePage{
		screens: [][]Cell{
			{tweetCell("1")},
			{tweetCell("1"), &cancellingCell{cancel: cancel}},
		},
	}
	pauser := &countingPauser{}
	timeline, _ := newTestTimeline(page, pauser, 0)

	records, err := timeline.Crawl(ctx, search.Query{User: "nasa"}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1"}, ids(records))
	assert.Equal(t, 2, page.rounds)
	assert.Equal(t, 1, pauser.pauses)
	assert.True(t, page.closed)
}

func TestTimelineCrawlLogsSkippedCellsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	spacer := &fakeCell{html: `<div data-testid="cellInnerDiv"><div>Show more</div></div>`}
	page := &fakePage{screens: [][]Cell{{spacer}}}
	open := func(ctx context.Context) (Page, error) { return page, nil }
	timeline := NewTimeline(open, parser.NewTweetParser(parser.DefaultSelectors()), &countingPauser{},
		Options{BaseURL: "https://twitter.com"}, logger)

	records, err := timeline.Crawl(context.Background(), search.Query{User: "nasa"}, nil)
	require.NoError(t, err)

	assert.Empty(t, records)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "tweet id not found")
}

func TestTimelineCrawlInvalidQuery(t *testing.T) {
	page := &fakePage{}
	timeline, opened := newTestTimeline(page, &countingPauser{}, 0)

	_, err := timeline.Crawl(context.Background(), search.Query{}, nil)

	assert.ErrorIs(t, err, search.ErrInvalidQuery)
	assert.Equal(t, 0, *opened)
}

func TestTimelineCrawlNavigationFailure(t *testing.T) {
	navErr := errors.New("net::ERR_CONNECTION_RESET")
	page := &fakePage{gotoErr: navErr}
	timeline, _ := newTestTimeline(page, &countingPauser{}, 0)

	_, err := timeline.Crawl(context.Background(), search.Query{User: "nasa"}, nil)

	assert.ErrorIs(t, err, navErr)
	assert.True(t, page.closed)
}

func TestTimelineCrawlKeepsTemplateKeys(t *testing.T) {
	page := &fakePage{screens: [][]Cell{{tweetCell("7")}}}
	timeline, _ := newTestTimeline(page, &countingPauser{}, 0)

	tmpl := models.Template{"account": "nasa", "tweet_id": nil}
	records, err := timeline.Crawl(context.Background(), search.Query{User: "nasa"}, tmpl)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "nasa", records[0]["account"])
	assert.Equal(t, "7", records[0]["tweet_id"])
	assert.Nil(t, tmpl["tweet_id"])
}
