package scraper

import (
	"context"
	"fmt"

	"github.com/maltedev/tweet-timeline-scraper/internal/browser"
	"github.com/maltedev/tweet-timeline-scraper/internal/parser"
	"github.com/playwright-community/playwright-go"
)

// snapshotCellsJS reads every cell's markup in one round trip so a round
// sees a consistent timeline even while the site recycles nodes.
const snapshotCellsJS = `els => els.map(el => el.outerHTML)`

type playwrightPage struct {
	browser *browser.Browser
	page    playwright.Page
	sel     parser.Selectors
	parser  parser.Parser
}

type playwrightCell struct {
	index int
	html  string
}

func (c *playwrightCell) HTML(ctx context.Context) (string, error) {
	return c.html, ctx.Err()
}

// NewPlaywrightOpener opens a fresh tab of b for every crawl.
func NewPlaywrightOpener(b *browser.Browser, sel parser.Selectors) PageOpener {
	return func(ctx context.Context) (Page, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := b.NewPage()
		if err != nil {
			return nil, err
		}
		return &playwrightPage{browser: b, page: page, sel: sel, parser: parser.NewTweetParser(sel)}, nil
	}
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.browser.Navigate(p.page, url)
}

func (p *playwrightPage) ProbeText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	probe := p.page.Locator(p.sel.Probe).First()
	if err := probe.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateAttached,
	}); err != nil {
		return "", fmt.Errorf("results area not found: %w", err)
	}

	return probe.InnerText()
}

func (p *playwrightPage) Cells(ctx context.Context) ([]Cell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count, err := p.page.Locator(p.sel.Container).Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoContainer
	}

	raw, err := p.page.Locator(p.sel.Cell).EvaluateAll(snapshotCellsJS)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot cells: %w", err)
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected cell snapshot type %T", raw)
	}

	cells := make([]Cell, 0, len(items))
	for i, item := range items {
		html, _ := item.(string)
		cells = append(cells, &playwrightCell{index: i, html: html})
	}

	return cells, nil
}

func (p *playwrightPage) ScrollTo(ctx context.Context, cell Cell) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c, ok := cell.(*playwrightCell)
	if !ok {
		return fmt.Errorf("%w: foreign cell %T", ErrCellGone, cell)
	}

	if err := p.page.Locator(p.scrollTarget(c)).First().ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("%w: %v", ErrCellGone, err)
	}
	return nil
}

// scrollTarget finds the cell again by its tweet id. The timeline recycles
// nodes, so the snapshot index only serves cells without an id.
func (p *playwrightPage) scrollTarget(c *playwrightCell) string {
	id, err := p.parser.ParseID(c.html)
	if err != nil {
		return fmt.Sprintf("%s >> nth=%d", p.sel.Cell, c.index)
	}
	return fmt.Sprintf(`%s:has(a[href$="/status/%s"])`, p.sel.Cell, id)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
