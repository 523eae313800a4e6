package feed

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"warbler/internal/types"
)

// RSS reads items from one or more RSS/Atom feeds. Entries are drained
// front to back; the article page is only fetched for entries that are
// actually consumed, since a search cycle takes at most one item.
type RSS struct {
	urls      []string
	maxItems  int
	parser    *gofeed.Parser
	sanitizer *bluemonday.Policy
	scraper   *articleScraper
	logger    *slog.Logger

	loaded bool
	queue  []entry
}

type entry struct {
	title    string
	link     string
	text     string
	mediaURL string
}

func NewRSS(urls []string, maxItems int, logger *slog.Logger) *RSS {
	if maxItems <= 0 {
		maxItems = 50
	}
	return &RSS{
		urls:      urls,
		maxItems:  maxItems,
		parser:    gofeed.NewParser(),
		sanitizer: bluemonday.StrictPolicy(),
		scraper:   newArticleScraper(),
		logger:    logger,
	}
}

// NewRSSFactory adapts NewRSS to the Factory contract.
func NewRSSFactory(urls []string, maxItems int, logger *slog.Logger) Factory {
	return func(ctx context.Context) (Feed, error) {
		f := NewRSS(urls, maxItems, logger)
		if err := f.load(ctx); err != nil {
			return nil, err
		}
		return f, nil
	}
}

func (r *RSS) Next(ctx context.Context) (types.ScrapedItem, error) {
	if !r.loaded {
		if err := r.load(ctx); err != nil {
			return types.ScrapedItem{}, err
		}
	}

	for len(r.queue) > 0 {
		e := r.queue[0]
		r.queue = r.queue[1:]

		item := r.enrich(ctx, e)
		if strings.TrimSpace(item.Text) == "" && strings.TrimSpace(item.Title) == "" {
			r.logger.Debug("skipping empty feed entry", "link", e.link)
			continue
		}
		return item, nil
	}

	return types.ScrapedItem{}, types.ErrFeedExhausted
}

func (r *RSS) load(ctx context.Context) error {
	r.loaded = true

	var parsed int
	for _, feedURL := range r.urls {
		if len(r.queue) >= r.maxItems {
			break
		}

		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			r.logger.Warn("failed to parse feed", "feed_url", feedURL, "error", err)
			continue
		}
		parsed++

		for _, feedItem := range feed.Items {
			if len(r.queue) >= r.maxItems {
				break
			}
			r.queue = append(r.queue, r.convert(feedItem))
		}
	}

	if parsed == 0 && len(r.urls) > 0 {
		return fmt.Errorf("none of %d configured feeds could be parsed", len(r.urls))
	}

	r.logger.Info("content feed loaded", "feeds", parsed, "items", len(r.queue))
	return nil
}

func (r *RSS) convert(feedItem *gofeed.Item) entry {
	text := feedItem.Description
	if text == "" {
		text = feedItem.Content
	}

	e := entry{
		title: strings.TrimSpace(html.UnescapeString(r.sanitizer.Sanitize(feedItem.Title))),
		link:  feedItem.Link,
		text:  collapseWhitespace(html.UnescapeString(r.sanitizer.Sanitize(text))),
	}
	if feedItem.Image != nil {
		e.mediaURL = feedItem.Image.URL
	}
	return e
}

// enrich fetches the article page when the feed entry had no body text,
// filling in the readable text and, opportunistically, a lead image if the
// entry carried no enclosure. Entries that already have text are used
// as-is; one page fetch per consumed empty entry is the ceiling.
func (r *RSS) enrich(ctx context.Context, e entry) types.ScrapedItem {
	item := types.ScrapedItem{
		Title:    e.title,
		Text:     e.text,
		Link:     e.link,
		MediaURL: e.mediaURL,
	}

	if e.link == "" || item.Text != "" {
		return item
	}

	page, err := r.scraper.scrape(ctx, e.link)
	if err != nil {
		r.logger.Warn("article scrape failed", "link", e.link, "error", err)
		return item
	}
	if item.Text == "" {
		item.Text = collapseWhitespace(page.text)
	}
	if item.MediaURL == "" {
		item.MediaURL = page.imageURL
	}
	return item
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
