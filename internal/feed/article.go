package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// maxPageBytes bounds how much of an article page is read. News pages
// larger than this are almost always ad payload past the content.
const maxPageBytes = 4 << 20

type articleScraper struct {
	client *http.Client
}

func newArticleScraper() *articleScraper {
	return &articleScraper{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type articlePage struct {
	text     string
	imageURL string
}

// scrape fetches an article page once and extracts both the readable body
// text and a lead image candidate from it.
func (s *articleScraper) scrape(ctx context.Context, pageURL string) (articlePage, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return articlePage{}, fmt.Errorf("invalid article URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return articlePage{}, fmt.Errorf("article URL missing scheme or host")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return articlePage{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return articlePage{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return articlePage{}, fmt.Errorf("failed to fetch page: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return articlePage{}, err
	}

	page := articlePage{}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil {
		page.text = article.TextContent
		page.imageURL = article.Image
	}

	if page.imageURL == "" {
		page.imageURL = leadImage(bytes.NewReader(body), parsed)
	}

	if page.text == "" && page.imageURL == "" {
		return articlePage{}, fmt.Errorf("no usable content extracted")
	}
	return page, nil
}

// leadImage pulls an image candidate out of raw HTML: the og:image meta
// tag, or failing that the first inline image. Relative URLs are resolved
// against the page URL.
func leadImage(r io.Reader, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}

	if src, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && src != "" {
		return resolveURL(base, src)
	}
	if src, ok := doc.Find("article img, img").First().Attr("src"); ok && src != "" {
		return resolveURL(base, src)
	}
	return ""
}

func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}
