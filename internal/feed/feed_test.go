package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warbler/internal/types"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Wire</title>
  <link>https://wire.test</link>
  <item>
    <title>First &amp; Foremost</title>
    <link>https://wire.test/one</link>
    <description>&lt;p&gt;City council approves &lt;b&gt;transit&lt;/b&gt; expansion plan.&lt;/p&gt;</description>
  </item>
  <item>
    <title>Second Story</title>
    <link>https://wire.test/two</link>
    <description>Harbor cleanup enters final phase.</description>
  </item>
</channel>
</rss>`

func serveRSS(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
}

func TestRSSNextAndExhaustion(t *testing.T) {
	srv := serveRSS(t, rssFixture)
	defer srv.Close()

	f := NewRSS([]string{srv.URL}, 10, slog.Default())
	ctx := context.Background()

	first, err := f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First & Foremost", first.Title)
	assert.Equal(t, "City council approves transit expansion plan.", first.Text)
	assert.NotContains(t, first.Text, "<")

	second, err := f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Second Story", second.Title)

	_, err = f.Next(ctx)
	assert.True(t, errors.Is(err, types.ErrFeedExhausted))
}

func TestRSSMaxItems(t *testing.T) {
	srv := serveRSS(t, rssFixture)
	defer srv.Close()

	f := NewRSS([]string{srv.URL}, 1, slog.Default())
	ctx := context.Background()

	_, err := f.Next(ctx)
	require.NoError(t, err)
	_, err = f.Next(ctx)
	assert.True(t, errors.Is(err, types.ErrFeedExhausted))
}

func TestRSSAllFeedsUnreachable(t *testing.T) {
	f := NewRSS([]string{"http://127.0.0.1:1/feed.xml"}, 10, slog.Default())
	_, err := f.Next(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrFeedExhausted))
}

func TestFactoryBuildsFreshFeed(t *testing.T) {
	srv := serveRSS(t, rssFixture)
	defer srv.Close()

	factory := NewRSSFactory([]string{srv.URL}, 10, slog.Default())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		f, err := factory(ctx)
		require.NoError(t, err)
		item, err := f.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "First & Foremost", item.Title)
	}
}

func TestLeadImageOpenGraph(t *testing.T) {
	html := `<html><head>
	<meta property="og:image" content="https://cdn.test/lead.jpg">
	</head><body><img src="/inline.png"></body></html>`

	base, _ := url.Parse("https://wire.test/one")
	assert.Equal(t, "https://cdn.test/lead.jpg", leadImage(strings.NewReader(html), base))
}

func TestLeadImageFallbackRelative(t *testing.T) {
	html := `<html><body><article><img src="/img/lead.png"></article></body></html>`
	base, _ := url.Parse("https://wire.test/one")
	assert.Equal(t, "https://wire.test/img/lead.png", leadImage(strings.NewReader(html), base))
}

func TestLeadImageNone(t *testing.T) {
	base, _ := url.Parse("https://wire.test/one")
	assert.Equal(t, "", leadImage(strings.NewReader("<html><body>text</body></html>"), base))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", collapseWhitespace("  a\n\n b\t c  "))
}
