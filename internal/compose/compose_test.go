package compose

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warbler/internal/keywords"
	"warbler/internal/types"
)

func newTransformer(t *testing.T) *Transformer {
	t.Helper()
	ex, err := keywords.NewExtractor()
	require.NoError(t, err)
	return NewTransformer(ex, 300, nil, slog.Default())
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Breaking news today", Excerpt("Breaking news today https://example.com/a"))
	assert.Equal(t, "Before", Excerpt("Before http://x.test after"))
	assert.Equal(t, "No links here", Excerpt("No links here"))
	assert.Equal(t, "", Excerpt("https://only-a-link.test"))
}

func TestAnnotateMixedCase(t *testing.T) {
	out := Annotate("Solar Power beats coal, say experts on Wind Power", []string{"solar power", "wind power"})
	assert.Equal(t, "#Solar Power beats coal, say experts on #Wind Power", out)
}

func TestAnnotateAdjacentPhrases(t *testing.T) {
	out := Annotate("alpha beta gamma", []string{"alpha", "beta", "gamma"})
	assert.Equal(t, "#alpha #beta #gamma", out)
}

func TestAnnotateFirstOccurrenceOnly(t *testing.T) {
	out := Annotate("go fast, go far", []string{"go"})
	assert.Equal(t, "#go fast, go far", out)
}

func TestAnnotateSkipsNonAlphabetic(t *testing.T) {
	out := Annotate("version 2024 shipped", []string{"2024", "shipped"})
	assert.Equal(t, "version 2024 #shipped", out)
}

func TestAnnotateMissingPhrase(t *testing.T) {
	out := Annotate("nothing to see", []string{"absent phrase"})
	assert.Equal(t, "nothing to see", out)
}

func TestTransformRoundTrip(t *testing.T) {
	// No link marker, fewer than three candidate phrases: the text comes
	// back unmodified and no media is attached.
	tr := newTransformer(t)
	post, err := tr.Transform(context.Background(), types.ScrapedItem{Text: "Hello world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", post.Text)
	assert.Nil(t, post.Media)
}

func TestTransformAnnotates(t *testing.T) {
	tr := newTransformer(t)
	item := types.ScrapedItem{
		Text: "Solar panels and battery storage and grid capacity and carbon pricing https://example.com/story",
	}
	post, err := tr.Transform(context.Background(), item)
	require.NoError(t, err)

	markers := strings.Count(post.Text, "#")
	// Four candidate phrases -> floor(4/3) = 1 marker.
	assert.Equal(t, 1, markers)
	assert.NotContains(t, post.Text, "https://")
}

func TestTransformTopThirdCap(t *testing.T) {
	tr := newTransformer(t)
	// Nine distinct single-word phrases separated by stop words.
	item := types.ScrapedItem{
		Text: "zebra and yak and wolf and tiger and snake and raven and panda and otter and newt",
	}
	post, err := tr.Transform(context.Background(), item)
	require.NoError(t, err)
	assert.LessOrEqual(t, strings.Count(post.Text, "#"), 3)
}

func TestTransformFetchesMedia(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	tr := newTransformer(t)
	post, err := tr.Transform(context.Background(), types.ScrapedItem{
		Title:    "A headline",
		Text:     "Short body",
		MediaURL: srv.URL + "/img.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, payload, post.Media)
	assert.Equal(t, "A headline", post.MediaAlt)
}

func TestTransformMediaErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := newTransformer(t)
	_, err := tr.Transform(context.Background(), types.ScrapedItem{
		Text:     "Short body",
		MediaURL: srv.URL + "/gone.jpg",
	})
	assert.Error(t, err)
}

func TestTransformEmptyItem(t *testing.T) {
	tr := newTransformer(t)
	_, err := tr.Transform(context.Background(), types.ScrapedItem{Text: "   https://only.link"})
	assert.Error(t, err)
}

func TestTruncateWords(t *testing.T) {
	long := strings.Repeat("lengthy words keep coming ", 30)
	out := truncateWords(long, 100)
	assert.LessOrEqual(t, len([]rune(out)), 100)
	assert.True(t, strings.HasSuffix(out, "…"))

	assert.Equal(t, "short", truncateWords("short", 100))
}

func TestTruncateWordsTinyLimits(t *testing.T) {
	assert.Equal(t, "", truncateWords("hello world", 0))
	assert.Equal(t, "", truncateWords("hello world", -33))
	assert.Equal(t, "…", truncateWords("hello world", 1))
}

func TestTransformPhraseRichInputStaysWithinBudget(t *testing.T) {
	// Comma-separated unique words make one candidate phrase each, so a
	// long article selects far more phrases than the budget has room for.
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "topic%04d, ", i)
	}

	tr := newTransformer(t)
	post, err := tr.Transform(context.Background(), types.ScrapedItem{Text: sb.String()})
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(post.Text)), 300)
	assert.True(t, utf8.ValidString(post.Text))
}

func TestAnnotateMultibyteCaseMapping(t *testing.T) {
	// Lowercasing İ grows it by a byte; offsets must come from the
	// original text or the marker lands inside a rune.
	out := Annotate("İstanbul hosts the summit", []string{"hosts"})
	assert.Equal(t, "İstanbul #hosts the summit", out)
	assert.True(t, utf8.ValidString(out))

	out = Annotate("İstanbul hosts the summit", []string{"summit", "istanbul"})
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "#summit")
}

func TestTransformClampsLongText(t *testing.T) {
	ex, err := keywords.NewExtractor()
	require.NoError(t, err)
	tr := NewTransformer(ex, 80, nil, slog.Default())

	item := types.ScrapedItem{Text: strings.Repeat("municipal broadband expansion accelerates nationwide ", 10)}
	post, err := tr.Transform(context.Background(), item)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(post.Text)), 80)
}
