// Package compose turns scraped content items into postable updates:
// a quotable excerpt, hashtag-annotated with the highest-degree keyword
// phrases, with media bytes attached when the item carries an image.
package compose

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"warbler/internal/keywords"
	"warbler/internal/types"
)

// maxMediaBytes bounds a fetched image; the platform rejects blobs over
// roughly a megabyte anyway.
const maxMediaBytes = 1 << 20

// Condenser shortens text that exceeds the post length budget. Optional;
// without one the transformer truncates at a word boundary.
type Condenser interface {
	Condense(ctx context.Context, text string, limit int) (string, error)
}

type Transformer struct {
	extractor *keywords.Extractor
	maxLen    int
	condenser Condenser
	client    *http.Client
	logger    *slog.Logger
}

func NewTransformer(extractor *keywords.Extractor, maxLen int, condenser Condenser, logger *slog.Logger) *Transformer {
	if maxLen <= 0 {
		maxLen = 300
	}
	return &Transformer{
		extractor: extractor,
		maxLen:    maxLen,
		condenser: condenser,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// Transform produces a post from a scraped item. The item itself is never
// mutated; annotation operates on a copy of the text.
func (t *Transformer) Transform(ctx context.Context, item types.ScrapedItem) (types.Post, error) {
	content := Excerpt(item.Text)
	if content == "" {
		content = strings.TrimSpace(item.Title)
	}
	if content == "" {
		return types.Post{}, fmt.Errorf("item has no quotable text")
	}

	selected := t.capSelection(t.selectPhrases(content))
	if fitted, refit := t.fit(ctx, content, len(selected)); refit {
		content = fitted
		selected = t.capSelection(t.selectPhrases(content))
		// re-selection against the shorter text changes the marker
		// count, so the budget has to hold for the new count too
		if fitted, refit := t.fit(ctx, content, len(selected)); refit {
			content = fitted
		}
	}

	post := types.Post{Text: Annotate(content, selected)}

	if item.MediaURL != "" {
		media, err := t.fetchMedia(ctx, item.MediaURL)
		if err != nil {
			return types.Post{}, fmt.Errorf("fetching media: %w", err)
		}
		post.Media = media
		post.MediaAlt = item.Title
	}

	return post, nil
}

// Excerpt returns the quotable portion of text: everything before the
// first embedded link marker, whitespace-trimmed.
func Excerpt(text string) string {
	for _, marker := range []string{"http://", "https://"} {
		if idx := strings.Index(text, marker); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

func (t *Transformer) selectPhrases(content string) []string {
	return keywords.TopThird(t.extractor.Degrees(content))
}

// capSelection bounds the marker count to a quarter of the length
// budget. Phrase-dense article text can select hundreds of phrases,
// which would otherwise eat the whole budget or overrun it.
func (t *Transformer) capSelection(phrases []string) []string {
	limit := t.maxLen / 4
	if limit < 1 {
		limit = 1
	}
	if len(phrases) > limit {
		phrases = phrases[:limit]
	}
	return phrases
}

// fit shrinks content so that text plus one marker rune per selected
// phrase stays inside the length budget. Reports whether content changed,
// in which case phrases must be re-selected against the shorter text.
func (t *Transformer) fit(ctx context.Context, content string, markers int) (string, bool) {
	budget := t.maxLen - markers
	if len([]rune(content)) <= budget {
		return content, false
	}

	if t.condenser != nil {
		condensed, err := t.condenser.Condense(ctx, content, budget)
		if err == nil {
			condensed = strings.TrimSpace(condensed)
			if condensed != "" && len([]rune(condensed)) <= budget {
				return condensed, true
			}
		} else if t.logger != nil {
			t.logger.Warn("condenser failed, truncating instead", "error", err)
		}
	}

	return truncateWords(content, budget), true
}

// truncateWords cuts text to at most limit runes, preferring a word
// boundary, and appends an ellipsis.
func truncateWords(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if limit == 1 {
		return "…"
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit-1])
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \t\n.,;:") + "…"
}

// Annotate inserts a hashtag marker before the first case-insensitive
// occurrence of each phrase. Phrases without a letter are skipped.
// Insertions are applied right-to-left so earlier byte offsets stay valid
// even for adjacent phrases.
func Annotate(content string, phrases []string) string {
	positions := make([]int, 0, len(phrases))
	seen := make(map[int]bool)
	for _, phrase := range phrases {
		if !containsLetter(phrase) {
			continue
		}
		idx := indexFold(content, phrase)
		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true
		positions = append(positions, idx)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))

	for _, pos := range positions {
		content = content[:pos] + "#" + content[pos:]
	}
	return content
}

// indexFold returns the byte offset in s of the first case-insensitive
// occurrence of substr, or -1. It folds rune windows of s in place
// rather than indexing a lowered copy, so the offset is always a rune
// boundary of s even when a case mapping changes byte lengths.
func indexFold(s, substr string) int {
	n := utf8.RuneCountInString(substr)
	if n == 0 {
		return -1
	}

	starts := make([]int, 0, len(s)+1)
	for i := range s {
		starts = append(starts, i)
	}
	starts = append(starts, len(s))

	for k := 0; k+n < len(starts); k++ {
		if strings.EqualFold(s[starts[k]:starts[k+n]], substr) {
			return starts[k]
		}
	}
	return -1
}

func containsLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func (t *Transformer) fetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxMediaBytes)
	}
	return data, nil
}
