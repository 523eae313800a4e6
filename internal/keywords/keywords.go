// Package keywords ranks words and phrases in a text blob by co-occurrence
// degree. Phrase boundaries follow stop-word-delimited segmentation: stop
// words and sentence punctuation split the text into candidate phrases, and
// each phrase is scored by the co-occurrence weight of its member words.
package keywords

import (
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
)

type Extractor struct {
	stop analysis.TokenMap
}

func NewExtractor() (*Extractor, error) {
	tm := analysis.NewTokenMap()
	if err := tm.LoadBytes(en.EnglishStopWords); err != nil {
		return nil, err
	}
	return &Extractor{stop: tm}, nil
}

// Degrees returns a phrase -> score mapping for the given text. Higher
// scores mark phrases whose words co-occur with more other content words.
// Deterministic for a given text.
func (e *Extractor) Degrees(text string) map[string]float64 {
	phrases := e.phrases(text)

	freq := make(map[string]int)
	degree := make(map[string]int)
	for _, phrase := range phrases {
		for _, word := range phrase {
			freq[word]++
			degree[word] += len(phrase) - 1
		}
	}
	for word, f := range freq {
		degree[word] += f
	}

	scores := make(map[string]float64, len(phrases))
	for _, phrase := range phrases {
		var score float64
		for _, word := range phrase {
			score += float64(degree[word]) / float64(freq[word])
		}
		key := strings.Join(phrase, " ")
		if score > scores[key] {
			scores[key] = score
		}
	}
	return scores
}

// TopThird selects the floor(n/3) highest-scoring phrases, descending.
// Ties break lexically so selection is stable across runs.
func TopThird(scores map[string]float64) []string {
	phrases := make([]string, 0, len(scores))
	for phrase := range scores {
		phrases = append(phrases, phrase)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if scores[phrases[i]] != scores[phrases[j]] {
			return scores[phrases[i]] > scores[phrases[j]]
		}
		return phrases[i] < phrases[j]
	})

	keep := len(phrases) / 3
	return phrases[:keep]
}

// phrases splits text into candidate phrases: runs of content words with
// stop words and sentence punctuation acting as delimiters. Words are
// lowercased; empty runs are dropped.
func (e *Extractor) phrases(text string) [][]string {
	fragments := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', ',', ';', ':', '!', '?', '(', ')', '[', ']', '{', '}', '"', '“', '”', '—', '/', '|', '\n', '\t':
			return true
		}
		return false
	})

	var out [][]string
	for _, fragment := range fragments {
		var current []string
		for _, raw := range strings.Fields(fragment) {
			word := strings.ToLower(strings.TrimFunc(raw, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsNumber(r)
			}))
			if word == "" || e.stop[word] {
				if len(current) > 0 {
					out = append(out, current)
					current = nil
				}
				continue
			}
			current = append(current, word)
		}
		if len(current) > 0 {
			out = append(out, current)
		}
	}
	return out
}
