package digest

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

// Header is the summary line block rendered above a digest.
type Header struct {
	DateLabel     string
	Greeting      string
	Selected      int
	ActiveSources string
	Themes        []string
}

func newHeader(d *Digest, corpus []content.Item, opts Options) Header {
	local := opts.Clock.Local(d.Now)
	shown := d.Items()
	return Header{
		DateLabel:     local.Format("Jan 2"),
		Greeting:      greeting(local),
		Selected:      len(shown),
		ActiveSources: activeSources(shown),
		Themes:        trending(shown, corpus),
	}
}

// DescriptionExcerpt returns the first sentence of a description, or its
// first 150 characters.
func DescriptionExcerpt(desc string) string {
	if desc == "" {
		return ""
	}
	for i, c := range desc {
		if c == '.' && i > 20 {
			return desc[:i+1]
		}
	}
	runes := []rune(desc)
	if len(runes) > 150 {
		return string(runes[:150]) + "..."
	}
	return desc
}

// ReadingTime estimates minutes to read the full article from its
// description length.
func ReadingTime(desc string) int {
	words := len(strings.Fields(desc))
	// Descriptions are roughly a third of the article, read at 200 WPM.
	return max(1, (words*3)/200)
}

func greeting(now time.Time) string {
	hour := now.Hour()
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func activeSources(items []content.Item) string {
	counts := map[string]int{}
	for _, it := range items {
		name := it.Source
		if name == "" {
			name = it.SourceKey
		}
		if name != "" {
			counts[name]++
		}
	}

	type sc struct {
		name  string
		count int
	}
	var sorted []sc
	for name, count := range counts {
		sorted = append(sorted, sc{name, count})
	}
	slices.SortFunc(sorted, func(a, b sc) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	limit := min(3, len(sorted))
	parts := make([]string, limit)
	for i := 0; i < limit; i++ {
		parts[i] = fmt.Sprintf("%s (%d)", sorted[i].name, sorted[i].count)
	}
	return strings.Join(parts, ", ")
}

// trending extracts the top title keywords of shown items using TF-IDF over
// the whole corpus.
func trending(shown, corpus []content.Item) []string {
	df := map[string]int{}
	for _, it := range corpus {
		seen := map[string]bool{}
		for _, w := range tokenize(it.Title) {
			if !seen[w] {
				df[w]++
				seen[w] = true
			}
		}
	}

	tf := map[string]int{}
	for _, it := range shown {
		for _, w := range tokenize(it.Title) {
			tf[w]++
		}
	}

	totalDocs := max(1, len(corpus))

	type scored struct {
		term  string
		score float64
	}
	var terms []scored
	for term, freq := range tf {
		if freq < 2 {
			continue
		}
		docFreq := max(1, df[term])
		idf := math.Log(float64(totalDocs) / float64(docFreq))
		terms = append(terms, scored{term, float64(freq) * idf})
	}

	slices.SortFunc(terms, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.term, b.term)
	})

	limit := min(3, len(terms))
	if limit == 0 {
		return nil
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = terms[i].term
	}
	return out
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "is": true, "it": true, "its": true,
	"this": true, "that": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "not": true, "no": true, "nor": true,
	"how": true, "what": true, "when": true, "where": true, "who": true, "which": true,
	"why": true, "all": true, "each": true, "every": true, "both": true, "few": true,
	"more": true, "most": true, "other": true, "some": true, "such": true, "than": true,
	"too": true, "very": true, "just": true, "about": true, "into": true, "over": true,
	"after": true, "before": true, "between": true, "under": true, "above": true,
	"out": true, "up": true, "down": true, "off": true, "our": true, "your": true,
	"we": true, "you": true, "they": true, "them": true, "their": true, "new": true,
	"use": true, "using": true, "used": true, "says": true, "said": true, "launches": true,
	"announces": true, "model": true, "models": true,
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(word)) < 3 {
			continue
		}
		if stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}
