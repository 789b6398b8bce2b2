// Package content defines the news item every other package passes around.
//
// Items are read-only snapshots: ordering, grouping and personalization return
// new slices and never write through to an Item.
package content

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	ErrEmptyLink     = errors.New("item has an empty link")
	ErrDuplicateLink = errors.New("duplicate item link")
)

// Item is a normalized article-like record.
type Item struct {
	Link        string
	Title       string
	Description string
	Source      string // display name, e.g. "TechCrunch AI"
	SourceKey   string // stable key, e.g. "techcrunch_ai"
	Lang        string
	Published   time.Time // zero when absent or unparseable
	FetchedAt   time.Time

	Score     float64
	SubScores map[string]float64
	Category  string
	Tags      []string

	// AIFiltered items stay out of the categorized buckets and only show up
	// as overflow.
	AIFiltered bool
}

// Millis returns the publish time in epoch milliseconds, 0 when unknown.
func (it Item) Millis() int64 {
	return Millis(it.Published)
}

// HasCategory reports whether the item carries a non-empty category.
func (it Item) HasCategory() bool {
	return it.Category != ""
}

// Millis converts t to epoch milliseconds. The zero time maps to 0 so that
// undated items sort as if published at the epoch.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// ParsePublished parses a feed date in any common layout. Dates without a
// zone are read as UTC. Empty or unparseable input yields the zero time.
func ParsePublished(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NormalizeTags lower-cases and trims tags, dropping empties and repeats.
// The first occurrence wins so the original order is kept.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// TagSet returns the case-insensitive set of the item's tags.
func (it Item) TagSet() map[string]struct{} {
	set := make(map[string]struct{}, len(it.Tags))
	for _, t := range it.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// Validate checks the link invariants of a single fetch: every link is
// non-empty and unique.
func Validate(items []Item) error {
	seen := make(map[string]int, len(items))
	for i, it := range items {
		if it.Link == "" {
			return fmt.Errorf("item %d (%q): %w", i, it.Title, ErrEmptyLink)
		}
		if j, ok := seen[it.Link]; ok {
			return fmt.Errorf("items %d and %d share %s: %w", j, i, it.Link, ErrDuplicateLink)
		}
		seen[it.Link] = i
	}
	return nil
}

// Links returns the links of items in order.
func Links(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Link
	}
	return out
}

// Clone returns a shallow copy of items backed by a new array.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
