// Package selection picks the subsets a daily digest shows: the highlight
// strip, each category's list and the newest items of a source.
package selection

import (
	"slices"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/ordering"
)

const (
	DefaultHighlightCount = 3
	DefaultTodayMin       = 3
	DefaultSectionLimit   = 10
)

// HighlightOptions configures Highlights.
type HighlightOptions struct {
	Count      int      // default DefaultHighlightCount
	Categories []string // pool; empty means every category
}

// Highlights picks up to Count items from the highlight categories. Recent
// items (today or yesterday) come first by score, then older ones by day and
// score. AI-filtered items are never highlighted. The result is ordered by
// recency then score.
func Highlights(items []content.Item, opts HighlightOptions, clock ordering.DayClock, now time.Time) []content.Item {
	count := opts.Count
	if count <= 0 {
		count = DefaultHighlightCount
	}

	var recent, older []content.Item
	for _, it := range items {
		if it.AIFiltered {
			continue
		}
		if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, it.Category) {
			continue
		}
		if clock.IsRecent(it.Published, now) {
			recent = append(recent, it)
		} else {
			older = append(older, it)
		}
	}

	picked := take(nil, ordering.SortByScoreThenTime(recent), count)
	picked = take(picked, ordering.SortByRecencyThenScore(older, clock), count)
	return ordering.SortByRecencyThenScore(picked, clock)
}

// TopNOptions configures CategoryTopN.
type TopNOptions struct {
	// TodayMin recent items are guaranteed a place; older items backfill when
	// there are not enough. Default DefaultTodayMin.
	TodayMin int
	// Limit caps the result. 0 keeps everything.
	Limit int
}

// CategoryTopN reserves TodayMin slots for recent items, fills the rest by
// score and orders the result by recency then score.
func CategoryTopN(items []content.Item, opts TopNOptions, clock ordering.DayClock, now time.Time) []content.Item {
	todayMin := opts.TodayMin
	if todayMin <= 0 {
		todayMin = DefaultTodayMin
	}
	if opts.Limit > 0 {
		todayMin = min(todayMin, opts.Limit)
	}

	var recent, older []content.Item
	for _, it := range items {
		if clock.IsRecent(it.Published, now) {
			recent = append(recent, it)
		} else {
			older = append(older, it)
		}
	}

	selected := take(nil, ordering.SortByScore(recent), todayMin)
	selected = take(selected, ordering.SortByScore(older), todayMin)

	limit := opts.Limit
	if limit <= 0 {
		limit = len(items)
	}
	selected = take(selected, ordering.SortByScore(items), limit)
	return ordering.SortByRecencyThenScore(selected, clock)
}

// SourceSection returns a source's newest items, at most limit of them
// (DefaultSectionLimit when limit is not positive).
func SourceSection(items []content.Item, limit int) []content.Item {
	if limit <= 0 {
		limit = DefaultSectionLimit
	}
	out := ordering.SortByPublished(items)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Without returns items minus those whose link is in drop, order kept.
func Without(items, drop []content.Item) []content.Item {
	if len(drop) == 0 {
		return content.Clone(items)
	}
	gone := make(map[string]bool, len(drop))
	for _, it := range drop {
		gone[it.Link] = true
	}
	out := make([]content.Item, 0, len(items))
	for _, it := range items {
		if !gone[it.Link] {
			out = append(out, it)
		}
	}
	return out
}

// take appends candidates to dst until dst holds n items, skipping links
// already present.
func take(dst, candidates []content.Item, n int) []content.Item {
	have := make(map[string]bool, len(dst))
	for _, it := range dst {
		have[it.Link] = true
	}
	for _, it := range candidates {
		if len(dst) >= n {
			break
		}
		if have[it.Link] {
			continue
		}
		have[it.Link] = true
		dst = append(dst, it)
	}
	return dst
}

// CountRecent counts items published on now's day or the day before.
func CountRecent(items []content.Item, clock ordering.DayClock, now time.Time) int {
	n := 0
	for _, it := range items {
		if clock.IsRecent(it.Published, now) {
			n++
		}
	}
	return n
}
