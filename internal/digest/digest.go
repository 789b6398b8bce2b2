package digest

import (
	"fmt"
	"slices"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/bucket"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/dedup"
	"github.com/gwakdaeyun7-hub/ailon/internal/ordering"
	"github.com/gwakdaeyun7-hub/ailon/internal/personalize"
	"github.com/gwakdaeyun7-hub/ailon/internal/selection"
)

// Options controls how Build assembles a digest.
type Options struct {
	Clock ordering.DayClock
	Now   time.Time

	CategoryOrder []string
	// FallbackCategory replaces a category outside CategoryOrder before
	// grouping. Empty leaves such items to the Uncategorized policy.
	FallbackCategory string
	Uncategorized    bucket.Policy

	Highlight selection.HighlightOptions
	TopN      selection.TopNOptions

	// SectionSources are shown as per-source sections, in this order, and
	// stay out of highlights and categories.
	SectionSources        []string
	SectionLimit          int
	DedupThreshold        float64
	SectionDedupThreshold float64
}

// Digest is one assembled daily view.
type Digest struct {
	Date string
	Now  time.Time

	Highlights []content.Item
	Categories bucket.Groups
	Sections   bucket.Groups
	// Filtered holds the AI-filtered items, also attached to Categories as
	// overflow.
	Filtered   []content.Item
	Duplicates []content.Item

	Scanned int
	Header  Header
}

// Build runs the digest pipeline over items: dedup, highlights, category
// grouping with top-N, filtered overflow and source sections. It fails only
// when items break the link invariants.
func Build(items []content.Item, opts Options) (*Digest, error) {
	if err := content.Validate(items); err != nil {
		return nil, fmt.Errorf("building digest: %w", err)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	main, sectioned := splitSections(items, opts.SectionSources)

	deduped := dedup.Deduplicate(main, opts.DedupThreshold)
	kept := withFallback(deduped.Kept, opts.CategoryOrder, opts.FallbackCategory)

	highlights := selection.Highlights(kept, opts.Highlight, opts.Clock, opts.Now)
	passed, filtered := bucket.SplitFiltered(selection.Without(kept, highlights))
	filtered = ordering.SortByRecencyThenScore(filtered, opts.Clock)

	categories := bucket.GroupByKey(passed, bucket.ByCategory, opts.CategoryOrder, opts.Uncategorized).
		Map(func(_ string, items []content.Item) []content.Item {
			return selection.CategoryTopN(items, opts.TopN, opts.Clock, opts.Now)
		}).
		WithOverflow(filtered, bucket.ByCategory)

	sectionThreshold := opts.SectionDedupThreshold
	if sectionThreshold <= 0 {
		sectionThreshold = dedup.DenseThreshold
	}
	sectionDeduped := dedup.Deduplicate(sectioned, sectionThreshold)
	sections := bucket.GroupByKey(sectionDeduped.Kept, bucket.BySource, opts.SectionSources, bucket.DropUncategorized).
		Map(func(_ string, items []content.Item) []content.Item {
			return selection.SourceSection(items, opts.SectionLimit)
		})

	d := &Digest{
		Date:       opts.Clock.Local(opts.Now).Format(time.DateOnly),
		Now:        opts.Now,
		Highlights: highlights,
		Categories: categories,
		Sections:   sections,
		Filtered:   filtered,
		Duplicates: append(deduped.Duplicates, sectionDeduped.Duplicates...),
		Scanned:    len(items),
	}
	d.Header = newHeader(d, items, opts)
	return d, nil
}

func splitSections(items []content.Item, sources []string) (main, sectioned []content.Item) {
	if len(sources) == 0 {
		return content.Clone(items), nil
	}
	for _, it := range items {
		if slices.Contains(sources, it.SourceKey) {
			sectioned = append(sectioned, it)
		} else {
			main = append(main, it)
		}
	}
	return main, sectioned
}

func withFallback(items []content.Item, order []string, fallback string) []content.Item {
	out := content.Clone(items)
	if fallback == "" {
		return out
	}
	for i := range out {
		if !slices.Contains(order, out[i].Category) {
			out[i].Category = fallback
		}
	}
	return out
}

// CategoryCount returns the number of items shown across categories.
func (d *Digest) CategoryCount() int {
	n := 0
	for _, k := range d.Categories.Order {
		n += len(d.Categories.Buckets[k])
	}
	return n
}

// SectionCount returns the number of items shown across source sections.
func (d *Digest) SectionCount() int {
	n := 0
	for _, k := range d.Sections.Order {
		n += len(d.Sections.Buckets[k])
	}
	return n
}

// TotalCount is highlights plus categorized plus section items. Filtered
// overflow and duplicates are not counted.
func (d *Digest) TotalCount() int {
	return len(d.Highlights) + d.CategoryCount() + d.SectionCount()
}

// Items returns every item the digest shows, highlights first, each link
// once.
func (d *Digest) Items() []content.Item {
	var out []content.Item
	seen := make(map[string]bool)
	add := func(items []content.Item) {
		for _, it := range items {
			if !seen[it.Link] {
				seen[it.Link] = true
				out = append(out, it)
			}
		}
	}
	add(d.Highlights)
	for _, k := range d.Categories.Order {
		add(d.Categories.Buckets[k])
	}
	for _, k := range d.Sections.Order {
		add(d.Sections.Buckets[k])
	}
	return out
}

// ForYou re-ranks the digest's items against the liked links among them.
func (d *Digest) ForYou(s personalize.Scorer, liked personalize.LinkSet) []content.Item {
	return s.Personalize(d.Items(), liked)
}

// ForYouWithHistory re-ranks the digest's items against liked items loaded
// from storage, which may have aged out of the digest.
func (d *Digest) ForYouWithHistory(s personalize.Scorer, history []content.Item) []content.Item {
	return s.WithHistory(d.Items(), history)
}

// Validate reports quality warnings. An empty result means the digest looks
// complete.
func (d *Digest) Validate() []string {
	var warnings []string
	if n := len(d.Highlights); n < 2 {
		warnings = append(warnings, fmt.Sprintf("highlights: %d (want at least 2)", n))
	}
	for _, k := range d.Categories.Order {
		if k == bucket.UncategorizedKey {
			continue
		}
		if n := len(d.Categories.Buckets[k]); n < 5 {
			warnings = append(warnings, fmt.Sprintf("category %s: %d items (want at least 5)", k, n))
		}
	}
	if len(d.Sections.Order) > 0 {
		if n := len(d.Sections.NonEmpty()); n < 2 {
			warnings = append(warnings, fmt.Sprintf("sections: %d of %d active (want at least 2)", n, len(d.Sections.Order)))
		}
	}
	return warnings
}
