// Package bucket partitions a flat item list into named buckets (category or
// source) that are displayed in a configured order.
package bucket

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

// UncategorizedKey names the bucket that collects items whose key is not in
// the configured order, when CollectUncategorized is in effect.
const UncategorizedKey = "uncategorized"

var ErrUnknownBucket = errors.New("unknown bucket")

// Policy decides what happens to items whose key is not in the order.
type Policy int

const (
	// DropUncategorized keeps such items out of every displayed bucket. They
	// are still reported in Groups.Uncategorized.
	DropUncategorized Policy = iota
	// CollectUncategorized appends an UncategorizedKey bucket holding them.
	CollectUncategorized
)

func (p Policy) String() string {
	switch p {
	case DropUncategorized:
		return "drop"
	case CollectUncategorized:
		return "collect"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps the config spelling of a policy. Empty means drop.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "drop":
		return DropUncategorized, nil
	case "collect":
		return CollectUncategorized, nil
	default:
		return DropUncategorized, fmt.Errorf("unknown uncategorized policy %q (valid: drop, collect)", s)
	}
}

// KeyFunc extracts the bucket key of an item. An empty key means "no key".
type KeyFunc func(content.Item) string

// ByCategory keys items by category.
func ByCategory(it content.Item) string { return it.Category }

// BySource keys items by source key.
func BySource(it content.Item) string { return it.SourceKey }

// Groups is the result of GroupByKey.
type Groups struct {
	// Order is the display order. It equals the configured order (plus
	// UncategorizedKey when collected) whether or not a bucket is empty.
	Order   []string
	Buckets map[string][]content.Item
	// Overflow holds caller-supplied filtered items per bucket key. Grouping
	// never fills it on its own.
	Overflow map[string][]content.Item
	// Uncategorized lists every input item whose key was absent or not in the
	// configured order, in input order.
	Uncategorized []content.Item
	Policy        Policy
}

// GroupByKey assigns each item to the bucket named by keyOf. Items keep their
// input order inside a bucket; sorting is a separate step.
func GroupByKey(items []content.Item, keyOf KeyFunc, order []string, policy Policy) Groups {
	g := Groups{
		Order:    slices.Clone(order),
		Buckets:  make(map[string][]content.Item, len(order)+1),
		Overflow: make(map[string][]content.Item),
		Policy:   policy,
	}
	known := make(map[string]bool, len(order))
	for _, k := range order {
		known[k] = true
	}

	for _, it := range items {
		k := keyOf(it)
		if k != "" && known[k] {
			g.Buckets[k] = append(g.Buckets[k], it)
			continue
		}
		g.Uncategorized = append(g.Uncategorized, it)
	}

	if policy == CollectUncategorized && !known[UncategorizedKey] {
		g.Order = append(g.Order, UncategorizedKey)
		g.Buckets[UncategorizedKey] = slices.Clone(g.Uncategorized)
	}
	return g
}

// WithOverflow returns a copy of g whose overflow holds filtered, split by
// keyOf. Filtered items whose key is not a bucket in g are ignored.
func (g Groups) WithOverflow(filtered []content.Item, keyOf KeyFunc) Groups {
	out := g
	out.Overflow = make(map[string][]content.Item, len(g.Order))
	known := make(map[string]bool, len(g.Order))
	for _, k := range g.Order {
		known[k] = true
	}
	for _, it := range filtered {
		k := keyOf(it)
		if !known[k] {
			if g.Policy == CollectUncategorized {
				k = UncategorizedKey
			} else {
				continue
			}
		}
		out.Overflow[k] = append(out.Overflow[k], it)
	}
	return out
}

// Has reports whether key is part of the display order.
func (g Groups) Has(key string) bool {
	return slices.Contains(g.Order, key)
}

// Bucket returns the items of key. Asking for a key outside the display order
// is a caller error.
func (g Groups) Bucket(key string) ([]content.Item, error) {
	if !g.Has(key) {
		return nil, fmt.Errorf("bucket %q: %w", key, ErrUnknownBucket)
	}
	return g.Buckets[key], nil
}

// OverflowFor returns the overflow items attached to key, if any.
func (g Groups) OverflowFor(key string) []content.Item {
	return g.Overflow[key]
}

// NonEmpty returns the keys of the display order that have items, in order.
func (g Groups) NonEmpty() []string {
	var keys []string
	for _, k := range g.Order {
		if len(g.Buckets[k]) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// Bucketed counts items placed in configured buckets. It excludes the
// UncategorizedKey bucket so that Bucketed()+len(Uncategorized) equals the
// input length.
func (g Groups) Bucketed() int {
	n := 0
	for k, items := range g.Buckets {
		if k == UncategorizedKey && g.Policy == CollectUncategorized {
			continue
		}
		n += len(items)
	}
	return n
}

// Map returns a copy of g with fn applied to every bucket. It is how callers
// sort or trim buckets after grouping.
func (g Groups) Map(fn func(key string, items []content.Item) []content.Item) Groups {
	out := g
	out.Buckets = make(map[string][]content.Item, len(g.Buckets))
	for _, k := range g.Order {
		if items, ok := g.Buckets[k]; ok {
			out.Buckets[k] = fn(k, items)
		}
	}
	return out
}

// MapOverflow is Map for the overflow lists.
func (g Groups) MapOverflow(fn func(key string, items []content.Item) []content.Item) Groups {
	out := g
	out.Overflow = make(map[string][]content.Item, len(g.Overflow))
	for k, items := range g.Overflow {
		out.Overflow[k] = fn(k, items)
	}
	return out
}

// SplitFiltered separates AI-filtered items from the rest, keeping order.
func SplitFiltered(items []content.Item) (passed, filtered []content.Item) {
	for _, it := range items {
		if it.AIFiltered {
			filtered = append(filtered, it)
		} else {
			passed = append(passed, it)
		}
	}
	return passed, filtered
}
