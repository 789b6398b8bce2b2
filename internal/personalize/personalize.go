// Package personalize re-ranks candidate items by their affinity to the items
// a user has liked.
package personalize

import (
	"cmp"
	"slices"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

// LinkSet is a set of item links.
type LinkSet map[string]struct{}

// NewLinkSet builds a set from links.
func NewLinkSet(links ...string) LinkSet {
	s := make(LinkSet, len(links))
	for _, l := range links {
		s[l] = struct{}{}
	}
	return s
}

// Has reports whether link is in the set.
func (s LinkSet) Has(link string) bool {
	_, ok := s[link]
	return ok
}

// Weights are the affinity coefficients.
type Weights struct {
	// Category is added once per liked item sharing the candidate's category.
	Category float64 `yaml:"category"`
	// Tag is added once per tag shared with each liked item.
	Tag float64 `yaml:"tag"`
	// ScoreDivisor scales the candidate's own score into a small bonus.
	ScoreDivisor float64 `yaml:"score_divisor"`
}

// DefaultWeights mirrors the product defaults: 3 per category match, 2 per
// shared tag, score/100.
var DefaultWeights = Weights{Category: 3, Tag: 2, ScoreDivisor: 100}

// Breakdown is the per-term composition of an affinity score.
type Breakdown struct {
	Category  float64 `json:"category"`
	Tag       float64 `json:"tag"`
	Intrinsic float64 `json:"intrinsic"`
	Total     float64 `json:"total"`
}

// Ranked is a candidate with its affinity.
type Ranked struct {
	Item      content.Item `json:"-"`
	Link      string       `json:"link"`
	Breakdown Breakdown    `json:"breakdown"`
}

// Scorer computes affinities with configurable weights.
type Scorer struct {
	Weights Weights
}

// NewScorer returns a Scorer. Zero weights are replaced by DefaultWeights
// field by field, so a zero here means unset. Build a Scorer literal to keep
// an explicit zero.
func NewScorer(w Weights) Scorer {
	if w.Category == 0 {
		w.Category = DefaultWeights.Category
	}
	if w.Tag == 0 {
		w.Tag = DefaultWeights.Tag
	}
	if w.ScoreDivisor == 0 {
		w.ScoreDivisor = DefaultWeights.ScoreDivisor
	}
	return Scorer{Weights: w}
}

// Personalize ranks candidates with DefaultWeights. The liked history is the
// subset of candidates whose link is in liked.
func Personalize(candidates []content.Item, liked LinkSet) []content.Item {
	return Scorer{Weights: DefaultWeights}.Personalize(candidates, liked)
}

// Personalize ranks candidates against the candidates whose link is liked.
// With no liked candidate the result is candidates by score desc.
func (s Scorer) Personalize(candidates []content.Item, liked LinkSet) []content.Item {
	return items(s.Rank(candidates, liked))
}

// WithHistory ranks candidates against an explicit liked history, for when
// the liked items are not part of the candidate set.
func (s Scorer) WithHistory(candidates, history []content.Item) []content.Item {
	return items(s.rank(candidates, history))
}

// Rank is Personalize with the score breakdown of each candidate.
func (s Scorer) Rank(candidates []content.Item, liked LinkSet) []Ranked {
	var history []content.Item
	for _, c := range candidates {
		if liked.Has(c.Link) {
			history = append(history, c)
		}
	}
	return s.rank(candidates, history)
}

// RankWithHistory is WithHistory with the score breakdown of each candidate.
func (s Scorer) RankWithHistory(candidates, history []content.Item) []Ranked {
	return s.rank(candidates, history)
}

func (s Scorer) rank(candidates, history []content.Item) []Ranked {
	out := make([]Ranked, len(candidates))
	if len(history) == 0 {
		for i, c := range candidates {
			out[i] = Ranked{Item: c, Link: c.Link, Breakdown: Breakdown{Total: c.Score}}
		}
	} else {
		tagSets := make([]map[string]struct{}, len(history))
		for i, l := range history {
			tagSets[i] = l.TagSet()
		}
		for i, c := range candidates {
			out[i] = Ranked{Item: c, Link: c.Link, Breakdown: s.affinity(c, history, tagSets)}
		}
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		return cmp.Compare(b.Breakdown.Total, a.Breakdown.Total)
	})
	return out
}

func (s Scorer) affinity(c content.Item, history []content.Item, tagSets []map[string]struct{}) Breakdown {
	var b Breakdown
	tags := c.TagSet()
	for i, l := range history {
		if c.Category != "" && l.Category == c.Category {
			b.Category += s.Weights.Category
		}
		for t := range tags {
			if _, ok := tagSets[i][t]; ok {
				b.Tag += s.Weights.Tag
			}
		}
	}
	if s.Weights.ScoreDivisor != 0 {
		b.Intrinsic = c.Score / s.Weights.ScoreDivisor
	}
	b.Total = b.Category + b.Tag + b.Intrinsic
	return b
}

func items(ranked []Ranked) []content.Item {
	out := make([]content.Item, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out
}
