package personalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

func TestNoHistoryFallsBackToScore(t *testing.T) {
	x := content.Item{Link: "X", Score: 10}
	y := content.Item{Link: "Y", Score: 50}

	got := Personalize([]content.Item{x, y}, LinkSet{})
	assert.Equal(t, []string{"Y", "X"}, content.Links(got))

	got = Personalize([]content.Item{x, y}, NewLinkSet("not-a-candidate"))
	assert.Equal(t, []string{"Y", "X"}, content.Links(got))
}

func TestAffinity(t *testing.T) {
	liked := content.Item{Link: "L", Category: "ai", Tags: []string{"llm"}}
	p := content.Item{Link: "P", Category: "ai", Tags: []string{"LLM", "robotics"}}
	q := content.Item{Link: "Q", Category: "other", Score: 40}

	ranked := NewScorer(Weights{}).Rank([]content.Item{q, p, liked}, NewLinkSet("L"))
	require.Len(t, ranked, 3)

	byLink := map[string]Breakdown{}
	for _, r := range ranked {
		byLink[r.Link] = r.Breakdown
	}
	assert.InDelta(t, 5.0, byLink["P"].Total, 1e-9)
	assert.InDelta(t, 3.0, byLink["P"].Category, 1e-9)
	assert.InDelta(t, 2.0, byLink["P"].Tag, 1e-9)
	assert.InDelta(t, 0.4, byLink["Q"].Total, 1e-9)

	got := Personalize([]content.Item{q, p, liked}, NewLinkSet("L"))
	assert.Equal(t, []string{"P", "L", "Q"}, content.Links(got))
}

func TestCategoryBonusIsMonotonic(t *testing.T) {
	h1 := content.Item{Link: "h1", Category: "ai"}
	h2 := content.Item{Link: "h2", Category: "ai"}
	c := content.Item{Link: "c", Category: "ai", Score: 20}
	s := NewScorer(DefaultWeights)

	one := s.rank([]content.Item{c}, []content.Item{h1})[0].Breakdown.Total
	two := s.rank([]content.Item{c}, []content.Item{h1, h2})[0].Breakdown.Total
	assert.Greater(t, two, one)
}

func TestEmptyCategoryNeverMatches(t *testing.T) {
	liked := content.Item{Link: "L"}
	c := content.Item{Link: "c"}
	ranked := NewScorer(DefaultWeights).Rank([]content.Item{c, liked}, NewLinkSet("L"))
	for _, r := range ranked {
		assert.Zero(t, r.Breakdown.Total)
	}
}

func TestTieKeepsInputOrder(t *testing.T) {
	liked := content.Item{Link: "L", Category: "x"}
	a := content.Item{Link: "a", Category: "y", Score: 10}
	b := content.Item{Link: "b", Category: "y", Score: 10}
	got := Personalize([]content.Item{a, b, liked}, NewLinkSet("L"))
	assert.Equal(t, []string{"L", "a", "b"}, content.Links(got))
}

func TestWithHistory(t *testing.T) {
	history := []content.Item{{Link: "old", Category: "model_research", Tags: []string{"agents"}}}
	candidates := []content.Item{
		{Link: "n1", Category: "industry_business", Score: 90},
		{Link: "n2", Category: "model_research", Tags: []string{"Agents"}, Score: 10},
	}
	got := NewScorer(Weights{}).WithHistory(candidates, history)
	assert.Equal(t, []string{"n2", "n1"}, content.Links(got))
}

func TestCustomWeights(t *testing.T) {
	liked := content.Item{Link: "L", Category: "ai"}
	cat := content.Item{Link: "cat", Category: "ai"}
	big := content.Item{Link: "big", Score: 90}

	s := NewScorer(Weights{Category: 0.5, ScoreDivisor: 10})
	got := s.Personalize([]content.Item{cat, big, liked}, NewLinkSet("L"))
	assert.Equal(t, []string{"big", "cat", "L"}, content.Links(got))
}

func TestInputUntouched(t *testing.T) {
	in := []content.Item{{Link: "a", Score: 1}, {Link: "b", Score: 2}}
	Personalize(in, nil)
	assert.Equal(t, []string{"a", "b"}, content.Links(in))
}

func TestRankWithHistoryBreakdown(t *testing.T) {
	history := []content.Item{{Link: "old", Category: "model_research", Tags: []string{"agents", "rl"}}}
	candidates := []content.Item{{Link: "n", Category: "model_research", Tags: []string{"agents"}, Score: 50}}

	got := NewScorer(Weights{}).RankWithHistory(candidates, history)
	require.Len(t, got, 1)
	b := got[0].Breakdown
	assert.Equal(t, 3.0, b.Category)
	assert.Equal(t, 2.0, b.Tag)
	assert.InDelta(t, 0.5, b.Intrinsic, 1e-9)
	assert.InDelta(t, 5.5, b.Total, 1e-9)
}

func TestScorerLiteralKeepsZeroWeights(t *testing.T) {
	history := []content.Item{{Link: "old", Category: "model_research", Tags: []string{"agents"}}}
	candidates := []content.Item{{Link: "n", Category: "model_research", Tags: []string{"agents"}, Score: 50}}

	s := Scorer{Weights: Weights{Category: 3}}
	got := s.RankWithHistory(candidates, history)
	require.Len(t, got, 1)
	b := got[0].Breakdown
	assert.Equal(t, 3.0, b.Category)
	assert.Zero(t, b.Tag)
	assert.Zero(t, b.Intrinsic)
	assert.Equal(t, 3.0, b.Total)

	// NewScorer treats the same zeros as unset.
	b = NewScorer(Weights{Category: 3}).RankWithHistory(candidates, history)[0].Breakdown
	assert.Equal(t, 2.0, b.Tag)
}
