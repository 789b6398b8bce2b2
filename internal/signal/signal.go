// Package signal computes the intrinsic 0–100 score of an item: a weighted
// rubric when per-dimension ratings exist, a text heuristic otherwise.
package signal

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

// MaxScore is the top of the score scale.
const MaxScore = 100.0

// Dimension is one rated aspect of an item, rated 0–10.
type Dimension struct {
	Name   string
	Weight float64
}

// Rubric is the weighted set of dimensions for a category. Weights sum to
// 10 so a perfect rating totals 100.
type Rubric []Dimension

// Rubrics holds the rubric per category key.
var Rubrics = map[string]Rubric{
	"model_research":    {{"novelty", 4}, {"impact", 3}, {"buzz", 3}},
	"product_tools":     {{"utility", 4}, {"impact", 3}, {"access", 3}},
	"industry_business": {{"market", 4}, {"signal", 3}, {"breadth", 3}},
}

// Total weighs sub-scores by the rubric. Values are clamped to 0–10 and a
// missing dimension counts as 0.
func (r Rubric) Total(sub map[string]float64) float64 {
	total := 0.0
	for _, d := range r {
		total += d.Weight * clamp(sub[d.Name], 0, 10)
	}
	return math.Round(total*10) / 10
}

// Total scores sub against the rubric of category. ok is false when the
// category has no rubric or sub is empty.
func Total(category string, sub map[string]float64) (score float64, ok bool) {
	r, found := Rubrics[category]
	if !found || len(sub) == 0 {
		return 0, false
	}
	return r.Total(sub), true
}

// SourceWeights maps source keys to their weight (0.0–1.0).
type SourceWeights map[string]float64

// Input holds the data needed to score an item heuristically.
type Input struct {
	Title       string
	Description string
	Source      string
	Published   time.Time
	// Now is the reference time for recency. Zero means time.Now().
	Now time.Time
}

// Breakdown shows how each component contributed to the final score.
type Breakdown struct {
	Recency        float64
	SourceWeight   float64
	Depth          float64
	KeywordDensity float64
	Final          float64
}

const (
	weightRecency  = 0.30
	weightSource   = 0.25
	weightDepth    = 0.25
	weightKeywords = 0.20
)

// Heuristic computes a 0–100 score from recency, source weight, description
// depth and AI keyword density.
func Heuristic(input Input, weights SourceWeights) float64 {
	return HeuristicBreakdown(input, weights).Final
}

// HeuristicBreakdown computes a heuristic score with component details.
func HeuristicBreakdown(input Input, weights SourceWeights) Breakdown {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	b := Breakdown{
		Recency:        recencyScore(input.Published, now),
		SourceWeight:   sourceScore(input.Source, weights),
		Depth:          depthScore(input.Description),
		KeywordDensity: keywordScore(input.Title, input.Description),
	}
	raw := b.Recency*weightRecency +
		b.SourceWeight*weightSource +
		b.Depth*weightDepth +
		b.KeywordDensity*weightKeywords
	b.Final = math.Round(raw*MaxScore*10) / 10
	return b
}

// Score returns the rubric total when the item carries sub-scores for its
// category and the heuristic otherwise.
func Score(it content.Item, weights SourceWeights, now time.Time) float64 {
	if s, ok := Total(it.Category, it.SubScores); ok {
		return s
	}
	return Heuristic(Input{
		Title:       it.Title,
		Description: it.Description,
		Source:      it.SourceKey,
		Published:   it.Published,
		Now:         now,
	}, weights)
}

// recencyScore returns exponential decay: 1.0 at publish, ~0.5 at 24h, ~0.1 at 72h.
func recencyScore(published, now time.Time) float64 {
	if published.IsZero() {
		return 0.0
	}
	hours := now.Sub(published).Hours()
	if hours < 0 {
		hours = 0
	}
	// decay constant: ln(0.5)/24 ≈ -0.02888
	return math.Exp(-0.02888 * hours)
}

// sourceScore looks up the source weight, defaulting to 0.5.
func sourceScore(source string, weights SourceWeights) float64 {
	if w, ok := weights[source]; ok {
		return clamp(w, 0, 1)
	}
	return 0.5
}

// depthScore scores based on description word count.
func depthScore(description string) float64 {
	words := len(strings.Fields(description))
	switch {
	case words >= 150:
		return 1.0
	case words >= 50:
		return 0.6
	default:
		return 0.2
	}
}

// aiKeywords are high-signal terms for AI news.
var aiKeywords = map[string]bool{
	"ai": true, "llm": true, "llms": true, "gpt": true, "model": true, "models": true,
	"inference": true, "training": true, "benchmark": true, "agent": true, "agents": true,
	"agentic": true, "multimodal": true, "reasoning": true, "transformer": true,
	"diffusion": true, "embedding": true, "finetuning": true, "alignment": true,
	"safety": true, "gpu": true, "gpus": true, "tpu": true, "weights": true,
	"open-source": true, "opensource": true, "dataset": true, "tokens": true,
	"robotics": true, "chatbot": true, "rag": true, "parameters": true,
	"인공지능": true, "모델": true, "에이전트": true, "추론": true, "학습": true,
}

// keywordScore returns the density of AI keywords (0.0–1.0).
func keywordScore(title, description string) float64 {
	text := strings.ToLower(title + " " + description)
	var words []string
	for _, w := range strings.Fields(text) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return 0.0
	}

	hits := 0
	for _, w := range words {
		if aiKeywords[w] {
			hits++
		}
	}
	density := float64(hits) / float64(len(words))
	// Normalize: 10%+ keyword density = 1.0
	return math.Min(density*10, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
