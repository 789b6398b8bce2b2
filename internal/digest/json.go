package digest

import (
	"encoding/json"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

// ItemJSON is the wire form of an item inside a digest document.
type ItemJSON struct {
	Link        string             `json:"link"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Source      string             `json:"source,omitempty"`
	SourceKey   string             `json:"source_key,omitempty"`
	Lang        string             `json:"lang,omitempty"`
	Published   string             `json:"published,omitempty"`
	Score       float64            `json:"score"`
	SubScores   map[string]float64 `json:"sub_scores,omitempty"`
	Category    string             `json:"category,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	AIFiltered  bool               `json:"ai_filtered,omitempty"`
}

// Document is the JSON form of a digest.
type Document struct {
	Date          string                `json:"date"`
	Highlights    []ItemJSON            `json:"highlights"`
	Categorized   map[string][]ItemJSON `json:"categorized_articles"`
	CategoryOrder []string              `json:"category_order"`
	Sources       map[string][]ItemJSON `json:"source_articles"`
	SourceOrder   []string              `json:"source_order"`
	Filtered      []ItemJSON            `json:"filtered_articles"`
	TotalCount    int                   `json:"total_count"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// ToItemJSON converts an item to its wire form.
func ToItemJSON(it content.Item) ItemJSON {
	out := ItemJSON{
		Link:        it.Link,
		Title:       it.Title,
		Description: it.Description,
		Source:      it.Source,
		SourceKey:   it.SourceKey,
		Lang:        it.Lang,
		Score:       it.Score,
		SubScores:   it.SubScores,
		Category:    it.Category,
		Tags:        it.Tags,
		AIFiltered:  it.AIFiltered,
	}
	if !it.Published.IsZero() {
		out.Published = it.Published.UTC().Format(time.RFC3339)
	}
	return out
}

// ItemsJSON converts items, never returning nil so empty lists encode as [].
func ItemsJSON(items []content.Item) []ItemJSON {
	out := make([]ItemJSON, len(items))
	for i, it := range items {
		out[i] = ToItemJSON(it)
	}
	return out
}

// Document returns the digest in its JSON document shape. Only sources with
// items are listed in the source order.
func (d *Digest) Document() Document {
	doc := Document{
		Date:          d.Date,
		Highlights:    ItemsJSON(d.Highlights),
		Categorized:   make(map[string][]ItemJSON, len(d.Categories.Order)),
		CategoryOrder: append([]string{}, d.Categories.Order...),
		Sources:       make(map[string][]ItemJSON),
		SourceOrder:   []string{},
		Filtered:      ItemsJSON(d.Filtered),
		TotalCount:    d.TotalCount(),
		Warnings:      d.Validate(),
	}
	for _, k := range d.Categories.Order {
		doc.Categorized[k] = ItemsJSON(d.Categories.Buckets[k])
	}
	for _, k := range d.Sections.NonEmpty() {
		doc.SourceOrder = append(doc.SourceOrder, k)
		doc.Sources[k] = ItemsJSON(d.Sections.Buckets[k])
	}
	return doc
}

// MarshalJSON encodes the digest as its Document.
func (d *Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Document())
}
