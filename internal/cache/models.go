package cache

import (
	"encoding/json"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

// QueryOpts narrows GetItems. Zero values do not filter.
type QueryOpts struct {
	Since    time.Time
	Sources  []string // source keys
	Category string
	Search   string
	Limit    int
}

// row mirrors the items table. Times are epoch milliseconds, 0 when unknown.
type row struct {
	Link        string
	Source      string
	SourceKey   string
	Lang        string
	Title       string
	Description string
	Published   int64
	FetchedAt   int64
	Score       float64
	SubScores   string
	Category    string
	Tags        string
	AIFiltered  bool
}

func toRow(it content.Item) (row, error) {
	r := row{
		Link:        it.Link,
		Source:      it.Source,
		SourceKey:   it.SourceKey,
		Lang:        it.Lang,
		Title:       it.Title,
		Description: it.Description,
		Published:   content.Millis(it.Published),
		FetchedAt:   content.Millis(it.FetchedAt),
		Score:       it.Score,
		Category:    it.Category,
		AIFiltered:  it.AIFiltered,
	}
	if len(it.SubScores) > 0 {
		b, err := json.Marshal(it.SubScores)
		if err != nil {
			return row{}, err
		}
		r.SubScores = string(b)
	}
	if tags := content.NormalizeTags(it.Tags); len(tags) > 0 {
		b, err := json.Marshal(tags)
		if err != nil {
			return row{}, err
		}
		r.Tags = string(b)
	}
	return r, nil
}

// item converts r back. Malformed JSON columns decode as empty.
func (r row) item() content.Item {
	it := content.Item{
		Link:        r.Link,
		Title:       r.Title,
		Description: r.Description,
		Source:      r.Source,
		SourceKey:   r.SourceKey,
		Lang:        r.Lang,
		Published:   fromMillis(r.Published),
		FetchedAt:   fromMillis(r.FetchedAt),
		Score:       r.Score,
		Category:    r.Category,
		AIFiltered:  r.AIFiltered,
	}
	if r.SubScores != "" {
		var sub map[string]float64
		if json.Unmarshal([]byte(r.SubScores), &sub) == nil {
			it.SubScores = sub
		}
	}
	if r.Tags != "" {
		var tags []string
		if json.Unmarshal([]byte(r.Tags), &tags) == nil {
			it.Tags = tags
		}
	}
	return it
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
