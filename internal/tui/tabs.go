package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gwakdaeyun7-hub/ailon/internal/bucket"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
)

const (
	highlightsID   = "highlights"
	forYouID       = "for_you"
	categoryPrefix = "cat:"
	sectionPrefix  = "src:"
)

type tab struct {
	id    string
	label string
}

// buildTabs lays out highlights, the categories in display order, the
// personalized list and one tab per non-empty source section.
func buildTabs(d *digest.Digest, categoryLabel, sourceLabel func(string) string) []tab {
	tabs := []tab{{id: highlightsID, label: "Highlights"}}
	for _, key := range d.Categories.Order {
		tabs = append(tabs, tab{id: categoryPrefix + key, label: categoryLabel(key)})
	}
	tabs = append(tabs, tab{id: forYouID, label: "For You"})
	for _, key := range d.Sections.NonEmpty() {
		tabs = append(tabs, tab{id: sectionPrefix + key, label: sourceLabel(key)})
	}
	return tabs
}

// tabSource serves every tab to the disclosure controller. Only category
// tabs carry overflow.
type tabSource struct {
	highlights []content.Item
	forYou     []content.Item
	categories bucket.Groups
	sections   bucket.Groups
}

func newTabSource(d *digest.Digest, forYou []content.Item) tabSource {
	return tabSource{
		highlights: d.Highlights,
		forYou:     forYou,
		categories: d.Categories,
		sections:   d.Sections,
	}
}

func (s tabSource) Bucket(id string) ([]content.Item, error) {
	switch {
	case id == highlightsID:
		return s.highlights, nil
	case id == forYouID:
		return s.forYou, nil
	case strings.HasPrefix(id, categoryPrefix):
		return s.categories.Bucket(strings.TrimPrefix(id, categoryPrefix))
	case strings.HasPrefix(id, sectionPrefix):
		return s.sections.Bucket(strings.TrimPrefix(id, sectionPrefix))
	}
	return nil, fmt.Errorf("tab %q: %w", id, bucket.ErrUnknownBucket)
}

func (s tabSource) OverflowFor(id string) []content.Item {
	if key, ok := strings.CutPrefix(id, categoryPrefix); ok {
		return s.categories.OverflowFor(key)
	}
	return nil
}

func renderTabs(tabs []tab, active, width int) string {
	sep := tabSeparatorStyle.Render(" · ")
	var row string
	for i, t := range tabs {
		style := tabInactiveStyle
		if i == active {
			style = tabActiveStyle
		}
		label := t.label
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, label)
		}
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += style.Render(label)
		// Stop before the row overflows, but always show the active tab.
		if lipgloss.Width(candidate) > width && row != "" && i > active {
			break
		}
		row = candidate
	}
	return tabBarStyle.Width(width).Render(row)
}
