package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/personalize"
)

func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "undated"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

func renderListItem(it content.Item, selected, liked bool, width int, now time.Time) string {
	if width < 10 {
		width = 30
	}

	var title string
	switch {
	case selected:
		title = itemSelectedStyle.Render("> " + truncateStr(it.Title, width-4))
	case it.AIFiltered:
		title = itemFilteredStyle.Render("  " + truncateStr(it.Title, width-4))
	default:
		title = itemTitleStyle.Render("  " + truncateStr(it.Title, width-4))
	}

	meta := "  " + itemSourceStyle.Render(it.Source) + " " + itemTimeStyle.Render("· "+relativeTime(it.Published, now))
	if liked {
		meta += " " + likedMarkStyle.Render("♥")
	}

	return title + "\n" + meta
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// renderList draws the visible window around cursor. remaining is how many
// more items an expand would reveal and is shown as a footer.
func renderList(items []content.Item, liked personalize.LinkSet, cursor, remaining, height, width int, now time.Time) string {
	if len(items) == 0 {
		return lipglossCenter("No items yet", width, height)
	}

	footer := ""
	if remaining > 0 {
		footer = moreStyle.Render(fmt.Sprintf("  + %d more (m)", remaining))
		height--
	}

	// Each item is 2 lines + 1 blank line = 3 lines
	itemHeight := 3
	visible := max(height/itemHeight, 1)

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > len(items) {
		end = len(items)
		start = max(end-visible, 0)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderListItem(items[i], i == cursor, liked.Has(items[i].Link), width, now))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	if footer != "" {
		b.WriteString("\n\n" + footer)
	}

	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", max((width-len(s))/2, 0)) + s
}
