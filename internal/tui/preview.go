package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
)

type previewInfo struct {
	item          *content.Item
	categoryLabel string
	published     string // already in the reader's zone
	liked         bool
}

func renderPreview(p previewInfo, width, height, scroll int) string {
	if p.item == nil {
		return lipglossCenter("Select an item", width, height)
	}
	it := p.item

	contentWidth := max(width-2, 10)

	title := previewTitleStyle.Width(contentWidth).Render(it.Title)
	source := previewSourceStyle.Render(fmt.Sprintf("%s · %s", it.Source, p.published))

	meta := []string{p.categoryLabel, fmt.Sprintf("score %.0f", it.Score),
		fmt.Sprintf("%d min", digest.ReadingTime(it.Description))}
	if len(it.Tags) > 0 {
		meta = append(meta, "#"+strings.Join(it.Tags, " #"))
	}
	if it.AIFiltered {
		meta = append(meta, "filtered")
	}
	if p.liked {
		meta = append(meta, "♥ liked")
	}
	metaLine := previewMetaStyle.Width(contentWidth).Render(strings.Join(meta, " · "))

	desc := it.Description
	if desc == "" {
		desc = "(No description available)"
	}

	body := previewBodyStyle.Width(contentWidth).Render(wrapText(desc, contentWidth))
	link := previewLinkStyle.Width(contentWidth).Render("Read more: " + it.Link)

	out := lipgloss.JoinVertical(lipgloss.Left, title, source, metaLine, body, "", link)

	// Apply scroll offset
	lines := strings.Split(out, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	// Pad to fill height
	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// wrapText wraps on display width so Hangul, which takes two cells per
// rune, does not overflow the pane.
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if lipgloss.Width(line)+1+lipgloss.Width(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
