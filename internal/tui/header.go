package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
)

// renderHeader draws the title row and, when the digest found any, a row
// of trending themes.
func renderHeader(h digest.Header, width int) string {
	left := headerStyle.Render("ailon")
	if h.Greeting != "" {
		left += headerDateStyle.Render("  " + h.Greeting)
	}
	right := headerDateStyle.Render(fmt.Sprintf("%s · %d picks ", h.DateLabel, h.Selected))
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	row := left + fmt.Sprintf("%*s", gap, "") + right

	if len(h.Themes) == 0 {
		return row
	}
	themes := "trending: " + strings.Join(h.Themes, ", ")
	return row + "\n" + themeStyle.Render(truncateStr(themes, width-2))
}
