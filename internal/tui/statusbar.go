package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/gwakdaeyun7-hub/ailon/internal/disclosure"
)

type statusInfo struct {
	shown     int
	total     int // bucket plus overflow
	level     disclosure.Level
	remaining int
	liked     int
	search    string
	searching bool
}

func renderStatusBar(s statusInfo, width int) string {
	likedStyle := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	left := fmt.Sprintf(" %d of %d", s.shown, s.total)
	if s.level != disclosure.Collapsed {
		left += " · " + s.level.String()
	}
	if s.search != "" && !s.searching {
		left += fmt.Sprintf(" · %q", s.search)
	}
	if s.liked > 0 {
		left += fmt.Sprintf(" · %s %d", likedStyle.Render("♥"), s.liked)
	}

	right := " ←/→ tab  l like  / search  ? help  q quit "
	if s.remaining > 0 {
		right = fmt.Sprintf(" m more (%d)", s.remaining) + right
	}
	if s.searching {
		right = " esc cancel  enter search "
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}
