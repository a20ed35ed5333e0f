package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted status line with the tick
// clock, online players, pending brews and tracked effects.
func (m Model) renderStatusBar() string {
	s := m.shell
	names := s.OnlineNames()

	left := fmt.Sprintf(" Tick %d | Online: %s", s.Sched.Now(), strings.Join(names, ", "))
	if len(names) == 0 {
		left = fmt.Sprintf(" Tick %d | Online: none", s.Sched.Now())
	}
	right := fmt.Sprintf("Brewing: %d | Effects: %d ", s.Sched.Pending(), s.Engine.Effects().Len())
	if m.trace() {
		right = "TRACE | " + right
	}

	// Fall back to a count when the names do not fit.
	if lipgloss.Width(left)+lipgloss.Width(right)+2 >= m.width && len(names) > 0 {
		left = fmt.Sprintf(" Tick %d | Online: %d", s.Sched.Now(), len(names))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
