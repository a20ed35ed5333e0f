// Package tui provides a Bubble Tea terminal UI for the brewcore console.
package tui

import "strings"

// History holds submitted console lines, oldest first, with cursor-based
// navigation and prefix completion.
type History struct {
	entries []string
	max     int
	cursor  int // -1 = not navigating, 0..len-1 = position in entries
}

// NewHistory creates a history that keeps at most limit lines.
func NewHistory(limit int) *History {
	return &History{
		entries: make([]string, 0, limit),
		max:     limit,
		cursor:  -1,
	}
}

// Push records a line. Repeating the newest line is a no-op.
func (h *History) Push(line string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = h.entries[over:]
	}
}

// Prev steps towards older lines and stops at the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps towards newer lines. Past the newest it returns false and
// leaves navigation.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = -1
		return "", false
	}
	return h.entries[h.cursor], true
}

// ResetCursor leaves navigation.
func (h *History) ResetCursor() {
	h.cursor = -1
}

// Complete returns the newest line that starts with prefix and is longer
// than it.
func (h *History) Complete(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	lower := strings.ToLower(prefix)
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if len(e) > len(prefix) && strings.HasPrefix(strings.ToLower(e), lower) {
			return e, true
		}
	}
	return "", false
}

// Len returns the number of stored lines.
func (h *History) Len() int { return len(h.entries) }
