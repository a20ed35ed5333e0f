package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/brewcore/console"
	"github.com/nathoo/brewcore/engine"
	"github.com/nathoo/brewcore/types"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"[Alice] Recipe Discovered: Owl Eyes", kindNotice},
		{"    Next step: swift", kindDetail},
		{"  reward for Alice from chain:duo: +100 xp", kindReward},
		{"  > [console] say Alice drinks (for Alice)", kindAction},
		{"[Saved 2 player records.]", kindSystem},
		{"[trace] 0 callbacks ran, 0 pending", kindTrace},
		{"Error: Nobody is not online", kindError},
		{"swift is ready: 100 ticks.", kindPlain},
		{"Tick 12.", kindPlain},
		{"", kindPlain},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line)
		if got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"The brew at world(1,2,3) finished for an unattended station.", 30,
			"The brew at world(1,2,3)\nfinished for an unattended\nstation."},
		{"", 80, ""},
		{"one", 80, "one"},
		{"a b c d e", 3, "a b\nc d\ne"},
		{"    Next step: night", 12, "    Next\nstep: night"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("join Alice")
	h.Push("brew Alice AWKWARD SUGAR")
	h.Push("tick 100")

	for _, want := range []string{"tick 100", "brew Alice AWKWARD SUGAR", "join Alice", "join Alice"} {
		got, ok := h.Prev()
		if !ok || got != want {
			t.Errorf("Prev() = %q, %v, want %q", got, ok, want)
		}
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("join Alice")
	h.Push("players")

	h.Prev()
	h.Prev()

	next, ok := h.Next()
	if !ok || next != "players" {
		t.Errorf("Next() = %q, %v, want %q", next, ok, "players")
	}
	if _, ok := h.Next(); ok {
		t.Error("Next() past newest = true, want false")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev(); ok {
		t.Error("Prev() on empty history = true, want false")
	}
	if _, ok := h.Next(); ok {
		t.Error("Next() on empty history = true, want false")
	}
}

func TestHistory_MaxSizeAndDuplicates(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("b")
	h.Push("c")

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	prev, _ := h.Prev()
	if prev != "c" {
		t.Errorf("Prev() = %q, want %q", prev, "c")
	}
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("Prev() = %q, want %q", prev, "b")
	}
}

func TestHistory_ResetCursor(t *testing.T) {
	h := NewHistory(5)
	h.Push("join Alice")
	h.Push("players")

	h.Prev()
	h.Prev()
	h.ResetCursor()

	if prev, ok := h.Prev(); !ok || prev != "players" {
		t.Errorf("Prev() after reset = %q, want %q", prev, "players")
	}
}

func TestHistory_Complete(t *testing.T) {
	h := NewHistory(5)
	h.Push("brew Alice AWKWARD SUGAR")
	h.Push("brew Bob THICK NETHER_STAR")
	h.Push("tick 10")

	tests := []struct {
		prefix string
		want   string
		ok     bool
	}{
		{"br", "brew Bob THICK NETHER_STAR", true},
		{"BREW A", "brew Alice AWKWARD SUGAR", true},
		{"tick 10", "", false},
		{"", "", false},
		{"drink", "", false},
	}
	for _, tt := range tests {
		got, ok := h.Complete(tt.prefix)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Complete(%q) = %q, %v, want %q, %v", tt.prefix, got, ok, tt.want, tt.ok)
		}
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	out := &console.Buffer{}
	eng := engine.New(engine.Config{Runner: out})
	t.Cleanup(eng.Close)
	defs := engine.DefaultDefinitions()
	defs.Rules = []types.Rule{{
		ID:         "swift",
		Base:       "AWKWARD",
		Ingredient: types.Ingredient{Kind: types.CatalogFixed, ID: "SUGAR", Quantity: 1},
		Duration:   100,
	}}
	if _, err := eng.Reload(defs); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	return New(console.New(eng, out, nil))
}

func TestHandleMeta_Quit(t *testing.T) {
	m := newTestModel(t)

	for _, cmd := range []string{"/quit", "/exit"} {
		if _, quit := m.handleMeta(cmd); !quit {
			t.Errorf("handleMeta(%q) quit = false, want true", cmd)
		}
	}
}

func TestHandleMeta_Save(t *testing.T) {
	m := newTestModel(t)
	m.shell.Exec("join Alice")

	output, quit := m.handleMeta("/save")
	if quit {
		t.Error("save should not quit")
	}
	if len(output) == 0 || output[0] != "Saved 1 player records." {
		t.Errorf("handleMeta(/save) = %v, want save confirmation", output)
	}
}

func TestHandleMeta_Help(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/help")
	if quit {
		t.Error("help should not quit")
	}
	joined := strings.Join(output, "\n")
	for _, want := range []string{"/save", "/state", "/quit", "join <name>", "Tab completes"} {
		if !strings.Contains(joined, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestHandleMeta_Trace(t *testing.T) {
	m := newTestModel(t)

	output, _ := m.handleMeta("/trace")
	if !m.shell.Trace {
		t.Error("expected trace to be enabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "enabled") {
		t.Errorf("expected enabled message, got %v", output)
	}

	output, _ = m.handleMeta("/trace")
	if m.shell.Trace {
		t.Error("expected trace to be disabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "disabled") {
		t.Errorf("expected disabled message, got %v", output)
	}
}

func TestHandleMeta_Unknown(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/bogus")
	if quit {
		t.Error("unknown command should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Unknown command") {
		t.Errorf("expected unknown command message, got %v", output)
	}
}

func TestHandleMeta_State(t *testing.T) {
	m := newTestModel(t)
	m.shell.Exec("join Alice")

	joined := strings.Join(func() []string { o, _ := m.handleMeta("/state Alice"); return o }(), "\n")
	if !strings.Contains(joined, "swift") {
		t.Errorf("state output = %q, want discovered recipe", joined)
	}

	output, _ := m.handleMeta("/state")
	if len(output) != 1 || !strings.HasPrefix(output[0], "Usage:") {
		t.Errorf("handleMeta(/state) = %v, want usage", output)
	}
}

func TestUpdate_EnterRunsCommand(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)

	m.input.SetValue("join Alice")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	var found bool
	for _, rl := range m.rawLines {
		if strings.Contains(rl.text, "Recipe Discovered: swift") {
			found = true
			if rl.kind != kindNotice {
				t.Errorf("discovery line kind = %v, want %v", rl.kind, kindNotice)
			}
		}
	}
	if !found {
		t.Error("expected discovery notification after join")
	}
	if !strings.Contains(m.renderStatusBar(), "Online: Alice") {
		t.Errorf("status bar = %q, want online player", m.renderStatusBar())
	}
}

func TestUpdate_DrainCollectsBackgroundOutput(t *testing.T) {
	m := newTestModel(t)
	m.shell.Out.Printf("  > [console] say hi (for -)")

	next, cmd := m.Update(drainMsg{})
	m = next.(Model)
	if cmd == nil {
		t.Error("drain should reschedule itself")
	}
	if len(m.rawLines) == 0 || m.rawLines[0].kind != kindAction {
		t.Errorf("rawLines = %+v, want drained action line", m.rawLines)
	}
}
