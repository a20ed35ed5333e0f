package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/brewcore/console"
)

// drainInterval is how often output produced between commands (expired
// effects fired by maintenance) is pulled into the viewport.
const drainInterval = time.Second

// chromeHeight is the status bar plus the input line.
const chromeHeight = 2

// rawLine is one transcript line before wrapping and styling. Lines are
// re-rendered from the transcript whenever the width changes.
type rawLine struct {
	text string
	kind lineKind
}

// keyMap holds the console's own bindings. Scrolling keys belong to the
// viewport.
type keyMap struct {
	Quit     key.Binding
	Submit   key.Binding
	Complete key.Binding
	Older    key.Binding
	Newer    key.Binding
	Scroll   key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("ctrl+c")),
	Submit:   key.NewBinding(key.WithKeys("enter")),
	Complete: key.NewBinding(key.WithKeys("tab")),
	Older:    key.NewBinding(key.WithKeys("up")),
	Newer:    key.NewBinding(key.WithKeys("down")),
	Scroll:   key.NewBinding(key.WithKeys("pgup", "pgdown", "ctrl+u", "ctrl+d")),
}

// Model is the Bubble Tea model for the brewcore console.
type Model struct {
	shell *console.Shell

	viewport viewport.Model
	input    textinput.Model
	history  *History
	rawLines []rawLine

	width    int
	height   int
	ready    bool
	quitting bool
	lastCmd  string
}

// outputMsg delivers lines produced outside a key press (the banner).
type outputMsg struct {
	lines []string
}

// drainMsg asks the model to collect background output.
type drainMsg struct{}

// New creates a TUI model around a console shell.
func New(shell *console.Shell) Model {
	in := textinput.New()
	in.Prompt = "brew> "
	in.PromptStyle = styleInputPrompt
	in.CharLimit = 512
	in.Focus()
	return Model{shell: shell, input: in, history: NewHistory(200)}
}

// Run starts the full-screen console and blocks until it exits.
func Run(shell *console.Shell) error {
	_, err := tea.NewProgram(New(shell), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// Init starts the cursor blink, prints the banner and schedules the first
// background drain.
func (m Model) Init() tea.Cmd {
	e := m.shell.Engine
	banner := outputMsg{lines: []string{
		"brewcore console",
		fmt.Sprintf("%d recipes, %d achievements, %d chains loaded.",
			len(e.Rules()), len(e.Achievements()), len(e.Chains())),
		"Type help for commands, /help for system commands.",
	}}
	return tea.Batch(textinput.Blink, func() tea.Msg { return banner }, scheduleDrain())
}

func scheduleDrain() tea.Cmd {
	return tea.Tick(drainInterval, func(time.Time) tea.Msg { return drainMsg{} })
}

// Update handles key presses, window resizes and console output.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	case outputMsg:
		m.record("", msg.lines, false)
	case drainMsg:
		if lines := m.shell.Out.Drain(); len(lines) > 0 {
			m.record("", lines, false)
		}
		return m, scheduleDrain()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	vh := max(height-chromeHeight, 1)
	if m.ready {
		m.viewport.Width, m.viewport.Height = width, vh
	} else {
		m.viewport = viewport.New(width, vh)
		m.viewport.KeyMap = viewportKeyMap()
		m.ready = true
	}
	m.refreshViewport()
}

// handleKey reports handled=false for keys the text input should see.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit, true
	case key.Matches(msg, keys.Submit):
		next, cmd := m.handleEnter()
		return next, cmd, true
	case key.Matches(msg, keys.Complete):
		if line, ok := m.history.Complete(m.input.Value()); ok {
			m.setInput(line)
		}
		return m, nil, true
	case key.Matches(msg, keys.Older):
		if line, ok := m.history.Prev(); ok {
			m.setInput(line)
		}
		return m, nil, true
	case key.Matches(msg, keys.Newer):
		line, ok := m.history.Next()
		if !ok {
			m.history.ResetCursor()
		}
		m.setInput(line)
		return m, nil, true
	case key.Matches(msg, keys.Scroll):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd, true
	}
	return m, nil, false
}

func (m *Model) setInput(s string) {
	m.input.SetValue(s)
	m.input.CursorEnd()
}

// handleEnter runs the submitted line as a console or system command.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}
	m.history.Push(line)
	m.history.ResetCursor()

	switch strings.ToLower(line) {
	case "again", "g":
		if m.lastCmd == "" {
			m.record(line, []string{"Nothing to repeat."}, true)
			return m, nil
		}
		line = m.lastCmd
	default:
		m.lastCmd = line
	}

	var out []string
	var quit, meta bool
	if strings.HasPrefix(line, "/") {
		out, quit = m.handleMeta(line)
		meta = true
	} else {
		res := m.shell.Exec(line)
		out, quit = res.Output, res.Quit
	}
	m.record(line, out, meta)
	if quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// record appends a command and its output to the transcript. Output of
// system commands is styled as such; everything else is classified.
func (m *Model) record(echo string, lines []string, meta bool) {
	if echo != "" {
		m.rawLines = append(m.rawLines, rawLine{text: m.input.Prompt + echo, kind: kindInput})
	}
	for _, l := range lines {
		kind := kindMeta
		if !meta {
			kind = classifyLine(l)
		}
		m.rawLines = append(m.rawLines, rawLine{text: l, kind: kind})
	}
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
}

// refreshViewport re-wraps the transcript at the current width.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := max(m.width, 10)
	out := make([]string, len(m.rawLines))
	for i, rl := range m.rawLines {
		if rl.text != "" {
			out[i] = renderLineKind(wordWrap(rl.text, width), rl.kind)
		}
	}
	m.viewport.SetContent(strings.Join(out, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap breaks text at spaces so no line exceeds width, unless a single
// word is longer. Leading indentation is kept on the first line only.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}
	indent := text[:len(text)-len(strings.TrimLeft(text, " "))]
	var lines []string
	cur := indent
	for _, w := range strings.Fields(text) {
		switch {
		case cur == indent:
			cur += w
		case len(cur)+1+len(w) > width:
			lines = append(lines, cur)
			cur = w
		default:
			cur += " " + w
		}
	}
	return strings.Join(append(lines, cur), "\n")
}

// View stacks the transcript, the status bar and the prompt.
func (m Model) View() string {
	switch {
	case m.quitting:
		return ""
	case !m.ready:
		return "Loading..."
	}
	return strings.Join([]string{m.viewport.View(), m.renderStatusBar(), m.input.View()}, "\n")
}

func (m Model) trace() bool { return m.shell.Trace }

// handleMeta runs a slash command and reports whether to quit.
func (m *Model) handleMeta(input string) ([]string, bool) {
	r := m.shell.Meta(input)
	out := r.Output
	if r.Notice != "" {
		out = append(out, r.Notice)
	}
	if strings.EqualFold(strings.Fields(input)[0], "/help") {
		out = append(out, "", "Keys: PgUp/PgDn scroll, Up/Down history, Tab completes from history")
	}
	return out, r.Quit
}

// viewportKeyMap keeps paging on the viewport and leaves the arrow keys to
// the input history.
func viewportKeyMap() viewport.KeyMap {
	km := viewport.DefaultKeyMap()
	km.PageUp = key.NewBinding(key.WithKeys("pgup"))
	km.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	km.HalfPageUp = key.NewBinding(key.WithKeys("ctrl+u"))
	km.HalfPageDown = key.NewBinding(key.WithKeys("ctrl+d"))
	km.Up.SetEnabled(false)
	km.Down.SetEnabled(false)
	return km
}
