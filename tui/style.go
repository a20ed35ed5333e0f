package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	stylePlain = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleNotice = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	styleDetail = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Italic(true)

	styleReward = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleAction = lipgloss.NewStyle().
			Foreground(lipgloss.Color("105"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleUserInput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindPlain lineKind = iota
	kindNotice
	kindDetail
	kindReward
	kindAction
	kindSystem
	kindError
	kindTrace
	kindInput // echoed command
	kindMeta  // system command output
)

// classifyLine determines what kind of console output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "Error:"):
		return kindError
	case strings.HasPrefix(line, "  > ["):
		return kindAction
	case strings.HasPrefix(line, "  reward for "):
		return kindReward
	case strings.HasPrefix(line, "    "):
		return kindDetail
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case isNotice(line):
		return kindNotice
	default:
		return kindPlain
	}
}

// isNotice matches "[player] Title" notification headers.
func isNotice(line string) bool {
	if !strings.HasPrefix(line, "[") {
		return false
	}
	end := strings.Index(line, "] ")
	return end > 1 && !strings.ContainsAny(line[1:end], "[ ")
}

func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindNotice:
		return styleNotice.Render(line)
	case kindDetail:
		return styleDetail.Render(line)
	case kindReward:
		return styleReward.Render(line)
	case kindAction:
		return styleAction.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	case kindInput:
		return styleUserInput.Render(line)
	case kindMeta:
		return styledSystemMsg(line)
	default:
		return stylePlain.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
