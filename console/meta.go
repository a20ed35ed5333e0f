package console

import (
	"fmt"
	"strings"

	"github.com/nathoo/brewcore/engine/save"
)

var systemHelp = []string{
	"System:",
	"  /save           Write every cached player record",
	"  /state <player> Dump a player record",
	"  /trace          Toggle debug trace output",
	"  /help           Show this help",
	"  /quit           Exit",
	"  again (g)       Repeat the last command",
	"",
}

// Meta runs a system command: a line starting with "/". Status messages
// are returned in Notice, dumped data in Output.
func (s *Shell) Meta(line string) Result {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/quit", "/exit":
		return Result{Notice: "Goodbye.", Quit: true}
	case "/save":
		st := s.Engine.Store()
		st.SaveAll()
		return Result{Notice: fmt.Sprintf("Saved %d player records.", len(st.IDs()))}
	case "/state":
		return s.metaState(arg)
	case "/trace":
		s.Trace = !s.Trace
		if s.Trace {
			return Result{Notice: "Trace output enabled."}
		}
		return Result{Notice: "Trace output disabled."}
	case "/help":
		return Result{Output: append(append([]string{}, systemHelp...), helpLines()...)}
	default:
		return Result{Notice: fmt.Sprintf("Unknown command: %s. Type /help for available commands.", name)}
	}
}

func (s *Shell) metaState(name string) Result {
	if name == "" {
		return Result{Notice: "Usage: /state <player>"}
	}
	data, err := save.EncodeYAML(s.Engine.Record(PlayerID(name)))
	if err != nil {
		return Result{Notice: fmt.Sprintf("State failed: %v", err)}
	}
	return Result{Output: strings.Split(strings.TrimRight(string(data), "\n"), "\n")}
}
