// Package cli is the plain line-oriented front end for the brewcore
// console. It also plays back command scripts.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/brewcore/console"
)

// CLI reads console lines and prints their results.
type CLI struct {
	Shell *console.Shell
	In    io.Reader
	Out   io.Writer
	// EchoInput repeats each line after the prompt, for script playback.
	EchoInput bool

	lastCmd string
}

// New creates a CLI on stdin and stdout.
func New(shell *console.Shell) *CLI {
	return &CLI{Shell: shell, In: os.Stdin, Out: os.Stdout}
}

// Run loops over input lines until EOF, exit or /quit.
func (c *CLI) Run() {
	c.notice("brewcore console. Type help for commands, /help for system commands.")

	lines := bufio.NewScanner(c.In)
	for fmt.Fprint(c.Out, "> "); lines.Scan(); fmt.Fprint(c.Out, "> ") {
		line := strings.TrimSpace(lines.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if c.EchoInput {
			fmt.Fprintln(c.Out, line)
		}
		if c.dispatch(line) {
			return
		}
	}
	fmt.Fprintln(c.Out)
}

// dispatch runs one line and reports whether the loop should stop.
func (c *CLI) dispatch(line string) bool {
	if strings.HasPrefix(line, "/") {
		return c.show(c.Shell.Meta(line))
	}
	switch strings.ToLower(line) {
	case "again", "g":
		if c.lastCmd == "" {
			fmt.Fprintln(c.Out, "Nothing to repeat.")
			return false
		}
		line = c.lastCmd
	default:
		c.lastCmd = line
	}
	return c.show(c.Shell.Exec(line))
}

func (c *CLI) show(r console.Result) bool {
	for _, l := range r.Output {
		fmt.Fprintln(c.Out, l)
	}
	if r.Notice != "" {
		c.notice(r.Notice)
	}
	return r.Quit
}

func (c *CLI) notice(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
