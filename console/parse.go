package console

import "strings"

// Command is a parsed console line. Verb is lower-cased and canonical; Args
// keep their original case (recipe ids, player names, permission nodes).
// Options holds key=value arguments.
type Command struct {
	Verb    string
	Args    []string
	Options map[string]string
}

var verbAliases = map[string]string{
	// Sessions
	"login":  "join",
	"logout": "leave",
	"quit":   "exit",
	"who":    "players",

	// Crafting
	"try":    "attempt",
	"check":  "attempt",
	"craft":  "brew",
	"finish": "complete",
	"wait":   "tick",
	"z":      "tick",
	"sip":    "drink",
	"quaff":  "drink",

	// Discovery
	"learn":  "discover",
	"unlock": "force-discover",

	// Queries
	"ls":      "recipes",
	"book":    "recipes",
	"ach":     "achievements",
	"stats":   "status",
	"info":    "status",
	"timers":  "effects",
	"potions": "effects",
	"?":       "help",
	"h":       "help",
}

// Parse splits a console line into a command.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{}
	}

	words := strings.Fields(input)
	words[0] = strings.ToLower(words[0])

	words = expandMultiWordVerbs(words)

	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	cmd := Command{Verb: words[0]}
	for _, w := range words[1:] {
		if k, v, ok := strings.Cut(w, "="); ok && k != "" {
			if cmd.Options == nil {
				cmd.Options = map[string]string{}
			}
			cmd.Options[strings.ToLower(k)] = v
			continue
		}
		cmd.Args = append(cmd.Args, w)
	}
	return cmd
}

// expandMultiWordVerbs handles "force discover", "speed set" and the like.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}
	second := strings.ToLower(words[1])

	switch words[0] {
	case "force":
		if second == "discover" {
			return append([]string{"force-discover"}, words[2:]...)
		}
	case "speed", "attr":
		return append([]string{words[0] + "-" + second}, words[2:]...)
	case "log", "sign":
		if second == "in" {
			return append([]string{"join"}, words[2:]...)
		}
		if second == "out" {
			return append([]string{"leave"}, words[2:]...)
		}
	case "break":
		if second == "station" {
			return append([]string{"break"}, words[2:]...)
		}
	}
	return words
}

// Arg returns the i-th positional argument or "".
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}
