// Package effects expands command templates into host actions and keeps the
// registry of pending timed effects.
package effects

import (
	"strings"

	"github.com/nathoo/brewcore/types"
)

// Vars carries the values substituted into command templates.
type Vars struct {
	Player   string
	UUID     string
	RuleID   string
	RuleName string
}

// VarsFor builds template variables for an actor and a rule. Either may be
// nil.
func VarsFor(actor types.Actor, rule *types.Rule) Vars {
	var v Vars
	if actor != nil {
		v.Player = actor.Name()
		v.UUID = actor.ID().String()
	}
	if rule != nil {
		v.RuleID = rule.ID
		v.RuleName = RuleLabel(rule)
	}
	return v
}

// RuleLabel is the display name of a rule's result, or the rule id.
func RuleLabel(rule *types.Rule) string {
	if rule.Result.Name != "" {
		return rule.Result.Name
	}
	return rule.ID
}

// Expand turns command templates into actions. A "[player]" prefix runs the
// command as the actor, "[console]" or no prefix runs it from the console.
// Blank templates are dropped.
func Expand(templates []string, v Vars) []types.Action {
	r := strings.NewReplacer(
		"{player}", v.Player,
		"{uuid}", v.UUID,
		"{recipe_id}", v.RuleID,
		"{recipe_name}", v.RuleName,
	)
	var out []types.Action
	for _, tmpl := range templates {
		target, cmd := splitTarget(strings.TrimSpace(tmpl))
		cmd = strings.TrimSpace(r.Replace(cmd))
		if cmd == "" {
			continue
		}
		out = append(out, types.Action{Target: target, Command: cmd})
	}
	return out
}

func splitTarget(s string) (types.ActionTarget, string) {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "[player]"):
		return types.RunAsActor, s[len("[player]"):]
	case strings.HasPrefix(lower, "[console]"):
		return types.RunAsConsole, s[len("[console]"):]
	default:
		return types.RunAsConsole, s
	}
}
