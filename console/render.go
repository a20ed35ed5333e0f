package console

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nathoo/brewcore/engine"
	"github.com/nathoo/brewcore/engine/discovery"
	"github.com/nathoo/brewcore/engine/effects"
	"github.com/nathoo/brewcore/engine/rules"
	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/types"
)

func (s *Shell) renderOutcome(out types.Outcome) []string {
	var lines []string
	for _, n := range out.Notifications {
		head := fmt.Sprintf("[%s] %s", s.playerName(n.Actor), n.Title)
		if s.Trace {
			head += fmt.Sprintf("  (%s %s)", n.Kind, n.Subject)
		}
		lines = append(lines, head)
		for _, l := range n.Lines {
			lines = append(lines, "    "+l)
		}
	}
	for _, g := range out.Rewards {
		lines = append(lines, fmt.Sprintf("  reward for %s from %s: %s",
			s.playerName(g.Actor), g.Source, describeReward(g.Reward)))
		if len(g.Reward.Commands) > 0 {
			var actor types.Actor
			if p, err := s.player(s.playerName(g.Actor)); err == nil {
				actor = p
			}
			vars := effects.Vars{UUID: g.Actor.String()}
			if actor != nil {
				vars.Player = actor.Name()
			}
			s.Out.Run(actor, effects.Expand(g.Reward.Commands, vars))
		}
	}
	return lines
}

func describeReward(r types.Reward) string {
	var parts []string
	if r.Experience > 0 {
		parts = append(parts, fmt.Sprintf("+%d xp", r.Experience))
	}
	for _, it := range r.Items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Amount, it.Material))
	}
	if r.Permission != "" {
		parts = append(parts, "permission "+r.Permission)
	}
	if n := len(r.Commands); n > 0 {
		parts = append(parts, fmt.Sprintf("%d command(s)", n))
	}
	if r.Message != "" {
		parts = append(parts, strconv.Quote(r.Message))
	}
	if len(parts) == 0 {
		return string(r.Kind)
	}
	return strings.Join(parts, ", ")
}

func (s *Shell) renderResolution(res types.Resolution, a types.Attempt) []string {
	switch res.Status {
	case types.StatusNoMatch:
		return []string{fmt.Sprintf("No recipe for %s + %s.", a.Base, describeItem(a.Item))}
	case types.StatusUndiscovered:
		return []string{fmt.Sprintf("%s is not discovered yet: %s.", res.Rule.ID, s.hint(res.Rule.ID))}
	case types.StatusConditionFailed:
		return []string{fmt.Sprintf("%s cannot be brewed here: %s.", res.Rule.ID, res.Reason)}
	}
	lines := []string{fmt.Sprintf("%s is ready: %d ticks.", res.Rule.ID, res.Duration)}
	if s.Trace {
		lines = append(lines, "[trace] "+s.Engine.DescribeSpeed(res.Rule, a.Actor, a.Env, a.Station))
	}
	return lines
}

func (s *Shell) cmdStatus(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	rec := s.Engine.Record(p.ID())
	lines := []string{
		fmt.Sprintf("%s (%s), level %d", p.Name(), p.ID(), p.Level()),
		fmt.Sprintf("  discovered:   %d/%d recipes", state.DiscoveredCount(rec), len(s.Engine.Rules())),
		fmt.Sprintf("  brewed:       %s", humanize.Comma(int64(state.GetStat(rec, state.StatTotalBrewed)))),
		fmt.Sprintf("  achievements: %d/%d", len(state.AchievementIDs(rec)), len(s.Engine.Achievements())),
		fmt.Sprintf("  chains:       %d completed", len(state.CompletedChainIDs(rec))),
		fmt.Sprintf("  first joined: %s", humanize.Time(rec.FirstJoined)),
		fmt.Sprintf("  last seen:    %s", humanize.Time(rec.LastSeen)),
		"  " + describeEnv("location", p.Env()),
	}
	if perms := p.Permissions(); len(perms) > 0 {
		lines = append(lines, "  permissions:  "+strings.Join(perms, ", "))
	}
	if s.Trace {
		keys := make([]string, 0, len(rec.Stats))
		for k := range rec.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("[trace] %s = %d", k, rec.Stats[k]))
		}
	}
	return lines, nil
}

func discoveryHint(e *engine.Engine, ruleID string) string {
	m, ok := e.Discovery().Method(ruleID)
	if !ok {
		m = types.DiscoveryMethod{Kind: types.DiscoverAutomatic}
	}
	return discovery.Hint(m)
}

// itemFor builds the observed item for an ingredient argument.
func itemFor(arg string) (types.Item, error) {
	ing, err := rules.ParseIngredient(arg)
	if err != nil {
		return types.Item{}, err
	}
	if ing.Kind == types.CatalogFixed {
		return types.Item{Material: ing.ID, Amount: ing.Quantity}, nil
	}
	return types.Item{
		Material: "PAPER",
		Amount:   ing.Quantity,
		External: map[types.IngredientKind]string{ing.Kind: ing.ID},
	}, nil
}

func describeItem(it types.Item) string {
	for kind, id := range it.External {
		return fmt.Sprintf("%dx %s:%s", it.Amount, kind, id)
	}
	return fmt.Sprintf("%dx %s", it.Amount, it.Material)
}

// applyEnv overlays key=value options on an environment.
func applyEnv(env types.Environment, opts map[string]string) (types.Environment, error) {
	for k, v := range opts {
		switch k {
		case "biome":
			env.Biome = strings.ToUpper(v)
		case "world":
			env.World = v
		case "time":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return env, fmt.Errorf("invalid time %q", v)
			}
			env.Time = n
		case "y":
			n, err := strconv.Atoi(v)
			if err != nil {
				return env, fmt.Errorf("invalid y %q", v)
			}
			env.Y = n
		case "weather":
			switch strings.ToLower(v) {
			case "clear":
				env.Raining, env.Thundering = false, false
			case "rain":
				env.Raining, env.Thundering = true, false
			case "thunder":
				env.Raining, env.Thundering = true, true
			default:
				return env, fmt.Errorf("invalid weather %q (clear, rain, thunder)", v)
			}
		}
	}
	return env, nil
}

func describeEnv(who string, env types.Environment) string {
	weather := "clear"
	switch {
	case env.Thundering:
		weather = "thunder"
	case env.Raining:
		weather = "rain"
	}
	return fmt.Sprintf("%s: %s/%s y=%d time=%d %s", who, env.World, env.Biome, env.Y, env.Time%types.DayLength, weather)
}

// parseStation reads "x,y,z". An empty string is the origin.
func parseStation(world, at string) (types.StationKey, error) {
	k := types.StationKey{World: world}
	if at == "" {
		return k, nil
	}
	parts := strings.Split(at, ",")
	if len(parts) != 3 {
		return k, fmt.Errorf("invalid station %q, want x,y,z", at)
	}
	var xyz [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return k, fmt.Errorf("invalid station %q, want x,y,z", at)
		}
		xyz[i] = n
	}
	k.X, k.Y, k.Z = xyz[0], xyz[1], xyz[2]
	return k, nil
}

func describeStation(k types.StationKey) string {
	return fmt.Sprintf("%s(%d,%d,%d)", k.World, k.X, k.Y, k.Z)
}

func formatRemaining(d time.Duration) string {
	return effects.FormatRemaining(d)
}
