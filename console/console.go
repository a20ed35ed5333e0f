// Package console implements the administrative command shell shared by the
// plain and full-screen front ends. It drives the engine with simulated
// players on a manually advanced tick clock.
package console

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine"
	"github.com/nathoo/brewcore/engine/attributes"
	"github.com/nathoo/brewcore/engine/rules"
	"github.com/nathoo/brewcore/types"
)

// Result is the response to one console line.
type Result struct {
	Output []string
	Notice string
	Quit   bool
}

// Buffer collects lines produced outside a command: actions run by the
// engine and completions fired by the scheduler. It implements
// effects.Runner.
type Buffer struct {
	mu    sync.Mutex
	lines []string
}

// Run implements effects.Runner by recording the actions.
func (b *Buffer) Run(actor types.Actor, actions []types.Action) {
	name := "-"
	if actor != nil {
		name = actor.Name()
	}
	for _, a := range actions {
		b.Printf("  > [%s] %s (for %s)", a.Target, a.Command, name)
	}
}

// Printf appends a formatted line.
func (b *Buffer) Printf(format string, args ...any) {
	b.mu.Lock()
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
	b.mu.Unlock()
}

// Drain returns and clears the buffered lines.
func (b *Buffer) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.lines
	b.lines = nil
	return out
}

// Shell executes console commands against an engine.
type Shell struct {
	Engine *engine.Engine
	Sched  *engine.TickScheduler
	Attrs  *attributes.Static
	Out    *Buffer
	// Reload re-reads the definitions and returns the load warnings.
	Reload func() ([]string, error)
	Trace  bool

	mu      sync.Mutex
	players map[string]*Player
	broken  map[types.StationKey]bool
}

// New creates a shell. out and attrs must be the runner and attribute
// source the engine was configured with so that command actions and
// attribute changes reach it.
func New(e *engine.Engine, out *Buffer, attrs *attributes.Static) *Shell {
	if out == nil {
		out = &Buffer{}
	}
	if attrs == nil {
		attrs = attributes.NewStatic()
	}
	return &Shell{
		Engine:  e,
		Sched:   engine.NewTickScheduler(),
		Attrs:   attrs,
		Out:     out,
		players: map[string]*Player{},
		broken:  map[types.StationKey]bool{},
	}
}

// Exec runs one console line.
func (s *Shell) Exec(line string) Result {
	cmd := Parse(line)
	var r Result
	if cmd.Verb == "" {
		return r
	}

	var lines []string
	var err error
	switch cmd.Verb {
	case "exit":
		return Result{Output: []string{"Goodbye."}, Quit: true}
	case "help":
		lines = helpLines()
	case "join":
		lines, err = s.cmdJoin(cmd)
	case "leave":
		lines, err = s.cmdLeave(cmd)
	case "players":
		lines = s.cmdPlayers()
	case "level":
		lines, err = s.cmdLevel(cmd)
	case "grant", "revoke":
		lines, err = s.cmdPerm(cmd)
	case "env":
		lines, err = s.cmdEnv(cmd)
	case "attempt":
		lines, err = s.cmdAttempt(cmd, false)
	case "brew":
		lines, err = s.cmdAttempt(cmd, true)
	case "break":
		lines, err = s.cmdBreak(cmd)
	case "tick":
		lines, err = s.cmdTick(cmd)
	case "complete":
		lines, err = s.cmdComplete(cmd)
	case "discover":
		lines, err = s.cmdDiscover(cmd, false)
	case "force-discover":
		lines, err = s.cmdDiscover(cmd, true)
	case "drink":
		lines, err = s.cmdDrink(cmd)
	case "sweep":
		lines = []string{fmt.Sprintf("Fired %d expired effects.", s.Engine.SweepEffects())}
	case "effects":
		lines, err = s.cmdEffects(cmd)
	case "speed-set", "speed-remove", "speed-get":
		lines, err = s.cmdSpeed(cmd)
	case "reload":
		lines, err = s.cmdReload()
	case "recipes":
		lines, err = s.cmdRecipes(cmd)
	case "achievements":
		lines, err = s.cmdAchievements(cmd)
	case "chains":
		lines, err = s.cmdChains(cmd)
	case "status":
		lines, err = s.cmdStatus(cmd)
	case "attr-set", "attr-unset":
		lines, err = s.cmdAttr(cmd)
	default:
		err = fmt.Errorf("unknown command: %s. Type help for available commands", cmd.Verb)
	}

	if err != nil {
		lines = append(lines, "Error: "+err.Error())
	}
	r.Output = append(lines, s.Out.Drain()...)
	return r
}

func (s *Shell) player(name string) (*Player, error) {
	if name == "" {
		return nil, fmt.Errorf("player name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%s is not online", name)
	}
	return p, nil
}

// actor resolves a player argument; "-" is an unattended station.
func (s *Shell) actor(name string) (types.Actor, *Player, error) {
	if name == "-" {
		return nil, nil, nil
	}
	p, err := s.player(name)
	if err != nil {
		return nil, nil, err
	}
	return p, p, nil
}

func (s *Shell) playerName(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.ID() == id {
			return p.Name()
		}
	}
	return id.String()
}

func (s *Shell) cmdJoin(cmd Command) ([]string, error) {
	name := cmd.Arg(0)
	if name == "" {
		return nil, fmt.Errorf("usage: join <name> [level=N] [perms=a,b]")
	}
	key := strings.ToLower(name)
	s.mu.Lock()
	p, ok := s.players[key]
	if !ok {
		p = NewPlayer(name)
		s.players[key] = p
	}
	s.mu.Unlock()

	if v, ok := cmd.Options["level"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid level %q", v)
		}
		p.SetLevel(n)
	}
	if v, ok := cmd.Options["perms"]; ok {
		for _, node := range strings.Split(v, ",") {
			if node = strings.TrimSpace(node); node != "" {
				p.Grant(node)
			}
		}
	}

	out := s.Engine.Join(p)
	lines := []string{fmt.Sprintf("%s joined (%s).", p.Name(), p.ID())}
	return append(lines, s.renderOutcome(out)...), nil
}

func (s *Shell) cmdLeave(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	s.Engine.Leave(p.ID())
	s.mu.Lock()
	delete(s.players, strings.ToLower(p.Name()))
	s.mu.Unlock()
	return []string{fmt.Sprintf("%s left; progress saved.", p.Name())}, nil
}

func (s *Shell) cmdPlayers() []string {
	online := s.Engine.OnlineActors()
	if len(online) == 0 {
		return []string{"No players online."}
	}
	lines := []string{fmt.Sprintf("%d online:", len(online))}
	for _, a := range online {
		lines = append(lines, fmt.Sprintf("  %s (level %d)", a.Name(), a.Level()))
	}
	return lines
}

func (s *Shell) cmdLevel(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(cmd.Arg(1))
	if err != nil {
		return nil, fmt.Errorf("usage: level <player> <n>")
	}
	p.SetLevel(n)
	out := s.Engine.Rediscover(p)
	return append([]string{fmt.Sprintf("%s is now level %d.", p.Name(), n)}, s.renderOutcome(out)...), nil
}

func (s *Shell) cmdPerm(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	node := cmd.Arg(1)
	if node == "" {
		return nil, fmt.Errorf("usage: %s <player> <permission>", cmd.Verb)
	}
	if cmd.Verb == "revoke" {
		p.Revoke(node)
		return []string{fmt.Sprintf("Revoked %s from %s.", node, p.Name())}, nil
	}
	p.Grant(node)
	out := s.Engine.Rediscover(p)
	return append([]string{fmt.Sprintf("Granted %s to %s.", node, p.Name())}, s.renderOutcome(out)...), nil
}

func (s *Shell) cmdEnv(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	env, err := applyEnv(p.Env(), cmd.Options)
	if err != nil {
		return nil, err
	}
	p.SetEnv(env)
	return []string{describeEnv(p.Name(), env)}, nil
}

func (s *Shell) cmdAttempt(cmd Command, schedule bool) ([]string, error) {
	if len(cmd.Args) < 3 {
		return nil, fmt.Errorf("usage: %s <player|-> <base> <ingredient> [biome=..] [world=..] [time=..] [y=..] [weather=..] [at=x,y,z]", cmd.Verb)
	}
	actor, p, err := s.actor(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	item, err := itemFor(cmd.Arg(2))
	if err != nil {
		return nil, err
	}
	env := types.Environment{World: "world", Biome: "PLAINS", Time: 6000, Y: 64}
	if p != nil {
		env = p.Env()
	}
	if env, err = applyEnv(env, cmd.Options); err != nil {
		return nil, err
	}
	station, err := parseStation(env.World, cmd.Options["at"])
	if err != nil {
		return nil, err
	}

	a := types.Attempt{Actor: actor, Base: cmd.Arg(1), Item: item, Env: env, Station: station}
	if !schedule {
		return s.renderResolution(s.Engine.Attempt(a), a), nil
	}

	s.mu.Lock()
	delete(s.broken, station)
	s.mu.Unlock()
	alive := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.broken[station]
	}
	res := s.Engine.Brew(a, s.Sched, alive, func(out types.Outcome) {
		who := "unattended station"
		if actor != nil {
			who = actor.Name()
		}
		s.Out.Printf("Brew finished at %s for %s.", describeStation(station), who)
		for _, l := range s.renderOutcome(out) {
			s.Out.Printf("%s", l)
		}
	})
	lines := s.renderResolution(res, a)
	if res.Status == types.StatusReady {
		lines = append(lines, fmt.Sprintf("Brewing at %s; done at tick %d.",
			describeStation(station), s.Sched.Now()+int64(res.Duration)))
	}
	return lines, nil
}

func (s *Shell) cmdBreak(cmd Command) ([]string, error) {
	station, err := parseStation(cmd.Options["world"], cmd.Arg(0))
	if err != nil || cmd.Arg(0) == "" {
		return nil, fmt.Errorf("usage: break <x,y,z> [world=..]")
	}
	if station.World == "" {
		station.World = "world"
	}
	s.mu.Lock()
	s.broken[station] = true
	s.mu.Unlock()
	return []string{fmt.Sprintf("Station at %s broken.", describeStation(station))}, nil
}

func (s *Shell) cmdTick(cmd Command) ([]string, error) {
	n := 1
	if a := cmd.Arg(0); a != "" {
		v, err := strconv.Atoi(a)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("usage: tick [n]")
		}
		n = v
	}
	ran := s.Sched.Advance(n)
	lines := []string{fmt.Sprintf("Tick %d.", s.Sched.Now())}
	if s.Trace {
		lines = append(lines, fmt.Sprintf("[trace] %d callbacks ran, %d pending", ran, s.Sched.Pending()))
	}
	return lines, nil
}

func (s *Shell) cmdComplete(cmd Command) ([]string, error) {
	actor, _, err := s.actor(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	ruleID := cmd.Arg(1)
	if _, ok := s.Engine.Rule(ruleID); !ok {
		return nil, fmt.Errorf("unknown recipe %q", ruleID)
	}
	out := s.Engine.Complete(actor, ruleID)
	return append([]string{fmt.Sprintf("Completed %s.", ruleID)}, s.renderOutcome(out)...), nil
}

func (s *Shell) cmdDiscover(cmd Command, force bool) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	ruleID := cmd.Arg(1)
	rule, ok := s.Engine.Rule(ruleID)
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q", ruleID)
	}

	var found bool
	var out types.Outcome
	if force {
		found, out = s.Engine.ForceDiscover(p.ID(), ruleID)
	} else {
		found, out = s.Engine.TryDiscover(p, ruleID)
	}
	if !found {
		if s.Engine.IsDiscovered(p.ID(), ruleID) {
			return []string{fmt.Sprintf("%s already knows %s.", p.Name(), ruleID)}, nil
		}
		return []string{fmt.Sprintf("%s cannot discover %s yet: %s.", p.Name(), ruleID, s.hint(rule.ID))}, nil
	}
	return s.renderOutcome(out), nil
}

func (s *Shell) cmdDrink(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	ruleID := cmd.Arg(1)
	actions, ok := s.Engine.Drink(p, ruleID)
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q", ruleID)
	}
	lines := []string{fmt.Sprintf("%s drank %s (%d actions).", p.Name(), ruleID, len(actions))}
	if d, ok := s.Engine.Effects().Remaining(p.ID(), ruleID); ok {
		lines = append(lines, "Effect ends in "+formatRemaining(d)+".")
	}
	return lines, nil
}

func (s *Shell) cmdEffects(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	active := s.Engine.Effects().Active(p.ID())
	if len(active) == 0 {
		return []string{fmt.Sprintf("%s has no active effects.", p.Name())}, nil
	}
	lines := []string{fmt.Sprintf("Active effects for %s:", p.Name())}
	for _, e := range active {
		left, _ := s.Engine.Effects().Remaining(p.ID(), e.RuleID)
		lines = append(lines, fmt.Sprintf("  %-24s %s", e.Label, formatRemaining(left)))
	}
	return lines, nil
}

func (s *Shell) cmdSpeed(cmd Command) ([]string, error) {
	station, err := parseStation(cmd.Options["world"], cmd.Arg(0))
	if err != nil || cmd.Arg(0) == "" {
		return nil, fmt.Errorf("usage: speed set|get|remove <x,y,z> [multiplier] [world=..]")
	}
	if station.World == "" {
		station.World = "world"
	}
	calc := s.Engine.Speed()
	switch cmd.Verb {
	case "speed-set":
		m, err := strconv.ParseFloat(cmd.Arg(1), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid multiplier %q", cmd.Arg(1))
		}
		if err := calc.SetOverride(station, m, "console"); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("Station %s now brews at %.2fx time.", describeStation(station), m)}, nil
	case "speed-remove":
		if !calc.RemoveOverride(station) {
			return []string{fmt.Sprintf("No override at %s.", describeStation(station))}, nil
		}
		return []string{fmt.Sprintf("Override at %s removed.", describeStation(station))}, nil
	default:
		o, ok := calc.GetOverride(station)
		if !ok {
			return []string{fmt.Sprintf("No override at %s.", describeStation(station))}, nil
		}
		return []string{fmt.Sprintf("Station %s: %.2fx, set by %s at %s.",
			describeStation(station), o.Multiplier, o.SetBy, o.SetAt.Format("15:04:05"))}, nil
	}
}

func (s *Shell) cmdReload() ([]string, error) {
	if s.Reload == nil {
		return nil, fmt.Errorf("no definition source configured")
	}
	warnings, err := s.Reload()
	if err != nil {
		return nil, err
	}
	lines := []string{fmt.Sprintf("Reloaded %d recipes, %d achievements, %d chains.",
		len(s.Engine.Rules()), len(s.Engine.Achievements()), len(s.Engine.Chains()))}
	for _, w := range warnings {
		lines = append(lines, "  warning: "+w)
	}
	return lines, nil
}

func (s *Shell) cmdRecipes(cmd Command) ([]string, error) {
	var p *Player
	if name := cmd.Arg(0); name != "" {
		var err error
		if p, err = s.player(name); err != nil {
			return nil, err
		}
	}
	all := s.Engine.Rules()
	if len(all) == 0 {
		return []string{"No recipes loaded."}, nil
	}
	lines := make([]string, 0, len(all)+1)
	lines = append(lines, fmt.Sprintf("%d recipes:", len(all)))
	for _, r := range all {
		mark := " "
		if p != nil {
			if s.Engine.IsDiscovered(p.ID(), r.ID) {
				mark = "*"
			} else {
				mark = "?"
			}
		}
		line := fmt.Sprintf(" %s %-20s %s + %s (%ds)", mark, r.ID, r.Base,
			rules.DescribeIngredient(r.Ingredient), r.Duration/20)
		if p != nil && mark == "?" {
			line += "  [" + s.hint(r.ID) + "]"
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Shell) hint(ruleID string) string {
	return discoveryHint(s.Engine, ruleID)
}

func (s *Shell) cmdAchievements(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	visible := s.Engine.VisibleAchievements(p.ID())
	unlocked := map[string]bool{}
	for _, id := range s.Engine.Unlocked(p.ID()) {
		unlocked[id] = true
	}
	lines := []string{fmt.Sprintf("Achievements for %s (%d/%d):", p.Name(), len(unlocked), len(s.Engine.Achievements()))}
	for _, a := range visible {
		progress, _ := s.Engine.AchievementProgress(p.ID(), a.ID)
		mark := " "
		if unlocked[a.ID] {
			mark = "*"
		}
		target := a.Target
		if target < 1 {
			target = 1
		}
		lines = append(lines, fmt.Sprintf(" %s %-20s %d/%d  %s", mark, a.ID, min(progress, target), target, a.Description))
	}
	return lines, nil
}

func (s *Shell) cmdChains(cmd Command) ([]string, error) {
	p, err := s.player(cmd.Arg(0))
	if err != nil {
		return nil, err
	}
	chains := s.Engine.Chains()
	if len(chains) == 0 {
		return []string{"No chains loaded."}, nil
	}
	available := map[string]bool{}
	for _, ch := range s.Engine.AvailableChains(p.ID()) {
		available[ch.ID] = true
	}
	lines := []string{fmt.Sprintf("%d chains, %d available:", len(chains), len(available))}
	for _, ch := range chains {
		mark := " "
		if available[ch.ID] {
			mark = "*"
		}
		done := len(s.Engine.CompletedSteps(p.ID(), ch.ID))
		status := fmt.Sprintf("%d/%d", done, len(ch.Steps))
		if s.Engine.HasCompletedChain(p.ID(), ch.ID) {
			status = "completed"
		} else if next, ok := s.Engine.NextChainStep(p.ID(), ch.ID); ok {
			status += ", next: " + next.RuleID
		}
		name := ch.Name
		if name == "" {
			name = ch.ID
		}
		lines = append(lines, fmt.Sprintf(" %s %-24s %3.0f%%  %s", mark, name, s.Engine.ChainProgress(p.ID(), ch.ID)*100, status))
	}
	return lines, nil
}

func (s *Shell) cmdAttr(cmd Command) ([]string, error) {
	name := cmd.Arg(0)
	if name == "" {
		return nil, fmt.Errorf("usage: attr set <name> <value> [player] | attr unset <name>")
	}
	if cmd.Verb == "attr-unset" {
		s.Attrs.Unset(name)
		return []string{fmt.Sprintf("Attribute %s cleared.", name)}, nil
	}
	value := cmd.Arg(1)
	if who := cmd.Arg(2); who != "" {
		s.Attrs.SetFor(PlayerID(who), name, value)
		return []string{fmt.Sprintf("Attribute %s = %q for %s.", name, value, who)}, nil
	}
	s.Attrs.Set(name, value)
	return []string{fmt.Sprintf("Attribute %s = %q.", name, value)}, nil
}

// OnlineNames lists online player names, sorted.
func (s *Shell) OnlineNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Name())
	}
	sort.Strings(out)
	return out
}

func helpLines() []string {
	return []string{
		"Sessions:",
		"  join <name> [level=N] [perms=a,b]   bring a player online",
		"  leave <name>                        save and unload a player",
		"  players                             list online players",
		"  level <name> <n>, grant/revoke <name> <node>",
		"  env <name> [biome=..] [world=..] [time=..] [y=..] [weather=..]",
		"",
		"Brewing:",
		"  attempt <name|-> <base> <ingredient> [opts]   resolve without brewing",
		"  brew <name|-> <base> <ingredient> [at=x,y,z]  schedule a brew",
		"  tick [n]                            advance the clock n ticks",
		"  break <x,y,z>                       destroy a brewing station",
		"  complete <name|-> <recipe>          record a finished brew",
		"  drink <name> <recipe>               drink a brewed potion",
		"",
		"Progression:",
		"  discover <name> <recipe>            try the recipe's discovery method",
		"  force discover <name> <recipe>      unlock a recipe",
		"  recipes [name], achievements <name>, chains <name>, status <name>",
		"  effects <name>, sweep",
		"",
		"Administration:",
		"  speed set|get|remove <x,y,z> [multiplier] [world=..]",
		"  attr set <name> <value> [player], attr unset <name>",
		"  reload, help, exit",
	}
}
