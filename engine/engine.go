// Package engine wires the rule index, the time modifier calculator and the
// progression trackers into the operations a host calls: attempts,
// completions, drinks and actor sessions.
package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/achievement"
	"github.com/nathoo/brewcore/engine/chain"
	"github.com/nathoo/brewcore/engine/discovery"
	"github.com/nathoo/brewcore/engine/effects"
	"github.com/nathoo/brewcore/engine/rules"
	"github.com/nathoo/brewcore/engine/speed"
	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/engine/store"
	"github.com/nathoo/brewcore/logging"
	"github.com/nathoo/brewcore/types"
)

// Config collects the engine's collaborators. Zero values fall back to
// in-memory storage, no attributes, no command runner and the std clock.
type Config struct {
	Records    store.Backend
	Effects    effects.Backend
	Runner     effects.Runner
	Attributes rules.AttributeSource
	Catalogs   rules.Catalogs
	Logger     logging.Logger
	Now        func() time.Time
}

// Engine holds the loaded definitions and the per-actor progression state.
type Engine struct {
	rules        *rules.Index
	eval         rules.Evaluator
	speed        *speed.Calculator
	discovery    *discovery.Tracker
	achievements *achievement.Tracker
	chains       *chain.Tracker
	store        *store.Store
	effects      *effects.Registry
	runner       effects.Runner
	log          logging.Logger
	now          func() time.Time

	mu     sync.RWMutex
	online map[uuid.UUID]types.Actor
}

// New creates an engine with empty definitions. Call Reload to load them.
func New(cfg Config) *Engine {
	log := logging.OrNoOp(cfg.Logger)
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	records := cfg.Records
	if records == nil {
		records = store.NewMemoryBackend()
	}

	e := &Engine{
		rules:  rules.NewIndex(rules.NewMatcher(cfg.Catalogs)),
		eval:   rules.Evaluator{Attributes: cfg.Attributes},
		speed:  speed.New(speed.DefaultSettings()),
		runner: cfg.Runner,
		log:    log,
		now:    now,
		online: map[uuid.UUID]types.Actor{},
	}
	e.speed.SetClock(now)
	e.store = store.New(records, store.WithLogger(log), store.WithClock(now))
	e.achievements = achievement.New(e.store, e.rules)
	e.discovery = discovery.New(e.achievements, e.rules)
	e.chains = chain.New(e.store, e.achievements)
	e.effects = effects.NewRegistry(cfg.Effects, e, cfg.Runner,
		effects.WithLogger(log), effects.WithClock(now))
	e.effects.Load()

	defaults := DefaultDefinitions()
	e.discovery.Configure(defaults.Discovery)
	e.achievements.Load(defaults.Achievements, nil)
	e.chains.Load(defaults.Chains, nil)
	return e
}

// Reload replaces every definition. An invalid rule rejects the whole
// reload and the previous definitions stay active. Warnings describe
// entries that were skipped or shadowed.
func (e *Engine) Reload(defs *Definitions) ([]string, error) {
	warnings, err := e.rules.Load(defs.Rules)
	if err != nil {
		return warnings, fmt.Errorf("loading rules: %w", err)
	}
	e.speed.Configure(defs.Speed)
	e.discovery.Configure(defs.Discovery)
	warnings = append(warnings, e.achievements.Load(defs.Achievements, defs.AchievementList)...)
	warnings = append(warnings, e.chains.Load(defs.Chains, defs.ChainList)...)
	for _, w := range warnings {
		e.log.Warnf("%s", w)
	}
	e.log.Infof("loaded %d recipes, %d achievements, %d chains",
		e.rules.Len(), len(e.achievements.All()), len(e.chains.All()))
	return warnings, nil
}

// Attempt resolves a crafting attempt without side effects.
func (e *Engine) Attempt(a types.Attempt) types.Resolution {
	rule := e.rules.Match(a.Base, a.Item)
	if rule == nil {
		return types.Resolution{Status: types.StatusNoMatch, Reason: "no recipe matches"}
	}
	if a.Actor != nil && e.discovery.Enabled() {
		rec := e.store.Get(a.Actor.ID())
		if !e.discovery.CanUse(rec, rule.ID) {
			return types.Resolution{Status: types.StatusUndiscovered, Rule: rule, Reason: "recipe not discovered"}
		}
	}
	if c := e.eval.FirstFailing(rule.Conditions, a.Actor, a.Env); c != nil {
		return types.Resolution{Status: types.StatusConditionFailed, Rule: rule, Failed: c, Reason: rules.Describe(*c)}
	}
	return types.Resolution{
		Status:   types.StatusReady,
		Rule:     rule,
		Duration: e.speed.EffectiveDuration(rule, a.Actor, a.Env, a.Station),
	}
}

// Brew resolves an attempt and, when it is ready, schedules its completion
// after the effective duration. When the completion fires, alive is checked
// first and the actor must still be online; otherwise the completion is
// dropped and its record is left untouched. done receives the outcome.
func (e *Engine) Brew(a types.Attempt, sched Scheduler, alive func() bool, done func(types.Outcome)) types.Resolution {
	res := e.Attempt(a)
	if res.Status != types.StatusReady {
		return res
	}
	ruleID := res.Rule.ID
	actor := a.Actor
	sched.After(res.Duration, func() {
		if alive != nil && !alive() {
			e.log.Debugf("brew of %s abandoned: station no longer valid", ruleID)
			return
		}
		if actor != nil {
			if _, ok := e.Online(actor.ID()); !ok {
				e.log.Debugf("brew of %s abandoned: %s is offline", ruleID, actor.Name())
				return
			}
		}
		out := e.Complete(actor, ruleID)
		if done != nil {
			done(out)
		}
	})
	return res
}

// Complete records a finished rule for the actor: counters, achievements
// and chains. An unattended completion (nil actor) has no progression
// effect.
func (e *Engine) Complete(actor types.Actor, ruleID string) types.Outcome {
	var out types.Outcome
	if actor == nil {
		return out
	}
	if _, ok := e.rules.Get(ruleID); !ok {
		return out
	}
	rec := e.store.Get(actor.ID())
	state.Touch(rec, e.now())
	e.achievements.OnCompletion(rec, ruleID, &out)
	e.chains.OnRuleCompleted(rec, ruleID, &out)
	e.store.Save(actor.ID())
	return out
}

// Drink runs a rule's drink commands for the actor and registers a pending
// effect when the rule has expire commands. The effect lasts as long as the
// longest status effect of the result.
func (e *Engine) Drink(actor types.Actor, ruleID string) ([]types.Action, bool) {
	rule, ok := e.rules.Get(ruleID)
	if !ok || actor == nil {
		return nil, false
	}
	actions := effects.Expand(rule.DrinkCommands, effects.VarsFor(actor, rule))
	if e.runner != nil && len(actions) > 0 {
		e.runner.Run(actor, actions)
	}
	if len(rule.ExpireCommands) > 0 {
		e.effects.Register(actor.ID(), rule.ID, effects.RuleLabel(rule), EffectDuration(rule), rule.ExpireCommands)
	}
	return actions, true
}

// EffectDuration converts the longest status effect of a rule's result to
// wall-clock time at 50ms per tick.
func EffectDuration(rule *types.Rule) time.Duration {
	longest := 0
	for _, se := range rule.Result.Effects {
		if se.Duration > longest {
			longest = se.Duration
		}
	}
	return time.Duration(longest) * 50 * time.Millisecond
}

// Join marks the actor online, loads its record, fires effects that
// expired while it was away and runs discovery for every rule.
func (e *Engine) Join(actor types.Actor) types.Outcome {
	var out types.Outcome
	if actor == nil {
		return out
	}
	e.mu.Lock()
	e.online[actor.ID()] = actor
	e.mu.Unlock()

	rec := e.store.Get(actor.ID())
	state.Touch(rec, e.now())
	if n := e.effects.CheckActor(actor); n > 0 {
		e.log.Debugf("fired %d expired effects for %s on join", n, actor.Name())
	}
	e.discovery.DiscoverAll(rec, e.rules.IDs(), actor, &out)
	return out
}

// Rediscover runs discovery for every rule the actor does not know yet.
func (e *Engine) Rediscover(actor types.Actor) types.Outcome {
	var out types.Outcome
	if actor == nil {
		return out
	}
	rec := e.store.Get(actor.ID())
	e.discovery.DiscoverAll(rec, e.rules.IDs(), actor, &out)
	return out
}

// Leave marks the actor offline and flushes and evicts its record.
func (e *Engine) Leave(id uuid.UUID) {
	e.mu.Lock()
	delete(e.online, id)
	e.mu.Unlock()
	if e.store.Cached(id) {
		state.Touch(e.store.Get(id), e.now())
	}
	e.store.Unload(id)
}

// Online implements effects.Presence.
func (e *Engine) Online(id uuid.UUID) (types.Actor, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.online[id]
	return a, ok
}

// OnlineActors returns the online actors sorted by name.
func (e *Engine) OnlineActors() []types.Actor {
	e.mu.RLock()
	out := make([]types.Actor, 0, len(e.online))
	for _, a := range e.online {
		out = append(out, a)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// TryDiscover evaluates the rule's discovery method for the actor.
func (e *Engine) TryDiscover(actor types.Actor, ruleID string) (bool, types.Outcome) {
	var out types.Outcome
	if actor == nil {
		return false, out
	}
	rec := e.store.Get(actor.ID())
	ok := e.discovery.TryDiscover(rec, ruleID, actor, &out)
	return ok, out
}

// ForceDiscover adds the rule to the actor's discovered set regardless of
// its discovery method.
func (e *Engine) ForceDiscover(id uuid.UUID, ruleID string) (bool, types.Outcome) {
	var out types.Outcome
	rec := e.store.Get(id)
	ok := e.discovery.ForceDiscover(rec, ruleID, &out)
	if ok {
		e.store.Save(id)
	}
	return ok, out
}

// SweepEffects runs one pending effect sweep.
func (e *Engine) SweepEffects() int {
	return e.effects.Sweep()
}

// Close flushes every cached record and stops the writer.
func (e *Engine) Close() {
	e.store.Close()
}

// Speed returns the time modifier calculator.
func (e *Engine) Speed() *speed.Calculator { return e.speed }

// Effects returns the pending effect registry.
func (e *Engine) Effects() *effects.Registry { return e.effects }

// Discovery returns the discovery tracker.
func (e *Engine) Discovery() *discovery.Tracker { return e.discovery }

// Store returns the actor state store.
func (e *Engine) Store() *store.Store { return e.store }
