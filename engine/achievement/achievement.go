// Package achievement evaluates achievement triggers against actor records
// and applies one-way unlocks.
package achievement

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/types"
)

// Persister flushes an actor record after an unlock.
type Persister interface {
	Save(id uuid.UUID)
}

// RuleSet lists the loaded rule ids.
type RuleSet interface {
	IDs() []string
}

// Settings toggles the subsystem and its notifications.
type Settings struct {
	Enabled bool
	Notify  bool
}

// category groups triggers by the event that can satisfy them.
type category int

const (
	onDiscovery category = iota
	onCompletion
	onChain
)

var triggerCategory = map[types.Trigger]category{
	types.TriggerFirstDiscovery:       onDiscovery,
	types.TriggerRecipesDiscovered:    onDiscovery,
	types.TriggerRecipeSetDiscovered:  onDiscovery,
	types.TriggerMasterBrewer:         onDiscovery,
	types.TriggerFirstBrew:            onCompletion,
	types.TriggerPotionsBrewed:        onCompletion,
	types.TriggerSpecificRecipeBrewed: onCompletion,
	types.TriggerFirstChain:           onChain,
	types.TriggerChainsCompleted:      onChain,
}

// KnownTrigger reports whether t is a supported trigger.
func KnownTrigger(t types.Trigger) bool {
	_, ok := triggerCategory[t]
	return ok
}

type catalog struct {
	settings Settings
	ordered  []types.Achievement // sorted by id
	byID     map[string]int
}

// Tracker owns the achievement definitions. Definitions are evaluated in
// lexicographic id order.
type Tracker struct {
	persist Persister
	rules   RuleSet
	current atomic.Pointer[catalog]
}

// New creates a tracker with no definitions.
func New(p Persister, rules RuleSet) *Tracker {
	t := &Tracker{persist: p, rules: rules}
	t.current.Store(&catalog{settings: Settings{Enabled: true, Notify: true}, byID: map[string]int{}})
	return t
}

// Load replaces the definitions and settings. Duplicate ids keep the first
// definition and are reported as warnings.
func (t *Tracker) Load(s Settings, defs []types.Achievement) []string {
	var warnings []string
	next := &catalog{settings: s, byID: map[string]int{}}
	seen := map[string]bool{}
	for _, a := range defs {
		if seen[a.ID] {
			warnings = append(warnings, fmt.Sprintf("duplicate achievement id %q ignored", a.ID))
			continue
		}
		seen[a.ID] = true
		next.ordered = append(next.ordered, a)
	}
	sort.SliceStable(next.ordered, func(i, j int) bool {
		return next.ordered[i].ID < next.ordered[j].ID
	})
	for i, a := range next.ordered {
		next.byID[a.ID] = i
	}
	t.current.Store(next)
	return warnings
}

// Settings returns the active settings.
func (t *Tracker) Settings() Settings {
	return t.current.Load().settings
}

// All returns every definition in evaluation order.
func (t *Tracker) All() []types.Achievement {
	c := t.current.Load()
	return append([]types.Achievement(nil), c.ordered...)
}

// Get returns one definition.
func (t *Tracker) Get(id string) (types.Achievement, bool) {
	c := t.current.Load()
	i, ok := c.byID[id]
	if !ok {
		return types.Achievement{}, false
	}
	return c.ordered[i], true
}

// Visible returns the definitions an actor may see: hidden achievements
// appear only once unlocked.
func (t *Tracker) Visible(rec *types.ActorRecord) []types.Achievement {
	var out []types.Achievement
	for _, a := range t.current.Load().ordered {
		if a.Hidden && !state.HasAchievement(rec, a.ID) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// OnDiscovery records a discovery and evaluates discovery triggers.
func (t *Tracker) OnDiscovery(rec *types.ActorRecord, ruleID string, out *types.Outcome) {
	state.IncStat(rec, state.StatTotalDiscovered)
	t.evaluate(rec, onDiscovery, out)
}

// OnCompletion records a rule completion and evaluates completion triggers.
func (t *Tracker) OnCompletion(rec *types.ActorRecord, ruleID string, out *types.Outcome) {
	state.IncStat(rec, state.StatTotalBrewed)
	state.IncStat(rec, state.RuleBrewedStat(ruleID))
	t.evaluate(rec, onCompletion, out)
}

// OnChainCompletion records a chain completion and evaluates chain triggers.
func (t *Tracker) OnChainCompletion(rec *types.ActorRecord, chainID string, out *types.Outcome) {
	state.IncStat(rec, state.StatChainsCompleted)
	state.IncStat(rec, state.ChainCompletedStat(chainID))
	t.evaluate(rec, onChain, out)
}

func (t *Tracker) evaluate(rec *types.ActorRecord, cat category, out *types.Outcome) {
	c := t.current.Load()
	if !c.settings.Enabled {
		return
	}
	for _, a := range c.ordered {
		if triggerCategory[a.Trigger] != cat || !KnownTrigger(a.Trigger) {
			continue
		}
		if state.HasAchievement(rec, a.ID) {
			continue
		}
		if t.Satisfied(rec, a) {
			t.unlock(rec, a, c.settings, out)
		}
	}
}

// Satisfied evaluates an achievement's trigger against a record.
func (t *Tracker) Satisfied(rec *types.ActorRecord, a types.Achievement) bool {
	switch a.Trigger {
	case types.TriggerFirstDiscovery:
		return state.DiscoveredCount(rec) >= 1
	case types.TriggerRecipesDiscovered:
		return state.DiscoveredCount(rec) >= target(a)
	case types.TriggerRecipeSetDiscovered:
		return len(a.TargetRecipes) > 0 && allDiscovered(rec, a.TargetRecipes)
	case types.TriggerMasterBrewer:
		if t.rules == nil {
			return false
		}
		ids := t.rules.IDs()
		return len(ids) > 0 && allDiscovered(rec, ids)
	case types.TriggerFirstBrew:
		return state.GetStat(rec, state.StatTotalBrewed) >= 1
	case types.TriggerPotionsBrewed:
		return state.GetStat(rec, state.StatTotalBrewed) >= target(a)
	case types.TriggerSpecificRecipeBrewed:
		return a.TargetRecipe != "" && state.GetStat(rec, state.RuleBrewedStat(a.TargetRecipe)) >= target(a)
	case types.TriggerFirstChain:
		return state.GetStat(rec, state.StatChainsCompleted) >= 1
	case types.TriggerChainsCompleted:
		return state.GetStat(rec, state.StatChainsCompleted) >= target(a)
	default:
		return false
	}
}

// Progress returns the current progress value towards an achievement.
func (t *Tracker) Progress(rec *types.ActorRecord, a types.Achievement) int {
	switch a.Trigger {
	case types.TriggerRecipesDiscovered:
		return state.DiscoveredCount(rec)
	case types.TriggerPotionsBrewed:
		return state.GetStat(rec, state.StatTotalBrewed)
	case types.TriggerSpecificRecipeBrewed:
		return state.GetStat(rec, state.RuleBrewedStat(a.TargetRecipe))
	case types.TriggerRecipeSetDiscovered:
		n := 0
		for _, id := range a.TargetRecipes {
			if state.HasDiscovered(rec, id) {
				n++
			}
		}
		return n
	case types.TriggerChainsCompleted:
		return state.GetStat(rec, state.StatChainsCompleted)
	default:
		if state.HasAchievement(rec, a.ID) {
			return 1
		}
		return 0
	}
}

func (t *Tracker) unlock(rec *types.ActorRecord, a types.Achievement, s Settings, out *types.Outcome) {
	if !state.UnlockAchievement(rec, a.ID) {
		return
	}
	if t.persist != nil {
		t.persist.Save(rec.ID)
	}
	if out == nil {
		return
	}
	if s.Notify {
		lines := []string{}
		if a.Description != "" {
			lines = append(lines, a.Description)
		}
		out.Notifications = append(out.Notifications, types.Notification{
			Kind:    types.NoticeAchievement,
			Actor:   rec.ID,
			Subject: a.ID,
			Title:   "Achievement Unlocked: " + displayName(a),
			Lines:   lines,
		})
	}
	if a.Reward != nil {
		out.Rewards = append(out.Rewards, types.RewardGrant{
			Actor:  rec.ID,
			Source: "achievement:" + a.ID,
			Reward: *a.Reward,
		})
	}
}

func target(a types.Achievement) int {
	if a.Target < 1 {
		return 1
	}
	return a.Target
}

func allDiscovered(rec *types.ActorRecord, ids []string) bool {
	for _, id := range ids {
		if !state.HasDiscovered(rec, id) {
			return false
		}
	}
	return true
}

func displayName(a types.Achievement) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
