// Package chain tracks multi-step progression chains built from rule
// completions.
package chain

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/types"
)

// Policy decides what happens to an out-of-order step in an ordered chain.
type Policy string

const (
	// PolicyIgnore drops the step silently.
	PolicyIgnore Policy = "ignore"
	// PolicyNotify drops the step and tells the actor which step is next.
	PolicyNotify Policy = "notify"
)

// ParsePolicy maps a config value to a Policy. Unknown values fall back to
// PolicyIgnore.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyNotify {
		return PolicyNotify
	}
	return PolicyIgnore
}

// Settings configures chain tracking.
type Settings struct {
	Enabled    bool
	Notify     bool
	OutOfOrder Policy
}

// Persister flushes an actor record after a chain completes.
type Persister interface {
	Save(id uuid.UUID)
}

// Hook is notified after a chain completes.
type Hook interface {
	OnChainCompletion(rec *types.ActorRecord, chainID string, out *types.Outcome)
}

// Rejection describes a completion that did not advance an ordered chain.
type Rejection struct {
	ChainID  string
	RuleID   string
	Expected string
}

// Result summarises what one rule completion did to the chains.
type Result struct {
	Advanced  []string
	Completed []string
	Rejected  []Rejection
}

type catalog struct {
	settings Settings
	ordered  []types.Chain
	byID     map[string]int
	byRule   map[string][]int
}

// Tracker owns the chain definitions.
type Tracker struct {
	persist Persister
	hook    Hook
	current atomic.Pointer[catalog]
}

// New creates a tracker with no chains.
func New(p Persister, hook Hook) *Tracker {
	t := &Tracker{persist: p, hook: hook}
	t.current.Store(&catalog{
		settings: Settings{Enabled: true, Notify: true, OutOfOrder: PolicyIgnore},
		byID:     map[string]int{},
		byRule:   map[string][]int{},
	})
	return t
}

// Load replaces the chain definitions, keeping their order. Duplicate ids
// keep the first definition.
func (t *Tracker) Load(s Settings, defs []types.Chain) []string {
	var warnings []string
	next := &catalog{settings: s, byID: map[string]int{}, byRule: map[string][]int{}}
	for _, c := range defs {
		if _, dup := next.byID[c.ID]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate chain id %q ignored", c.ID))
			continue
		}
		if len(c.Steps) == 0 {
			warnings = append(warnings, fmt.Sprintf("chain %q has no steps", c.ID))
		}
		i := len(next.ordered)
		next.ordered = append(next.ordered, c)
		next.byID[c.ID] = i
		seen := map[string]bool{}
		for _, step := range c.Steps {
			if seen[step.RuleID] {
				continue
			}
			seen[step.RuleID] = true
			next.byRule[step.RuleID] = append(next.byRule[step.RuleID], i)
		}
	}
	t.current.Store(next)
	return warnings
}

// Settings returns the active settings.
func (t *Tracker) Settings() Settings {
	return t.current.Load().settings
}

// All returns every chain in definition order.
func (t *Tracker) All() []types.Chain {
	return append([]types.Chain(nil), t.current.Load().ordered...)
}

// Get returns one chain.
func (t *Tracker) Get(id string) (types.Chain, bool) {
	c := t.current.Load()
	i, ok := c.byID[id]
	if !ok {
		return types.Chain{}, false
	}
	return c.ordered[i], true
}

// ChainsFor returns the chains that contain a step for ruleID.
func (t *Tracker) ChainsFor(ruleID string) []types.Chain {
	c := t.current.Load()
	var out []types.Chain
	for _, i := range c.byRule[ruleID] {
		out = append(out, c.ordered[i])
	}
	return out
}

// OnRuleCompleted advances every chain that ruleID belongs to.
func (t *Tracker) OnRuleCompleted(rec *types.ActorRecord, ruleID string, out *types.Outcome) Result {
	var res Result
	c := t.current.Load()
	if !c.settings.Enabled {
		return res
	}
	for _, i := range c.byRule[ruleID] {
		ch := c.ordered[i]
		if state.HasCompletedChain(rec, ch.ID) {
			continue
		}
		idx, rejected := stepFor(rec, ch, ruleID)
		if rejected != nil {
			res.Rejected = append(res.Rejected, *rejected)
			if c.settings.OutOfOrder == PolicyNotify {
				emitNotice(out, types.Notification{
					Kind:    types.NoticeStepRejected,
					Actor:   rec.ID,
					Subject: ch.ID,
					Title:   "Out of order: " + displayName(ch),
					Lines:   []string{"Next step: " + stepLabel(ch.Steps[stepIndex(ch, rejected.Expected)])},
				})
			}
			continue
		}
		if idx < 0 || !state.AppendChainStep(rec, ch.ID, ruleID) {
			continue
		}
		res.Advanced = append(res.Advanced, ch.ID)
		if r := ch.Steps[idx].Reward; r != nil {
			grant(out, rec, fmt.Sprintf("chain:%s/step:%s", ch.ID, ruleID), r)
		}
		if IsComplete(rec, ch) {
			t.complete(rec, ch, c.settings, out)
			res.Completed = append(res.Completed, ch.ID)
			continue
		}
		if c.settings.Notify {
			n := types.Notification{
				Kind:    types.NoticeChainProgress,
				Actor:   rec.ID,
				Subject: ch.ID,
				Title:   fmt.Sprintf("%s (%d/%d)", displayName(ch), completedCount(rec, ch), len(ch.Steps)),
			}
			if next, ok := NextStep(rec, ch); ok {
				n.Lines = []string{"Next step: " + stepLabel(next)}
			}
			emitNotice(out, n)
		}
	}
	return res
}

// stepFor picks the step index ruleID satisfies. An ordered chain only
// accepts its next uncompleted step; anything else is a rejection unless the
// step was already recorded.
func stepFor(rec *types.ActorRecord, ch types.Chain, ruleID string) (int, *Rejection) {
	if ch.RequiresOrder {
		next, ok := NextStep(rec, ch)
		if !ok {
			return -1, nil
		}
		if next.RuleID != ruleID {
			if state.HasChainStep(rec, ch.ID, ruleID) {
				return -1, nil
			}
			return -1, &Rejection{ChainID: ch.ID, RuleID: ruleID, Expected: next.RuleID}
		}
		return stepIndex(ch, ruleID), nil
	}
	if state.HasChainStep(rec, ch.ID, ruleID) {
		return -1, nil
	}
	return stepIndex(ch, ruleID), nil
}

func (t *Tracker) complete(rec *types.ActorRecord, ch types.Chain, s Settings, out *types.Outcome) {
	if !state.CompleteChain(rec, ch.ID) {
		return
	}
	if ch.CompletionReward != nil {
		grant(out, rec, "chain:"+ch.ID, ch.CompletionReward)
	}
	if s.Notify {
		lines := []string{}
		if ch.Description != "" {
			lines = append(lines, ch.Description)
		}
		emitNotice(out, types.Notification{
			Kind:    types.NoticeChainComplete,
			Actor:   rec.ID,
			Subject: ch.ID,
			Title:   "Chain Completed: " + displayName(ch),
			Lines:   lines,
		})
	}
	if t.persist != nil {
		t.persist.Save(rec.ID)
	}
	if t.hook != nil {
		t.hook.OnChainCompletion(rec, ch.ID, out)
	}
}

// IsComplete reports whether every step of the chain is recorded.
func IsComplete(rec *types.ActorRecord, ch types.Chain) bool {
	for _, s := range ch.Steps {
		if !state.HasChainStep(rec, ch.ID, s.RuleID) {
			return false
		}
	}
	return true
}

// NextStep returns the first step, in definition order, that is not yet
// recorded.
func NextStep(rec *types.ActorRecord, ch types.Chain) (types.ChainStep, bool) {
	for _, s := range ch.Steps {
		if !state.HasChainStep(rec, ch.ID, s.RuleID) {
			return s, true
		}
	}
	return types.ChainStep{}, false
}

// Progress returns the completed fraction of a chain in [0, 1]. A chain
// with no steps counts as fully progressed.
func Progress(rec *types.ActorRecord, ch types.Chain) float64 {
	if len(ch.Steps) == 0 || state.HasCompletedChain(rec, ch.ID) {
		return 1
	}
	return float64(completedCount(rec, ch)) / float64(len(ch.Steps))
}

// Progress returns the completed fraction of the chain with the given id.
// Unknown chains report 0.
func (t *Tracker) Progress(rec *types.ActorRecord, chainID string) float64 {
	ch, ok := t.Get(chainID)
	if !ok {
		return 0
	}
	return Progress(rec, ch)
}

// CompletedSteps returns the recorded step rule ids in completion order.
func (t *Tracker) CompletedSteps(rec *types.ActorRecord, chainID string) []string {
	return state.ChainSteps(rec, chainID)
}

// HasCompleted reports whether the actor completed the chain.
func (t *Tracker) HasCompleted(rec *types.ActorRecord, chainID string) bool {
	return state.HasCompletedChain(rec, chainID)
}

// Available returns the chains with at least one step the actor has
// discovered.
func (t *Tracker) Available(rec *types.ActorRecord) []types.Chain {
	var out []types.Chain
	for _, ch := range t.current.Load().ordered {
		for _, s := range ch.Steps {
			if state.HasDiscovered(rec, s.RuleID) {
				out = append(out, ch)
				break
			}
		}
	}
	return out
}

func completedCount(rec *types.ActorRecord, ch types.Chain) int {
	n := 0
	for _, s := range ch.Steps {
		if state.HasChainStep(rec, ch.ID, s.RuleID) {
			n++
		}
	}
	return n
}

func stepIndex(ch types.Chain, ruleID string) int {
	for i, s := range ch.Steps {
		if s.RuleID == ruleID {
			return i
		}
	}
	return -1
}

func stepLabel(s types.ChainStep) string {
	if s.Description != "" {
		return s.Description
	}
	return s.RuleID
}

func displayName(ch types.Chain) string {
	if ch.Name != "" {
		return ch.Name
	}
	return ch.ID
}

func grant(out *types.Outcome, rec *types.ActorRecord, source string, r *types.Reward) {
	if out == nil {
		return
	}
	out.Rewards = append(out.Rewards, types.RewardGrant{Actor: rec.ID, Source: source, Reward: *r})
}

func emitNotice(out *types.Outcome, n types.Notification) {
	if out == nil {
		return
	}
	out.Notifications = append(out.Notifications, n)
}
