package engine

import (
	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/chain"
	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/types"
)

// The query surface is read-only. Offline actors are read through the store
// without being cached.

func (e *Engine) record(id uuid.UUID) *types.ActorRecord {
	return e.store.Lookup(id)
}

// Rules returns every loaded rule in load order.
func (e *Engine) Rules() []*types.Rule { return e.rules.All() }

// Rule returns one rule.
func (e *Engine) Rule(id string) (*types.Rule, bool) { return e.rules.Get(id) }

// IsDiscovered reports whether the actor knows the rule.
func (e *Engine) IsDiscovered(id uuid.UUID, ruleID string) bool {
	return state.HasDiscovered(e.record(id), ruleID)
}

// Discovered returns the actor's discovered rule ids, sorted.
func (e *Engine) Discovered(id uuid.UUID) []string {
	return state.DiscoveredIDs(e.record(id))
}

// Stat returns one of the actor's counters.
func (e *Engine) Stat(id uuid.UUID, name string) int {
	return state.GetStat(e.record(id), name)
}

// Record returns a copy of the actor's record.
func (e *Engine) Record(id uuid.UUID) *types.ActorRecord {
	return state.Clone(e.record(id))
}

// Achievements returns every achievement definition.
func (e *Engine) Achievements() []types.Achievement { return e.achievements.All() }

// VisibleAchievements returns the definitions the actor may see.
func (e *Engine) VisibleAchievements(id uuid.UUID) []types.Achievement {
	return e.achievements.Visible(e.record(id))
}

// Unlocked returns the actor's unlocked achievement ids, sorted.
func (e *Engine) Unlocked(id uuid.UUID) []string {
	return state.AchievementIDs(e.record(id))
}

// AchievementProgress returns the progress value towards an achievement.
func (e *Engine) AchievementProgress(id uuid.UUID, achievementID string) (int, bool) {
	a, ok := e.achievements.Get(achievementID)
	if !ok {
		return 0, false
	}
	return e.achievements.Progress(e.record(id), a), true
}

// Chains returns every chain definition.
func (e *Engine) Chains() []types.Chain { return e.chains.All() }

// Chain returns one chain.
func (e *Engine) Chain(id string) (types.Chain, bool) { return e.chains.Get(id) }

// AvailableChains returns the chains with a discovered step.
func (e *Engine) AvailableChains(id uuid.UUID) []types.Chain {
	return e.chains.Available(e.record(id))
}

// CompletedSteps returns the rule ids recorded for a chain.
func (e *Engine) CompletedSteps(id uuid.UUID, chainID string) []string {
	return e.chains.CompletedSteps(e.record(id), chainID)
}

// ChainProgress returns the completed fraction of a chain.
func (e *Engine) ChainProgress(id uuid.UUID, chainID string) float64 {
	return e.chains.Progress(e.record(id), chainID)
}

// NextChainStep returns the next uncompleted step of a chain.
func (e *Engine) NextChainStep(id uuid.UUID, chainID string) (types.ChainStep, bool) {
	ch, ok := e.chains.Get(chainID)
	if !ok {
		return types.ChainStep{}, false
	}
	return chain.NextStep(e.record(id), ch)
}

// HasCompletedChain reports whether the actor completed the chain.
func (e *Engine) HasCompletedChain(id uuid.UUID, chainID string) bool {
	return e.chains.HasCompleted(e.record(id), chainID)
}

// DescribeSpeed renders the speed change for a rule at a station.
func (e *Engine) DescribeSpeed(rule *types.Rule, actor types.Actor, env types.Environment, station types.StationKey) string {
	return e.speed.Describe(rule, actor, env, station)
}
