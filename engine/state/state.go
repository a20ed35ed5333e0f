// Package state holds the mutation and lookup helpers for actor progression
// records. Every tracker changes a record only through these functions.
package state

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/types"
)

// Counter keys shared by the trackers.
const (
	StatTotalBrewed     = "total_brewed"
	StatTotalDiscovered = "total_discovered"
	StatChainsCompleted = "chains_completed"
)

// RuleBrewedStat is the counter key for completions of one rule.
func RuleBrewedStat(ruleID string) string {
	return "recipe_" + ruleID + "_brewed"
}

// ChainCompletedStat is the counter key for completions of one chain.
func ChainCompletedStat(chainID string) string {
	return "chain_" + chainID + "_completed"
}

// NewRecord creates an empty record for an actor.
func NewRecord(id uuid.UUID, now time.Time) *types.ActorRecord {
	return &types.ActorRecord{
		ID:              id,
		Discovered:      map[string]bool{},
		Stats:           map[string]int{},
		Achievements:    map[string]bool{},
		ChainProgress:   map[string][]string{},
		CompletedChains: map[string]bool{},
		FirstJoined:     now,
		LastSeen:        now,
	}
}

// Normalize replaces nil collections with empty ones.
func Normalize(r *types.ActorRecord) {
	if r.Discovered == nil {
		r.Discovered = map[string]bool{}
	}
	if r.Stats == nil {
		r.Stats = map[string]int{}
	}
	if r.Achievements == nil {
		r.Achievements = map[string]bool{}
	}
	if r.ChainProgress == nil {
		r.ChainProgress = map[string][]string{}
	}
	if r.CompletedChains == nil {
		r.CompletedChains = map[string]bool{}
	}
}

// Clone returns a deep copy of r.
func Clone(r *types.ActorRecord) *types.ActorRecord {
	c := &types.ActorRecord{
		ID:              r.ID,
		Discovered:      make(map[string]bool, len(r.Discovered)),
		Stats:           make(map[string]int, len(r.Stats)),
		Achievements:    make(map[string]bool, len(r.Achievements)),
		ChainProgress:   make(map[string][]string, len(r.ChainProgress)),
		CompletedChains: make(map[string]bool, len(r.CompletedChains)),
		FirstJoined:     r.FirstJoined,
		LastSeen:        r.LastSeen,
	}
	for k, v := range r.Discovered {
		c.Discovered[k] = v
	}
	for k, v := range r.Stats {
		c.Stats[k] = v
	}
	for k, v := range r.Achievements {
		c.Achievements[k] = v
	}
	for k, v := range r.ChainProgress {
		c.ChainProgress[k] = append([]string(nil), v...)
	}
	for k, v := range r.CompletedChains {
		c.CompletedChains[k] = v
	}
	return c
}

// Touch records activity.
func Touch(r *types.ActorRecord, now time.Time) {
	r.LastSeen = now
}

// HasDiscovered returns true if the actor knows the rule.
func HasDiscovered(r *types.ActorRecord, ruleID string) bool {
	return r.Discovered[ruleID]
}

// Discover adds a rule to the discovered set. It returns false if the rule
// was already known.
func Discover(r *types.ActorRecord, ruleID string) bool {
	if r.Discovered[ruleID] {
		return false
	}
	r.Discovered[ruleID] = true
	return true
}

// DiscoveredCount returns the size of the discovered set.
func DiscoveredCount(r *types.ActorRecord) int {
	return len(r.Discovered)
}

// DiscoveredIDs returns the discovered rule ids, sorted.
func DiscoveredIDs(r *types.ActorRecord) []string {
	return sortedKeys(r.Discovered)
}

// GetStat returns a counter. Unset counters return 0.
func GetStat(r *types.ActorRecord, name string) int {
	return r.Stats[name]
}

// IncStat increments a counter by one and returns the new value.
func IncStat(r *types.ActorRecord, name string) int {
	r.Stats[name]++
	return r.Stats[name]
}

// HasAchievement returns true if the achievement is unlocked.
func HasAchievement(r *types.ActorRecord, id string) bool {
	return r.Achievements[id]
}

// UnlockAchievement adds an achievement. It returns false if it was
// already unlocked. Achievements are never removed.
func UnlockAchievement(r *types.ActorRecord, id string) bool {
	if r.Achievements[id] {
		return false
	}
	r.Achievements[id] = true
	return true
}

// AchievementIDs returns the unlocked achievement ids, sorted.
func AchievementIDs(r *types.ActorRecord) []string {
	return sortedKeys(r.Achievements)
}

// ChainSteps returns a copy of the completed step rule ids for a chain.
func ChainSteps(r *types.ActorRecord, chainID string) []string {
	return append([]string(nil), r.ChainProgress[chainID]...)
}

// HasChainStep returns true if the rule is recorded for the chain.
func HasChainStep(r *types.ActorRecord, chainID, ruleID string) bool {
	for _, id := range r.ChainProgress[chainID] {
		if id == ruleID {
			return true
		}
	}
	return false
}

// AppendChainStep records a step. Duplicates are ignored; it returns
// whether the step was appended.
func AppendChainStep(r *types.ActorRecord, chainID, ruleID string) bool {
	if HasChainStep(r, chainID, ruleID) {
		return false
	}
	r.ChainProgress[chainID] = append(r.ChainProgress[chainID], ruleID)
	return true
}

// HasCompletedChain returns true if the chain is completed.
func HasCompletedChain(r *types.ActorRecord, chainID string) bool {
	return r.CompletedChains[chainID]
}

// CompleteChain marks a chain completed. It returns false if it already was.
func CompleteChain(r *types.ActorRecord, chainID string) bool {
	if r.CompletedChains[chainID] {
		return false
	}
	r.CompletedChains[chainID] = true
	return true
}

// CompletedChainIDs returns the completed chain ids, sorted.
func CompletedChainIDs(r *types.ActorRecord) []string {
	return sortedKeys(r.CompletedChains)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
