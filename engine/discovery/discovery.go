// Package discovery gates which rules an actor may use and records the
// moment a rule becomes known.
package discovery

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/nathoo/brewcore/engine/rules"
	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/types"
)

// Settings configures discovery. Methods maps rule ids to their unlock
// method; rules without an entry are discovered automatically.
type Settings struct {
	Enabled bool
	Notify  bool
	Methods map[string]types.DiscoveryMethod
}

// Hook is notified after a rule is added to an actor's discovered set.
type Hook interface {
	OnDiscovery(rec *types.ActorRecord, ruleID string, out *types.Outcome)
}

// RuleLookup resolves rule definitions.
type RuleLookup interface {
	Get(id string) (*types.Rule, bool)
}

// Tracker applies discovery methods to actor records.
type Tracker struct {
	hook     Hook
	rules    RuleLookup
	settings atomic.Pointer[Settings]
}

// New creates a tracker with discovery disabled.
func New(hook Hook, lookup RuleLookup) *Tracker {
	t := &Tracker{hook: hook, rules: lookup}
	t.settings.Store(&Settings{})
	return t
}

// Configure replaces the settings.
func (t *Tracker) Configure(s Settings) {
	methods := make(map[string]types.DiscoveryMethod, len(s.Methods))
	for id, m := range s.Methods {
		methods[id] = m
	}
	s.Methods = methods
	t.settings.Store(&s)
}

// Settings returns the active settings.
func (t *Tracker) Settings() Settings {
	return *t.settings.Load()
}

// Enabled reports whether discovery gates rule use.
func (t *Tracker) Enabled() bool {
	return t.settings.Load().Enabled
}

// Method returns the configured method for a rule.
func (t *Tracker) Method(ruleID string) (types.DiscoveryMethod, bool) {
	m, ok := t.settings.Load().Methods[ruleID]
	return m, ok
}

// CanUse reports whether the actor may use the rule. With discovery disabled
// every rule is usable.
func (t *Tracker) CanUse(rec *types.ActorRecord, ruleID string) bool {
	if !t.Enabled() {
		return true
	}
	return state.HasDiscovered(rec, ruleID)
}

// TryDiscover evaluates the rule's method against the actor and records the
// discovery when it is satisfied. It returns true only for a new discovery.
func (t *Tracker) TryDiscover(rec *types.ActorRecord, ruleID string, actor types.Actor, out *types.Outcome) bool {
	if state.HasDiscovered(rec, ruleID) {
		return false
	}
	if _, ok := t.rules.Get(ruleID); !ok {
		return false
	}
	if m, ok := t.Method(ruleID); ok && !Satisfied(m, actor) {
		return false
	}
	return t.record(rec, ruleID, out)
}

// ForceDiscover records a discovery regardless of the method.
func (t *Tracker) ForceDiscover(rec *types.ActorRecord, ruleID string, out *types.Outcome) bool {
	if _, ok := t.rules.Get(ruleID); !ok {
		return false
	}
	return t.record(rec, ruleID, out)
}

// DiscoverAll tries every given rule and returns the newly discovered ids.
func (t *Tracker) DiscoverAll(rec *types.ActorRecord, ids []string, actor types.Actor, out *types.Outcome) []string {
	var found []string
	for _, id := range ids {
		if t.TryDiscover(rec, id, actor, out) {
			found = append(found, id)
		}
	}
	return found
}

func (t *Tracker) record(rec *types.ActorRecord, ruleID string, out *types.Outcome) bool {
	if !state.Discover(rec, ruleID) {
		return false
	}
	if out != nil && t.settings.Load().Notify {
		out.Notifications = append(out.Notifications, t.notice(rec, ruleID))
	}
	if t.hook != nil {
		t.hook.OnDiscovery(rec, ruleID, out)
	}
	return true
}

func (t *Tracker) notice(rec *types.ActorRecord, ruleID string) types.Notification {
	n := types.Notification{
		Kind:    types.NoticeDiscovery,
		Actor:   rec.ID,
		Subject: ruleID,
		Title:   "Recipe Discovered: " + ruleID,
	}
	if r, ok := t.rules.Get(ruleID); ok {
		if r.Result.Name != "" {
			n.Title = "Recipe Discovered: " + r.Result.Name
		}
		n.Lines = []string{r.Base + " + " + rules.DescribeIngredient(r.Ingredient)}
	}
	return n
}

// Satisfied evaluates a method against a live actor. Event-driven methods
// are never satisfied here; the host forces those discoveries.
func Satisfied(m types.DiscoveryMethod, actor types.Actor) bool {
	switch m.Kind {
	case types.DiscoverAutomatic:
		return true
	case types.DiscoverPermission:
		return actor != nil && m.Permission != "" && actor.HasPermission(m.Permission)
	case types.DiscoverLevelReach:
		return actor != nil && actor.Level() >= m.Amount
	default:
		return false
	}
}

// Hint returns a short description of how a method is satisfied.
func Hint(m types.DiscoveryMethod) string {
	switch m.Kind {
	case types.DiscoverAutomatic:
		return "Automatically discovered"
	case types.DiscoverPermission:
		return "Have permission: " + m.Permission
	case types.DiscoverLevelReach:
		return fmt.Sprintf("Reach level %d", m.Amount)
	case types.DiscoverBiomeVisit:
		return "Visit " + strings.Join(m.Biomes, " or ")
	case types.DiscoverItemCraft:
		return fmt.Sprintf("Craft %dx %s", atLeastOne(m.Amount), m.Material)
	case types.DiscoverItemObtain:
		return fmt.Sprintf("Obtain %dx %s", atLeastOne(m.Amount), m.Material)
	case types.DiscoverKillMob:
		return fmt.Sprintf("Kill %dx %s", atLeastOne(m.Amount), m.MobType)
	case types.DiscoverRecipeBrew:
		return "Brew " + strings.Join(m.RequiredRecipes, ", ")
	default:
		return "Unknown"
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
