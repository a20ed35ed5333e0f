// Package speed computes effective brew durations from layered multipliers
// and manages per-station overrides.
package speed

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nathoo/brewcore/types"
)

// TicksPerSecond converts durations for display.
const TicksPerSecond = 20

// DefaultRetention is how long a station override survives a sweep.
const DefaultRetention = 24 * time.Hour

// Settings holds the configured multipliers.
type Settings struct {
	Enabled     bool
	Global      float64
	Rules       map[string]float64 // rule id -> multiplier
	Permissions map[string]float64 // permission node -> multiplier
	Biomes      map[string]float64 // upper-cased biome -> multiplier
}

// DefaultSettings returns an enabled system with no modifiers.
func DefaultSettings() Settings {
	return Settings{Enabled: true, Global: 1.0}
}

// Override is a per-station multiplier set by an administrator.
type Override struct {
	Multiplier float64
	SetBy      string
	SetAt      time.Time
}

// Calculator computes effective durations. The station override table is
// the only mutable state and is safe for concurrent use.
type Calculator struct {
	mu        sync.RWMutex
	settings  Settings
	overrides map[types.StationKey]Override
	now       func() time.Time
}

// New creates a calculator with the given settings.
func New(s Settings) *Calculator {
	return &Calculator{
		settings:  normalize(s),
		overrides: map[types.StationKey]Override{},
		now:       time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (c *Calculator) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Configure replaces the settings. Station overrides are kept.
func (c *Calculator) Configure(s Settings) {
	s = normalize(s)
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

// Settings returns the active settings.
func (c *Calculator) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func normalize(s Settings) Settings {
	if s.Global <= 0 {
		s.Global = 1.0
	}
	if len(s.Biomes) > 0 {
		biomes := make(map[string]float64, len(s.Biomes))
		for k, v := range s.Biomes {
			biomes[strings.ToUpper(k)] = v
		}
		s.Biomes = biomes
	}
	return s
}

// Multiplier returns the composed multiplier for a rule in context.
func (c *Calculator) Multiplier(rule *types.Rule, actor types.Actor, env types.Environment, station types.StationKey) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.settings.Enabled {
		return 1.0
	}

	m := c.settings.Global
	if rule != nil {
		if v, ok := c.settings.Rules[rule.ID]; ok {
			m *= v
		}
	}
	if actor != nil {
		m *= bestPermission(c.settings.Permissions, actor)
	}
	if v, ok := c.settings.Biomes[strings.ToUpper(env.Biome)]; ok {
		m *= v
	}
	if o, ok := c.overrides[station]; ok {
		m *= o.Multiplier
	}
	return m
}

// bestPermission returns the smallest multiplier among held permissions,
// or 1 when the actor holds none.
func bestPermission(perms map[string]float64, actor types.Actor) float64 {
	best := 1.0
	found := false
	for node, v := range perms {
		if !actor.HasPermission(node) {
			continue
		}
		if !found || v < best {
			best = v
			found = true
		}
	}
	return best
}

// EffectiveDuration returns the modified duration in ticks, floored and
// never below 1.
func (c *Calculator) EffectiveDuration(rule *types.Rule, actor types.Actor, env types.Environment, station types.StationKey) int {
	base := 0
	if rule != nil {
		base = rule.Duration
	}
	return apply(base, c.Multiplier(rule, actor, env, station))
}

// MaxDuration caps the effective duration. Larger products saturate.
const MaxDuration = math.MaxInt32

func apply(base int, multiplier float64) int {
	d := math.Floor(float64(base) * multiplier)
	switch {
	case math.IsNaN(d) || d < 1:
		return 1
	case d >= MaxDuration:
		return MaxDuration
	}
	return int(d)
}

// Describe renders the speed change for display, e.g. "2.0x faster (10s)".
func (c *Calculator) Describe(rule *types.Rule, actor types.Actor, env types.Environment, station types.StationKey) string {
	if !c.Settings().Enabled {
		return "Standard speed"
	}
	base := 0
	if rule != nil {
		base = rule.Duration
	}
	custom := c.EffectiveDuration(rule, actor, env, station)
	return describe(base, custom)
}

func describe(base, custom int) string {
	switch {
	case base <= 0 || custom == base:
		return fmt.Sprintf("Standard speed (%ds)", custom/TicksPerSecond)
	case custom < base:
		return fmt.Sprintf("%.1fx faster (%ds)", float64(base)/float64(custom), custom/TicksPerSecond)
	default:
		return fmt.Sprintf("%.1fx slower (%ds)", float64(custom)/float64(base), custom/TicksPerSecond)
	}
}

// SetOverride sets a station multiplier. The multiplier must be positive.
// Expired overrides are swept as a side effect.
func (c *Calculator) SetOverride(station types.StationKey, multiplier float64, setBy string) error {
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return fmt.Errorf("station multiplier must be positive, got %v", multiplier)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(DefaultRetention)
	c.overrides[station] = Override{Multiplier: multiplier, SetBy: setBy, SetAt: c.now()}
	return nil
}

// RemoveOverride deletes a station multiplier. It reports whether one existed.
func (c *Calculator) RemoveOverride(station types.StationKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.overrides[station]
	delete(c.overrides, station)
	return ok
}

// GetOverride returns the override for a station.
func (c *Calculator) GetOverride(station types.StationKey) (Override, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.overrides[station]
	return o, ok
}

// Overrides returns a copy of the override table.
func (c *Calculator) Overrides() map[types.StationKey]Override {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[types.StationKey]Override, len(c.overrides))
	for k, v := range c.overrides {
		out[k] = v
	}
	return out
}

// SweepExpired deletes overrides older than retention and returns how many
// were removed.
func (c *Calculator) SweepExpired(retention time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(retention)
}

func (c *Calculator) sweepLocked(retention time.Duration) int {
	cutoff := c.now().Add(-retention)
	removed := 0
	for k, o := range c.overrides {
		if o.SetAt.Before(cutoff) {
			delete(c.overrides, k)
			removed++
		}
	}
	return removed
}
