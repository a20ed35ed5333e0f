// Package save implements the durable format for actor records and pending
// effects, in YAML and JSON.
package save

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/types"
)

// FormatVersion is written into every record.
const FormatVersion = 1

// RecordData is the serializable actor record.
type RecordData struct {
	Version           int                 `yaml:"version" json:"version"`
	PlayerID          string              `yaml:"player-id" json:"player_id"`
	DiscoveredRecipes []string            `yaml:"discovered-recipes" json:"discovered_recipes"`
	BrewingStats      map[string]int      `yaml:"brewing-stats" json:"brewing_stats"`
	Achievements      []string            `yaml:"achievements" json:"achievements"`
	ChainProgress     map[string][]string `yaml:"chain-progress" json:"chain_progress"`
	CompletedChains   []string            `yaml:"completed-chains" json:"completed_chains"`
	FirstJoined       int64               `yaml:"first-joined" json:"first_joined"` // unix millis
	LastSeen          int64               `yaml:"last-seen" json:"last_seen"`
}

// FromRecord converts a record to its serializable form.
func FromRecord(r *types.ActorRecord) RecordData {
	progress := make(map[string][]string, len(r.ChainProgress))
	for k, v := range r.ChainProgress {
		progress[k] = append([]string{}, v...)
	}
	stats := make(map[string]int, len(r.Stats))
	for k, v := range r.Stats {
		stats[k] = v
	}
	return RecordData{
		Version:           FormatVersion,
		PlayerID:          r.ID.String(),
		DiscoveredRecipes: state.DiscoveredIDs(r),
		BrewingStats:      stats,
		Achievements:      state.AchievementIDs(r),
		ChainProgress:     progress,
		CompletedChains:   state.CompletedChainIDs(r),
		FirstJoined:       toMillis(r.FirstJoined),
		LastSeen:          toMillis(r.LastSeen),
	}
}

// ToRecord converts serialized data back into a record. Nil collections are
// replaced with empty ones.
func (d RecordData) ToRecord() (*types.ActorRecord, error) {
	id, err := uuid.Parse(d.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("player-id %q: %w", d.PlayerID, err)
	}
	r := &types.ActorRecord{
		ID:              id,
		Discovered:      setOf(d.DiscoveredRecipes),
		Stats:           d.BrewingStats,
		Achievements:    setOf(d.Achievements),
		ChainProgress:   d.ChainProgress,
		CompletedChains: setOf(d.CompletedChains),
		FirstJoined:     fromMillis(d.FirstJoined),
		LastSeen:        fromMillis(d.LastSeen),
	}
	state.Normalize(r)
	return r, nil
}

// EncodeYAML serializes a record to YAML.
func EncodeYAML(r *types.ActorRecord) ([]byte, error) {
	return yaml.Marshal(FromRecord(r))
}

// DecodeYAML deserializes a YAML record.
func DecodeYAML(data []byte) (*types.ActorRecord, error) {
	var d RecordData
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d.ToRecord()
}

// EncodeJSON serializes a record to JSON.
func EncodeJSON(r *types.ActorRecord) ([]byte, error) {
	return json.Marshal(FromRecord(r))
}

// DecodeJSON deserializes a JSON record.
func DecodeJSON(data []byte) (*types.ActorRecord, error) {
	var d RecordData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d.ToRecord()
}

// EffectData is the serializable pending effect.
type EffectData struct {
	ID             string   `yaml:"id" json:"id"`
	PlayerID       string   `yaml:"player-id" json:"player_id"`
	RecipeID       string   `yaml:"recipe-id" json:"recipe_id"`
	EffectName     string   `yaml:"effect-name" json:"effect_name"`
	StartTime      int64    `yaml:"start-time" json:"start_time"` // unix millis
	Duration       int64    `yaml:"duration" json:"duration"`     // millis
	ExpireCommands []string `yaml:"expire-commands" json:"expire_commands"`
	Expired        bool     `yaml:"expired" json:"expired"`
}

// FromEffect converts a pending effect to its serializable form.
func FromEffect(e types.PendingEffect) EffectData {
	return EffectData{
		ID:             e.ID,
		PlayerID:       e.Actor.String(),
		RecipeID:       e.RuleID,
		EffectName:     e.Label,
		StartTime:      toMillis(e.Started),
		Duration:       e.Duration.Milliseconds(),
		ExpireCommands: append([]string{}, e.OnExpire...),
		Expired:        e.Expired,
	}
}

// ToEffect converts serialized data back into a pending effect.
func (d EffectData) ToEffect() (types.PendingEffect, error) {
	id, err := uuid.Parse(d.PlayerID)
	if err != nil {
		return types.PendingEffect{}, fmt.Errorf("effect %s player-id %q: %w", d.ID, d.PlayerID, err)
	}
	return types.PendingEffect{
		ID:       d.ID,
		Actor:    id,
		RuleID:   d.RecipeID,
		Label:    d.EffectName,
		Started:  fromMillis(d.StartTime),
		Duration: time.Duration(d.Duration) * time.Millisecond,
		OnExpire: d.ExpireCommands,
		Expired:  d.Expired,
	}, nil
}

// EncodeEffectJSON serializes one pending effect to JSON.
func EncodeEffectJSON(e types.PendingEffect) ([]byte, error) {
	return json.Marshal(FromEffect(e))
}

// DecodeEffectJSON deserializes one JSON pending effect.
func DecodeEffectJSON(data []byte) (types.PendingEffect, error) {
	var d EffectData
	if err := json.Unmarshal(data, &d); err != nil {
		return types.PendingEffect{}, err
	}
	return d.ToEffect()
}

// EffectsFile is the YAML document holding every pending effect.
type EffectsFile struct {
	ActiveEffects map[string][]EffectData `yaml:"active-effects"`
}

// EncodeEffectsYAML serializes the pending effect collection.
func EncodeEffectsYAML(effects map[uuid.UUID][]types.PendingEffect) ([]byte, error) {
	doc := EffectsFile{ActiveEffects: map[string][]EffectData{}}
	for id, list := range effects {
		if len(list) == 0 {
			continue
		}
		out := make([]EffectData, len(list))
		for i, e := range list {
			out[i] = FromEffect(e)
		}
		doc.ActiveEffects[id.String()] = out
	}
	return yaml.Marshal(doc)
}

// DecodeEffectsYAML deserializes the pending effect collection. Individual
// entries that fail to convert are returned as errors alongside the rest.
func DecodeEffectsYAML(data []byte) (map[uuid.UUID][]types.PendingEffect, []error, error) {
	var doc EffectsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	keys := make([]string, 0, len(doc.ActiveEffects))
	for k := range doc.ActiveEffects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := map[uuid.UUID][]types.PendingEffect{}
	var bad []error
	for _, k := range keys {
		for _, d := range doc.ActiveEffects[k] {
			if d.PlayerID == "" {
				d.PlayerID = k
			}
			e, err := d.ToEffect()
			if err != nil {
				bad = append(bad, err)
				continue
			}
			out[e.Actor] = append(out[e.Actor], e)
		}
	}
	return out, bad, nil
}

func setOf(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
