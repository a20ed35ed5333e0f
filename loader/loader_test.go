package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/brewcore/engine"
	"github.com/nathoo/brewcore/engine/chain"
	"github.com/nathoo/brewcore/types"
)

func loadTestdata(t *testing.T) (*engine.Definitions, *ValidationError) {
	t.Helper()
	defs, ve, err := Load(filepath.Join("testdata", "brewing.yml"), nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return defs, ve
}

func containsAll(list []string, parts ...string) bool {
	for _, l := range list {
		ok := true
		for _, p := range parts {
			if !strings.Contains(l, p) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func TestLoad_Recipes(t *testing.T) {
	defs, _ := loadTestdata(t)

	if len(defs.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(defs.Rules))
	}
	swift, night := defs.Rules[0], defs.Rules[1]
	if swift.ID != "swift_brew" || night.ID != "night_vision_plus" {
		t.Fatalf("rule order = %s, %s, want document order", swift.ID, night.ID)
	}

	if swift.Duration != 200 || swift.Base != "AWKWARD" {
		t.Errorf("swift_brew = %+v", swift)
	}
	if swift.Ingredient != (types.Ingredient{Kind: types.CatalogFixed, ID: "SUGAR", Quantity: 1}) {
		t.Errorf("swift_brew ingredient = %+v", swift.Ingredient)
	}
	if c := swift.Result.Color; c == nil || *c != (types.Color{R: 0x33, G: 0xCC, B: 0xFF}) {
		t.Errorf("swift_brew color = %v", c)
	}
	if e := swift.Result.Effects; len(e) != 1 || e[0] != (types.StatusEffect{Type: "SPEED", Duration: 1200, Amplifier: 1}) {
		t.Errorf("swift_brew effects = %+v", e)
	}
	if swift.Result.Form != types.FormNormal {
		t.Errorf("swift_brew form = %s, want NORMAL", swift.Result.Form)
	}

	if night.Duration != DefaultBrewTime {
		t.Errorf("night duration = %d, want %d", night.Duration, DefaultBrewTime)
	}
	if night.Base != "AWKWARD" || night.Ingredient.Quantity != 2 {
		t.Errorf("night = %+v", night)
	}
	if night.Result.Form != types.FormSplash {
		t.Errorf("night form = %s, want SPLASH", night.Result.Form)
	}
	if e := night.Result.Effects; len(e) != 1 || e[0].Duration != DefaultEffectDuration {
		t.Errorf("night effects = %+v", e)
	}
	if len(night.DrinkCommands) != 1 || len(night.ExpireCommands) != 1 {
		t.Errorf("night commands = %v / %v", night.DrinkCommands, night.ExpireCommands)
	}
}

func TestLoad_Conditions(t *testing.T) {
	defs, _ := loadTestdata(t)
	conds := defs.Rules[1].Conditions

	kinds := make([]types.ConditionKind, len(conds))
	for i, c := range conds {
		kinds[i] = c.Kind
	}
	want := []types.ConditionKind{
		types.CondMembership, types.CondPermission, types.CondRange, types.CondWeather, types.CondAttribute,
	}
	if len(kinds) != len(want) {
		t.Fatalf("condition kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("condition[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}

	if m := conds[0].Membership; m.Field != types.FieldBiome || m.Whitelist || len(m.Values) != 2 {
		t.Errorf("membership = %+v", m)
	}
	if p := conds[1].Permission; p.Node != "brew.night" || !p.Required {
		t.Errorf("permission = %+v", p)
	}
	if r := conds[2].Range; r.Scale != types.ScaleTimeOfDay || r.Min != 13000 || r.Max != 23000 {
		t.Errorf("range = %+v", r)
	}
	if w := conds[3].Weather; w.State != types.WeatherRain {
		t.Errorf("weather = %+v", w)
	}
	if a := conds[4].Attribute; a.Name != "%player_level%" || a.Operator != types.OpGreaterOrEqual || a.Value != "10" {
		t.Errorf("attribute = %+v", a)
	}
}

func TestLoad_SkippedEntries(t *testing.T) {
	_, ve := loadTestdata(t)

	tests := []struct {
		name  string
		parts []string
	}{
		{"bad ingredient", []string{`recipe "broken_ingredient"`}},
		{"brew-time below minimum", []string{`recipe "mystic_draught"`, "brew-time"}},
		{"unknown discovery type", []string{`discovery method "bad_type"`, "TELEPATHY"}},
		{"unknown trigger", []string{`achievement "bogus"`, "NOT_A_TRIGGER"}},
		{"chain without steps", []string{`chain "empty"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !containsAll(ve.Errors, tt.parts...) {
				t.Errorf("Errors = %v, want entry containing %v", ve.Errors, tt.parts)
			}
		})
	}
	if len(ve.Errors) != len(tests) {
		t.Errorf("len(Errors) = %d, want %d: %v", len(ve.Errors), len(tests), ve.Errors)
	}
}

func TestLoad_ReferenceWarnings(t *testing.T) {
	_, ve := loadTestdata(t)
	want := [][]string{
		{"brewing-speeds", `"ghost"`},
		{"discovery method", `"ghost"`},
		{`achievement "collector"`, `"ghost"`},
	}
	for _, parts := range want {
		if !containsAll(ve.Warnings, parts...) {
			t.Errorf("Warnings = %v, want entry containing %v", ve.Warnings, parts)
		}
	}
	if len(ve.Warnings) != len(want) {
		t.Errorf("len(Warnings) = %d, want %d: %v", len(ve.Warnings), len(want), ve.Warnings)
	}
}

func TestLoad_Settings(t *testing.T) {
	defs, _ := loadTestdata(t)

	if !defs.Speed.Enabled || defs.Speed.Global != 0.5 {
		t.Errorf("Speed = %+v", defs.Speed)
	}
	if defs.Speed.Biomes["DESERT"] != 0.8 {
		t.Errorf("biome multipliers = %v, want DESERT upper-cased", defs.Speed.Biomes)
	}

	if !defs.Discovery.Enabled || defs.Discovery.Notify {
		t.Errorf("Discovery = %+v, want enabled without notifications", defs.Discovery)
	}
	m := defs.Discovery.Methods["night_vision_plus"]
	if m.Kind != types.DiscoverLevelReach || m.Amount != 10 {
		t.Errorf("night method = %+v", m)
	}
	if p := defs.Discovery.Methods["swift_brew"]; p.Kind != types.DiscoverPermission || p.Permission != "brew.swift" {
		t.Errorf("swift method = %+v", p)
	}

	if defs.Chains.OutOfOrder != chain.PolicyNotify {
		t.Errorf("OutOfOrder = %s, want notify", defs.Chains.OutOfOrder)
	}
}

func TestLoad_AchievementsAndChains(t *testing.T) {
	defs, _ := loadTestdata(t)

	if len(defs.AchievementList) != 2 {
		t.Fatalf("len(AchievementList) = %d, want 2", len(defs.AchievementList))
	}
	first := defs.AchievementList[0]
	if first.ID != "first_brew" || first.Target != 1 || first.Type != types.AchievementMilestone {
		t.Errorf("first_brew = %+v", first)
	}
	if first.Reward == nil || first.Reward.Kind != types.RewardExperience || first.Reward.Experience != 50 {
		t.Errorf("first_brew reward = %+v", first.Reward)
	}
	if c := defs.AchievementList[1]; !c.Hidden || c.Type != types.AchievementCollection {
		t.Errorf("collector = %+v", c)
	}

	if len(defs.ChainList) != 1 {
		t.Fatalf("len(ChainList) = %d, want 1", len(defs.ChainList))
	}
	ch := defs.ChainList[0]
	if !ch.RequiresOrder || len(ch.Steps) != 2 {
		t.Fatalf("basics = %+v", ch)
	}
	if ch.Steps[0].RuleID != "swift_brew" || ch.Steps[1].Description != "See in the dark" {
		t.Errorf("steps = %+v", ch.Steps)
	}
	r := ch.Steps[1].Reward
	if r == nil || r.Kind != types.RewardCombined || len(r.Items) != 1 || r.Items[0].Material != "GOLDEN_CARROT" {
		t.Errorf("step reward = %+v", r)
	}
	if cr := ch.CompletionReward; cr == nil || cr.Experience != 100 || cr.Message != "Well done" {
		t.Errorf("completion reward = %+v", cr)
	}
}

func TestParse_EmptyAndInvalid(t *testing.T) {
	defs, ve, err := Parse(nil, nil)
	if err != nil || !ve.Empty() || len(defs.Rules) != 0 {
		t.Errorf("Parse(empty) = %v, %v, %v", defs, ve, err)
	}
	if !defs.Speed.Enabled || !defs.Achievements.Enabled {
		t.Errorf("Parse(empty) settings = %+v / %+v, want defaults", defs.Speed, defs.Achievements)
	}

	if _, _, err := Parse([]byte("- just\n- a list\n"), nil); err == nil {
		t.Error("Parse(list) error = nil, want error")
	}
	if _, _, err := Parse([]byte("recipes: [unclosed"), nil); err == nil {
		t.Error("Parse(malformed) error = nil, want error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yml"), nil)
	if err == nil {
		t.Error("Load(missing) error = nil, want error")
	}
}

func TestLoad_FeedsEngine(t *testing.T) {
	defs, _ := loadTestdata(t)
	e := engine.New(engine.Config{})
	defer e.Close()

	if _, err := e.Reload(defs); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if got := len(e.Rules()); got != 2 {
		t.Errorf("len(Rules()) = %d, want 2", got)
	}
	res := e.Attempt(types.Attempt{Base: "AWKWARD", Item: types.Item{Material: "SUGAR", Amount: 1}})
	if res.Status != types.StatusReady || res.Duration != 50 {
		t.Errorf("Attempt() = %s/%d, want ready/50", res.Status, res.Duration)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Color
		wantErr bool
	}{
		{"#FF8000", types.Color{R: 255, G: 128}, false},
		{"1, 2, 3", types.Color{R: 1, G: 2, B: 3}, false},
		{"#FFF", types.Color{}, true},
		{"256,0,0", types.Color{}, true},
		{"red", types.Color{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoad_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.yml")
	doc := "recipes:\n  a:\n    base-potion: WATER\n    ingredient: REDSTONE\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	defs, ve, err := Load(path, nil)
	if err != nil || !ve.Empty() {
		t.Fatalf("Load() = %v, %v", ve, err)
	}
	if len(defs.Rules) != 1 || defs.Rules[0].Duration != DefaultBrewTime {
		t.Errorf("Rules = %+v", defs.Rules)
	}
}

func TestLoad_SampleConfig(t *testing.T) {
	defs, ve, err := Load(filepath.Join("..", "configs", "brewing.yml"), nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !ve.Empty() {
		t.Fatalf("Load() errors = %v, warnings = %v", ve.Errors, ve.Warnings)
	}
	if got := len(defs.Rules); got != 5 {
		t.Errorf("len(Rules) = %d, want 5", got)
	}
	if got := len(defs.AchievementList); got != 5 {
		t.Errorf("len(AchievementList) = %d, want 5", got)
	}
	if defs.Chains.OutOfOrder != chain.PolicyNotify {
		t.Errorf("OutOfOrder = %q, want %q", defs.Chains.OutOfOrder, chain.PolicyNotify)
	}
	if got := defs.Speed.Biomes["SWAMP"]; got != 0.8 {
		t.Errorf("Biomes[SWAMP] = %v, want 0.8", got)
	}
	e := engine.New(engine.Config{})
	defer e.Close()
	if _, err := e.Reload(defs); err != nil {
		t.Errorf("Reload() error: %v", err)
	}
}
