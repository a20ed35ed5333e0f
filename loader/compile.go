package loader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/brewcore/engine"
	"github.com/nathoo/brewcore/engine/achievement"
	"github.com/nathoo/brewcore/engine/rules"
	"github.com/nathoo/brewcore/types"
)

// Defaults applied when a key is absent.
const (
	DefaultBrewTime       = 400
	DefaultEffectDuration = 600
)

// compiler turns validated document entries into typed definitions.
type compiler struct {
	defs  *engine.Definitions
	ve    *ValidationError
	known map[string]bool // loaded recipe ids
}

func (c *compiler) recipes(n *yaml.Node) {
	for _, kv := range entries(n) {
		id := kv[0].Value
		var d recipeDoc
		if err := decodeEntry(schemaRecipe, kv[1], &d); err != nil {
			c.ve.errorf("recipe %q: %v", id, err)
			continue
		}
		r, err := compileRecipe(id, d)
		if err == nil {
			err = rules.ValidateRule(r)
		}
		if err != nil {
			c.ve.errorf("recipe %q: %v", id, err)
			continue
		}
		r.SourceOrder = len(c.defs.Rules)
		c.defs.Rules = append(c.defs.Rules, r)
	}
}

func compileRecipe(id string, d recipeDoc) (types.Rule, error) {
	ing, err := rules.ParseIngredient(d.Ingredient)
	if err != nil {
		return types.Rule{}, err
	}
	res, err := compileResult(d.Result)
	if err != nil {
		return types.Rule{}, err
	}
	conds, err := compileConditions(d.Conditions)
	if err != nil {
		return types.Rule{}, err
	}
	duration := DefaultBrewTime
	if d.BrewTime != nil {
		duration = *d.BrewTime
	}
	return types.Rule{
		ID:             id,
		Base:           strings.ToUpper(strings.TrimSpace(d.BasePotion)),
		Ingredient:     ing,
		Result:         res,
		Duration:       duration,
		Conditions:     conds,
		DrinkCommands:  d.DrinkCommands,
		ExpireCommands: d.ExpireCommands,
	}, nil
}

func compileResult(d resultDoc) (types.Result, error) {
	res := types.Result{
		Name:            d.Name,
		Lore:            d.Lore,
		Glowing:         d.Glowing,
		CustomModelData: d.CustomModelData,
		Form:            types.FormNormal,
	}
	if d.PotionType != "" {
		res.Form = types.PotionForm(strings.ToUpper(d.PotionType))
	}
	if d.Color != "" {
		col, err := ParseColor(d.Color)
		if err != nil {
			return types.Result{}, err
		}
		res.Color = &col
	}
	for _, e := range d.Effects {
		se := types.StatusEffect{
			Type:      strings.ToUpper(e.Type),
			Duration:  DefaultEffectDuration,
			Amplifier: e.Amplifier,
		}
		if e.Duration != nil {
			se.Duration = *e.Duration
		}
		res.Effects = append(res.Effects, se)
	}
	return res, nil
}

// ParseColor accepts "#RRGGBB" or "r,g,b".
func ParseColor(s string) (types.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if len(s) != 7 {
			return types.Color{}, fmt.Errorf("invalid color %q", s)
		}
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return types.Color{}, fmt.Errorf("invalid color %q", s)
		}
		return types.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return types.Color{}, fmt.Errorf("invalid color %q", s)
	}
	var rgb [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return types.Color{}, fmt.Errorf("invalid color %q", s)
		}
		rgb[i] = uint8(n)
	}
	return types.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

func compileConditions(d *conditionsDoc) ([]types.Condition, error) {
	if d == nil {
		return nil, nil
	}
	var out []types.Condition
	if len(d.Biomes) > 0 {
		out = append(out, membership(types.FieldBiome, d.Biomes, d.BiomesWhitelist))
	}
	if len(d.Worlds) > 0 {
		out = append(out, membership(types.FieldWorld, d.Worlds, d.WorldsWhitelist))
	}
	if d.Permission != "" {
		out = append(out, types.Condition{
			Kind:       types.CondPermission,
			Permission: &types.PermissionCondition{Node: d.Permission, Required: orTrue(d.PermissionRequired)},
		})
	}
	if d.Time != nil {
		out = append(out, rangeCondition(types.ScaleTimeOfDay, d.Time, 0, types.DayLength))
	}
	if d.YLevel != nil {
		out = append(out, rangeCondition(types.ScaleElevation, d.YLevel, -64, 320))
	}
	if d.Weather != "" {
		state := types.WeatherState(strings.ToUpper(d.Weather))
		switch state {
		case types.WeatherClear, types.WeatherRain, types.WeatherThunder, types.WeatherAnyStorm:
		default:
			return nil, fmt.Errorf("unknown weather %q", d.Weather)
		}
		out = append(out, types.Condition{Kind: types.CondWeather, Weather: &types.WeatherCondition{State: state}})
	}
	for _, p := range d.Placeholders {
		op, ok := rules.ParseOperator(p.Operator)
		if !ok {
			return nil, fmt.Errorf("placeholder %s: unknown operator %q", p.Placeholder, p.Operator)
		}
		out = append(out, types.Condition{
			Kind:      types.CondAttribute,
			Attribute: &types.AttributeCondition{Name: p.Placeholder, Operator: op, Value: p.Value},
		})
	}
	return out, nil
}

func membership(field types.MembershipField, values []string, whitelist *bool) types.Condition {
	return types.Condition{
		Kind: types.CondMembership,
		Membership: &types.MembershipCondition{
			Field:     field,
			Values:    values,
			Whitelist: orTrue(whitelist),
		},
	}
}

func rangeCondition(scale types.RangeScale, d *rangeDoc, lo, hi int64) types.Condition {
	r := &types.RangeCondition{Scale: scale, Min: lo, Max: hi}
	if d.Min != nil {
		r.Min = *d.Min
	}
	if d.Max != nil {
		r.Max = *d.Max
	}
	return types.Condition{Kind: types.CondRange, Range: r}
}

func orTrue(b *bool) bool {
	return b == nil || *b
}

func orDefault(n *int, def int) int {
	if n == nil {
		return def
	}
	return *n
}

func compileMethod(d methodDoc) (types.DiscoveryMethod, error) {
	kind := types.DiscoveryKind(strings.ToUpper(d.Type))
	if kind == "" {
		kind = types.DiscoverAutomatic
	}
	m := types.DiscoveryMethod{Kind: kind}
	switch kind {
	case types.DiscoverAutomatic:
	case types.DiscoverPermission:
		if d.Permission == "" {
			return m, errors.New("PERMISSION method needs a permission")
		}
		m.Permission = d.Permission
	case types.DiscoverLevelReach:
		m.Amount = orDefault(d.Level, 1)
	case types.DiscoverBiomeVisit:
		m.Biomes = d.Biomes
	case types.DiscoverItemCraft, types.DiscoverItemObtain:
		m.Material = strings.ToUpper(d.Material)
		m.Amount = orDefault(d.Amount, 1)
	case types.DiscoverKillMob:
		m.MobType = strings.ToUpper(d.MobType)
		m.Amount = orDefault(d.Count, 1)
	case types.DiscoverRecipeBrew:
		m.RequiredRecipes = d.RequiredRecipes
		m.Amount = orDefault(d.Count, 1)
	default:
		return m, fmt.Errorf("unknown discovery type %q", d.Type)
	}
	return m, nil
}

func compileAchievement(id string, d achievementDoc) (types.Achievement, error) {
	trigger := types.Trigger(strings.ToUpper(d.Trigger))
	if !achievement.KnownTrigger(trigger) {
		return types.Achievement{}, fmt.Errorf("unknown trigger %q", d.Trigger)
	}
	typ := types.AchievementType(strings.ToUpper(d.Type))
	if typ == "" {
		typ = types.AchievementMilestone
	}
	switch typ {
	case types.AchievementMilestone, types.AchievementDiscovery, types.AchievementBrewing,
		types.AchievementCollection, types.AchievementSpecial:
	default:
		return types.Achievement{}, fmt.Errorf("unknown achievement type %q", d.Type)
	}
	if trigger == types.TriggerSpecificRecipeBrewed && d.TargetRecipe == "" {
		return types.Achievement{}, errors.New("SPECIFIC_RECIPE_BREWED needs target-recipe")
	}
	if trigger == types.TriggerRecipeSetDiscovered && len(d.TargetRecipes) == 0 {
		return types.Achievement{}, errors.New("RECIPE_SET_DISCOVERED needs target-recipes")
	}
	a := types.Achievement{
		ID:            id,
		Name:          d.Name,
		Description:   d.Description,
		Lore:          d.Lore,
		Icon:          d.Icon,
		Type:          typ,
		Trigger:       trigger,
		Target:        orDefault(d.TargetValue, 1),
		TargetRecipe:  d.TargetRecipe,
		TargetRecipes: d.TargetRecipes,
		Hidden:        d.Hidden,
	}
	if d.Reward != nil {
		r, err := compileReward(*d.Reward)
		if err != nil {
			return types.Achievement{}, err
		}
		a.Reward = r
	}
	return a, nil
}

// compileReward builds a reward. Without an explicit type the reward is
// COMBINED and every populated field applies.
func compileReward(d rewardDoc) (*types.Reward, error) {
	kind := types.RewardKind(strings.ToUpper(d.Type))
	switch kind {
	case "":
		kind = types.RewardCombined
	case types.RewardItems, types.RewardCommands, types.RewardExperience,
		types.RewardPermission, types.RewardCombined:
	default:
		return nil, fmt.Errorf("unknown reward type %q", d.Type)
	}
	r := &types.Reward{
		Kind:       kind,
		Commands:   d.Commands,
		Experience: d.Experience,
		Permission: d.Permission,
		Message:    d.Message,
	}
	for _, it := range d.Items {
		r.Items = append(r.Items, types.RewardItem{
			Material: strings.ToUpper(it.Material),
			Amount:   orDefault(it.Amount, 1),
			Name:     it.Name,
			Lore:     it.Lore,
		})
	}
	return r, nil
}

func compileChain(id string, d chainDoc) (types.Chain, error) {
	ch := types.Chain{
		ID:            id,
		Name:          d.Name,
		Description:   d.Description,
		RequiresOrder: orTrue(d.RequiresOrder),
	}
	for i, s := range d.Steps {
		if s.Recipe == "" {
			return types.Chain{}, fmt.Errorf("step %d has no recipe", i+1)
		}
		step := types.ChainStep{RuleID: s.Recipe, Description: s.Description}
		if s.Reward != nil {
			r, err := compileReward(*s.Reward)
			if err != nil {
				return types.Chain{}, fmt.Errorf("step %d: %w", i+1, err)
			}
			step.Reward = r
		}
		ch.Steps = append(ch.Steps, step)
	}
	if len(ch.Steps) == 0 {
		return types.Chain{}, errors.New("chain has no steps")
	}
	if d.CompletionReward != nil {
		r, err := compileReward(*d.CompletionReward)
		if err != nil {
			return types.Chain{}, fmt.Errorf("completion-reward: %w", err)
		}
		ch.CompletionReward = r
	}
	return ch, nil
}
