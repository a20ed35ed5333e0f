package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// The *Doc types mirror the YAML keys of a definition document. Pointer
// fields distinguish "absent" from the zero value where a default applies.

type recipeDoc struct {
	BasePotion     string         `yaml:"base-potion"`
	Ingredient     string         `yaml:"ingredient"`
	BrewTime       *int           `yaml:"brew-time"`
	Result         resultDoc      `yaml:"result"`
	Conditions     *conditionsDoc `yaml:"conditions"`
	DrinkCommands  []string       `yaml:"drink-commands"`
	ExpireCommands []string       `yaml:"expire-commands"`
}

type resultDoc struct {
	Name            string      `yaml:"name"`
	Lore            []string    `yaml:"lore"`
	Color           string      `yaml:"color"`
	Effects         []effectDoc `yaml:"effects"`
	PotionType      string      `yaml:"potion-type"`
	Glowing         bool        `yaml:"glowing"`
	CustomModelData int         `yaml:"custom-model-data"`
}

type effectDoc struct {
	Type      string `yaml:"type"`
	Duration  *int   `yaml:"duration"`
	Amplifier int    `yaml:"amplifier"`
}

type conditionsDoc struct {
	Biomes             []string         `yaml:"biomes"`
	BiomesWhitelist    *bool            `yaml:"biomes-whitelist"`
	Worlds             []string         `yaml:"worlds"`
	WorldsWhitelist    *bool            `yaml:"worlds-whitelist"`
	Permission         string           `yaml:"permission"`
	PermissionRequired *bool            `yaml:"permission-required"`
	Time               *rangeDoc        `yaml:"time"`
	YLevel             *rangeDoc        `yaml:"y-level"`
	Weather            string           `yaml:"weather"`
	Placeholders       []placeholderDoc `yaml:"placeholders"`
}

type rangeDoc struct {
	Min *int64 `yaml:"min"`
	Max *int64 `yaml:"max"`
}

type placeholderDoc struct {
	Placeholder string `yaml:"placeholder"`
	Operator    string `yaml:"operator"`
	Value       string `yaml:"value"`
}

type speedsDoc struct {
	Enabled     *bool              `yaml:"enabled"`
	Global      *float64           `yaml:"global-multiplier"`
	Recipes     map[string]float64 `yaml:"recipe-multipliers"`
	Permissions map[string]float64 `yaml:"permission-multipliers"`
	Biomes      map[string]float64 `yaml:"biome-multipliers"`
}

type methodDoc struct {
	Type            string   `yaml:"type"`
	Permission      string   `yaml:"permission"`
	Level           *int     `yaml:"level"`
	Biomes          []string `yaml:"biomes"`
	Material        string   `yaml:"material"`
	Amount          *int     `yaml:"amount"`
	MobType         string   `yaml:"mob-type"`
	Count           *int     `yaml:"count"`
	RequiredRecipes []string `yaml:"required-recipes"`
}

type rewardDoc struct {
	Type       string          `yaml:"type"`
	Items      []rewardItemDoc `yaml:"items"`
	Commands   []string        `yaml:"commands"`
	Experience int             `yaml:"experience"`
	Permission string          `yaml:"permission"`
	Message    string          `yaml:"message"`
}

type rewardItemDoc struct {
	Material string   `yaml:"material"`
	Amount   *int     `yaml:"amount"`
	Name     string   `yaml:"name"`
	Lore     []string `yaml:"lore"`
}

type achievementDoc struct {
	Name          string     `yaml:"name"`
	Description   string     `yaml:"description"`
	Lore          []string   `yaml:"lore"`
	Hidden        bool       `yaml:"hidden"`
	Type          string     `yaml:"type"`
	Trigger       string     `yaml:"trigger"`
	TargetValue   *int       `yaml:"target-value"`
	TargetRecipe  string     `yaml:"target-recipe"`
	TargetRecipes []string   `yaml:"target-recipes"`
	Icon          string     `yaml:"icon"`
	Reward        *rewardDoc `yaml:"reward"`
}

type chainDoc struct {
	Name             string     `yaml:"name"`
	Description      string     `yaml:"description"`
	RequiresOrder    *bool      `yaml:"requires-order"`
	Steps            []stepDoc  `yaml:"steps"`
	CompletionReward *rewardDoc `yaml:"completion-reward"`
}

// stepDoc accepts either a bare recipe id or a mapping.
type stepDoc struct {
	Recipe      string     `yaml:"recipe"`
	Description string     `yaml:"description"`
	Reward      *rewardDoc `yaml:"reward"`
}

func (s *stepDoc) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		s.Recipe = n.Value
		return nil
	case yaml.MappingNode:
		type plain stepDoc
		var p plain
		if err := n.Decode(&p); err != nil {
			return err
		}
		*s = stepDoc(p)
		return nil
	}
	return fmt.Errorf("line %d: step must be a recipe id or a mapping", n.Line)
}
