// Package types defines the shared data structures for the BrewCore engine.
// This package contains only type definitions: no logic, no methods.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Actor is the live entity performing or benefiting from a rule completion.
// A nil Actor means an unattended completion.
type Actor interface {
	ID() uuid.UUID
	Name() string
	HasPermission(node string) bool
	Level() int
}

// IngredientKind identifies which catalog an ingredient belongs to.
type IngredientKind string

const (
	CatalogFixed    IngredientKind = "fixed"
	CatalogMythic   IngredientKind = "mythic"
	CatalogCrucible IngredientKind = "crucible"
)

// Ingredient is the catalyst a rule requires.
type Ingredient struct {
	Kind     IngredientKind
	ID       string // material for fixed-catalog items, external id otherwise
	Quantity int
}

// Item is an observed item stack offered as an ingredient.
type Item struct {
	Material string
	Amount   int
	External map[IngredientKind]string // external catalog ids resolved by the host
}

// PotionForm is the delivery form of a brewed result.
type PotionForm string

const (
	FormNormal    PotionForm = "NORMAL"
	FormSplash    PotionForm = "SPLASH"
	FormLingering PotionForm = "LINGERING"
)

// Color is an RGB result tint.
type Color struct {
	R, G, B uint8
}

// StatusEffect is a timed effect applied by a brewed result.
type StatusEffect struct {
	Type      string
	Duration  int // ticks
	Amplifier int
}

// Result describes what a rule produces.
type Result struct {
	Name            string
	Lore            []string
	Color           *Color
	Effects         []StatusEffect
	Form            PotionForm
	Glowing         bool
	CustomModelData int
}

// Rule is a configured transformation from base + ingredient to a result.
type Rule struct {
	ID             string
	Base           string
	Ingredient     Ingredient
	Result         Result
	Duration       int // ticks, >= 1
	Conditions     []Condition
	DrinkCommands  []string
	ExpireCommands []string
	SourceOrder    int
}

// ConditionKind tags the payload carried by a Condition.
type ConditionKind string

const (
	CondMembership ConditionKind = "membership"
	CondPermission ConditionKind = "permission"
	CondRange      ConditionKind = "range"
	CondWeather    ConditionKind = "weather"
	CondAttribute  ConditionKind = "attribute"
)

// Condition is a gating predicate. Exactly one payload matches Kind.
type Condition struct {
	Kind       ConditionKind
	Membership *MembershipCondition
	Permission *PermissionCondition
	Range      *RangeCondition
	Weather    *WeatherCondition
	Attribute  *AttributeCondition
}

// MembershipField names the environment attribute a membership test reads.
type MembershipField string

const (
	FieldBiome MembershipField = "biome"
	FieldWorld MembershipField = "world"
)

// MembershipCondition tests an environment attribute against a set.
type MembershipCondition struct {
	Field     MembershipField
	Values    []string
	Whitelist bool
}

// PermissionCondition requires or forbids a permission node.
type PermissionCondition struct {
	Node     string
	Required bool
}

// RangeScale names the numeric environment value a range test reads.
type RangeScale string

const (
	ScaleTimeOfDay RangeScale = "time"    // cyclical, wraps at DayLength
	ScaleElevation RangeScale = "y-level" // linear
)

// DayLength is the length of the time-of-day cycle in ticks.
const DayLength = 24000

// RangeCondition is an inclusive numeric range.
type RangeCondition struct {
	Scale RangeScale
	Min   int64
	Max   int64
}

// WeatherState is the categorical weather a rule may require.
type WeatherState string

const (
	WeatherClear    WeatherState = "CLEAR"
	WeatherRain     WeatherState = "RAIN"
	WeatherThunder  WeatherState = "THUNDER"
	WeatherAnyStorm WeatherState = "ANY_STORM"
)

// WeatherCondition requires a weather state.
type WeatherCondition struct {
	State WeatherState
}

// CompareOp is an external attribute comparison operator.
type CompareOp string

const (
	OpEquals         CompareOp = "equals"
	OpNotEquals      CompareOp = "not_equals"
	OpContains       CompareOp = "contains"
	OpNotContains    CompareOp = "not_contains"
	OpStartsWith     CompareOp = "starts_with"
	OpEndsWith       CompareOp = "ends_with"
	OpGreater        CompareOp = "greater_than"
	OpLess           CompareOp = "less_than"
	OpGreaterOrEqual CompareOp = "greater_or_equal"
	OpLessOrEqual    CompareOp = "less_or_equal"
)

// AttributeCondition compares a dynamically resolved attribute.
type AttributeCondition struct {
	Name     string
	Operator CompareOp
	Value    string
}

// Environment is the location snapshot of a crafting attempt.
type Environment struct {
	World      string
	Biome      string
	Time       int64 // world time in ticks
	Y          int
	Raining    bool
	Thundering bool
}

// StationKey identifies a physical crafting station.
type StationKey struct {
	World   string
	X, Y, Z int
}

// Attempt is a crafting attempt supplied by the host.
type Attempt struct {
	Actor   Actor // nil when unattended
	Base    string
	Item    Item
	Env     Environment
	Station StationKey
}

// ResolutionStatus classifies the outcome of an attempt.
type ResolutionStatus string

const (
	StatusNoMatch         ResolutionStatus = "no_match"
	StatusUndiscovered    ResolutionStatus = "undiscovered"
	StatusConditionFailed ResolutionStatus = "condition_failed"
	StatusReady           ResolutionStatus = "ready"
)

// Resolution is the answer to an Attempt.
type Resolution struct {
	Status   ResolutionStatus
	Rule     *Rule
	Failed   *Condition // set when Status is StatusConditionFailed
	Reason   string
	Duration int // effective ticks when Status is StatusReady
}

// DiscoveryKind is how a rule becomes known to an actor.
type DiscoveryKind string

const (
	DiscoverAutomatic  DiscoveryKind = "AUTOMATIC"
	DiscoverPermission DiscoveryKind = "PERMISSION"
	DiscoverLevelReach DiscoveryKind = "LEVEL_REACH"
	DiscoverBiomeVisit DiscoveryKind = "BIOME_VISIT"
	DiscoverItemCraft  DiscoveryKind = "ITEM_CRAFT"
	DiscoverItemObtain DiscoveryKind = "ITEM_OBTAIN"
	DiscoverKillMob    DiscoveryKind = "KILL_MOB"
	DiscoverRecipeBrew DiscoveryKind = "RECIPE_BREW"
)

// DiscoveryMethod is the configured unlock method for one rule.
type DiscoveryMethod struct {
	Kind            DiscoveryKind
	Permission      string
	Amount          int // level for LEVEL_REACH, count otherwise
	Biomes          []string
	Material        string
	MobType         string
	RequiredRecipes []string
}

// RewardKind selects which parts of a Reward apply.
type RewardKind string

const (
	RewardItems      RewardKind = "ITEMS"
	RewardCommands   RewardKind = "COMMANDS"
	RewardExperience RewardKind = "EXPERIENCE"
	RewardPermission RewardKind = "PERMISSION"
	RewardCombined   RewardKind = "COMBINED"
)

// RewardItem is an item handed out by a reward.
type RewardItem struct {
	Material string
	Amount   int
	Name     string
	Lore     []string
}

// Reward is an opaque descriptor handed to the host for execution.
type Reward struct {
	Kind       RewardKind
	Items      []RewardItem
	Commands   []string
	Experience int
	Permission string
	Message    string
}

// AchievementType is a display category.
type AchievementType string

const (
	AchievementMilestone  AchievementType = "MILESTONE"
	AchievementDiscovery  AchievementType = "DISCOVERY"
	AchievementBrewing    AchievementType = "BREWING"
	AchievementCollection AchievementType = "COLLECTION"
	AchievementSpecial    AchievementType = "SPECIAL"
)

// Trigger is the predicate kind that unlocks an achievement.
type Trigger string

const (
	TriggerFirstDiscovery       Trigger = "FIRST_DISCOVERY"
	TriggerFirstBrew            Trigger = "FIRST_BREW"
	TriggerRecipesDiscovered    Trigger = "RECIPES_DISCOVERED"
	TriggerPotionsBrewed        Trigger = "POTIONS_BREWED"
	TriggerSpecificRecipeBrewed Trigger = "SPECIFIC_RECIPE_BREWED"
	TriggerRecipeSetDiscovered  Trigger = "RECIPE_SET_DISCOVERED"
	TriggerMasterBrewer         Trigger = "MASTER_BREWER"
	TriggerChainsCompleted      Trigger = "CHAINS_COMPLETED"
	TriggerFirstChain           Trigger = "FIRST_CHAIN"
)

// Achievement is an immutable achievement definition.
type Achievement struct {
	ID            string
	Name          string
	Description   string
	Lore          []string
	Icon          string
	Type          AchievementType
	Trigger       Trigger
	Target        int
	TargetRecipe  string
	TargetRecipes []string
	Hidden        bool
	Reward        *Reward
}

// ChainStep is one rule completion inside a chain.
type ChainStep struct {
	RuleID      string
	Description string
	Reward      *Reward
}

// Chain is an immutable multi-step progression definition.
type Chain struct {
	ID               string
	Name             string
	Description      string
	Steps            []ChainStep
	RequiresOrder    bool
	CompletionReward *Reward
}

// ActorRecord is the durable per-actor progression aggregate.
type ActorRecord struct {
	ID              uuid.UUID
	Discovered      map[string]bool
	Stats           map[string]int
	Achievements    map[string]bool
	ChainProgress   map[string][]string // chain id -> completed step rule ids
	CompletedChains map[string]bool
	FirstJoined     time.Time
	LastSeen        time.Time
}

// NotificationKind classifies a notification descriptor.
type NotificationKind string

const (
	NoticeDiscovery     NotificationKind = "discovery"
	NoticeAchievement   NotificationKind = "achievement"
	NoticeChainProgress NotificationKind = "chain_progress"
	NoticeChainComplete NotificationKind = "chain_completed"
	NoticeStepRejected  NotificationKind = "chain_step_rejected"
)

// Notification is a presentation-neutral message for an actor.
type Notification struct {
	Kind    NotificationKind
	Actor   uuid.UUID
	Subject string // rule, achievement or chain id
	Title   string
	Lines   []string
}

// RewardGrant is a reward the host should execute for an actor.
type RewardGrant struct {
	Actor  uuid.UUID
	Source string // e.g. "achievement:first_brew", "chain:alchemy/step:healing"
	Reward Reward
}

// Outcome collects the side effects produced by a progression event.
type Outcome struct {
	Notifications []Notification
	Rewards       []RewardGrant
}

// ActionTarget selects who runs a command action.
type ActionTarget string

const (
	RunAsConsole ActionTarget = "console"
	RunAsActor   ActionTarget = "player"
)

// Action is an expanded command ready for the host to execute.
type Action struct {
	Target  ActionTarget
	Command string
}

// PendingEffect is a persisted delayed effect with an on-expire side effect.
type PendingEffect struct {
	ID       string
	Actor    uuid.UUID
	RuleID   string
	Label    string
	Started  time.Time
	Duration time.Duration
	OnExpire []string // command templates
	Expired  bool
}
