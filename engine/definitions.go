package engine

import (
	"github.com/nathoo/brewcore/engine/achievement"
	"github.com/nathoo/brewcore/engine/chain"
	"github.com/nathoo/brewcore/engine/discovery"
	"github.com/nathoo/brewcore/engine/speed"
	"github.com/nathoo/brewcore/types"
)

// Definitions is everything a reload replaces.
type Definitions struct {
	Rules []types.Rule
	Speed speed.Settings

	Discovery discovery.Settings

	Achievements    achievement.Settings
	AchievementList []types.Achievement

	Chains    chain.Settings
	ChainList []types.Chain
}

// DefaultDefinitions returns empty definitions with every subsystem enabled.
func DefaultDefinitions() *Definitions {
	return &Definitions{
		Speed:        speed.DefaultSettings(),
		Discovery:    discovery.Settings{Enabled: true, Notify: true},
		Achievements: achievement.Settings{Enabled: true, Notify: true},
		Chains:       chain.Settings{Enabled: true, Notify: true, OutOfOrder: chain.PolicyIgnore},
	}
}
