// Package rules implements rule matching: ingredient matching, condition
// evaluation and the rule index.
package rules

import (
	"fmt"
	"strings"

	"github.com/nathoo/brewcore/types"
)

// AttributeSource resolves named external attributes for an actor.
type AttributeSource interface {
	Resolve(actor types.Actor, name string) (string, bool)
}

// Evaluator evaluates conditions. A nil Attributes source makes every
// attribute condition fail.
type Evaluator struct {
	Attributes AttributeSource
}

// EvalCondition evaluates a single condition. It never panics; a condition
// whose payload does not match its kind evaluates to false.
func (e Evaluator) EvalCondition(c types.Condition, actor types.Actor, env types.Environment) bool {
	switch c.Kind {
	case types.CondMembership:
		if c.Membership == nil {
			return false
		}
		return evalMembership(*c.Membership, env)

	case types.CondPermission:
		if c.Permission == nil {
			return false
		}
		has := actor != nil && actor.HasPermission(c.Permission.Node)
		if c.Permission.Required {
			return has
		}
		return !has

	case types.CondRange:
		if c.Range == nil {
			return false
		}
		return evalRange(*c.Range, env)

	case types.CondWeather:
		if c.Weather == nil {
			return false
		}
		return evalWeather(c.Weather.State, env)

	case types.CondAttribute:
		if c.Attribute == nil || actor == nil || e.Attributes == nil {
			return false
		}
		actual, ok := e.Attributes.Resolve(actor, c.Attribute.Name)
		if !ok {
			return false
		}
		return Compare(c.Attribute.Operator, actual, c.Attribute.Value)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func (e Evaluator) EvalAllConditions(conditions []types.Condition, actor types.Actor, env types.Environment) bool {
	return e.FirstFailing(conditions, actor, env) == nil
}

// FirstFailing returns the first condition that does not pass, or nil.
func (e Evaluator) FirstFailing(conditions []types.Condition, actor types.Actor, env types.Environment) *types.Condition {
	for i := range conditions {
		if !e.EvalCondition(conditions[i], actor, env) {
			return &conditions[i]
		}
	}
	return nil
}

func evalMembership(m types.MembershipCondition, env types.Environment) bool {
	var value string
	switch m.Field {
	case types.FieldBiome:
		value = env.Biome
	case types.FieldWorld:
		value = env.World
	default:
		return false
	}

	found := false
	for _, v := range m.Values {
		if strings.EqualFold(v, value) {
			found = true
			break
		}
	}
	if m.Whitelist {
		return found
	}
	return !found
}

func evalRange(r types.RangeCondition, env types.Environment) bool {
	switch r.Scale {
	case types.ScaleTimeOfDay:
		v := env.Time % types.DayLength
		if v < 0 {
			v += types.DayLength
		}
		return InWrappedRange(v, r.Min, r.Max)
	case types.ScaleElevation:
		v := int64(env.Y)
		return v >= r.Min && v <= r.Max
	default:
		return false
	}
}

// InWrappedRange tests v against an inclusive range on a cyclical scale.
// When min > max the valid region wraps past the end of the scale.
func InWrappedRange(v, min, max int64) bool {
	if min <= max {
		return v >= min && v <= max
	}
	return v >= min || v <= max
}

func evalWeather(state types.WeatherState, env types.Environment) bool {
	switch state {
	case types.WeatherClear:
		return !env.Raining && !env.Thundering
	case types.WeatherRain:
		return env.Raining && !env.Thundering
	case types.WeatherThunder:
		return env.Thundering
	case types.WeatherAnyStorm:
		return env.Raining || env.Thundering
	default:
		return false
	}
}

// Describe renders a condition for caller-facing explanations.
func Describe(c types.Condition) string {
	switch c.Kind {
	case types.CondMembership:
		if c.Membership == nil {
			break
		}
		m := c.Membership
		verb := "must be in"
		if !m.Whitelist {
			verb = "must not be in"
		}
		return fmt.Sprintf("%s %s: %s", m.Field, verb, strings.Join(m.Values, ", "))

	case types.CondPermission:
		if c.Permission == nil {
			break
		}
		if c.Permission.Required {
			return "requires permission " + c.Permission.Node
		}
		return "forbidden for permission " + c.Permission.Node

	case types.CondRange:
		if c.Range == nil {
			break
		}
		return fmt.Sprintf("%s between %d and %d", c.Range.Scale, c.Range.Min, c.Range.Max)

	case types.CondWeather:
		if c.Weather == nil {
			break
		}
		return "weather must be " + string(c.Weather.State)

	case types.CondAttribute:
		if c.Attribute == nil {
			break
		}
		a := c.Attribute
		return fmt.Sprintf("%s %s %s", a.Name, a.Operator, a.Value)
	}
	return "invalid condition"
}
