package rules

import (
	"strconv"
	"strings"

	"github.com/nathoo/brewcore/types"
)

var operatorAliases = map[string]types.CompareOp{
	"equals":           types.OpEquals,
	"==":               types.OpEquals,
	"=":                types.OpEquals,
	"not_equals":       types.OpNotEquals,
	"!=":               types.OpNotEquals,
	"contains":         types.OpContains,
	"not_contains":     types.OpNotContains,
	"starts_with":      types.OpStartsWith,
	"ends_with":        types.OpEndsWith,
	"greater_than":     types.OpGreater,
	">":                types.OpGreater,
	"less_than":        types.OpLess,
	"<":                types.OpLess,
	"greater_or_equal": types.OpGreaterOrEqual,
	">=":               types.OpGreaterOrEqual,
	"less_or_equal":    types.OpLessOrEqual,
	"<=":               types.OpLessOrEqual,
}

// ParseOperator maps an operator name or symbol (case-insensitive) to a CompareOp.
func ParseOperator(s string) (types.CompareOp, bool) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// Compare applies op to actual and expected. String operators ignore case.
// Numeric operators return false if either side fails to parse.
func Compare(op types.CompareOp, actual, expected string) bool {
	switch op {
	case types.OpEquals:
		return strings.EqualFold(actual, expected)
	case types.OpNotEquals:
		return !strings.EqualFold(actual, expected)
	case types.OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case types.OpNotContains:
		return !strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case types.OpStartsWith:
		return strings.HasPrefix(strings.ToLower(actual), strings.ToLower(expected))
	case types.OpEndsWith:
		return strings.HasSuffix(strings.ToLower(actual), strings.ToLower(expected))
	}

	a, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if err != nil {
		return false
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	if err != nil {
		return false
	}

	switch op {
	case types.OpGreater:
		return a > b
	case types.OpLess:
		return a < b
	case types.OpGreaterOrEqual:
		return a >= b
	case types.OpLessOrEqual:
		return a <= b
	default:
		return false
	}
}
