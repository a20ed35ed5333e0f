package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/brewcore/types"
)

// Catalogs records which external ingredient catalogs are available at
// runtime. The fixed catalog is always available.
type Catalogs map[types.IngredientKind]bool

// Available reports whether ingredients of the given kind can be matched.
func (c Catalogs) Available(kind types.IngredientKind) bool {
	if kind == types.CatalogFixed {
		return true
	}
	return c[kind]
}

// Matcher tests observed items against ingredient descriptors.
type Matcher struct {
	Catalogs Catalogs
}

// NewMatcher creates a matcher with the given catalog capabilities.
func NewMatcher(catalogs Catalogs) Matcher {
	return Matcher{Catalogs: catalogs}
}

// MatchesIngredient reports whether item satisfies ing. Items from an
// unavailable catalog never match.
func (m Matcher) MatchesIngredient(ing types.Ingredient, item types.Item) bool {
	if !m.Catalogs.Available(ing.Kind) {
		return false
	}

	amount := item.Amount
	if amount == 0 {
		amount = 1
	}
	if amount < ing.Quantity {
		return false
	}

	switch ing.Kind {
	case types.CatalogFixed:
		return item.Material != "" && strings.EqualFold(item.Material, ing.ID)
	case types.CatalogMythic, types.CatalogCrucible:
		id, ok := item.External[ing.Kind]
		return ok && id == ing.ID
	default:
		return false
	}
}

// SameIngredient reports descriptor equality: kind, identity and quantity.
func SameIngredient(a, b types.Ingredient) bool {
	if a.Kind != b.Kind || a.Quantity != b.Quantity {
		return false
	}
	if a.Kind == types.CatalogFixed {
		return strings.EqualFold(a.ID, b.ID)
	}
	return a.ID == b.ID
}

// Shadows reports whether every item matching later also matches earlier:
// same kind and identity, and earlier asks for no more than later.
func Shadows(earlier, later types.Ingredient) bool {
	if earlier.Quantity > later.Quantity {
		return false
	}
	return SameIngredient(
		types.Ingredient{Kind: earlier.Kind, ID: earlier.ID},
		types.Ingredient{Kind: later.Kind, ID: later.ID},
	)
}

// ParseIngredient parses "MATERIAL[:amount]", "mythic:ID[:amount]" or
// "crucible:ID[:amount]".
func ParseIngredient(s string) (types.Ingredient, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Ingredient{}, fmt.Errorf("empty ingredient")
	}

	parts := strings.Split(s, ":")
	kind := types.CatalogFixed
	switch strings.ToLower(parts[0]) {
	case string(types.CatalogMythic):
		kind = types.CatalogMythic
		parts = parts[1:]
	case string(types.CatalogCrucible):
		kind = types.CatalogCrucible
		parts = parts[1:]
	}

	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		return types.Ingredient{}, fmt.Errorf("invalid ingredient %q", s)
	}

	ing := types.Ingredient{Kind: kind, ID: parts[0], Quantity: 1}
	if kind == types.CatalogFixed {
		ing.ID = strings.ToUpper(ing.ID)
	}
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			return types.Ingredient{}, fmt.Errorf("invalid amount %q in ingredient %q", parts[1], s)
		}
		ing.Quantity = n
	}
	return ing, nil
}

// DescribeIngredient renders an ingredient for display, e.g. "2x BLAZE_POWDER".
func DescribeIngredient(ing types.Ingredient) string {
	name := ing.ID
	if ing.Kind != types.CatalogFixed {
		name = string(ing.Kind) + ":" + ing.ID
	}
	if ing.Quantity > 1 {
		return fmt.Sprintf("%dx %s", ing.Quantity, name)
	}
	return name
}
