package rules

import (
	"testing"

	"github.com/nathoo/brewcore/types"
)

func TestParseIngredient(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Ingredient
		wantErr bool
	}{
		{"blaze_powder", types.Ingredient{Kind: types.CatalogFixed, ID: "BLAZE_POWDER", Quantity: 1}, false},
		{"GLOWSTONE_DUST:3", types.Ingredient{Kind: types.CatalogFixed, ID: "GLOWSTONE_DUST", Quantity: 3}, false},
		{"mythic:DragonScale", types.Ingredient{Kind: types.CatalogMythic, ID: "DragonScale", Quantity: 1}, false},
		{"crucible:moon_petal:2", types.Ingredient{Kind: types.CatalogCrucible, ID: "moon_petal", Quantity: 2}, false},
		{"", types.Ingredient{}, true},
		{"mythic:", types.Ingredient{}, true},
		{"SUGAR:0", types.Ingredient{}, true},
		{"SUGAR:x", types.Ingredient{}, true},
		{"a:b:c:d", types.Ingredient{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIngredient(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIngredient(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseIngredient(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchesIngredient(t *testing.T) {
	fixed := types.Ingredient{Kind: types.CatalogFixed, ID: "BLAZE_POWDER", Quantity: 2}
	mythic := types.Ingredient{Kind: types.CatalogMythic, ID: "DragonScale", Quantity: 1}

	withMythic := NewMatcher(Catalogs{types.CatalogMythic: true})
	noCatalogs := NewMatcher(nil)

	tests := []struct {
		name    string
		matcher Matcher
		ing     types.Ingredient
		item    types.Item
		want    bool
	}{
		{"fixed exact", noCatalogs, fixed, types.Item{Material: "blaze_powder", Amount: 2}, true},
		{"fixed too few", noCatalogs, fixed, types.Item{Material: "BLAZE_POWDER", Amount: 1}, false},
		{"fixed wrong material", noCatalogs, fixed, types.Item{Material: "SUGAR", Amount: 5}, false},
		{"zero amount counts as one", noCatalogs, types.Ingredient{Kind: types.CatalogFixed, ID: "SUGAR", Quantity: 1}, types.Item{Material: "SUGAR"}, true},
		{"mythic available", withMythic, mythic, types.Item{Material: "PAPER", Amount: 1, External: map[types.IngredientKind]string{types.CatalogMythic: "DragonScale"}}, true},
		{"mythic wrong id", withMythic, mythic, types.Item{Amount: 1, External: map[types.IngredientKind]string{types.CatalogMythic: "Other"}}, false},
		{"mythic unavailable fails closed", noCatalogs, mythic, types.Item{Amount: 1, External: map[types.IngredientKind]string{types.CatalogMythic: "DragonScale"}}, false},
		{"mythic plain item", withMythic, mythic, types.Item{Material: "PAPER", Amount: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matcher.MatchesIngredient(tt.ing, tt.item); got != tt.want {
				t.Errorf("MatchesIngredient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameIngredient(t *testing.T) {
	a := types.Ingredient{Kind: types.CatalogFixed, ID: "SUGAR", Quantity: 1}
	if !SameIngredient(a, types.Ingredient{Kind: types.CatalogFixed, ID: "sugar", Quantity: 1}) {
		t.Error("fixed ingredients should compare case-insensitively")
	}
	if SameIngredient(a, types.Ingredient{Kind: types.CatalogFixed, ID: "SUGAR", Quantity: 2}) {
		t.Error("different quantities should not be equal")
	}
	if SameIngredient(a, types.Ingredient{Kind: types.CatalogMythic, ID: "SUGAR", Quantity: 1}) {
		t.Error("different kinds should not be equal")
	}
}

func TestDescribeIngredient(t *testing.T) {
	tests := []struct {
		ing  types.Ingredient
		want string
	}{
		{types.Ingredient{Kind: types.CatalogFixed, ID: "SUGAR", Quantity: 1}, "SUGAR"},
		{types.Ingredient{Kind: types.CatalogFixed, ID: "SUGAR", Quantity: 3}, "3x SUGAR"},
		{types.Ingredient{Kind: types.CatalogCrucible, ID: "moon_petal", Quantity: 1}, "crucible:moon_petal"},
	}
	for _, tt := range tests {
		if got := DescribeIngredient(tt.ing); got != tt.want {
			t.Errorf("DescribeIngredient() = %q, want %q", got, tt.want)
		}
	}
}

func TestShadows(t *testing.T) {
	ing := func(kind types.IngredientKind, id string, qty int) types.Ingredient {
		return types.Ingredient{Kind: kind, ID: id, Quantity: qty}
	}
	tests := []struct {
		earlier, later types.Ingredient
		want           bool
	}{
		{ing(types.CatalogFixed, "SUGAR", 1), ing(types.CatalogFixed, "sugar", 1), true},
		{ing(types.CatalogFixed, "SUGAR", 1), ing(types.CatalogFixed, "SUGAR", 3), true},
		{ing(types.CatalogFixed, "SUGAR", 3), ing(types.CatalogFixed, "SUGAR", 1), false},
		{ing(types.CatalogFixed, "SUGAR", 1), ing(types.CatalogMythic, "SUGAR", 1), false},
		{ing(types.CatalogMythic, "orb", 1), ing(types.CatalogMythic, "ORB", 1), false},
	}
	for _, tt := range tests {
		if got := Shadows(tt.earlier, tt.later); got != tt.want {
			t.Errorf("Shadows(%+v, %+v) = %v, want %v", tt.earlier, tt.later, got, tt.want)
		}
	}
}
