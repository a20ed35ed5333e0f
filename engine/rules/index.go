package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/nathoo/brewcore/types"
)

// Index holds the loaded rules. Load swaps the whole index atomically;
// lookups in flight keep reading the snapshot they started with.
type Index struct {
	matcher Matcher
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	ordered []*types.Rule
	byID    map[string]*types.Rule
	byBase  map[string][]*types.Rule
}

// NewIndex creates an empty index using the given matcher.
func NewIndex(m Matcher) *Index {
	ix := &Index{matcher: m}
	ix.current.Store(&snapshot{
		byID:   map[string]*types.Rule{},
		byBase: map[string][]*types.Rule{},
	})
	return ix
}

// ValidateRule checks the construction invariants of a rule.
func ValidateRule(r types.Rule) error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("rule id is empty"))
	}
	if r.Base == "" {
		errs = append(errs, fmt.Errorf("rule %q has no base", r.ID))
	}
	if r.Ingredient.ID == "" {
		errs = append(errs, fmt.Errorf("rule %q has no ingredient", r.ID))
	}
	if r.Ingredient.Quantity < 1 {
		errs = append(errs, fmt.Errorf("rule %q ingredient quantity %d < 1", r.ID, r.Ingredient.Quantity))
	}
	if r.Duration < 1 {
		errs = append(errs, fmt.Errorf("rule %q duration %d < 1", r.ID, r.Duration))
	}
	return errors.Join(errs...)
}

// Load replaces the index with defs, preserving their order. A rule that
// violates its invariants rejects the whole load and the previous index stays
// in place. Duplicate ids and rules an earlier rule for the same base would
// always match first are reported as warnings; the first loaded rule wins.
func (ix *Index) Load(defs []types.Rule) ([]string, error) {
	for _, r := range defs {
		if err := ValidateRule(r); err != nil {
			return nil, err
		}
	}

	var warnings []string
	next := &snapshot{
		byID:   make(map[string]*types.Rule, len(defs)),
		byBase: map[string][]*types.Rule{},
	}
	for i := range defs {
		r := defs[i]
		if _, dup := next.byID[r.ID]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate rule id %q ignored", r.ID))
			continue
		}
		r.SourceOrder = len(next.ordered)

		key := baseKey(r.Base)
		for _, other := range next.byBase[key] {
			if Shadows(other.Ingredient, r.Ingredient) {
				warnings = append(warnings, fmt.Sprintf(
					"rule %q shadowed by %q (same base %s and ingredient %s)",
					r.ID, other.ID, r.Base, DescribeIngredient(r.Ingredient)))
				break
			}
		}

		rp := &r
		next.ordered = append(next.ordered, rp)
		next.byID[r.ID] = rp
		next.byBase[key] = append(next.byBase[key], rp)
	}

	ix.current.Store(next)
	return warnings, nil
}

// Match returns the first rule, in load order, for base whose ingredient
// matches item, or nil.
func (ix *Index) Match(base string, item types.Item) *types.Rule {
	snap := ix.current.Load()
	for _, r := range snap.byBase[baseKey(base)] {
		if ix.matcher.MatchesIngredient(r.Ingredient, item) {
			return r
		}
	}
	return nil
}

// Get returns the rule with the given id.
func (ix *Index) Get(id string) (*types.Rule, bool) {
	r, ok := ix.current.Load().byID[id]
	return r, ok
}

// All returns every rule in load order.
func (ix *Index) All() []*types.Rule {
	snap := ix.current.Load()
	out := make([]*types.Rule, len(snap.ordered))
	copy(out, snap.ordered)
	return out
}

// IDs returns every rule id in load order.
func (ix *Index) IDs() []string {
	snap := ix.current.Load()
	ids := make([]string, len(snap.ordered))
	for i, r := range snap.ordered {
		ids[i] = r.ID
	}
	return ids
}

// Len returns the number of loaded rules.
func (ix *Index) Len() int {
	return len(ix.current.Load().ordered)
}

func baseKey(base string) string {
	return strings.ToUpper(strings.TrimSpace(base))
}
