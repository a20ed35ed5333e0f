// Package loader reads YAML definition documents into engine definitions.
// Each entry is checked against a JSON Schema before it is decoded; an entry
// that fails is skipped and reported while the rest of the document loads.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/brewcore/engine"
	"github.com/nathoo/brewcore/engine/chain"
	"github.com/nathoo/brewcore/logging"
	"github.com/nathoo/brewcore/types"
)

// Top-level document sections.
const (
	sectionRecipes      = "recipes"
	sectionDiscovery    = "discovery"
	sectionAchievements = "achievements"
	sectionChains       = "brewing-chains"
	sectionSpeeds       = "brewing-speeds"
)

// ValidationError collects the entries that were skipped (Errors) and the
// problems that did not prevent loading (Warnings).
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Empty reports whether nothing was recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Errors) == 0 && len(e.Warnings) == 0
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Load reads and parses the definition document at path. The error is
// non-nil only when the file cannot be read or is not a YAML mapping;
// per-entry problems are returned in the ValidationError.
func Load(path string, log logging.Logger) (*engine.Definitions, *ValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading definitions %s: %w", path, err)
	}
	defs, ve, err := Parse(data, log)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return defs, ve, nil
}

// Parse decodes a definition document.
func Parse(data []byte, log logging.Logger) (*engine.Definitions, *ValidationError, error) {
	log = logging.OrNoOp(log)
	if _, err := compileSchemas(); err != nil {
		return nil, nil, err
	}

	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return engine.DefaultDefinitions(), &ValidationError{}, nil
		}
		return nil, nil, err
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("line %d: definition document must be a mapping", root.Line)
	}

	defs := engine.DefaultDefinitions()
	ve := &ValidationError{}
	c := compiler{defs: defs, ve: ve}

	if n := lookup(root, sectionRecipes); n != nil {
		c.recipes(n)
	}
	known := map[string]bool{}
	for _, r := range defs.Rules {
		known[r.ID] = true
	}
	c.known = known

	if n := lookup(root, sectionSpeeds); n != nil {
		c.speeds(n)
	}
	if n := lookup(root, sectionDiscovery); n != nil {
		c.discovery(n)
	}
	if n := lookup(root, sectionAchievements); n != nil {
		c.achievements(n)
	}
	if n := lookup(root, sectionChains); n != nil {
		c.chains(n)
	}

	for _, e := range ve.Errors {
		log.Warnf("skipped: %s", e)
	}
	for _, w := range ve.Warnings {
		log.Warnf("%s", w)
	}
	log.Debugf("parsed %d recipes, %d achievements, %d chains",
		len(defs.Rules), len(defs.AchievementList), len(defs.ChainList))
	return defs, ve, nil
}

// lookup returns the value node for key in a mapping node.
func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// entries returns the key/value pairs of a mapping node in document order.
func entries(m *yaml.Node) [][2]*yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	out := make([][2]*yaml.Node, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		out = append(out, [2]*yaml.Node{m.Content[i], m.Content[i+1]})
	}
	return out
}

func boolField(m *yaml.Node, key string, def bool) (bool, error) {
	n := lookup(m, key)
	if n == nil {
		return def, nil
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func stringField(m *yaml.Node, key string) string {
	n := lookup(m, key)
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

// decodeEntry validates n against a schema, then decodes it into out.
func decodeEntry(schema string, n *yaml.Node, out any) error {
	if err := validateNode(schema, n); err != nil {
		return err
	}
	return n.Decode(out)
}

// settingsFlags reads the enabled and show-notifications flags of a section.
func (c *compiler) settingsFlags(section string, n *yaml.Node, defEnabled bool) (enabled, notify bool) {
	enabled, err := boolField(n, "enabled", defEnabled)
	if err != nil {
		c.ve.errorf("%s: %v", section, err)
	}
	notify, err = boolField(n, "show-notifications", true)
	if err != nil {
		c.ve.errorf("%s: %v", section, err)
	}
	return enabled, notify
}

func (c *compiler) speeds(n *yaml.Node) {
	var d speedsDoc
	if err := decodeEntry(schemaSpeeds, n, &d); err != nil {
		c.ve.errorf("%s: %v", sectionSpeeds, err)
		return
	}
	s := c.defs.Speed
	if d.Enabled != nil {
		s.Enabled = *d.Enabled
	}
	if d.Global != nil {
		s.Global = *d.Global
	}
	s.Rules = d.Recipes
	s.Permissions = d.Permissions
	if len(d.Biomes) > 0 {
		s.Biomes = make(map[string]float64, len(d.Biomes))
		for k, v := range d.Biomes {
			s.Biomes[strings.ToUpper(k)] = v
		}
	}
	for id := range d.Recipes {
		if !c.known[id] {
			c.ve.warnf("%s: recipe multiplier for unknown recipe %q", sectionSpeeds, id)
		}
	}
	c.defs.Speed = s
}

func (c *compiler) discovery(n *yaml.Node) {
	s := &c.defs.Discovery
	s.Enabled, s.Notify = c.settingsFlags(sectionDiscovery, n, true)
	s.Methods = map[string]types.DiscoveryMethod{}
	for _, kv := range entries(lookup(n, "methods")) {
		id := kv[0].Value
		var d methodDoc
		if err := decodeEntry(schemaDiscovery, kv[1], &d); err != nil {
			c.ve.errorf("discovery method %q: %v", id, err)
			continue
		}
		m, err := compileMethod(d)
		if err != nil {
			c.ve.errorf("discovery method %q: %v", id, err)
			continue
		}
		if !c.known[id] {
			c.ve.warnf("discovery method for unknown recipe %q", id)
		}
		s.Methods[id] = m
	}
}

func (c *compiler) achievements(n *yaml.Node) {
	s := &c.defs.Achievements
	s.Enabled, s.Notify = c.settingsFlags(sectionAchievements, n, true)
	for _, kv := range entries(lookup(n, "list")) {
		id := kv[0].Value
		var d achievementDoc
		if err := decodeEntry(schemaAchievement, kv[1], &d); err != nil {
			c.ve.errorf("achievement %q: %v", id, err)
			continue
		}
		a, err := compileAchievement(id, d)
		if err != nil {
			c.ve.errorf("achievement %q: %v", id, err)
			continue
		}
		if a.TargetRecipe != "" && !c.known[a.TargetRecipe] {
			c.ve.warnf("achievement %q targets unknown recipe %q", id, a.TargetRecipe)
		}
		for _, r := range a.TargetRecipes {
			if !c.known[r] {
				c.ve.warnf("achievement %q targets unknown recipe %q", id, r)
			}
		}
		c.defs.AchievementList = append(c.defs.AchievementList, a)
	}
}

func (c *compiler) chains(n *yaml.Node) {
	s := &c.defs.Chains
	s.Enabled, s.Notify = c.settingsFlags(sectionChains, n, true)
	if p := stringField(n, "out-of-order"); p != "" {
		s.OutOfOrder = chain.ParsePolicy(strings.ToLower(p))
	}
	for _, kv := range entries(lookup(n, "chains")) {
		id := kv[0].Value
		var d chainDoc
		if err := decodeEntry(schemaChain, kv[1], &d); err != nil {
			c.ve.errorf("chain %q: %v", id, err)
			continue
		}
		ch, err := compileChain(id, d)
		if err != nil {
			c.ve.errorf("chain %q: %v", id, err)
			continue
		}
		for _, step := range ch.Steps {
			if !c.known[step.RuleID] {
				c.ve.warnf("chain %q step references unknown recipe %q", id, step.RuleID)
			}
		}
		c.defs.ChainList = append(c.defs.ChainList, ch)
	}
}
