package attributes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/types"
)

type testActor struct {
	id    uuid.UUID
	level int
	perms map[string]bool
}

func (a testActor) ID() uuid.UUID                  { return a.id }
func (a testActor) Name() string                   { return "Alex" }
func (a testActor) HasPermission(node string) bool { return a.perms[node] }
func (a testActor) Level() int                     { return a.level }

var alex = testActor{
	id:    uuid.MustParse("77777777-7777-4777-8777-777777777777"),
	level: 12,
	perms: map[string]bool{"guild.officer": true},
}

const script = `
attribute("guild_rank", function(actor)
  if actor.has_permission("guild.officer") then return "officer" end
  return "member"
end)

attribute("double_level", function(actor)
  return actor.level * 2
end)

attribute("is_veteran", function(actor)
  return actor:has_permission("vet")
end)

attribute("greeting", function(actor)
  return string.format("hi %s", actor.name)
end)

attribute("nothing", function(actor) return nil end)

attribute("broken", function(actor) error("boom") end)
`

func TestLuaSource_Resolve(t *testing.T) {
	src, err := NewLua(script)
	if err != nil {
		t.Fatalf("NewLua() error: %v", err)
	}
	defer src.Close()

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"guild_rank", "officer", true},
		{"double_level", "24", true},
		{"is_veteran", "false", true},
		{"greeting", "hi Alex", true},
		{"nothing", "", false},
		{"broken", "", false},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := src.Resolve(alex, tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if names := src.Names(); len(names) != 6 || names[0] != "broken" {
		t.Errorf("Names() = %v", names)
	}
}

func TestLuaSource_Sandboxed(t *testing.T) {
	for _, s := range []string{
		`dofile("/etc/passwd")`,
		`loadstring("return 1")()`,
		`os.exit(1)`,
		`io.open("x")`,
	} {
		if _, err := NewLua(s); err == nil {
			t.Errorf("NewLua(%q) error = nil, want sandbox error", s)
		}
	}
}

func TestLoadLua_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attrs.lua")
	if err := os.WriteFile(path, []byte(`attribute("tier", function() return "gold" end)`), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := LoadLua(path)
	if err != nil {
		t.Fatalf("LoadLua() error: %v", err)
	}
	defer src.Close()
	if got, ok := src.Resolve(nil, "tier"); !ok || got != "gold" {
		t.Errorf("Resolve(tier) = %q, %v", got, ok)
	}

	if _, err := LoadLua(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("LoadLua(missing) error = nil")
	}
}

func TestStaticAndChain(t *testing.T) {
	s := NewStatic()
	s.Set("season", "winter")
	s.SetFor(alex.id, "season", "summer")

	if got, _ := s.Resolve(alex, "season"); got != "summer" {
		t.Errorf("per-actor Resolve() = %q, want summer", got)
	}
	if got, _ := s.Resolve(nil, "season"); got != "winter" {
		t.Errorf("global Resolve() = %q, want winter", got)
	}

	lua, err := NewLua(`attribute("season", function() return "spring" end)
attribute("moon", function() return "full" end)`)
	if err != nil {
		t.Fatal(err)
	}
	defer lua.Close()

	chain := Chain{s, nil, lua}
	if got, _ := chain.Resolve(nil, "season"); got != "winter" {
		t.Errorf("Chain.Resolve(season) = %q, want winter", got)
	}
	if got, _ := chain.Resolve(nil, "moon"); got != "full" {
		t.Errorf("Chain.Resolve(moon) = %q, want full", got)
	}
	if _, ok := chain.Resolve(nil, "tide"); ok {
		t.Error("Chain.Resolve(tide) ok = true")
	}

	s.Unset("season")
	if got, _ := chain.Resolve(alex, "season"); got != "spring" {
		t.Errorf("after Unset Resolve() = %q, want spring", got)
	}
	var _ types.Actor = alex
}
