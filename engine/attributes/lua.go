package attributes

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/brewcore/types"
)

// LuaSource resolves attributes through functions registered by a Lua
// script:
//
//	attribute("guild_rank", function(actor)
//	  if actor.has_permission("guild.officer") then return "officer" end
//	  return "member"
//	end)
//
// The VM is sandboxed and guarded by a mutex; calls are serialized.
type LuaSource struct {
	mu        sync.Mutex
	L         *lua.LState
	providers map[string]*lua.LFunction
}

// LoadLua runs the script at path and returns the attributes it registers.
func LoadLua(path string) (*LuaSource, error) {
	s := newLuaSource()
	if err := s.L.DoFile(path); err != nil {
		s.L.Close()
		return nil, fmt.Errorf("executing attribute script %s: %w", path, err)
	}
	return s, nil
}

// NewLua runs script source and returns the attributes it registers.
func NewLua(script string) (*LuaSource, error) {
	s := newLuaSource()
	if err := s.L.DoString(script); err != nil {
		s.L.Close()
		return nil, fmt.Errorf("executing attribute script: %w", err)
	}
	return s, nil
}

func newLuaSource() *LuaSource {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	s := &LuaSource{L: L, providers: map[string]*lua.LFunction{}}
	L.SetGlobal("attribute", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		s.providers[name] = fn
		return 0
	}))
	return s
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the VM.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}
}

// Names returns the registered attribute names, sorted.
func (s *LuaSource) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.providers))
	for n := range s.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve implements Source. A script error or a nil return counts as
// unresolved.
func (s *LuaSource) Resolve(actor types.Actor, name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn, ok := s.providers[name]
	if !ok {
		return "", false
	}
	if err := s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, s.actorTable(actor)); err != nil {
		return "", false
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	switch v := ret.(type) {
	case *lua.LNilType:
		return "", false
	case lua.LBool:
		return strconv.FormatBool(bool(v)), true
	case lua.LNumber:
		return strconv.FormatFloat(float64(v), 'f', -1, 64), true
	case lua.LString:
		return string(v), true
	default:
		return ret.String(), true
	}
}

func (s *LuaSource) actorTable(actor types.Actor) lua.LValue {
	if actor == nil {
		return lua.LNil
	}
	L := s.L
	t := L.NewTable()
	t.RawSetString("id", lua.LString(actor.ID().String()))
	t.RawSetString("name", lua.LString(actor.Name()))
	t.RawSetString("level", lua.LNumber(actor.Level()))
	t.RawSetString("has_permission", L.NewFunction(func(L *lua.LState) int {
		// Accept both actor.has_permission(node) and actor:has_permission(node).
		arg := 1
		if L.Get(1).Type() == lua.LTTable {
			arg = 2
		}
		L.Push(lua.LBool(actor.HasPermission(L.CheckString(arg))))
		return 1
	}))
	return t
}

// Close releases the VM.
func (s *LuaSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}
