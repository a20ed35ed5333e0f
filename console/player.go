package console

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/types"
)

// Player is a simulated actor driven from the console. Its id is derived
// from the name, so the same name maps to the same stored record across
// runs.
type Player struct {
	id   uuid.UUID
	name string

	mu    sync.RWMutex
	level int
	perms map[string]bool
	env   types.Environment
}

// PlayerID returns the stable id for a player name.
func PlayerID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("brewcore:"+strings.ToLower(name)))
}

// NewPlayer creates a player at level 0 in the overworld.
func NewPlayer(name string) *Player {
	return &Player{
		id:    PlayerID(name),
		name:  name,
		perms: map[string]bool{},
		env:   types.Environment{World: "world", Biome: "PLAINS", Time: 6000, Y: 64},
	}
}

func (p *Player) ID() uuid.UUID { return p.id }
func (p *Player) Name() string  { return p.name }

func (p *Player) Level() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

// HasPermission honours "*" and "prefix.*" grants.
func (p *Player) HasPermission(node string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.perms["*"] || p.perms[node] {
		return true
	}
	for i := strings.LastIndex(node, "."); i > 0; i = strings.LastIndex(node[:i], ".") {
		if p.perms[node[:i]+".*"] {
			return true
		}
	}
	return false
}

// SetLevel changes the player's level.
func (p *Player) SetLevel(n int) {
	p.mu.Lock()
	p.level = n
	p.mu.Unlock()
}

// Grant adds a permission node.
func (p *Player) Grant(node string) {
	p.mu.Lock()
	p.perms[node] = true
	p.mu.Unlock()
}

// Revoke removes a permission node.
func (p *Player) Revoke(node string) {
	p.mu.Lock()
	delete(p.perms, node)
	p.mu.Unlock()
}

// Permissions returns the granted nodes, sorted.
func (p *Player) Permissions() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.perms))
	for n := range p.perms {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Env returns the player's current surroundings.
func (p *Player) Env() types.Environment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.env
}

// SetEnv replaces the player's surroundings.
func (p *Player) SetEnv(env types.Environment) {
	p.mu.Lock()
	p.env = env
	p.mu.Unlock()
}
