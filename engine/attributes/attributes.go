// Package attributes provides external attribute sources for attribute
// conditions.
package attributes

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/types"
)

// Source resolves a named attribute for an actor.
type Source interface {
	Resolve(actor types.Actor, name string) (string, bool)
}

// Chain asks each source in turn and returns the first hit.
type Chain []Source

// Resolve implements Source.
func (c Chain) Resolve(actor types.Actor, name string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Resolve(actor, name); ok {
			return v, true
		}
	}
	return "", false
}

// Static holds fixed attribute values, either global or per actor. Per-actor
// values take precedence.
type Static struct {
	mu       sync.RWMutex
	global   map[string]string
	perActor map[uuid.UUID]map[string]string
}

// NewStatic creates an empty static source.
func NewStatic() *Static {
	return &Static{global: map[string]string{}, perActor: map[uuid.UUID]map[string]string{}}
}

// Set stores a global value.
func (s *Static) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global[name] = value
}

// SetFor stores a value for one actor.
func (s *Static) SetFor(id uuid.UUID, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.perActor[id]
	if m == nil {
		m = map[string]string{}
		s.perActor[id] = m
	}
	m[name] = value
}

// Unset removes a global value and every per-actor value for name.
func (s *Static) Unset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.global, name)
	for _, m := range s.perActor {
		delete(m, name)
	}
}

// Resolve implements Source.
func (s *Static) Resolve(actor types.Actor, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if actor != nil {
		if v, ok := s.perActor[actor.ID()][name]; ok {
			return v, true
		}
	}
	v, ok := s.global[name]
	return v, ok
}

// Names returns the global attribute names, sorted.
func (s *Static) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.global))
	for n := range s.global {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
