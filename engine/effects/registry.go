package effects

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/nathoo/brewcore/logging"
	"github.com/nathoo/brewcore/types"
)

// Backend is the durable storage for the pending effect collection.
type Backend interface {
	LoadEffects() (map[uuid.UUID][]types.PendingEffect, error)
	SaveEffects(effects map[uuid.UUID][]types.PendingEffect) error
}

// Presence reports which actors are currently reachable.
type Presence interface {
	Online(id uuid.UUID) (types.Actor, bool)
}

// Runner executes expanded actions for an actor.
type Runner interface {
	Run(actor types.Actor, actions []types.Action)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(actor types.Actor, actions []types.Action)

// Run calls f.
func (f RunnerFunc) Run(actor types.Actor, actions []types.Action) { f(actor, actions) }

// Registry tracks pending timed effects per actor. It is safe for
// concurrent use; the periodic sweep iterates a snapshot and applies
// removals afterwards.
type Registry struct {
	backend  Backend
	presence Presence
	runner   Runner
	log      logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	effects map[uuid.UUID][]*types.PendingEffect

	saveMu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Registry) { r.log = logging.OrNoOp(l) }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry. Call Load to restore persisted
// effects.
func NewRegistry(backend Backend, presence Presence, runner Runner, opts ...Option) *Registry {
	r := &Registry{
		backend:  backend,
		presence: presence,
		runner:   runner,
		log:      logging.NoOp(),
		now:      time.Now,
		effects:  map[uuid.UUID][]*types.PendingEffect{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the registry contents with the persisted collection.
// Entries already marked expired are dropped. A backend failure leaves the
// registry empty and is logged.
func (r *Registry) Load() {
	loaded := map[uuid.UUID][]types.PendingEffect{}
	if r.backend != nil {
		var err error
		loaded, err = r.backend.LoadEffects()
		if err != nil {
			r.log.Warnf("loading pending effects failed, starting empty: %v", err)
			loaded = nil
		}
	}

	r.mu.Lock()
	r.effects = map[uuid.UUID][]*types.PendingEffect{}
	n := 0
	for id, list := range loaded {
		for i := range list {
			e := list[i]
			if e.Expired {
				continue
			}
			e.Actor = id
			r.effects[id] = append(r.effects[id], &e)
			n++
		}
	}
	r.mu.Unlock()
	r.log.Debugf("restored %d pending effects", n)
}

// Register adds a pending effect for an actor and persists the collection.
func (r *Registry) Register(actorID uuid.UUID, ruleID, label string, d time.Duration, onExpire []string) types.PendingEffect {
	now := r.now()
	e := &types.PendingEffect{
		ID:       ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Actor:    actorID,
		RuleID:   ruleID,
		Label:    label,
		Started:  now,
		Duration: d,
		OnExpire: append([]string(nil), onExpire...),
	}
	r.mu.Lock()
	r.effects[actorID] = append(r.effects[actorID], e)
	out := *e
	r.mu.Unlock()

	r.persist()
	return out
}

// IsExpired reports whether an effect has run its course at now.
func IsExpired(e *types.PendingEffect, now time.Time) bool {
	return e.Expired || now.Sub(e.Started) >= e.Duration
}

// MarkExpired flags the effect as expired. It returns true only on the first
// call.
func MarkExpired(e *types.PendingEffect) bool {
	if e.Expired {
		return false
	}
	e.Expired = true
	return true
}

type dueEffect struct {
	actor  types.Actor
	effect *types.PendingEffect
}

// Sweep fires every expired effect whose actor is online and returns how
// many fired. Effects of offline actors stay pending until CheckActor.
func (r *Registry) Sweep() int {
	now := r.now()

	if r.presence == nil {
		return 0
	}

	r.mu.Lock()
	var expired []*types.PendingEffect
	for _, list := range r.effects {
		for _, e := range list {
			if IsExpired(e, now) {
				expired = append(expired, e)
			}
		}
	}
	r.mu.Unlock()

	var due []dueEffect
	for _, e := range expired {
		actor, ok := r.presence.Online(e.Actor)
		if !ok {
			continue
		}
		due = append(due, dueEffect{actor: actor, effect: e})
	}
	return r.fire(due)
}

// CheckActor fires the actor's expired effects immediately. Hosts call it
// when an actor reconnects.
func (r *Registry) CheckActor(actor types.Actor) int {
	if actor == nil {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	var due []dueEffect
	for _, e := range r.effects[actor.ID()] {
		if IsExpired(e, now) {
			due = append(due, dueEffect{actor: actor, effect: e})
		}
	}
	r.mu.Unlock()

	return r.fire(due)
}

func (r *Registry) fire(due []dueEffect) int {
	if len(due) == 0 {
		return 0
	}
	fired := 0
	for _, d := range due {
		r.mu.Lock()
		first := MarkExpired(d.effect)
		r.removeLocked(d.effect)
		r.mu.Unlock()
		if !first {
			continue
		}
		fired++
		if r.runner != nil {
			vars := Vars{
				Player:   d.actor.Name(),
				UUID:     d.actor.ID().String(),
				RuleID:   d.effect.RuleID,
				RuleName: d.effect.Label,
			}
			r.runner.Run(d.actor, Expand(d.effect.OnExpire, vars))
		}
	}
	r.persist()
	return fired
}

func (r *Registry) removeLocked(e *types.PendingEffect) {
	list := r.effects[e.Actor]
	for i, cur := range list {
		if cur == e {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.effects, e.Actor)
		return
	}
	r.effects[e.Actor] = list
}

// persist writes a snapshot of the collection. Failures are logged.
func (r *Registry) persist() {
	if r.backend == nil {
		return
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	if err := r.backend.SaveEffects(r.Snapshot()); err != nil {
		r.log.Errorf("saving pending effects: %v", err)
	}
}

// Snapshot returns a copy of every pending effect keyed by actor.
func (r *Registry) Snapshot() map[uuid.UUID][]types.PendingEffect {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID][]types.PendingEffect, len(r.effects))
	for id, list := range r.effects {
		copied := make([]types.PendingEffect, len(list))
		for i, e := range list {
			copied[i] = *e
			copied[i].OnExpire = append([]string(nil), e.OnExpire...)
		}
		out[id] = copied
	}
	return out
}

// Active returns the actor's pending effects ordered by start time.
func (r *Registry) Active(actorID uuid.UUID) []types.PendingEffect {
	r.mu.Lock()
	out := make([]types.PendingEffect, 0, len(r.effects[actorID]))
	for _, e := range r.effects[actorID] {
		out = append(out, *e)
	}
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// Remaining returns the time left on the actor's effect for ruleID. When
// several are pending the longest remaining one is reported.
func (r *Registry) Remaining(actorID uuid.UUID, ruleID string) (time.Duration, bool) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	var best time.Duration
	found := false
	for _, e := range r.effects[actorID] {
		if e.RuleID != ruleID {
			continue
		}
		left := e.Duration - now.Sub(e.Started)
		if left < 0 {
			left = 0
		}
		if !found || left > best {
			best, found = left, true
		}
	}
	return best, found
}

// Len returns the number of pending effects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, list := range r.effects {
		n += len(list)
	}
	return n
}

// FormatRemaining renders a duration as m:ss.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
