package event

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/randalmurphal/modkit/pkg/modkit/container"
	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/observability"
)

// Registry holds event types and their listener groups.
type Registry struct {
	types  []*Type
	byName map[string]*Type

	// groups is indexed by type index; each slice is in creation order.
	groups [][]*Group

	handlerIDs map[*Handler]uint64
	nextID     uint64

	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for listener and dispatch logging.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder for posts.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty event registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byName:     make(map[string]*Type),
		handlerIDs: make(map[*Handler]uint64),
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = observability.EnrichLogger(r.logger, "event")
	return r
}

// RegisterType registers a new event type and returns its poster.
// Registering a name twice is a configuration error and leaves the registry
// unchanged.
func (r *Registry) RegisterType(name string, opts ...TypeOption) (*Poster, error) {
	if name == "" {
		return nil, errors.Configuration("event type", "name is required")
	}
	if _, exists := r.byName[name]; exists {
		return nil, errors.Configuration(name, "event type already registered")
	}

	t := &Type{name: name, index: len(r.types), owner: r}
	for _, opt := range opts {
		opt(t)
	}
	if t.parent != nil && t.parent.owner != r {
		return nil, errors.Configuration(name, "parent %s belongs to another registry", t.parent.name)
	}

	r.types = append(r.types, t)
	r.byName[name] = t
	r.groups = append(r.groups, nil)
	return &Poster{registry: r, typ: t}, nil
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Types returns all registered types in index order.
func (r *Registry) Types() []*Type {
	return slices.Clone(r.types)
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}

// Groups returns the listener groups for t in creation order.
func (r *Registry) Groups(t *Type) []*Group {
	if !r.owns(t) {
		return nil
	}
	return slices.Clone(r.groups[t.index])
}

// GroupCount returns the number of listener groups for t.
func (r *Registry) GroupCount(t *Type) int {
	if !r.owns(t) {
		return 0
	}
	return len(r.groups[t.index])
}

// AddListener adds l to the group matching its eligible handlers for t,
// creating the group when none matches. Adding a listener that is already a
// member is a no-op.
func (r *Registry) AddListener(l Listener, t *Type) error {
	if !r.owns(t) {
		return errors.Configuration(fmt.Sprintf("%T", l), "event type %v is not registered", t)
	}

	sig := signature(l, t)
	if len(sig) == 0 {
		return errors.Configuration(fmt.Sprintf("%T", l), "no handler accepts event type %s", t.name)
	}

	key := r.fingerprint(sig)
	if g := r.findGroup(t, key, sig); g != nil {
		if !g.contains(l) {
			g.add(l)
			observability.LogListenerAdded(r.logger, t.name, fmt.Sprintf("%T", l), false)
		}
		return nil
	}

	for _, h := range sig {
		if err := h.validate(t); err != nil {
			return &errors.ConfigurationError{
				Unit:   fmt.Sprintf("%T", l),
				Reason: "invalid handler for event type " + t.name,
				Err:    err,
			}
		}
	}

	g := newGroup(t, sig, key)
	g.add(l)
	r.groups[t.index] = append(r.groups[t.index], g)
	observability.LogListenerAdded(r.logger, t.name, fmt.Sprintf("%T", l), true)
	return nil
}

// RemoveListener removes l from the group matching its handlers for t.
// Empty groups are kept. Returns whether l was removed.
func (r *Registry) RemoveListener(l Listener, t *Type) bool {
	if !r.owns(t) {
		return false
	}
	sig := signature(l, t)
	if len(sig) == 0 {
		return false
	}
	g := r.findGroup(t, r.fingerprint(sig), sig)
	if g == nil {
		return false
	}
	return g.remove(l)
}

// Post dispatches evt to every group registered for t.
//
// Groups run in creation order, members in join order, handlers in
// declaration order. The first failure aborts the post.
func (r *Registry) Post(t *Type, evt any) error {
	if !r.owns(t) {
		return errors.Configuration("post", "event type %v is not registered", t)
	}

	invoked, err := r.dispatch(t, evt)
	r.metrics.RecordPost(context.Background(), t.name, invoked, err)
	if err != nil {
		observability.LogPostError(r.logger, t.name, err)
	}
	return err
}

func (r *Registry) dispatch(t *Type, evt any) (int, error) {
	stage := "post " + t.name
	if err := errors.Invoke(t.name+" validator", stage, func() error { return t.Validate(evt) }); err != nil {
		return 0, err
	}

	// Member arrays are replaced, never written, so capturing them up front
	// pins the membership this post sees.
	groups := r.groups[t.index]
	snapshot := make([]*container.Array[Listener], len(groups))
	for i, g := range groups {
		snapshot[i] = g.members
	}

	invoked := 0
	for gi, g := range groups {
		members := snapshot[gi]
		for i := 0; i < members.Len(); i++ {
			l := members.Get(i)
			for _, h := range g.handlers {
				invoked++
				if err := errors.Invoke(h.Name, stage, func() error { return h.Fn(l, evt) }); err != nil {
					return invoked, err
				}
			}
		}
	}
	return invoked, nil
}

func (r *Registry) owns(t *Type) bool {
	return t != nil && t.owner == r
}

func (r *Registry) findGroup(t *Type, key uint64, sig []*Handler) *Group {
	for _, g := range r.groups[t.index] {
		if g.matches(key, sig) {
			return g
		}
	}
	return nil
}

// fingerprint hashes the sorted identities of sig so that handler order
// does not matter.
func (r *Registry) fingerprint(sig []*Handler) uint64 {
	ids := make([]uint64, len(sig))
	for i, h := range sig {
		id, ok := r.handlerIDs[h]
		if !ok {
			r.nextID++
			id = r.nextID
			r.handlerIDs[h] = id
		}
		ids[i] = id
	}
	slices.Sort(ids)

	d := xxhash.New()
	var buf [8]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf[:], id)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// signature returns the eligible handlers of l for t, deduplicated, in
// declaration order.
func signature(l Listener, t *Type) []*Handler {
	if l == nil {
		return nil
	}
	var sig []*Handler
	seen := make(map[*Handler]struct{})
	for _, h := range l.Handlers() {
		if h == nil || !h.eligible(t) {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		sig = append(sig, h)
	}
	return sig
}

// Poster posts payloads of one registered type.
type Poster struct {
	registry *Registry
	typ      *Type
}

// Type returns the event type.
func (p *Poster) Type() *Type {
	return p.typ
}

// Post dispatches evt through the owning registry.
func (p *Poster) Post(evt any) error {
	return p.registry.Post(p.typ, evt)
}
