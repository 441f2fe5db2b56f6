package inherit

import (
	"fmt"

	"github.com/randalmurphal/modkit/pkg/modkit/container"
	"github.com/randalmurphal/modkit/pkg/modkit/errors"
)

// Resolver resolves and caches inheritance nodes for keys of type K whose
// declared functions map I to O.
//
// Resolver is NOT thread-safe.
type Resolver[K comparable, I, O any] struct {
	parents  func(K) []K
	priority func(K) (K, bool)
	lookup   func(K) (Func[I, O], bool)

	declared map[K]Func[I, O]
	nodes    map[K]*Node[K, I, O]
	building map[K]bool
}

// Option configures a Resolver.
type Option[K comparable, I, O any] func(*Resolver[K, I, O])

// WithPriority sets the tie-break mapping consulted when two parents of a
// key are ambiguous. If the returned key names one of the conflicting
// parents, or the node declaring its function, that parent wins.
func WithPriority[K comparable, I, O any](priority func(K) (K, bool)) Option[K, I, O] {
	return func(r *Resolver[K, I, O]) {
		r.priority = priority
	}
}

// WithLookup installs a caller-owned declaration source consulted for keys
// that were not declared through Declare. The resolver does not observe
// changes to it; call ClearCache after mutating it.
func WithLookup[K comparable, I, O any](lookup func(K) (Func[I, O], bool)) Option[K, I, O] {
	return func(r *Resolver[K, I, O]) {
		r.lookup = lookup
	}
}

// New creates a resolver over the DAG described by parents.
// A nil parents function treats every key as a root.
func New[K comparable, I, O any](parents func(K) []K, opts ...Option[K, I, O]) *Resolver[K, I, O] {
	if parents == nil {
		parents = func(K) []K { return nil }
	}
	r := &Resolver[K, I, O]{
		parents:  parents,
		declared: make(map[K]Func[I, O]),
		nodes:    make(map[K]*Node[K, I, O]),
		building: make(map[K]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Declare sets the function declared by key and clears the cache.
// A nil fn is equivalent to Undeclare.
func (r *Resolver[K, I, O]) Declare(key K, fn Func[I, O]) {
	if fn == nil {
		r.Undeclare(key)
		return
	}
	r.declared[key] = fn
	r.ClearCache()
}

// Undeclare removes the function declared by key and clears the cache.
func (r *Resolver[K, I, O]) Undeclare(key K) {
	delete(r.declared, key)
	r.ClearCache()
}

// ClearCache drops every resolved node. Must be called after changing the
// parent function or a WithLookup source.
func (r *Resolver[K, I, O]) ClearCache() {
	clear(r.nodes)
}

// Cached reports whether key currently has a resolved node.
func (r *Resolver[K, I, O]) Cached(key K) bool {
	_, ok := r.nodes[key]
	return ok
}

// Apply resolves key and calls the nearest declared function with in.
// The boolean is false when no function in the chain produced a value.
func (r *Resolver[K, I, O]) Apply(key K, in I) (O, bool, error) {
	node, err := r.Node(key)
	if err != nil {
		var zero O
		return zero, false, err
	}
	out, ok := node.Apply(in)
	return out, ok, nil
}

// Node returns the resolved node for key, building and caching it and its
// ancestors on first use.
func (r *Resolver[K, I, O]) Node(key K) (*Node[K, I, O], error) {
	if n, ok := r.nodes[key]; ok {
		return n, nil
	}
	if r.building[key] {
		return nil, fmt.Errorf("%w: %v", errors.ErrInheritanceCycle, key)
	}
	r.building[key] = true
	defer delete(r.building, key)

	var resolved []*Node[K, I, O]
	for _, pk := range r.parents(key) {
		pn, err := r.Node(pk)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, pn)
	}
	winner, err := r.pick(key, resolved)
	if err != nil {
		return nil, err
	}

	node := &Node[K, I, O]{
		key:    key,
		fn:     r.declaredFor(key),
		parent: winner,
	}
	r.nodes[key] = node
	return node, nil
}

func (r *Resolver[K, I, O]) declaredFor(key K) Func[I, O] {
	if fn, ok := r.declared[key]; ok {
		return fn
	}
	if r.lookup != nil {
		if fn, ok := r.lookup(key); ok {
			return fn
		}
	}
	return nil
}

// pick chooses the winning parent of key. Parents overridden by another
// parent are dropped first, so the outcome does not depend on parent order.
func (r *Resolver[K, I, O]) pick(key K, parents []*Node[K, I, O]) (*Node[K, I, O], error) {
	if len(parents) == 0 {
		return nil, nil
	}

	var declaring []*Node[K, I, O]
	for _, n := range parents {
		if n.Declaring() != nil {
			declaring = append(declaring, n)
		}
	}
	if len(declaring) == 0 {
		return parents[0], nil
	}

	var remaining []*Node[K, I, O]
	for i, n := range declaring {
		if !dominated(declaring, i) {
			remaining = append(remaining, n)
		}
	}
	if len(remaining) == 1 {
		return remaining[0], nil
	}

	if r.priority != nil {
		if target, ok := r.priority(key); ok {
			for _, n := range remaining {
				if n.key == target || n.Declaring().key == target {
					return n, nil
				}
			}
		}
	}

	return nil, &AmbiguousError[K, I, O]{
		Key:      key,
		Conflict: container.MakePair(remaining[0], remaining[1]),
	}
}

// dominated reports whether nodes[i] is overridden by another node, or
// shares its declaration with an earlier one.
func dominated[K comparable, I, O any](nodes []*Node[K, I, O], i int) bool {
	n := nodes[i]
	for j, other := range nodes {
		if j == i || !other.Overrides(n) {
			continue
		}
		if !n.Overrides(other) || j < i {
			return true
		}
	}
	return false
}
