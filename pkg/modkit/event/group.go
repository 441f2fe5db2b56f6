package event

import (
	"github.com/randalmurphal/modkit/pkg/modkit/container"
)

// Group is the set of listeners sharing one handler signature for one event
// type. Group identity never changes as members come and go.
type Group struct {
	typ      *Type
	handlers []*Handler
	set      map[*Handler]struct{}
	key      uint64

	// members is replaced, never mutated, so in-flight posts keep their snapshot.
	members *container.Array[Listener]
}

func newGroup(t *Type, sig []*Handler, key uint64) *Group {
	set := make(map[*Handler]struct{}, len(sig))
	for _, h := range sig {
		set[h] = struct{}{}
	}
	return &Group{
		typ:      t,
		handlers: sig,
		set:      set,
		key:      key,
		members:  container.NewArray[Listener](0),
	}
}

// Type returns the event type this group dispatches.
func (g *Group) Type() *Type {
	return g.typ
}

// Handlers returns the handler signature in declaration order.
func (g *Group) Handlers() []*Handler {
	return append([]*Handler(nil), g.handlers...)
}

// Members returns the current members in join order.
func (g *Group) Members() []Listener {
	return append([]Listener(nil), g.members.Slice()...)
}

// Len returns the number of members.
func (g *Group) Len() int {
	return g.members.Len()
}

// matches reports set equality between the group signature and sig.
func (g *Group) matches(key uint64, sig []*Handler) bool {
	if g.key != key || len(g.set) != len(sig) {
		return false
	}
	for _, h := range sig {
		if _, ok := g.set[h]; !ok {
			return false
		}
	}
	return true
}

func (g *Group) contains(l Listener) bool {
	return g.members.IndexOf(func(m Listener) bool { return m == l }) >= 0
}

func (g *Group) add(l Listener) {
	next := g.members.Clone()
	next.Add(l)
	g.members = next
}

func (g *Group) remove(l Listener) bool {
	if !g.contains(l) {
		return false
	}
	next := g.members.Clone()
	next.Remove(func(m Listener) bool { return m == l })
	g.members = next
	return true
}
