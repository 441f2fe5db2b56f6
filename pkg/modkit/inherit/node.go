package inherit

import (
	"fmt"

	"github.com/randalmurphal/modkit/pkg/modkit/container"
	"github.com/randalmurphal/modkit/pkg/modkit/errors"
)

// Func is a declared function. Returning false means "no value" and defers
// to the inherited declaration.
type Func[I, O any] func(I) (O, bool)

// Node is the resolved inheritance state of one key: its own declared
// function, if any, and the winning parent node.
// Nodes are immutable once built.
type Node[K comparable, I, O any] struct {
	key    K
	fn     Func[I, O]
	parent *Node[K, I, O]
}

// Key returns the key this node was resolved for.
func (n *Node[K, I, O]) Key() K {
	return n.key
}

// Declares reports whether the key declares its own function.
func (n *Node[K, I, O]) Declares() bool {
	return n.fn != nil
}

// Parent returns the winning parent node, or nil for a root.
func (n *Node[K, I, O]) Parent() *Node[K, I, O] {
	return n.parent
}

// Declaring returns the nearest node in the chain, starting at n itself,
// that declares a function. Returns nil when nothing in the chain does.
func (n *Node[K, I, O]) Declaring() *Node[K, I, O] {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.fn != nil {
			return cur
		}
	}
	return nil
}

// Overrides reports whether n overrides or is the same as other: n's
// declaring node is other's declaring node, or n's chain passes through it.
// Anything overrides a chain that declares nothing.
func (n *Node[K, I, O]) Overrides(other *Node[K, I, O]) bool {
	target := other.Declaring()
	if target == nil {
		return true
	}
	for cur := n.Declaring(); cur != nil; cur = cur.parent {
		if cur.fn != nil && cur.key == target.key {
			return true
		}
	}
	return false
}

// Apply calls the nearest declared function. If it reports no value the
// search continues up the chain. Returns false when the chain is exhausted.
func (n *Node[K, I, O]) Apply(in I) (O, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.fn == nil {
			continue
		}
		if out, ok := cur.fn(in); ok {
			return out, true
		}
	}
	var zero O
	return zero, false
}

// Chain returns the keys from n up to the root.
func (n *Node[K, I, O]) Chain() []K {
	var keys []K
	for cur := n; cur != nil; cur = cur.parent {
		keys = append(keys, cur.key)
	}
	return keys
}

// String formats the node as key(declaring key).
func (n *Node[K, I, O]) String() string {
	if d := n.Declaring(); d != nil {
		return fmt.Sprintf("%v(declared by %v)", n.key, d.key)
	}
	return fmt.Sprintf("%v(undeclared)", n.key)
}

// AmbiguousError reports two parents whose declarations are unrelated.
type AmbiguousError[K comparable, I, O any] struct {
	// Key is the key being resolved.
	Key K

	// Conflict holds the two conflicting parent nodes.
	Conflict container.Pair[*Node[K, I, O], *Node[K, I, O]]
}

// Error implements the error interface.
func (e *AmbiguousError[K, I, O]) Error() string {
	return fmt.Sprintf("ambiguous inheritance for %v: %s conflicts with %s",
		e.Key, e.Conflict.First, e.Conflict.Second)
}

// Unwrap returns ErrAmbiguousInheritance for errors.Is support.
func (e *AmbiguousError[K, I, O]) Unwrap() error {
	return errors.ErrAmbiguousInheritance
}
