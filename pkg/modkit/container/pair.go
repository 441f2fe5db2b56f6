// Package container provides the small generic containers used across modkit:
// an ordered Pair and a growable Array that exposes its backing slice.
//
// Neither type is safe for concurrent mutation. Like the rest of the runtime
// they assume a single owning goroutine.
package container

import "fmt"

// Pair is an ordered 2-tuple.
type Pair[A, B any] struct {
	First  A
	Second B
}

// MakePair creates a pair from its two elements.
func MakePair[A, B any](first A, second B) Pair[A, B] {
	return Pair[A, B]{First: first, Second: second}
}

// Unpack returns both elements.
func (p Pair[A, B]) Unpack() (A, B) {
	return p.First, p.Second
}

// Swap returns a pair with the elements reversed.
func (p Pair[A, B]) Swap() Pair[B, A] {
	return Pair[B, A]{First: p.Second, Second: p.First}
}

// String formats the pair as (first, second).
func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}
