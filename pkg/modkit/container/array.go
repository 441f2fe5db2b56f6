package container

import "fmt"

const minCapacity = 8

// Array is a growable list backed by a slice whose full capacity is
// exposed through Backing. Only the first Len() slots hold live elements;
// slots past Len() are zeroed so removed values are not retained.
//
// Array is NOT thread-safe.
type Array[T any] struct {
	data []T
	size int
}

// NewArray creates an empty array with room for capacity elements.
func NewArray[T any](capacity int) *Array[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Array[T]{data: make([]T, capacity)}
}

// ArrayOf creates an array holding the given elements in order.
func ArrayOf[T any](elems ...T) *Array[T] {
	a := NewArray[T](len(elems))
	a.AddAll(elems...)
	return a
}

// Len returns the number of live elements.
func (a *Array[T]) Len() int {
	return a.size
}

// Cap returns the length of the backing array.
func (a *Array[T]) Cap() int {
	return len(a.data)
}

// Backing returns the backing array itself, not a copy.
// Elements at index >= Len() are zero values.
func (a *Array[T]) Backing() []T {
	return a.data
}

// Slice returns the live elements as a view over the backing array.
// The view is invalidated by any later mutation that grows the array.
func (a *Array[T]) Slice() []T {
	return a.data[:a.size]
}

// Grow ensures room for at least n more elements without reallocation.
func (a *Array[T]) Grow(n int) {
	need := a.size + n
	if need <= len(a.data) {
		return
	}
	newCap := len(a.data) * 2
	if newCap < minCapacity {
		newCap = minCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	data := make([]T, newCap)
	copy(data, a.data[:a.size])
	a.data = data
}

// Add appends one element.
func (a *Array[T]) Add(v T) {
	a.Grow(1)
	a.data[a.size] = v
	a.size++
}

// AddAll appends elements in order.
func (a *Array[T]) AddAll(elems ...T) {
	a.Grow(len(elems))
	copy(a.data[a.size:], elems)
	a.size += len(elems)
}

// Get returns the element at index i.
// Panics if i is out of range.
func (a *Array[T]) Get(i int) T {
	a.checkIndex(i)
	return a.data[i]
}

// Set replaces the element at index i.
// Panics if i is out of range.
func (a *Array[T]) Set(i int, v T) {
	a.checkIndex(i)
	a.data[i] = v
}

// RemoveAt removes the element at index i, shifting later elements left,
// and returns it. Panics if i is out of range.
func (a *Array[T]) RemoveAt(i int) T {
	a.checkIndex(i)
	v := a.data[i]
	copy(a.data[i:], a.data[i+1:a.size])
	a.size--
	var zero T
	a.data[a.size] = zero
	return v
}

// IndexOf returns the index of the first element matching eq, or -1.
func (a *Array[T]) IndexOf(eq func(T) bool) int {
	for i := 0; i < a.size; i++ {
		if eq(a.data[i]) {
			return i
		}
	}
	return -1
}

// Remove removes the first element matching eq.
// Returns true if an element was removed.
func (a *Array[T]) Remove(eq func(T) bool) bool {
	i := a.IndexOf(eq)
	if i < 0 {
		return false
	}
	a.RemoveAt(i)
	return true
}

// Clone returns an independent copy with the same capacity.
func (a *Array[T]) Clone() *Array[T] {
	data := make([]T, len(a.data))
	copy(data, a.data[:a.size])
	return &Array[T]{data: data, size: a.size}
}

// Clear removes every element but keeps the backing array.
func (a *Array[T]) Clear() {
	clear(a.data[:a.size])
	a.size = 0
}

// Range calls fn for each live element in order until fn returns false.
func (a *Array[T]) Range(fn func(int, T) bool) {
	for i := 0; i < a.size; i++ {
		if !fn(i, a.data[i]) {
			return
		}
	}
}

func (a *Array[T]) checkIndex(i int) {
	if i < 0 || i >= a.size {
		panic(fmt.Sprintf("container: index %d out of range [0:%d]", i, a.size))
	}
}
