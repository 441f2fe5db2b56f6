package registry

// DualKey indexes values by a primary key and by a secondary key derived
// from each value. Both keys are unique.
type DualKey[K comparable, S comparable, V any] struct {
	derive    func(V) S
	primary   map[K]V
	secondary map[S]K
	order     []K
}

// NewDualKey creates an empty registry deriving secondary keys with derive.
func NewDualKey[K comparable, S comparable, V any](derive func(V) S) *DualKey[K, S, V] {
	return &DualKey[K, S, V]{
		derive:    derive,
		primary:   make(map[K]V),
		secondary: make(map[S]K),
	}
}

// Put stores value under key and its derived secondary key.
// Returns false, storing nothing, if either key is already present.
func (d *DualKey[K, S, V]) Put(key K, value V) bool {
	if _, exists := d.primary[key]; exists {
		return false
	}
	sec := d.derive(value)
	if _, exists := d.secondary[sec]; exists {
		return false
	}
	d.primary[key] = value
	d.secondary[sec] = key
	d.order = append(d.order, key)
	return true
}

// Get returns the value stored under the primary key.
func (d *DualKey[K, S, V]) Get(key K) (V, bool) {
	v, ok := d.primary[key]
	return v, ok
}

// GetBySecondary returns the value whose derived key equals sec.
func (d *DualKey[K, S, V]) GetBySecondary(sec S) (V, bool) {
	key, ok := d.secondary[sec]
	if !ok {
		var zero V
		return zero, false
	}
	return d.Get(key)
}

// Has reports whether the primary key is present.
func (d *DualKey[K, S, V]) Has(key K) bool {
	_, ok := d.primary[key]
	return ok
}

// HasSecondary reports whether a value with derived key sec is present.
func (d *DualKey[K, S, V]) HasSecondary(sec S) bool {
	_, ok := d.secondary[sec]
	return ok
}

// Delete removes the value stored under key along with its secondary key.
// Returns true if the key was present.
func (d *DualKey[K, S, V]) Delete(key K) bool {
	v, ok := d.primary[key]
	if !ok {
		return false
	}
	delete(d.primary, key)
	delete(d.secondary, d.derive(v))
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of stored values.
func (d *DualKey[K, S, V]) Len() int {
	return len(d.primary)
}

// Values returns every stored value in insertion order.
func (d *DualKey[K, S, V]) Values() []V {
	values := make([]V, 0, len(d.order))
	for _, k := range d.order {
		values = append(values, d.primary[k])
	}
	return values
}

// Range iterates over a snapshot in insertion order until fn returns false.
func (d *DualKey[K, S, V]) Range(fn func(K, V) bool) {
	keys := make([]K, len(d.order))
	copy(keys, d.order)
	for _, k := range keys {
		v, ok := d.primary[k]
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}
