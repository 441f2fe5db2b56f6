// Package inherit resolves "nearest declared function" lookups over a
// caller-supplied DAG of keys.
//
// Each key may declare a function. A key that does not declare one, or whose
// function reports no value, inherits from its resolved parent. When a key
// has several parents, the resolver keeps the most specific one: a parent
// whose chain already contains the other's declaring node wins. Two parents
// whose declarations are unrelated are ambiguous unless a priority mapping
// names one of them.
//
// # Basic Usage
//
//	parents := func(k string) []string { return graph[k] }
//	r := inherit.New[string, Input, string](parents)
//	r.Declare("base", func(in Input) (string, bool) { return "base", true })
//
//	out, ok, err := r.Apply("derived", in) // "base", true, nil
//
// # Caching
//
// Resolved nodes are built lazily per key and cached until the cache is
// cleared. Declare and Undeclare clear the cache themselves. Two inputs are
// NOT observed: the parent function and any lookup installed with
// WithLookup. After changing either, the caller must call ClearCache;
// until then Apply keeps returning results computed from the old data.
//
// # Errors
//
// Apply and Node return an *AmbiguousError (errors.Is ErrAmbiguousInheritance)
// for unresolved conflicts and an error wrapping ErrInheritanceCycle when the
// parent function loops. Neither result is cached, so supplying a priority
// mapping and retrying after ClearCache succeeds.
package inherit
