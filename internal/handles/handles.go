// Package handles provides a concurrent table from integer ids to values.
//
// The registry keeps one table per object category. Lookups are lock-free
// (sync.Map) so that resolving a tag never waits behind an insert into an
// unrelated category; only the count is maintained separately.
package handles

import (
	"sync"
	"sync/atomic"
)

// Table maps ids to values of type V.
// The zero value is ready to use. Thread-safe.
type Table[V any] struct {
	m     sync.Map // map[uint64]V
	count atomic.Int64
}

// Store associates v with id, replacing any previous value.
func (t *Table[V]) Store(id uint64, v V) {
	if _, loaded := t.m.Swap(id, v); !loaded {
		t.count.Add(1)
	}
}

// Load returns the value stored under id.
// The boolean is false if id is not present.
func (t *Table[V]) Load(id uint64) (V, bool) {
	v, ok := t.m.Load(id)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Delete removes id and returns the value it held.
// Deleting an absent id is a no-op that returns false.
func (t *Table[V]) Delete(id uint64) (V, bool) {
	v, ok := t.m.LoadAndDelete(id)
	if !ok {
		var zero V
		return zero, false
	}
	t.count.Add(-1)
	return v.(V), true
}

// Range calls f for each entry until f returns false.
// Order is unspecified; see sync.Map.Range for consistency guarantees.
func (t *Table[V]) Range(f func(id uint64, v V) bool) {
	t.m.Range(func(k, v any) bool {
		return f(k.(uint64), v.(V))
	})
}

// Count returns the number of entries currently stored.
// Useful for debugging and testing leaks.
func (t *Table[V]) Count() int {
	return int(t.count.Load())
}
