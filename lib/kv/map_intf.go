package kv

import "github.com/benz9527/xordered/lib/tree"

type Entry[K any, V any] struct {
	Key K
	Val V
}

// OrderedMap keeps at most one entry per order-equivalence class of keys.
// Not safe for concurrent mutation, guard it externally.
type OrderedMap[K any, V any] interface {
	Len() int64
	IsEmpty() bool
	// Insert replaces the value of an order-equal key and returns the
	// previous one, otherwise adds a new entry.
	Insert(key K, val V) (prev V, replaced bool)
	Get(key K) (V, bool)
	GetEntry(key K) (Entry[K, V], bool)
	// Update rewrites the value in place, it reports false if key is absent.
	Update(key K, fn func(val V) V) bool
	Remove(key K) (V, bool)
	ContainsKey(key K) bool
	Min() (Entry[K, V], bool)
	Max() (Entry[K, V], bool)
	PopMin() (Entry[K, V], bool)
	PopMax() (Entry[K, V], bool)
	Foreach(action func(idx int64, key K, val V) bool)
	Iterator() tree.RBIterator[K, V]
	Keys() []K
	Values() []V
	Clear()
	// Drain returns the entries in ascending key order and leaves the map empty.
	Drain() []Entry[K, V]
	String() string
}
