package set

// SetIterator walks the set in ascending order.
// The same invalidation rule as the tree iterator applies.
type SetIterator[K any] interface {
	HasNext() bool
	Next() (key K, ok bool)
	Reset()
}

// OrderedSet keeps at most one element per order-equivalence class.
// Not safe for concurrent mutation, guard it externally.
type OrderedSet[K any] interface {
	Len() int64
	IsEmpty() bool
	// Insert reports whether the key has been added.
	// An order-equal element already present is left untouched.
	Insert(key K) bool
	Remove(key K) bool
	Contains(key K) bool
	// Take removes the element order-equal to key and returns the stored one.
	Take(key K) (K, bool)
	// Replace stores key, swapping out the order-equal element if any.
	Replace(key K) (prev K, replaced bool)
	Min() (K, bool)
	Max() (K, bool)
	// Pop removes the first element in iteration order, the greatest one
	// for a descending set.
	Pop() (K, bool)
	Foreach(action func(idx int64, key K) bool)
	Iterator() SetIterator[K]
	Keys() []K
	Union(other OrderedSet[K]) OrderedSet[K]
	Intersection(other OrderedSet[K]) OrderedSet[K]
	Difference(other OrderedSet[K]) OrderedSet[K]
	SymmetricDifference(other OrderedSet[K]) OrderedSet[K]
	IsSubsetOf(other OrderedSet[K]) bool
	Clear()
	// Drain returns the elements in ascending order and leaves the set empty.
	Drain() []K
	String() string
}
