package tree

import "github.com/benz9527/xordered/lib/infra"

type RBColor uint8

const (
	Black RBColor = iota
	Red
)

func (c RBColor) String() string {
	switch c {
	case Black:
		return "Black"
	case Red:
		return "Red"
	default:
	}
	return "RBColor(unknown)"
}

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (d RBDirection) String() string {
	switch d {
	case Left:
		return "Left"
	case Root:
		return "Root"
	case Right:
		return "Right"
	default:
	}
	return "RBDirection(unknown)"
}

// RBNode is a read-only handle of a tree node.
// A handle is only valid until the next mutation of its tree.
type RBNode[K any, V any] interface {
	Key() K
	Val() V
	HasKeyVal() bool
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// RBIterator walks the tree in order lazily.
// Using it after the tree has been mutated is a contract violation
// and panics, unless Reset is called first.
type RBIterator[K any, V any] interface {
	HasNext() bool
	Next() (key K, val V, ok bool)
	Reset()
}

type RBTree[K any, V any] interface {
	Len() int64
	IsEmpty() bool
	Root() RBNode[K, V]
	// Comparator returns the effective ordering of the tree,
	// the descending flag included.
	Comparator() infra.Comparator[K]
	// Search returns the earliest inserted node which is order-equal to key.
	Search(key K) RBNode[K, V]
	// Insert always adds a new node. Order-equal keys are kept in insertion order.
	Insert(key K, val V) (node RBNode[K, V], existed bool)
	InsertIfAbsent(key K, val V) (node RBNode[K, V], inserted bool)
	Upsert(key K, val V) (prev V, replaced bool)
	Remove(key K) (RBNode[K, V], error)
	RemoveNode(node RBNode[K, V]) (RBNode[K, V], error)
	RemoveMin() (RBNode[K, V], error)
	RemoveMax() (RBNode[K, V], error)
	Min() RBNode[K, V]
	Max() RBNode[K, V]
	Height() int
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)
	Iterator() RBIterator[K, V]
	Release()
}
