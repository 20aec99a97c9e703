package queue

// PriorityQueue pops in ascending priority order, or descending one when
// built with WithPriorityQueueMaxFirst. Equal priorities leave in push order.
// Not safe for concurrent mutation, guard it externally.
type PriorityQueue[P any, E any] interface {
	Len() int64
	IsEmpty() bool
	Push(priority P, val E)
	PushItem(item ReadOnlyPQItem[P, E])
	// Peek returns nil if the queue is empty.
	Peek() ReadOnlyPQItem[P, E]
	// Pop returns nil if the queue is empty.
	Pop() ReadOnlyPQItem[P, E]
	// Ordered is a snapshot in pop order.
	Ordered() []ReadOnlyPQItem[P, E]
	Clear()
	Drain() []ReadOnlyPQItem[P, E]
	String() string
}

type ReadOnlyPQItem[P any, E any] interface {
	Priority() P
	Value() E
}
