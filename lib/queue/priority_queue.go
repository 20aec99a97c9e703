package queue

import (
	"fmt"
	"strings"

	"github.com/benz9527/xordered/lib/infra"
	"github.com/benz9527/xordered/lib/tree"
	"github.com/benz9527/xordered/xlog"
)

var (
	_ PriorityQueue[int64, string]  = (*rbtreePQ[int64, string])(nil)
	_ ReadOnlyPQItem[int64, string] = (*pqItem[int64, string])(nil)
)

type pqItem[P any, E any] struct {
	priority P
	value    E
}

func (item *pqItem[P, E]) Value() (val E) {
	if item == nil {
		// return empty value by default
		return
	}
	return item.value
}

func (item *pqItem[P, E]) Priority() (pri P) {
	if item == nil {
		return
	}
	return item.priority
}

func (item *pqItem[P, E]) String() string {
	return fmt.Sprintf("%v:%v", item.Priority(), item.Value())
}

func NewPriorityQueueItem[P any, E any](val E, pri P) ReadOnlyPQItem[P, E] {
	return &pqItem[P, E]{
		priority: pri,
		value:    val,
	}
}

// rbtreePQ keeps the items in an rbtree keyed by priority. The head is
// always the leftmost node, a max-first queue simply flips the tree order.
type rbtreePQ[P any, E any] struct {
	tree       tree.RBTree[P, E]
	logger     xlog.XLogger
	statsName  string
	isMaxFirst bool
}

func (pq *rbtreePQ[P, E]) Len() int64 {
	return pq.tree.Len()
}

func (pq *rbtreePQ[P, E]) IsEmpty() bool {
	return pq.tree.IsEmpty()
}

// Push never rejects, order-equal priorities are queued behind each other.
func (pq *rbtreePQ[P, E]) Push(priority P, val E) {
	pq.tree.Insert(priority, val)
}

func (pq *rbtreePQ[P, E]) PushItem(item ReadOnlyPQItem[P, E]) {
	if item == nil {
		return
	}
	pq.tree.Insert(item.Priority(), item.Value())
}

func (pq *rbtreePQ[P, E]) Peek() ReadOnlyPQItem[P, E] {
	node := pq.tree.Min()
	if node == nil {
		return nil
	}
	return NewPriorityQueueItem[P, E](node.Val(), node.Key())
}

func (pq *rbtreePQ[P, E]) Pop() ReadOnlyPQItem[P, E] {
	node, err := pq.tree.RemoveMin()
	if err != nil {
		return nil
	}
	return NewPriorityQueueItem[P, E](node.Val(), node.Key())
}

func (pq *rbtreePQ[P, E]) Ordered() []ReadOnlyPQItem[P, E] {
	items := make([]ReadOnlyPQItem[P, E], 0, pq.Len())
	pq.tree.Foreach(func(_ int64, _ tree.RBColor, pri P, val E) bool {
		items = append(items, NewPriorityQueueItem[P, E](val, pri))
		return true
	})
	return items
}

func (pq *rbtreePQ[P, E]) Clear() {
	pq.tree.Release()
}

func (pq *rbtreePQ[P, E]) Drain() []ReadOnlyPQItem[P, E] {
	items := pq.Ordered()
	pq.Clear()
	return items
}

func (pq *rbtreePQ[P, E]) String() string {
	var builder strings.Builder
	builder.WriteByte('[')
	pq.tree.Foreach(func(idx int64, _ tree.RBColor, pri P, val E) bool {
		if idx > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(fmt.Sprintf("%v:%v", pri, val))
		return true
	})
	builder.WriteByte(']')
	return builder.String()
}

type PriorityQueueOption[P any, E any] func(*rbtreePQ[P, E])

// WithPriorityQueueMaxFirst makes the greatest priority the head.
func WithPriorityQueueMaxFirst[P any, E any]() PriorityQueueOption[P, E] {
	return func(pq *rbtreePQ[P, E]) {
		pq.isMaxFirst = true
	}
}

func WithPriorityQueueLogger[P any, E any](logger xlog.XLogger) PriorityQueueOption[P, E] {
	return func(pq *rbtreePQ[P, E]) {
		pq.logger = logger
	}
}

func WithPriorityQueueStats[P any, E any](name string) PriorityQueueOption[P, E] {
	return func(pq *rbtreePQ[P, E]) {
		pq.statsName = name
	}
}

func NewPriorityQueue[P infra.OrderedKey, E any](opts ...PriorityQueueOption[P, E]) PriorityQueue[P, E] {
	return NewPriorityQueueWithComparator[P, E](infra.NaturalOrder[P](), opts...)
}

func NewPriorityQueueWithComparator[P any, E any](cmp infra.Comparator[P], opts ...PriorityQueueOption[P, E]) PriorityQueue[P, E] {
	pq := &rbtreePQ[P, E]{}
	for _, o := range opts {
		if o != nil {
			o(pq)
		}
	}

	treeOpts := []tree.RBTreeOpt[P, E]{
		tree.WithRBTreeLogger[P, E](pq.logger),
	}
	if pq.isMaxFirst {
		treeOpts = append(treeOpts, tree.WithRBTreeDesc[P, E]())
	}
	if len(pq.statsName) > 0 {
		treeOpts = append(treeOpts, tree.WithRBTreeStats[P, E](pq.statsName))
	}
	pq.tree = tree.NewRBTreeWithComparator[P, E](cmp, treeOpts...)
	return pq
}

// NewPriorityQueueFrom pushes the items in slice order.
func NewPriorityQueueFrom[P infra.OrderedKey, E any](items []ReadOnlyPQItem[P, E], opts ...PriorityQueueOption[P, E]) PriorityQueue[P, E] {
	pq := NewPriorityQueue[P, E](opts...)
	for _, item := range items {
		pq.PushItem(item)
	}
	return pq
}
