package kv

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/benz9527/xordered/lib/infra"
	"github.com/benz9527/xordered/lib/tree"
	"github.com/benz9527/xordered/xlog"
)

var _ OrderedMap[int, string] = (*orderedMap[int, string])(nil)

type orderedMap[K any, V any] struct {
	tree      tree.RBTree[K, V]
	logger    xlog.XLogger
	statsName string
	isDesc    bool
}

func (m *orderedMap[K, V]) Len() int64 {
	return m.tree.Len()
}

func (m *orderedMap[K, V]) IsEmpty() bool {
	return m.tree.IsEmpty()
}

func (m *orderedMap[K, V]) Insert(key K, val V) (prev V, replaced bool) {
	return m.tree.Upsert(key, val)
}

func (m *orderedMap[K, V]) Get(key K) (val V, ok bool) {
	if node := m.tree.Search(key); node != nil {
		return node.Val(), true
	}
	return val, false
}

func (m *orderedMap[K, V]) GetEntry(key K) (Entry[K, V], bool) {
	return toEntry[K, V](m.tree.Search(key))
}

func (m *orderedMap[K, V]) Update(key K, fn func(val V) V) bool {
	node := m.tree.Search(key)
	if node == nil || fn == nil {
		return false
	}
	m.tree.Upsert(key, fn(node.Val()))
	return true
}

func (m *orderedMap[K, V]) Remove(key K) (val V, ok bool) {
	node, err := m.tree.Remove(key)
	if err != nil {
		return val, false
	}
	return node.Val(), true
}

func (m *orderedMap[K, V]) ContainsKey(key K) bool {
	return m.tree.Search(key) != nil
}

func toEntry[K any, V any](node tree.RBNode[K, V]) (Entry[K, V], bool) {
	if node == nil {
		return Entry[K, V]{}, false
	}
	return Entry[K, V]{Key: node.Key(), Val: node.Val()}, true
}

func (m *orderedMap[K, V]) Min() (Entry[K, V], bool) {
	return toEntry[K, V](m.tree.Min())
}

func (m *orderedMap[K, V]) Max() (Entry[K, V], bool) {
	return toEntry[K, V](m.tree.Max())
}

func (m *orderedMap[K, V]) PopMin() (Entry[K, V], bool) {
	node, err := m.tree.RemoveMin()
	if err != nil {
		return Entry[K, V]{}, false
	}
	return toEntry[K, V](node)
}

func (m *orderedMap[K, V]) PopMax() (Entry[K, V], bool) {
	node, err := m.tree.RemoveMax()
	if err != nil {
		return Entry[K, V]{}, false
	}
	return toEntry[K, V](node)
}

func (m *orderedMap[K, V]) Foreach(action func(idx int64, key K, val V) bool) {
	if action == nil {
		return
	}
	m.tree.Foreach(func(idx int64, _ tree.RBColor, key K, val V) bool {
		return action(idx, key, val)
	})
}

func (m *orderedMap[K, V]) Iterator() tree.RBIterator[K, V] {
	return m.tree.Iterator()
}

func (m *orderedMap[K, V]) entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, m.Len())
	m.Foreach(func(_ int64, key K, val V) bool {
		entries = append(entries, Entry[K, V]{Key: key, Val: val})
		return true
	})
	return entries
}

func (m *orderedMap[K, V]) Keys() []K {
	return lo.Map(m.entries(), func(e Entry[K, V], _ int) K {
		return e.Key
	})
}

func (m *orderedMap[K, V]) Values() []V {
	return lo.Map(m.entries(), func(e Entry[K, V], _ int) V {
		return e.Val
	})
}

func (m *orderedMap[K, V]) Clear() {
	m.tree.Release()
}

func (m *orderedMap[K, V]) Drain() []Entry[K, V] {
	entries := m.entries()
	m.Clear()
	return entries
}

func (m *orderedMap[K, V]) String() string {
	var builder strings.Builder
	builder.WriteString("map[")
	m.Foreach(func(idx int64, key K, val V) bool {
		if idx > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(fmt.Sprintf("%v:%v", key, val))
		return true
	})
	builder.WriteByte(']')
	return builder.String()
}

type OrderedMapOption[K any, V any] func(*orderedMap[K, V])

func WithOrderedMapDesc[K any, V any]() OrderedMapOption[K, V] {
	return func(m *orderedMap[K, V]) {
		m.isDesc = true
	}
}

func WithOrderedMapLogger[K any, V any](logger xlog.XLogger) OrderedMapOption[K, V] {
	return func(m *orderedMap[K, V]) {
		m.logger = logger
	}
}

func WithOrderedMapStats[K any, V any](name string) OrderedMapOption[K, V] {
	return func(m *orderedMap[K, V]) {
		m.statsName = name
	}
}

func NewOrderedMap[K infra.OrderedKey, V any](opts ...OrderedMapOption[K, V]) OrderedMap[K, V] {
	return newOrderedMap[K, V](infra.NaturalOrder[K](), opts...)
}

func NewOrderedMapWithComparator[K any, V any](cmp infra.Comparator[K], opts ...OrderedMapOption[K, V]) OrderedMap[K, V] {
	return newOrderedMap[K, V](cmp, opts...)
}

// NewOrderedMapFrom builds the map by repeated insertion,
// the last value of an order-equal key wins.
func NewOrderedMapFrom[K infra.OrderedKey, V any](entries []Entry[K, V], opts ...OrderedMapOption[K, V]) OrderedMap[K, V] {
	m := newOrderedMap[K, V](infra.NaturalOrder[K](), opts...)
	for _, e := range entries {
		m.Insert(e.Key, e.Val)
	}
	return m
}

func newOrderedMap[K any, V any](cmp infra.Comparator[K], opts ...OrderedMapOption[K, V]) *orderedMap[K, V] {
	m := &orderedMap[K, V]{}
	for _, o := range opts {
		if o != nil {
			o(m)
		}
	}

	treeOpts := []tree.RBTreeOpt[K, V]{
		tree.WithRBTreeLogger[K, V](m.logger),
	}
	if m.isDesc {
		treeOpts = append(treeOpts, tree.WithRBTreeDesc[K, V]())
	}
	if len(m.statsName) > 0 {
		treeOpts = append(treeOpts, tree.WithRBTreeStats[K, V](m.statsName))
	}
	m.tree = tree.NewRBTreeWithComparator[K, V](cmp, treeOpts...)
	return m
}
