package set

import (
	"fmt"
	"strings"

	"github.com/benz9527/xordered/lib/infra"
	"github.com/benz9527/xordered/lib/tree"
	"github.com/benz9527/xordered/xlog"
)

var (
	_ OrderedSet[int]  = (*orderedSet[int])(nil)
	_ SetIterator[int] = (*setIterator[int])(nil)
)

type orderedSet[K any] struct {
	tree      tree.RBTree[K, struct{}]
	cmp       infra.Comparator[K]
	logger    xlog.XLogger
	statsName string
	isDesc    bool
}

func (s *orderedSet[K]) Len() int64 {
	return s.tree.Len()
}

func (s *orderedSet[K]) IsEmpty() bool {
	return s.tree.IsEmpty()
}

func (s *orderedSet[K]) Insert(key K) bool {
	_, inserted := s.tree.InsertIfAbsent(key, struct{}{})
	return inserted
}

func (s *orderedSet[K]) Remove(key K) bool {
	_, err := s.tree.Remove(key)
	return err == nil
}

func (s *orderedSet[K]) Contains(key K) bool {
	return s.tree.Search(key) != nil
}

func (s *orderedSet[K]) Take(key K) (k K, ok bool) {
	node, err := s.tree.Remove(key)
	if err != nil {
		return k, false
	}
	return node.Key(), true
}

func (s *orderedSet[K]) Replace(key K) (prev K, replaced bool) {
	prev, replaced = s.Take(key)
	s.tree.Insert(key, struct{}{})
	return prev, replaced
}

func (s *orderedSet[K]) Min() (k K, ok bool) {
	if node := s.tree.Min(); node != nil {
		return node.Key(), true
	}
	return k, false
}

func (s *orderedSet[K]) Max() (k K, ok bool) {
	if node := s.tree.Max(); node != nil {
		return node.Key(), true
	}
	return k, false
}

func (s *orderedSet[K]) Pop() (k K, ok bool) {
	node, err := s.tree.RemoveMin()
	if err != nil {
		return k, false
	}
	return node.Key(), true
}

func (s *orderedSet[K]) Foreach(action func(idx int64, key K) bool) {
	if action == nil {
		return
	}
	s.tree.Foreach(func(idx int64, _ tree.RBColor, key K, _ struct{}) bool {
		return action(idx, key)
	})
}

func (s *orderedSet[K]) Iterator() SetIterator[K] {
	return &setIterator[K]{it: s.tree.Iterator()}
}

func (s *orderedSet[K]) Keys() []K {
	keys := make([]K, 0, s.Len())
	s.Foreach(func(_ int64, key K) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// empty builds a set sharing the ordering of s. Stats stay with s only.
func (s *orderedSet[K]) empty() *orderedSet[K] {
	return newOrderedSet[K](s.cmp, s.options()...)
}

func (s *orderedSet[K]) options() []OrderedSetOption[K] {
	opts := []OrderedSetOption[K]{WithOrderedSetLogger[K](s.logger)}
	if s.isDesc {
		opts = append(opts, WithOrderedSetDesc[K]())
	}
	return opts
}

func (s *orderedSet[K]) Union(other OrderedSet[K]) OrderedSet[K] {
	res := s.empty()
	for _, key := range s.Keys() {
		res.tree.Insert(key, struct{}{})
	}
	if other != nil {
		other.Foreach(func(_ int64, key K) bool {
			res.Insert(key)
			return true
		})
	}
	return res
}

func (s *orderedSet[K]) filter(keep func(key K) bool) *orderedSet[K] {
	res := s.empty()
	s.Foreach(func(_ int64, key K) bool {
		if keep(key) {
			// Already unique and ascending.
			res.tree.Insert(key, struct{}{})
		}
		return true
	})
	return res
}

func (s *orderedSet[K]) Intersection(other OrderedSet[K]) OrderedSet[K] {
	if other == nil {
		return s.empty()
	}
	return s.filter(other.Contains)
}

func (s *orderedSet[K]) Difference(other OrderedSet[K]) OrderedSet[K] {
	if other == nil {
		return s.filter(func(K) bool { return true })
	}
	return s.filter(func(key K) bool {
		return !other.Contains(key)
	})
}

func (s *orderedSet[K]) SymmetricDifference(other OrderedSet[K]) OrderedSet[K] {
	res := s.Difference(other).(*orderedSet[K])
	if other == nil {
		return res
	}
	other.Foreach(func(_ int64, key K) bool {
		if !s.Contains(key) {
			res.Insert(key)
		}
		return true
	})
	return res
}

func (s *orderedSet[K]) IsSubsetOf(other OrderedSet[K]) bool {
	if s.IsEmpty() {
		return true
	}
	if other == nil || other.Len() < s.Len() {
		return false
	}
	subset := true
	s.Foreach(func(_ int64, key K) bool {
		subset = other.Contains(key)
		return subset
	})
	return subset
}

func (s *orderedSet[K]) Clear() {
	s.tree.Release()
}

func (s *orderedSet[K]) Drain() []K {
	keys := s.Keys()
	s.Clear()
	return keys
}

func (s *orderedSet[K]) String() string {
	var builder strings.Builder
	builder.WriteByte('[')
	s.Foreach(func(idx int64, key K) bool {
		if idx > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(fmt.Sprint(key))
		return true
	})
	builder.WriteByte(']')
	return builder.String()
}

type setIterator[K any] struct {
	it tree.RBIterator[K, struct{}]
}

func (si *setIterator[K]) HasNext() bool {
	return si.it.HasNext()
}

func (si *setIterator[K]) Next() (key K, ok bool) {
	key, _, ok = si.it.Next()
	return key, ok
}

func (si *setIterator[K]) Reset() {
	si.it.Reset()
}

type OrderedSetOption[K any] func(*orderedSet[K])

func WithOrderedSetDesc[K any]() OrderedSetOption[K] {
	return func(s *orderedSet[K]) {
		s.isDesc = true
	}
}

func WithOrderedSetLogger[K any](logger xlog.XLogger) OrderedSetOption[K] {
	return func(s *orderedSet[K]) {
		s.logger = logger
	}
}

func WithOrderedSetStats[K any](name string) OrderedSetOption[K] {
	return func(s *orderedSet[K]) {
		s.statsName = name
	}
}

func NewOrderedSet[K infra.OrderedKey](opts ...OrderedSetOption[K]) OrderedSet[K] {
	return newOrderedSet[K](infra.NaturalOrder[K](), opts...)
}

func NewOrderedSetWithComparator[K any](cmp infra.Comparator[K], opts ...OrderedSetOption[K]) OrderedSet[K] {
	return newOrderedSet[K](cmp, opts...)
}

// NewOrderedSetFrom builds the set by repeated insertion, later
// order-equal keys are dropped.
func NewOrderedSetFrom[K infra.OrderedKey](keys []K, opts ...OrderedSetOption[K]) OrderedSet[K] {
	s := newOrderedSet[K](infra.NaturalOrder[K](), opts...)
	for _, key := range keys {
		s.Insert(key)
	}
	return s
}

func newOrderedSet[K any](cmp infra.Comparator[K], opts ...OrderedSetOption[K]) *orderedSet[K] {
	s := &orderedSet[K]{
		cmp: cmp,
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}

	treeOpts := []tree.RBTreeOpt[K, struct{}]{
		tree.WithRBTreeLogger[K, struct{}](s.logger),
	}
	if s.isDesc {
		treeOpts = append(treeOpts, tree.WithRBTreeDesc[K, struct{}]())
	}
	if len(s.statsName) > 0 {
		treeOpts = append(treeOpts, tree.WithRBTreeStats[K, struct{}](s.statsName))
	}
	s.tree = tree.NewRBTreeWithComparator[K, struct{}](cmp, treeOpts...)
	return s
}
