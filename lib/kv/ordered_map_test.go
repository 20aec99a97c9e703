package kv

import (
	randv2 "math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/xordered/lib/tree"
)

func requireValid[K any, V any](t *testing.T, m OrderedMap[K, V]) {
	require.NoError(t, tree.Validate[K, V](m.(*orderedMap[K, V]).tree))
}

func TestOrderedMap_InsertReplaces(t *testing.T) {
	m := NewOrderedMap[int, string]()
	prev, replaced := m.Insert(5, "a")
	require.False(t, replaced)
	require.Equal(t, "", prev)

	prev, replaced = m.Insert(5, "b")
	require.True(t, replaced)
	require.Equal(t, "a", prev)

	val, ok := m.Get(5)
	require.True(t, ok)
	require.Equal(t, "b", val)
	require.Equal(t, int64(1), m.Len())
	requireValid(t, m)
}

func TestOrderedMap_GetRemove(t *testing.T) {
	m := NewOrderedMapFrom[string, int]([]Entry[string, int]{
		{"c", 3}, {"a", 1}, {"b", 2}, {"a", 10},
	})
	require.Equal(t, int64(3), m.Len())
	require.Equal(t, []string{"a", "b", "c"}, m.Keys())
	require.Equal(t, []int{10, 2, 3}, m.Values())
	require.Equal(t, "map[a:10 b:2 c:3]", m.String())

	e, ok := m.GetEntry("b")
	require.True(t, ok)
	require.Equal(t, Entry[string, int]{Key: "b", Val: 2}, e)
	_, ok = m.GetEntry("z")
	require.False(t, ok)
	_, ok = m.Get("z")
	require.False(t, ok)
	require.True(t, m.ContainsKey("c"))
	require.False(t, m.ContainsKey("d"))

	val, ok := m.Remove("b")
	require.True(t, ok)
	require.Equal(t, 2, val)
	_, ok = m.Remove("b")
	require.False(t, ok)
	require.Equal(t, int64(2), m.Len())
	requireValid(t, m)
}

func TestOrderedMap_Update(t *testing.T) {
	m := NewOrderedMap[int, []string]()
	m.Insert(1, nil)
	require.True(t, m.Update(1, func(val []string) []string {
		return append(val, "x")
	}))
	require.True(t, m.Update(1, func(val []string) []string {
		return append(val, "y")
	}))
	require.False(t, m.Update(2, func(val []string) []string {
		return val
	}))
	require.False(t, m.Update(1, nil))
	val, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, []string{"x", "y"}, val)
	require.Equal(t, int64(1), m.Len())
}

func TestOrderedMap_MinMaxPop(t *testing.T) {
	m := NewOrderedMap[int, string]()
	_, ok := m.Min()
	require.False(t, ok)
	_, ok = m.PopMax()
	require.False(t, ok)

	for i, s := range []string{"zero", "one", "two", "three", "four"} {
		m.Insert(i, s)
	}
	e, ok := m.Min()
	require.True(t, ok)
	require.Equal(t, 0, e.Key)
	e, ok = m.Max()
	require.True(t, ok)
	require.Equal(t, "four", e.Val)

	e, ok = m.PopMin()
	require.True(t, ok)
	require.Equal(t, Entry[int, string]{0, "zero"}, e)
	e, ok = m.PopMax()
	require.True(t, ok)
	require.Equal(t, Entry[int, string]{4, "four"}, e)
	require.Equal(t, []int{1, 2, 3}, m.Keys())
	requireValid(t, m)
}

func TestOrderedMap_DescAndComparator(t *testing.T) {
	m := NewOrderedMap[int, int](WithOrderedMapDesc[int, int]())
	for i := 0; i < 5; i++ {
		m.Insert(i, i*i)
	}
	require.Equal(t, []int{4, 3, 2, 1, 0}, m.Keys())

	caseless := NewOrderedMapWithComparator[string, int](func(i, j string) int64 {
		return int64(strings.Compare(strings.ToLower(i), strings.ToLower(j)))
	})
	caseless.Insert("Key", 1)
	prev, replaced := caseless.Insert("KEY", 2)
	require.True(t, replaced)
	require.Equal(t, 1, prev)
	e, ok := caseless.GetEntry("key")
	require.True(t, ok)
	// The stored key is kept, only the value is replaced.
	require.Equal(t, "Key", e.Key)
	require.Equal(t, 2, e.Val)
}

func TestOrderedMap_IteratorAndDrain(t *testing.T) {
	m := NewOrderedMapFrom[int, string]([]Entry[int, string]{{2, "b"}, {1, "a"}, {3, "c"}})
	it := m.Iterator()
	keys := make([]int, 0, 3)
	for it.HasNext() {
		key, val, ok := it.Next()
		require.True(t, ok)
		require.NotEmpty(t, val)
		keys = append(keys, key)
	}
	require.Equal(t, []int{1, 2, 3}, keys)

	// Replacing a value does not invalidate the iterator.
	it.Reset()
	m.Insert(1, "A")
	_, val, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, "A", val)

	m.Remove(2)
	assert.Panics(t, func() {
		it.HasNext()
	})

	visited := 0
	m.Foreach(func(idx int64, key int, val string) bool {
		visited++
		return false
	})
	require.Equal(t, 1, visited)

	entries := m.Drain()
	require.Equal(t, []Entry[int, string]{{1, "A"}, {3, "c"}}, entries)
	require.True(t, m.IsEmpty())
	require.Equal(t, "map[]", m.String())

	m.Insert(9, "i")
	m.Clear()
	require.Equal(t, int64(0), m.Len())
}

func TestOrderedMap_RandomAgainstBuiltinMap(t *testing.T) {
	m := NewOrderedMap[int, int]()
	ref := map[int]int{}
	for i := 0; i < 5000; i++ {
		key := randv2.IntN(500)
		switch randv2.IntN(4) {
		case 0:
			expected, exists := ref[key]
			val, ok := m.Remove(key)
			require.Equal(t, exists, ok)
			require.Equal(t, expected, val)
			delete(ref, key)
		default:
			expected, exists := ref[key]
			prev, replaced := m.Insert(key, i)
			require.Equal(t, exists, replaced)
			require.Equal(t, expected, prev)
			ref[key] = i
		}
	}
	keys := make([]int, 0, len(ref))
	for key := range ref {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	require.Equal(t, keys, m.Keys())
	for _, key := range keys {
		val, ok := m.Get(key)
		require.True(t, ok)
		require.Equal(t, ref[key], val)
	}
	requireValid(t, m)
}
