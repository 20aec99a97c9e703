package queue

import (
	"fmt"
	randv2 "math/rand/v2"
	"sort"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type employee struct {
	name   string
	age    int
	salary int64
}

func TestPriorityQueueItemAlignmentAndSize(t *testing.T) {
	item := NewPriorityQueueItem[int64, *employee](&employee{age: 10, name: "p0"}, 1)
	t.Logf("item alignment size: %d\n", unsafe.Alignof(item))
	prototype := item.(*pqItem[int64, *employee])
	t.Logf("item prototype alignment size: %d\n", unsafe.Alignof(prototype))
	t.Logf("item prototype value alignment size: %d\n", unsafe.Alignof(prototype.value))
	t.Logf("item prototype priority alignment size: %d\n", unsafe.Alignof(prototype.priority))
	t.Logf("item prototype size: %d\n", unsafe.Sizeof(*prototype))

	var nilItem *pqItem[int64, *employee]
	require.Nil(t, nilItem.Value())
	require.Equal(t, int64(0), nilItem.Priority())
}

func pushEmployees(pq PriorityQueue[int64, *employee]) {
	pq.Push(1, &employee{age: 10, name: "p0"})
	pq.Push(101, &employee{age: 101, name: "p1"})
	pq.Push(10, &employee{age: 10, name: "p2"})
	pq.Push(200, &employee{age: 200, name: "p3"})
	pq.Push(3, &employee{age: 3, name: "p4"})
	pq.PushItem(NewPriorityQueueItem[int64, *employee](&employee{age: 1, name: "p5"}, 1))
	pq.PushItem(NewPriorityQueueItem[int64, *employee](&employee{age: 5, name: "p6"}, 5))
	pq.PushItem(NewPriorityQueueItem[int64, *employee](&employee{age: 200, name: "p7"}, 201))
}

func TestPriorityQueue_MinValueAsHighPriority(t *testing.T) {
	pq := NewPriorityQueue[int64, *employee]()
	pushEmployees(pq)
	require.Equal(t, int64(8), pq.Len())

	expectedPriorities := []int64{1, 1, 3, 5, 10, 101, 200, 201}
	expectedNames := []string{"p0", "p5", "p4", "p6", "p2", "p1", "p3", "p7"}
	for i, priority := range expectedPriorities {
		peekItem := pq.Peek()
		require.NotNil(t, peekItem)
		item := pq.Pop()
		t.Logf("%v， priority: %d", item.Value(), item.Priority())
		assert.Equal(t, priority, item.Priority(), "priority", i)
		assert.Equal(t, expectedNames[i], item.Value().name, "name", i)
		assert.Equal(t, peekItem.Priority(), item.Priority())
		assert.Same(t, peekItem.Value(), item.Value())
	}
	require.True(t, pq.IsEmpty())
	require.Nil(t, pq.Peek())
	require.Nil(t, pq.Pop())
}

func TestPriorityQueue_MaxValueAsHighPriority(t *testing.T) {
	pq := NewPriorityQueue[int64, *employee](WithPriorityQueueMaxFirst[int64, *employee]())
	pushEmployees(pq)

	expectedPriorities := []int64{201, 200, 101, 10, 5, 3, 1, 1}
	// Equal priorities still leave in push order.
	expectedNames := []string{"p7", "p3", "p1", "p2", "p6", "p4", "p0", "p5"}
	for i, priority := range expectedPriorities {
		peekItem := pq.Peek()
		t.Logf("peek item: %v， priority: %d", peekItem.Value(), peekItem.Priority())
		item := pq.Pop()
		assert.Equal(t, priority, item.Priority(), "priority", i)
		assert.Equal(t, expectedNames[i], item.Value().name, "name", i)
	}
	require.Nil(t, pq.Pop())
}

func TestPriorityQueue_PopInOrder(t *testing.T) {
	pq := NewPriorityQueue[int, struct{}]()
	for _, pri := range []int{5, 1, 3} {
		pq.Push(pri, struct{}{})
	}
	require.Equal(t, 1, pq.Pop().Priority())
	require.Equal(t, 3, pq.Pop().Priority())
	require.Equal(t, 5, pq.Pop().Priority())
	require.Nil(t, pq.Pop())
	require.Equal(t, int64(0), pq.Len())
}

func TestPriorityQueue_RandomNonDecreasing(t *testing.T) {
	type testcase struct {
		name     string
		maxFirst bool
	}
	testcases := []testcase{
		{name: "min first"},
		{name: "max first", maxFirst: true},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			opts := []PriorityQueueOption[int, int]{}
			if tc.maxFirst {
				opts = append(opts, WithPriorityQueueMaxFirst[int, int]())
			}
			pq := NewPriorityQueue[int, int](opts...)
			priorities := make([]int, 0, 2000)
			for i := 0; i < 2000; i++ {
				pri := randv2.IntN(100)
				priorities = append(priorities, pri)
				pq.Push(pri, i)
			}
			sort.Ints(priorities)
			if tc.maxFirst {
				sort.Sort(sort.Reverse(sort.IntSlice(priorities)))
			}

			lastSeq := map[int]int{}
			for i, expected := range priorities {
				item := pq.Pop()
				require.NotNil(tt, item)
				require.Equal(tt, expected, item.Priority(), "pop %d", i)
				if seq, ok := lastSeq[item.Priority()]; ok {
					require.Greater(tt, item.Value(), seq)
				}
				lastSeq[item.Priority()] = item.Value()
			}
			require.True(tt, pq.IsEmpty())
		})
	}
}

func TestPriorityQueue_OrderedDrainString(t *testing.T) {
	pq := NewPriorityQueueFrom[string, int]([]ReadOnlyPQItem[string, int]{
		NewPriorityQueueItem[string, int](2, "b"),
		NewPriorityQueueItem[string, int](1, "a"),
		NewPriorityQueueItem[string, int](3, "c"),
		nil,
	})
	require.Equal(t, int64(3), pq.Len())
	require.Equal(t, "[a:1 b:2 c:3]", pq.String())
	require.Equal(t, "a:1", fmt.Sprint(pq.Peek()))

	ordered := pq.Ordered()
	require.Len(t, ordered, 3)
	require.Equal(t, "c", ordered[2].Priority())
	require.Equal(t, int64(3), pq.Len())

	drained := pq.Drain()
	require.Len(t, drained, 3)
	require.Equal(t, 1, drained[0].Value())
	require.True(t, pq.IsEmpty())
	require.Equal(t, "[]", pq.String())

	pq.Push("z", 26)
	pq.Clear()
	require.Nil(t, pq.Peek())
}

func TestPriorityQueue_Comparator(t *testing.T) {
	byAge := func(i, j *employee) int64 {
		return int64(i.age - j.age)
	}
	pq := NewPriorityQueueWithComparator[*employee, string](byAge)
	pq.Push(&employee{age: 30}, "c")
	pq.Push(&employee{age: 10}, "a")
	pq.Push(&employee{age: 20}, "b")
	require.Equal(t, "a", pq.Pop().Value())
	require.Equal(t, "b", pq.Pop().Value())
	require.Equal(t, "c", pq.Pop().Value())
}

func BenchmarkRBTreePriorityQueue_Push(b *testing.B) {
	var list = make([]ReadOnlyPQItem[int64, *employee], 0, b.N)
	for i := 0; i < b.N; i++ {
		e := NewPriorityQueueItem[int64, *employee](&employee{age: i, name: fmt.Sprintf("p%d", i)}, int64(i))
		list = append(list, e)
	}
	b.ResetTimer()
	pq := NewPriorityQueue[int64, *employee](WithPriorityQueueMaxFirst[int64, *employee]())
	for i := 0; i < b.N; i++ {
		pq.PushItem(list[i])
	}
	b.ReportAllocs()
}

func BenchmarkRBTreePriorityQueue_Pop(b *testing.B) {
	pq := NewPriorityQueue[int64, *employee]()
	for i := 0; i < b.N; i++ {
		pq.Push(int64(i), &employee{age: i, name: fmt.Sprintf("p%d", i)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pq.Pop()
	}
	b.ReportAllocs()
}
