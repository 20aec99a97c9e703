package infra

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaturalOrder(t *testing.T) {
	ints := NaturalOrder[int]()
	assert.Equal(t, int64(-1), ints(1, 2))
	assert.Equal(t, int64(0), ints(2, 2))
	assert.Equal(t, int64(1), ints(3, 2))

	strs := NaturalOrder[string]()
	assert.Equal(t, int64(-1), strs("a", "b"))
	assert.Equal(t, int64(0), strs("xyz", "xyz"))

	floats := NaturalOrder[float64]()
	nan := math.NaN()
	// NaN is not order-equal to itself.
	require.NotEqual(t, int64(0), floats(nan, nan))
}

func TestReverseOrder(t *testing.T) {
	require.Nil(t, ReverseOrder[int](nil))
	desc := ReverseOrder[int](NaturalOrder[int]())
	assert.Equal(t, int64(1), desc(1, 2))
	assert.Equal(t, int64(0), desc(2, 2))
	assert.Equal(t, int64(-1), desc(3, 2))

	caseless := func(i, j string) int64 {
		return int64(strings.Compare(strings.ToLower(i), strings.ToLower(j)))
	}
	assert.Equal(t, int64(0), ReverseOrder[string](caseless)("ABC", "abc"))
}

func TestFromOrderedKeyComparator(t *testing.T) {
	cmp := FromOrderedKeyComparator[int64](nil)
	assert.Equal(t, int64(-1), cmp(-5, 5))

	sub := FromOrderedKeyComparator[int64](func(i, j int64) int64 {
		return i - j
	})
	assert.Equal(t, int64(10), sub(15, 5))
}
