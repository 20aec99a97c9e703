package infra

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is a constraint that permits any unsigned integer type.
// If future releases of Go add new predeclared unsigned integer types,
// this constraint will be modified to include them.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Integer is a constraint that permits any integer type.
// If future releases of Go add new predeclared integer types,
// this constraint will be modified to include them.
type Integer interface {
	Signed | Unsigned
}

// Float is a constraint that permits any floating-point type.
// If future releases of Go add new predeclared floating-point types,
// this constraint will be modified to include them.
type Float interface {
	~float32 | ~float64
}

// OrderedKey
// byte => ~uint8
type OrderedKey interface {
	Integer | Float | ~string
}

// OrderedKeyComparator
// Assume i is the new key.
//  1. i == j (i-j == 0, return 0)
//  2. i > j (i-j > 0, return 1), turn to right part.
//  3. i < j (i-j < 0, return -1), turn to left part.
type OrderedKeyComparator[K OrderedKey] func(i, j K) int64

// Comparator is the three-way comparison injected into the ordered
// collections. It must describe a total order over every key the
// collection will ever hold.
//
//	res < 0, i precedes j
//	res == 0, i and j are order-equal
//	res > 0, i follows j
type Comparator[K any] func(i, j K) int64

// NaturalOrder returns the ascending comparator of the builtin ordered types.
// NaN is neither less than, greater than nor equal to itself, so a NaN key
// compares as "greater" even against itself and will be rejected by the
// collections as a non-comparable key.
func NaturalOrder[K OrderedKey]() Comparator[K] {
	return func(i, j K) int64 {
		if i == j {
			return 0
		} else if i < j {
			return -1
		}
		return 1
	}
}

// ReverseOrder flips the direction of cmp.
func ReverseOrder[K any](cmp Comparator[K]) Comparator[K] {
	if cmp == nil {
		return nil
	}
	return func(i, j K) int64 {
		return cmp(j, i)
	}
}

// FromOrderedKeyComparator lifts a natural order comparator into a Comparator.
func FromOrderedKeyComparator[K OrderedKey](cmp OrderedKeyComparator[K]) Comparator[K] {
	if cmp == nil {
		return NaturalOrder[K]()
	}
	return Comparator[K](cmp)
}
