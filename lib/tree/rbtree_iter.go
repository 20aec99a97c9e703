package tree

import "go.uber.org/zap"

var _ RBIterator[uint8, struct{}] = (*rbIterator[uint8, struct{}])(nil)

// rbIterator is the lazy version of Foreach. The stack holds the
// left spine of the subtree still to be visited.
type rbIterator[K any, V any] struct {
	tree    *rbTree[K, V]
	stack   []*rbNode[K, V]
	version uint64
}

func (it *rbIterator[K, V]) mustValid() {
	if it.version != it.tree.version {
		it.tree.violation(errRBTreeIterInvalidate,
			zap.Uint64("iterVersion", it.version),
			zap.Uint64("treeVersion", it.tree.version),
		)
	}
}

func (it *rbIterator[K, V]) pushLeft(aux *rbNode[K, V]) {
	for ; aux != nil; aux = aux.left {
		it.stack = append(it.stack, aux)
	}
}

func (it *rbIterator[K, V]) HasNext() bool {
	it.mustValid()
	return len(it.stack) > 0
}

func (it *rbIterator[K, V]) Next() (key K, val V, ok bool) {
	it.mustValid()
	size := len(it.stack)
	if size <= 0 {
		return key, val, false
	}
	aux := it.stack[size-1]
	it.stack[size-1] = nil
	it.stack = it.stack[:size-1]
	it.pushLeft(aux.right)
	return aux.key, aux.val, true
}

// Reset rewinds to the first entry of the current tree.
func (it *rbIterator[K, V]) Reset() {
	clear(it.stack)
	it.stack = it.stack[:0]
	it.version = it.tree.version
	it.pushLeft(it.tree.root)
}
