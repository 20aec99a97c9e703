package tree

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

var (
	ErrRBTreeRedViolation    = errors.New("[rbtree] red violation")
	ErrRBTreeBlackViolation  = errors.New("[rbtree] black violation")
	ErrRBTreeRootViolation   = errors.New("[rbtree] root is not black")
	ErrRBTreeOrderViolation  = errors.New("[rbtree] in-order sequence is not sorted")
	ErrRBTreeHeightViolation = errors.New("[rbtree] height exceeds 2*log2(n+1)")
	ErrRBTreeSizeViolation   = errors.New("[rbtree] node count mismatch")
	ErrRBTreeLinkViolation   = errors.New("[rbtree] child to parent link is broken")
)

func isBlack[K any, V any](node RBNode[K, V]) bool {
	return node == nil || node.Color() == Black
}

func isRed[K any, V any](node RBNode[K, V]) bool {
	return node != nil && node.Color() == Red
}

func isRoot[K any, V any](node RBNode[K, V]) bool {
	return node != nil && node.Parent() == nil
}

func blackDepthTo[K any, V any](target, to RBNode[K, V]) int {
	depth := 0
	for aux := target; aux != nil && aux != to; aux = aux.Parent() {
		if isBlack[K, V](aux) {
			depth++
		}
	}
	return depth
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// inorder visits the nodes by a stack, without recursion.
func inorder[K any, V any](tree RBTree[K, V], action func(node RBNode[K, V]) error) error {
	// The recorded size may drift from the links, only the root gates.
	aux := tree.Root()
	if aux == nil {
		return nil
	}

	stack := make([]RBNode[K, V], 0, max(tree.Len()>>1, 0))
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}

	for l := len(stack); l > 0; l = len(stack) {
		aux = stack[l-1]
		if err := action(aux); err != nil {
			return err
		}
		stack = stack[:l-1]
		for aux = aux.Right(); aux != nil; aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

// Inorder traversal to validate no red node has a red child.
func RedViolationValidate[K any, V any](tree RBTree[K, V]) error {
	return inorder[K, V](tree, func(aux RBNode[K, V]) error {
		if isRed[K, V](aux) && (isRed[K, V](aux.Left()) || isRed[K, V](aux.Right())) {
			return fmt.Errorf("%w at key %v", ErrRBTreeRedViolation, aux.Key())
		}
		return nil
	})
}

// BFS traversal to load all nodes that own at least one nil leaf.
func bfsLeaves[K any, V any](tree RBTree[K, V]) []RBNode[K, V] {
	size := tree.Len()
	aux := tree.Root()
	if size <= 0 || aux == nil {
		return nil
	}

	leaves := make([]RBNode[K, V], 0, size>>1+1)
	queue := make([]RBNode[K, V], 0, size>>1)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, aux)

	for len(queue) > 0 {
		aux = queue[0]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ l == nil || r == nil {
			leaves = append(leaves, aux)
		}
		if l != nil {
			queue = append(queue, l)
		}
		if r != nil {
			queue = append(queue, r)
		}
		queue = queue[1:]
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
		  /  \             /    \
		 /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal.
*/
func BlackViolationValidate[K any, V any](tree RBTree[K, V]) error {
	leaves := bfsLeaves[K, V](tree)
	if leaves == nil {
		return nil
	}

	// Depth from leaf up to the root, the root included.
	blackDepth := blackDepthTo[K, V](leaves[0], nil)
	for i := 1; i < len(leaves); i++ {
		if depth := blackDepthTo[K, V](leaves[i], nil); depth != blackDepth {
			return fmt.Errorf("%w, key %v depth %d, expected %d",
				ErrRBTreeBlackViolation, leaves[i].Key(), depth, blackDepth)
		}
	}
	return nil
}

func RootColorValidate[K any, V any](tree RBTree[K, V]) error {
	if root := tree.Root(); root != nil && (!isBlack[K, V](root) || !isRoot[K, V](root)) {
		return ErrRBTreeRootViolation
	}
	return nil
}

// OrderViolationValidate checks the in-order keys are non-decreasing under
// the effective order of the tree, and every child links back to its parent.
func OrderViolationValidate[K any, V any](tree RBTree[K, V]) error {
	cmp := tree.Comparator()
	var prev RBNode[K, V]
	return inorder[K, V](tree, func(aux RBNode[K, V]) error {
		if l := aux.Left(); l != nil && l.Parent() != aux {
			return fmt.Errorf("%w at key %v", ErrRBTreeLinkViolation, l.Key())
		}
		if r := aux.Right(); r != nil && r.Parent() != aux {
			return fmt.Errorf("%w at key %v", ErrRBTreeLinkViolation, r.Key())
		}
		if prev != nil && cmp(prev.Key(), aux.Key()) > 0 {
			return fmt.Errorf("%w, %v before %v", ErrRBTreeOrderViolation, prev.Key(), aux.Key())
		}
		prev = aux
		return nil
	})
}

func HeightViolationValidate[K any, V any](tree RBTree[K, V]) error {
	n := tree.Len()
	if n <= 0 {
		return nil
	}
	maxHeight := 2 * math.Log2(float64(n+1))
	if h := tree.Height(); float64(h) > maxHeight {
		return fmt.Errorf("%w, height %d, nodes %d", ErrRBTreeHeightViolation, h, n)
	}
	return nil
}

func SizeViolationValidate[K any, V any](tree RBTree[K, V]) error {
	count := int64(0)
	_ = inorder[K, V](tree, func(RBNode[K, V]) error {
		count++
		return nil
	})
	if n := tree.Len(); count != n {
		return fmt.Errorf("%w, counted %d, recorded %d", ErrRBTreeSizeViolation, count, n)
	}
	return nil
}

// Validate runs every structural check and combines the violations.
func Validate[K any, V any](tree RBTree[K, V]) error {
	return multierr.Combine(
		RootColorValidate[K, V](tree),
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		OrderViolationValidate[K, V](tree),
		HeightViolationValidate[K, V](tree),
		SizeViolationValidate[K, V](tree),
	)
}
