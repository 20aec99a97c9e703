package tree

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/benz9527/xordered/lib/infra"
	"github.com/benz9527/xordered/xlog"
)

var (
	ErrRBTreeEmpty          = errors.New("[rbtree] empty element to remove")
	ErrRBTreeNotFound       = errors.New("[rbtree] key not found")
	ErrRBTreeForeignNode    = errors.New("[rbtree] node does not belong to the tree")
	errRBTreeNilComparator  = errors.New("[rbtree] nil key comparator")
	errRBTreeNotComparable  = errors.New("[rbtree] key is not comparable to itself")
	errRBTreeIterInvalidate = errors.New("[rbtree] iterator used after the tree was mutated")
)

var (
	_ RBTree[uint8, struct{}] = (*rbTree[uint8, struct{}])(nil)
	_ RBNode[uint8, struct{}] = (*rbNode[uint8, struct{}])(nil)
)

type rbTree[K any, V any] struct {
	root           *rbNode[K, V]
	cmp            infra.Comparator[K]
	logger         xlog.XLogger
	stats          *rbtreeStats
	statsName      string
	count          atomic.Int64
	version        uint64
	isDesc         bool
	isRmBorrowPred bool
}

func (tree *rbTree[K, V]) keyCompare(k1, k2 K) int64 {
	res := tree.cmp(k1, k2)
	if res < 0 {
		res = -1
	} else if res > 0 {
		res = 1
	}
	if tree.isDesc {
		return -res
	}
	return res
}

// violation logs and raises a caller contract violation.
// There is no invariant-preserving recovery once it happens.
func (tree *rbTree[K, V]) violation(err error, fields ...zap.Field) {
	es := infra.WrapErrorStack(err)
	tree.logger.ErrorStack(es, "[rbtree] contract violation", fields...)
	panic(es)
}

// A key that is not order-equal to itself (NaN under the natural order,
// or an inconsistent comparator) would silently corrupt the search order.
func (tree *rbTree[K, V]) mustComparable(key K) {
	if tree.cmp(key, key) != 0 {
		tree.violation(errRBTreeNotComparable, zap.Any("key", key))
	}
}

func (tree *rbTree[K, V]) Len() int64 {
	return tree.count.Load()
}

func (tree *rbTree[K, V]) IsEmpty() bool {
	return tree.Len() == 0
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

func (tree *rbTree[K, V]) Comparator() infra.Comparator[K] {
	return tree.keyCompare
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p4.
// The longest path nodes' number is at most 2 * shortest path nodes' number,
// so the height never exceeds 2 * log2(n + 1).

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K, V]) leftRotate(x *rbNode[K, V]) {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	dir := x.direction()
	x.right, y.left = y.left, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	y.parent = p
	tree.stats.IncreaseRotationCount(Left)
}

/*
			 |                         |
			 X                         L
			/ \     rightRotate(X)    / \
	       L   R    ============>   Ld   X
		  / \                           / \
		Ld   Lc                       Lc   R
*/
func (tree *rbTree[K, V]) rightRotate(x *rbNode[K, V]) {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	dir := x.direction()
	x.left, y.right = y.right, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	y.parent = p
	tree.stats.IncreaseRotationCount(Right)
}

// searchFirst is a lower bound descent that remembers the last order-equal
// node, so it ends at the leftmost (earliest inserted) one.
func (tree *rbTree[K, V]) searchFirst(key K) *rbNode[K, V] {
	var found *rbNode[K, V]
	for x := tree.root; x != nil; {
		res := tree.keyCompare(key, x.key)
		if res <= 0 {
			if res == 0 {
				found = x
			}
			x = x.left
		} else {
			x = x.right
		}
	}
	return found
}

func (tree *rbTree[K, V]) Search(key K) RBNode[K, V] {
	if x := tree.searchFirst(key); x != nil {
		return x
	}
	return nil
}

// i1: Empty rbtree, insert directly, but root node is painted to black.
// Otherwise, an order-equal key is placed into the right subtree of
// every order-equal node met during descent, so in-order traversal
// keeps them in insertion order.
func (tree *rbTree[K, V]) insert(key K, val V) (z *rbNode[K, V], existed bool) {
	z = &rbNode[K, V]{
		key:   key,
		val:   val,
		color: Red,
		hasKV: true,
	}
	tree.version++
	tree.count.Add(1)
	tree.stats.IncreaseInsertCount()

	if /* i1 */ tree.root == nil {
		z.color = Black
		tree.root = z
		return z, false
	}

	var (
		x, y *rbNode[K, V] = tree.root, nil
		res  int64
	)
	for x != nil {
		y = x
		if res = tree.keyCompare(key, x.key); /* less */ res < 0 {
			x = x.left
		} else /* equal or greater */ {
			existed = existed || res == 0
			x = x.right
		}
	}

	z.parent = y
	if res < 0 {
		y.left = z
	} else {
		y.right = z
	}
	tree.insertRebalance(z)
	return z, existed
}

func (tree *rbTree[K, V]) Insert(key K, val V) (RBNode[K, V], bool) {
	tree.mustComparable(key)
	return tree.insert(key, val)
}

func (tree *rbTree[K, V]) InsertIfAbsent(key K, val V) (RBNode[K, V], bool) {
	tree.mustComparable(key)
	if x := tree.searchFirst(key); x != nil {
		return x, false
	}
	z, _ := tree.insert(key, val)
	return z, true
}

// Upsert replaces the value in place, the structure is untouched,
// so outstanding iterators stay valid.
func (tree *rbTree[K, V]) Upsert(key K, val V) (prev V, replaced bool) {
	tree.mustComparable(key)
	if x := tree.searchFirst(key); x != nil {
		prev, x.val = x.val, val
		return prev, true
	}
	tree.insert(key, val)
	return prev, false
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

im1: Current node X's parent P is black, so hold p3 and p4. Done.

im2: Current node X is the root, repaint it into black. Done.

im3: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Recursive to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P to opposite direction.
After rotation may be still red-violation. Here must enter im5 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: Handle im4 scenario, current node is the same direction as parent.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K, V]) insertRebalance(x *rbNode[K, V]) {
	steps := int64(0)
	defer func() {
		tree.stats.RecordFixupSteps(insertOp, steps)
	}()

	for /* im1, im2 */ x.parent != nil && x.parent.isRed() {
		steps++
		// The red parent can't be the root, so the grandpa is present.
		p := x.parent
		gp := p.parent
		uncle := p.sibling()

		if /* im3 */ uncle.isRed() {
			p.color = Black
			uncle.color = Black
			gp.color = Red
			x = gp
			continue
		}

		if dir := x.direction(); /* im4 */ dir != p.direction() {
			switch dir {
			case Left:
				tree.rightRotate(p)
			case Right:
				tree.leftRotate(p)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] insert violate (im4)")
			}
			p = x // enter im5 to fix
		}

		/* im5 */
		p.color = Black
		gp.color = Red
		switch p.direction() {
		case Left:
			tree.rightRotate(gp)
		case Right:
			tree.leftRotate(gp)
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] insert violate (im5)")
		}
		break
	}
	tree.root.color = Black
}

/*
r1: Current node X has left and right node.
Find node X's succ (or pred) to replace it to be removed.
Swap the key and value only, then remove the succ node which
has at most one child.

Find succ:

	  |                    |
	  X                    S
	 / \                  / \
	L  ..   swap(X, S)   L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..                X  ..

r2: The node Y to unlink has one child C. C must be a red node and
Y must be a black node. (See conclusion. Otherwise, black-violation)
Link C to Y's parent and repaint C into black.

r3: (1) Current node Y is the only node, the tree becomes empty.

r3: (2) Current node Y is a red leaf node, unlink directly.

r3: (3) Current node Y is a black leaf node, its position becomes
deficient (double black). Rebalance with Y still in place, then unlink it.
*/
func (tree *rbTree[K, V]) removeNode(z *rbNode[K, V]) *rbNode[K, V] {
	res := z.detach()

	y := z
	if /* r1 */ z.left != nil && z.right != nil {
		if tree.isRmBorrowPred {
			y = z.pred()
		} else {
			y = z.succ()
		}
		// Swap key & value.
		z.key, z.val = y.key, y.val
	}

	child := y.left
	if child == nil {
		child = y.right
	}

	if /* r2 */ child != nil {
		switch y.direction() {
		case Root:
			tree.root = child
		case Left:
			y.parent.left = child
		case Right:
			y.parent.right = child
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove violate (r2)")
		}
		child.parent = y.parent
		if y.isBlack() {
			if child.isRed() {
				child.color = Black
			} else {
				// impossible run to here for a valid tree
				tree.removeRebalance(child)
			}
		}
	} else if /* r3 (1) */ y.isRoot() {
		tree.root = nil
	} else {
		if /* r3 (3) */ y.isBlack() {
			tree.removeRebalance(y)
		}
		// Unlink node
		if y == y.parent.left {
			y.parent.left = nil
		} else {
			y.parent.right = nil
		}
	}

	y.parent = nil
	y.left = nil
	y.right = nil
	y.hasKV = false

	tree.version++
	tree.count.Add(-1)
	tree.stats.IncreaseRemoveCount()
	return res
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

Sc is the same direction to X and it is X's sibling's near child node.
Sd is the opposite direction to X and it is X's sibling's far child node.

rm1: Current node X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
(1) X is left node of P, left rotate P
(2) X is right node of P, right rotate P.
(3) repaint S into black, P into red.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [D]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: Current node X's parent P is red, the sibling S, nephew node Sc and Sd
is black.
Repaint S into red and P into black.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: All of current node X's parent P, the sibling S, nephew node Sc and Sd
are black.
Unable to satisfy p3 and p4. We have to paint the S into red to satisfy
p4 locally. Then recursive to handle P.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm4: Current node X's sibling S is black, nephew node Sc is red and Sd
is black. Ignore X's parent P's color (red or black is okay)
(1) If X is left node of P, right rotate S.
(2) If X is right node of P, left rotate S.
(3) Repaint S into red, Sc into black
Enter into rm5 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm5: Current node X's sibling S is black and the far nephew Sd is red.
Ignore X's parent P's color (red or black is okay)
(1) If X is left node of P, left rotate P.
(2) If X is right node of P, right rotate P.
(3) S takes P's color, P is repainted into black.
(4) Repaint Sd into black.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K, V]) removeRebalance(x *rbNode[K, V]) {
	steps := int64(0)
	defer func() {
		tree.stats.RecordFixupSteps(removeOp, steps)
	}()

	// A deficient black node always has a sibling, its subtree
	// carries at least one black node.
	for !x.isRoot() {
		steps++
		dir := x.direction()
		sibling := x.sibling()
		if /* rm1 */ sibling.isRed() {
			switch dir {
			case Left:
				tree.leftRotate(x.parent)
			case Right:
				tree.rightRotate(x.parent)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove violate (rm1)")
			}
			sibling.color = Black
			x.parent.color = Red // ready to enter rm2
			sibling = x.sibling()
		}

		var sc, sd *rbNode[K, V]
		switch dir {
		case Left:
			sc, sd = sibling.left, sibling.right
		case Right:
			sc, sd = sibling.right, sibling.left
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove violate (rm2)")
		}

		if sc.isBlack() && sd.isBlack() {
			sibling.color = Red
			if /* rm2 */ x.parent.isRed() {
				x.parent.color = Black
				return
			}
			/* rm3 */
			x = x.parent
			continue
		}

		if /* rm4 */ sd.isBlack() {
			switch dir {
			case Left:
				tree.rightRotate(sibling)
			case Right:
				tree.leftRotate(sibling)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove violate (rm4)")
			}
			sc.color = Black
			sibling.color = Red
			sd, sibling = sibling, sc
		}

		/* rm5 */
		switch dir {
		case Left:
			tree.leftRotate(x.parent)
		case Right:
			tree.rightRotate(x.parent)
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove violate (rm5)")
		}
		sibling.color = x.parent.color
		x.parent.color = Black
		sd.color = Black
		return
	}
}

func (tree *rbTree[K, V]) Remove(key K) (RBNode[K, V], error) {
	if tree.Len() <= 0 {
		return nil, ErrRBTreeEmpty
	}
	z := tree.searchFirst(key)
	if z == nil {
		return nil, ErrRBTreeNotFound
	}
	return tree.removeNode(z), nil
}

func (tree *rbTree[K, V]) owns(node *rbNode[K, V]) bool {
	if node == nil || !node.hasKV {
		return false
	}
	aux := node
	for ; aux.parent != nil; aux = aux.parent {
	}
	return aux == tree.root
}

// RemoveNode removes exactly the node behind the handle.
func (tree *rbTree[K, V]) RemoveNode(node RBNode[K, V]) (RBNode[K, V], error) {
	if tree.Len() <= 0 {
		return nil, ErrRBTreeEmpty
	}
	z, ok := node.(*rbNode[K, V])
	if !ok || !tree.owns(z) {
		return nil, ErrRBTreeForeignNode
	}
	return tree.removeNode(z), nil
}

func (tree *rbTree[K, V]) RemoveMin() (RBNode[K, V], error) {
	if tree.Len() <= 0 {
		return nil, ErrRBTreeEmpty
	}
	return tree.removeNode(tree.root.minimum()), nil
}

func (tree *rbTree[K, V]) RemoveMax() (RBNode[K, V], error) {
	if tree.Len() <= 0 {
		return nil, ErrRBTreeEmpty
	}
	return tree.removeNode(tree.root.maximum()), nil
}

func (tree *rbTree[K, V]) Min() RBNode[K, V] {
	if tree.root == nil {
		return nil
	}
	return tree.root.minimum()
}

func (tree *rbTree[K, V]) Max() RBNode[K, V] {
	if tree.root == nil {
		return nil
	}
	return tree.root.maximum()
}

// Height is the number of nodes on the longest root to leaf path.
// BFS level by level, no recursion.
func (tree *rbTree[K, V]) Height() int {
	if tree.root == nil {
		return 0
	}
	height := 0
	level := []*rbNode[K, V]{tree.root}
	next := make([]*rbNode[K, V], 0, 2)
	for len(level) > 0 {
		height++
		next = next[:0]
		for _, aux := range level {
			if aux.left != nil {
				next = append(next, aux.left)
			}
			if aux.right != nil {
				next = append(next, aux.right)
			}
		}
		level, next = next, level
	}
	return height
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	size := tree.Len()
	aux := tree.root
	if size <= 0 || aux == nil || action == nil {
		return
	}

	stack := make([]*rbNode[K, V], 0, size>>1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key, aux.val) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

func (tree *rbTree[K, V]) Iterator() RBIterator[K, V] {
	it := &rbIterator[K, V]{tree: tree}
	it.Reset()
	return it
}

// Release tears down the links iteratively, without recursion.
func (tree *rbTree[K, V]) Release() {
	size, released := tree.Len(), tree.Len()
	aux := tree.root
	tree.root = nil
	tree.version++
	if size <= 0 || aux == nil {
		return
	}

	stack := make([]*rbNode[K, V], 0, size>>1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		aux = stack[size-1]
		r := aux.right
		aux.left, aux.right, aux.parent = nil, nil, nil
		aux.hasKV = false
		tree.count.Add(-1)
		stack = stack[:size-1]
		for aux = r; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
	tree.stats.RecordRelease(released)
	tree.logger.Debug("[rbtree] released", zap.String("name", tree.statsName), zap.Int64("nodes", released))
}

type RBTreeOpt[K any, V any] func(*rbTree[K, V])

func WithRBTreeDesc[K any, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isDesc = true
	}
}

// WithRBTreeRemoveBorrowPred splices the in-order predecessor instead of
// the successor when a node with two children is removed.
func WithRBTreeRemoveBorrowPred[K any, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isRmBorrowPred = true
	}
}

func WithRBTreeComparator[K any, V any](cmp infra.Comparator[K]) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.cmp = cmp
	}
}

func WithRBTreeLogger[K any, V any](logger xlog.XLogger) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		if logger != nil {
			tree.logger = logger
		}
	}
}

// WithRBTreeStats enables the OpenTelemetry instruments of the tree,
// registered under the global meter provider.
func WithRBTreeStats[K any, V any](name string) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		if len(name) == 0 {
			name = "default"
		}
		tree.statsName = name
	}
}

func NewRBTree[K infra.OrderedKey, V any](opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	return NewRBTreeWithComparator[K, V](infra.NaturalOrder[K](), opts...)
}

func NewRBTreeWithComparator[K any, V any](cmp infra.Comparator[K], opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	return newRBTree[K, V](cmp, opts...)
}

func newRBTree[K any, V any](cmp infra.Comparator[K], opts ...RBTreeOpt[K, V]) *rbTree[K, V] {
	tree := &rbTree[K, V]{
		cmp:    cmp,
		logger: xlog.NewNopXLogger(),
	}

	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}

	if tree.cmp == nil {
		tree.violation(errRBTreeNilComparator)
	}
	if len(tree.statsName) > 0 {
		tree.stats = newRBTreeStats(tree.statsName)
	}
	return tree
}
