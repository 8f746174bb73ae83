// Package splay implements a splay-tree base shared by the document tree
// and the split tree. Go generics give the monomorphized dispatch the
// design notes ask for: each concrete tree supplies an Accessor[N] over its
// own child/parent/aggregate fields, and the splay/rotate machinery below
// is compiled once per instantiation with no virtual calls in the hot path.
package splay

// Accessor lets a Tree[N] manipulate an arbitrary node type N as a binary
// tree node without knowing its field layout. Implementations wrap a
// concrete node type (e.g. *segment.Segment) and read/write whichever pair
// of child/parent fields belongs to the tree in question (the document
// tree and the split tree each keep their own, since a Segment is a member
// of both trees at once).
type Accessor[N any] interface {
	Left(n *N) *N
	SetLeft(n, child *N)
	Right(n *N) *N
	SetRight(n, child *N)
	Parent(n *N) *N
	SetParent(n, parent *N)

	// Update recomputes n's subtree aggregate from n's own value and its
	// (already up to date) children. Called bottom-up after any rotation
	// or structural change.
	Update(n *N)
}

// Tree is a splay tree over node type N, parameterized by an Accessor that
// supplies the tree-specific child/parent/aggregate wiring.
type Tree[N any] struct {
	Root *N
	Acc  Accessor[N]
}

// New creates an empty tree bound to the given accessor.
func New[N any](acc Accessor[N]) *Tree[N] {
	return &Tree[N]{Acc: acc}
}

func (t *Tree[N]) rotateLeft(x *N) {
	a := t.Acc
	y := a.Right(x)
	if y == nil {
		return
	}
	a.SetRight(x, a.Left(y))
	if a.Left(y) != nil {
		a.SetParent(a.Left(y), x)
	}
	a.SetParent(y, a.Parent(x))
	if p := a.Parent(x); p == nil {
		t.Root = y
	} else if a.Left(p) == x {
		a.SetLeft(p, y)
	} else {
		a.SetRight(p, y)
	}
	a.SetLeft(y, x)
	a.SetParent(x, y)
	a.Update(x)
	a.Update(y)
}

func (t *Tree[N]) rotateRight(x *N) {
	a := t.Acc
	y := a.Left(x)
	if y == nil {
		return
	}
	a.SetLeft(x, a.Right(y))
	if a.Right(y) != nil {
		a.SetParent(a.Right(y), x)
	}
	a.SetParent(y, a.Parent(x))
	if p := a.Parent(x); p == nil {
		t.Root = y
	} else if a.Left(p) == x {
		a.SetLeft(p, y)
	} else {
		a.SetRight(p, y)
	}
	a.SetRight(y, x)
	a.SetParent(x, y)
	a.Update(x)
	a.Update(y)
}

// Splay rotates x to the root of its tree using the standard zig/zig-zig/
// zig-zag splay schedule, amortizing descents across repeated access to
// nearby nodes.
func (t *Tree[N]) Splay(x *N) {
	if x == nil {
		return
	}
	a := t.Acc
	for {
		p := a.Parent(x)
		if p == nil {
			break
		}
		g := a.Parent(p)
		if g == nil {
			if a.Left(p) == x {
				t.rotateRight(p)
			} else {
				t.rotateLeft(p)
			}
			break
		}
		pIsLeftOfG := a.Left(g) == p
		xIsLeftOfP := a.Left(p) == x
		switch {
		case pIsLeftOfG && xIsLeftOfP:
			t.rotateRight(g)
			t.rotateRight(p)
		case !pIsLeftOfG && !xIsLeftOfP:
			t.rotateLeft(g)
			t.rotateLeft(p)
		case pIsLeftOfG && !xIsLeftOfP:
			t.rotateLeft(p)
			t.rotateRight(g)
		default:
			t.rotateRight(p)
			t.rotateLeft(g)
		}
	}
	t.Root = x
}

// SetRoot makes n the tree's root, detaching it from any parent. Callers
// that restructure around a splayed boundary node use it to finish the
// rewiring.
func (t *Tree[N]) SetRoot(n *N) {
	t.Root = n
	if n != nil {
		t.Acc.SetParent(n, nil)
	}
}

// Leftmost walks left from n to the leftmost descendant.
func (t *Tree[N]) Leftmost(n *N) *N {
	a := t.Acc
	for n != nil && a.Left(n) != nil {
		n = a.Left(n)
	}
	return n
}

// Rightmost walks right from n to the rightmost descendant.
func (t *Tree[N]) Rightmost(n *N) *N {
	a := t.Acc
	for n != nil && a.Right(n) != nil {
		n = a.Right(n)
	}
	return n
}

// Successor returns the in-order successor of n within the whole tree, or
// nil if n is the last node. It does not splay.
func (t *Tree[N]) Successor(n *N) *N {
	a := t.Acc
	if r := a.Right(n); r != nil {
		return t.Leftmost(r)
	}
	for {
		p := a.Parent(n)
		if p == nil {
			return nil
		}
		if a.Left(p) == n {
			return p
		}
		n = p
	}
}

// Predecessor returns the in-order predecessor of n within the whole tree,
// or nil if n is the first node. It does not splay.
func (t *Tree[N]) Predecessor(n *N) *N {
	a := t.Acc
	if l := a.Left(n); l != nil {
		return t.Rightmost(l)
	}
	for {
		p := a.Parent(n)
		if p == nil {
			return nil
		}
		if a.Right(p) == n {
			return p
		}
		n = p
	}
}

// InsertBetween inserts newNode between the (possibly nil) neighbors prev
// and next, which must currently be adjacent in in-order traversal (no
// other node between them). Either neighbor may be nil to insert at the
// very start or end of the tree. The document tree's InsertBetween is
// built on it; split trees never insert a node this way, they only grow
// through SplitAt.
func (t *Tree[N]) InsertBetween(prev, next, newNode *N) {
	a := t.Acc
	switch {
	case prev == nil && next == nil:
		a.SetLeft(newNode, nil)
		a.SetRight(newNode, nil)
		a.SetParent(newNode, nil)
		t.Root = newNode
		a.Update(newNode)
	case prev == nil:
		t.Splay(next)
		a.SetLeft(newNode, nil)
		a.SetRight(newNode, next)
		a.SetParent(next, newNode)
		a.SetParent(newNode, nil)
		t.Root = newNode
		a.Update(next)
		a.Update(newNode)
	case next == nil:
		t.Splay(prev)
		a.SetRight(newNode, nil)
		a.SetLeft(newNode, prev)
		a.SetParent(prev, newNode)
		a.SetParent(newNode, nil)
		t.Root = newNode
		a.Update(prev)
		a.Update(newNode)
	default:
		t.Splay(prev)
		right := a.Right(prev)
		a.SetRight(prev, nil)
		if right != nil {
			a.SetParent(right, nil)
		}
		// next is prev's in-order successor with nothing between them,
		// so splaying next within prev's former right subtree brings it
		// to that subtree's root with no left child of its own.
		subtree := &Tree[N]{Root: right, Acc: a}
		subtree.Splay(next)
		a.SetLeft(newNode, prev)
		a.SetParent(prev, newNode)
		a.SetRight(newNode, subtree.Root)
		if subtree.Root != nil {
			a.SetParent(subtree.Root, newNode)
		}
		a.SetParent(newNode, nil)
		a.Update(prev)
		if subtree.Root != nil {
			a.Update(subtree.Root)
		}
		a.Update(newNode)
		t.Root = newNode
	}
}

// SplitAt splays prefix to the root, then makes suffix the new root with
// prefix as its left child and prefix's former right subtree reattached
// under suffix. It is the shared machinery behind both trees'
// segment-splitting operations.
func (t *Tree[N]) SplitAt(prefix, suffix *N) {
	a := t.Acc
	t.Splay(prefix)
	right := a.Right(prefix)
	a.SetRight(prefix, nil)
	a.SetLeft(suffix, prefix)
	a.SetParent(prefix, suffix)
	a.SetRight(suffix, right)
	if right != nil {
		a.SetParent(right, suffix)
	}
	a.SetParent(suffix, nil)
	a.Update(prefix)
	a.Update(suffix)
	t.Root = suffix
}

// InOrder appends the in-order traversal of the tree rooted at n to dst and
// returns the extended slice. It is iterative (explicit stack) so large
// documents don't risk recursion depth.
func InOrder[N any](acc Accessor[N], n *N, dst []*N) []*N {
	var stack []*N
	cur := n
	for cur != nil || len(stack) > 0 {
		for cur != nil {
			stack = append(stack, cur)
			cur = acc.Left(cur)
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dst = append(dst, cur)
		cur = acc.Right(cur)
	}
	return dst
}
