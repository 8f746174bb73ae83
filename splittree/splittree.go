// Package splittree implements the per-splice split tree: a splay tree,
// keyed by offset within the originating splice's inserted text, over the
// pieces that splice has been cut into by later concurrent
// insertions. Its aggregate is raw extent, the full length of every piece
// regardless of whether it is currently visible, which is what
// offset-based lookups need.
package splittree

import (
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/splay"
)

// Tree is one splice's split tree.
type Tree struct {
	tree *splay.Tree[segment.Segment]
}

type accessor struct{}

func (accessor) Left(n *segment.Segment) *segment.Segment   { return n.SplitLeft }
func (accessor) Right(n *segment.Segment) *segment.Segment  { return n.SplitRight }
func (accessor) Parent(n *segment.Segment) *segment.Segment { return n.SplitParent }
func (accessor) SetLeft(n, c *segment.Segment)               { n.SplitLeft = c }
func (accessor) SetRight(n, c *segment.Segment)              { n.SplitRight = c }
func (accessor) SetParent(n, p *segment.Segment)             { n.SplitParent = p }

func (accessor) Update(n *segment.Segment) {
	n.SplitSubtreeExtent = point.Add(rawExtent(n.SplitLeft), point.Add(n.Extent, rawExtent(n.SplitRight)))
}

func rawExtent(n *segment.Segment) point.Point {
	if n == nil {
		return point.Zero
	}
	return n.SplitSubtreeExtent
}

var acc accessor

// New creates a fresh split tree rooted at a splice's first (and so far
// only) piece.
func New(root *segment.Segment) *Tree {
	root.SplitLeft, root.SplitRight, root.SplitParent = nil, nil, nil
	t := &Tree{tree: &splay.Tree[segment.Segment]{Acc: acc}}
	acc.Update(root)
	t.tree.Root = root
	return t
}

// Root returns the current root (diagnostics/tests only).
func (t *Tree) Root() *segment.Segment { return t.tree.Root }

// FindContainingOffset locates the piece containing offsetInSplice and
// returns it along with the offset its piece starts at. A request exactly
// at a piece boundary returns the piece that offset falls at the start
// of.
func (t *Tree) FindContainingOffset(offsetInSplice point.Point) (*segment.Segment, point.Point) {
	node := t.tree.Root
	before := point.Zero
	for node != nil {
		left := node.SplitLeft
		pieceStart := before.Traverse(rawExtent(left))
		if offsetInSplice.LessThan(pieceStart) {
			node = left
			continue
		}
		pieceEnd := pieceStart.Traverse(node.Extent)
		if offsetInSplice.LessThan(pieceEnd) || offsetInSplice.Compare(pieceEnd) == 0 && node.SplitRight == nil {
			return node, pieceStart
		}
		right := node.SplitRight
		if right == nil {
			return node, pieceStart
		}
		before = pieceEnd
		node = right
	}
	return nil, point.Zero
}

// SplitSegment splits piece at offsetInSegment (an offset within piece's
// own text, not the whole splice) into a retained prefix and a new suffix,
// mirroring the split into the split tree.
func (t *Tree) SplitSegment(piece *segment.Segment, offsetInSegment point.Point) *segment.Segment {
	suffix := piece.Split(offsetInSegment)
	t.tree.SplitAt(piece, suffix)
	return suffix
}

// Segments returns every piece of this splice in offset order.
func (t *Tree) Segments() []*segment.Segment {
	return splay.InOrder[segment.Segment](acc, t.tree.Root, nil)
}

// Predecessor returns the piece immediately before s in offset order, or
// nil if s is the splice's first piece.
func (t *Tree) Predecessor(s *segment.Segment) *segment.Segment {
	return t.tree.Predecessor(s)
}
