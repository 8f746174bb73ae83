// Package doctree implements the document tree: the single splay tree,
// ordered by document position, that holds every segment of the
// document. Its in-order traversal is the document's
// linear sequence; its per-subtree aggregates are the visible extent (for
// position arithmetic) and the node count (for index arithmetic).
package doctree

import (
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/splay"
)

// Tree is the document's global ordered segment index.
type Tree struct {
	tree  *splay.Tree[segment.Segment]
	acc   *accessor
	first *segment.Segment
}

type accessor struct {
	isVisible func(*segment.Segment) bool
}

func (a *accessor) Left(n *segment.Segment) *segment.Segment  { return n.DocLeft }
func (a *accessor) Right(n *segment.Segment) *segment.Segment { return n.DocRight }
func (a *accessor) Parent(n *segment.Segment) *segment.Segment {
	return n.DocParent
}
func (a *accessor) SetLeft(n, c *segment.Segment)   { n.DocLeft = c }
func (a *accessor) SetRight(n, c *segment.Segment)  { n.DocRight = c }
func (a *accessor) SetParent(n, p *segment.Segment) { n.DocParent = p }

func (a *accessor) Update(n *segment.Segment) {
	own := point.Zero
	if a.isVisible(n) {
		own = n.Extent
	}
	n.DocVisibleExtent = point.Add(visibleExtent(n.DocLeft), point.Add(own, visibleExtent(n.DocRight)))
	n.DocSubtreeSize = size(n.DocLeft) + 1 + size(n.DocRight)
}

func visibleExtent(n *segment.Segment) point.Point {
	if n == nil {
		return point.Zero
	}
	return n.DocVisibleExtent
}

func size(n *segment.Segment) int {
	if n == nil {
		return 0
	}
	return n.DocSubtreeSize
}

// New builds the document tree containing only the two sentinel segments,
// start at the document's beginning and end at its end. isVisible
// resolves a segment's current visibility, typically a closure over the
// replica's live undo-count table.
func New(isVisible func(*segment.Segment) bool, start, end *segment.Segment) *Tree {
	acc := &accessor{isVisible: isVisible}
	t := &Tree{acc: acc, tree: &splay.Tree[segment.Segment]{Acc: acc}, first: start}
	start.DocLeft, start.DocParent = nil, nil
	start.DocRight = end
	end.DocLeft, end.DocRight, end.DocParent = nil, nil, start
	acc.Update(end)
	acc.Update(start)
	t.tree.Root = start
	return t
}

// Root returns the current splay-tree root (for diagnostics/tests only).
func (t *Tree) Root() *segment.Segment { return t.tree.Root }

// VisibleExtent returns the Point length of the whole visible document.
func (t *Tree) VisibleExtent() point.Point {
	return visibleExtent(t.tree.Root)
}

// Splay moves s to the root of the document tree, refreshing aggregates
// along the path it traverses.
func (t *Tree) Splay(s *segment.Segment) {
	t.tree.Splay(s)
}

// Update recomputes s's aggregate from its current children. Callers must
// call this (and then Splay, to propagate to ancestors; Splay itself
// calls Update on every rotated node) after mutating s.Deletions or after
// an undo count change affects s's visibility.
func (t *Tree) Update(s *segment.Segment) {
	t.acc.Update(s)
}

// InsertBetween inserts newSeg into the document tree immediately between
// prev and next, which must be adjacent in the tree's current in-order
// sequence.
func (t *Tree) InsertBetween(prev, next, newSeg *segment.Segment) {
	t.tree.InsertBetween(prev, next, newSeg)
}

// SplitSegment splits a document-tree node: prefix keeps its identity and
// position, suffix (already constructed by segment.Split) becomes its
// immediate document-tree successor.
func (t *Tree) SplitSegment(prefix, suffix *segment.Segment) {
	t.tree.SplitAt(prefix, suffix)
}

// Index returns s's zero-based position in document-tree in-order
// sequence, computed by walking ancestors and summing left-subtree sizes,
// without splaying.
func (t *Tree) Index(s *segment.Segment) int {
	idx := size(s.DocLeft)
	cur := s
	for {
		p := cur.DocParent
		if p == nil {
			return idx
		}
		if p.DocRight == cur {
			idx += size(p.DocLeft) + 1
		}
		cur = p
	}
}

// Position splays s to the root and returns the total visible extent of
// everything before it in document order.
func (t *Tree) Position(s *segment.Segment) point.Point {
	t.Splay(s)
	return visibleExtent(s.DocLeft)
}

// FindContainingPosition locates the segment whose visible span covers
// linear position p and returns it along with the linear position of its
// start. Matching is (start, end]: a position at a segment boundary
// resolves to the segment ending there, and the caller reaches the
// boundary pair through this segment and its successor. The first
// sentinel is never matched by the position-at-start comparison except at
// the document origin, where it is the segment ending at (0,0). A
// position beyond the visible extent returns nil.
func (t *Tree) FindContainingPosition(p point.Point) (*segment.Segment, point.Point) {
	node := t.tree.Root
	before := point.Zero
	for node != nil {
		left := node.DocLeft
		segStart := before.Traverse(visibleExtent(left))
		if p.LessThanOrEqual(segStart) && node != t.first {
			node = left
			continue
		}
		own := point.Zero
		if t.acc.isVisible(node) {
			own = node.Extent
		}
		segEnd := segStart.Traverse(own)
		if p.LessThanOrEqual(segEnd) {
			return node, segStart
		}
		before = segEnd
		node = node.DocRight
	}
	return nil, point.Zero
}

// Segments returns every segment in document order via an iterative
// in-order traversal.
func (t *Tree) Segments() []*segment.Segment {
	return splay.InOrder[segment.Segment](t.acc, t.tree.Root, nil)
}

// Successor returns s's immediate document-order successor, or nil if s is
// the last node (the end sentinel). Used by the integration ordering rule
// and by marker resolution's findSegmentAnchor.
func (t *Tree) Successor(s *segment.Segment) *segment.Segment {
	return t.tree.Successor(s)
}

// Predecessor returns s's immediate document-order predecessor, or nil if
// s is the first node (the start sentinel).
func (t *Tree) Predecessor(s *segment.Segment) *segment.Segment {
	return t.tree.Predecessor(s)
}

// IsVisible reports s's current visibility under the tree's injected
// undo-count lookup.
func (t *Tree) IsVisible(s *segment.Segment) bool {
	return t.acc.isVisible(s)
}
