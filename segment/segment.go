// Package segment defines Segment, the atomic unit of text produced by one
// splice and possibly further split by later concurrent insertions. A
// Segment is simultaneously a node in two splay trees (the document tree
// and its originating splice's split tree) and a node in a singly linked
// list (the split-tree's nextSplit chain).
package segment

import "github.com/cshekharsharma/go-textcrdt/point"
import "github.com/cshekharsharma/go-textcrdt/spliceid"

// Segment is an immutable-by-identity, mutable-by-content text fragment.
// Its SpliceId and Offset never change after construction; Text, Deletions,
// and both tree embeddings mutate in place as the replica integrates
// further operations.
type Segment struct {
	SpliceID spliceid.SpliceId
	Offset   point.Point
	Text     []rune
	Extent   point.Point

	// Deletions is the set of SpliceIds whose deletion operations
	// currently cover this segment.
	Deletions map[spliceid.SpliceId]struct{}

	// LeftDependency and RightDependency are the segments that bounded
	// the insertion point at the time this segment's splice was created.
	// They are fixed at construction and used by the integration
	// ordering rule; segments are never deallocated, so
	// these pointers stay valid for the life of the replica.
	LeftDependency  *Segment
	RightDependency *Segment

	// Document-tree embedding (global ordered index).
	DocLeft, DocRight, DocParent *Segment
	DocVisibleExtent             point.Point // aggregate over this subtree
	DocSubtreeSize               int         // node count in this subtree

	// Split-tree embedding (per-splice index).
	SplitLeft, SplitRight, SplitParent *Segment
	SplitSubtreeExtent                 point.Point // raw, visibility-agnostic

	// NextSplit is the linear successor within the same splice's pieces,
	// a linked-list shortcut for O(1) in-order iteration.
	NextSplit *Segment
}

// New constructs a segment for a fresh splice (never yet split).
func New(id spliceid.SpliceId, offset point.Point, text []rune, left, right *Segment) *Segment {
	return &Segment{
		SpliceID:        id,
		Offset:          offset,
		Text:            text,
		Extent:          point.ExtentOfString(string(text)),
		Deletions:       make(map[spliceid.SpliceId]struct{}),
		LeftDependency:  left,
		RightDependency: right,
	}
}

// NewSentinel constructs one of the two fixed boundary segments: empty
// text, never deleted, never visible.
func NewSentinel(id spliceid.SpliceId) *Segment {
	return &Segment{
		SpliceID:  id,
		Deletions: make(map[spliceid.SpliceId]struct{}),
	}
}

// IsSentinel reports whether this is one of the two fixed boundary
// segments.
func (s *Segment) IsSentinel() bool {
	return s.SpliceID.IsSentinel()
}

// CountLookup resolves a SpliceId's current undo count. The replica passes
// a closure over its live undo-count table; history reconstruction flips
// that live table and restores it afterwards rather than passing a
// separate lookup.
type CountLookup func(spliceid.SpliceId) uint32

// IsVisible reports the segment's current visibility: a segment shows iff its
// own undo count is even and every SpliceId covering it with a deletion
// has an odd undo count (the deletion itself has been undone).
func (s *Segment) IsVisible(count CountLookup) bool {
	if s.IsSentinel() {
		return false
	}
	if count(s.SpliceID)%2 != 0 {
		return false
	}
	for id := range s.Deletions {
		if count(id)%2 == 0 {
			return false
		}
	}
	return true
}

// EndOffset returns the offset, within the originating splice's text, just
// past this segment's piece.
func (s *Segment) EndOffset() point.Point {
	return s.Offset.Traverse(s.Extent)
}

// Split divides this segment into a prefix (retained in place, shrunk to
// [0, offsetInSegment)) and a new suffix segment covering the rest.
// offsetInSegment is a Point measured from the start of this segment's own
// text (not the whole splice). The suffix inherits Deletions (copied, not
// shared, since later deletions must be addressable per piece),
// NextSplit, and both dependency pointers unchanged: the integration
// ordering rule compares the brackets recorded when the splice was
// created, so splitting must not rewrite them. Split links the suffix into
// the NextSplit chain itself; the caller mirrors the split into the split
// tree (splittree.Tree.SplitSegment) and the document tree
// (doctree.Tree.SplitSegment).
func (s *Segment) Split(offsetInSegment point.Point) *Segment {
	runeIdx := runeIndexForOffset(s.Text, offsetInSegment)
	prefixText := s.Text[:runeIdx]
	suffixText := s.Text[runeIdx:]

	suffix := &Segment{
		SpliceID:        s.SpliceID,
		Offset:          s.Offset.Traverse(point.ExtentOfString(string(prefixText))),
		Text:            suffixText,
		Extent:          point.ExtentOfString(string(suffixText)),
		Deletions:       copyDeletions(s.Deletions),
		LeftDependency:  s.LeftDependency,
		RightDependency: s.RightDependency,
		NextSplit:       s.NextSplit,
	}

	s.Text = prefixText
	s.Extent = point.ExtentOfString(string(prefixText))
	s.NextSplit = suffix
	return suffix
}

// runeIndexForOffset returns the index into text at which the accumulated
// (row, column) extent equals target, which must lie within [0, extent of
// text].
func runeIndexForOffset(text []rune, target point.Point) int {
	row, col := uint32(0), uint32(0)
	for i, r := range text {
		if row == target.Row && col == target.Column {
			return i
		}
		if r == '\n' {
			row++
			col = 0
			continue
		}
		col++
	}
	return len(text)
}

func copyDeletions(in map[spliceid.SpliceId]struct{}) map[spliceid.SpliceId]struct{} {
	out := make(map[spliceid.SpliceId]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
