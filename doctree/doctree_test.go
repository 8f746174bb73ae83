package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
)

func alwaysVisible(s *segment.Segment) bool { return !s.IsSentinel() }

func newTestTree() (*Tree, *segment.Segment, *segment.Segment) {
	start := segment.NewSentinel(spliceid.SentinelStart)
	end := segment.NewSentinel(spliceid.SentinelEnd)
	return New(alwaysVisible, start, end), start, end
}

func TestInsertBetweenAndGetText(t *testing.T) {
	tree, start, end := newTestTree()

	a := segment.New(spliceid.New(1, 1), point.Zero, []rune("hello"), start, end)
	tree.InsertBetween(start, end, a)

	b := segment.New(spliceid.New(1, 2), point.Zero, []rune(" world"), a, end)
	tree.InsertBetween(a, end, b)

	segs := tree.Segments()
	require.Len(t, segs, 4)
	assert.Equal(t, start, segs[0])
	assert.Equal(t, a, segs[1])
	assert.Equal(t, b, segs[2])
	assert.Equal(t, end, segs[3])

	assert.Equal(t, point.New(0, 11), tree.VisibleExtent())
}

func TestPositionAndIndex(t *testing.T) {
	tree, start, end := newTestTree()
	a := segment.New(spliceid.New(1, 1), point.Zero, []rune("abc"), start, end)
	tree.InsertBetween(start, end, a)
	b := segment.New(spliceid.New(1, 2), point.Zero, []rune("de"), a, end)
	tree.InsertBetween(a, end, b)

	assert.Equal(t, point.New(0, 0), tree.Position(a))
	assert.Equal(t, point.New(0, 3), tree.Position(b))

	assert.Equal(t, 1, tree.Index(a))
	assert.Equal(t, 2, tree.Index(b))
}

func TestFindContainingPosition(t *testing.T) {
	tree, start, end := newTestTree()
	a := segment.New(spliceid.New(1, 1), point.Zero, []rune("abc"), start, end)
	tree.InsertBetween(start, end, a)
	b := segment.New(spliceid.New(1, 2), point.Zero, []rune("de"), a, end)
	tree.InsertBetween(a, end, b)

	// The document origin resolves to the start sentinel, the segment
	// "ending" at (0,0); every other boundary resolves to the segment
	// ending there.
	seg, segStart := tree.FindContainingPosition(point.New(0, 0))
	assert.Equal(t, start, seg)
	assert.Equal(t, point.Zero, segStart)

	seg, segStart = tree.FindContainingPosition(point.New(0, 3))
	assert.Equal(t, a, seg)
	assert.Equal(t, point.Zero, segStart)

	seg, segStart = tree.FindContainingPosition(point.New(0, 4))
	assert.Equal(t, b, seg)
	assert.Equal(t, point.New(0, 3), segStart)

	seg, _ = tree.FindContainingPosition(point.New(0, 5))
	assert.Equal(t, b, seg, "the last position belongs to the final segment")

	seg, _ = tree.FindContainingPosition(point.New(0, 6))
	assert.Nil(t, seg, "positions beyond the visible extent have no segment")
}

func TestSplitSegment(t *testing.T) {
	tree, start, end := newTestTree()
	a := segment.New(spliceid.New(1, 1), point.Zero, []rune("hello"), start, end)
	tree.InsertBetween(start, end, a)

	suffix := a.Split(point.New(0, 2))
	tree.SplitSegment(a, suffix)

	segs := tree.Segments()
	require.Len(t, segs, 4)
	assert.Equal(t, a, segs[1])
	assert.Equal(t, suffix, segs[2])
	assert.Equal(t, point.New(0, 5), tree.VisibleExtent())
}

func TestSuccessorPredecessor(t *testing.T) {
	tree, start, end := newTestTree()
	a := segment.New(spliceid.New(1, 1), point.Zero, []rune("a"), start, end)
	tree.InsertBetween(start, end, a)
	b := segment.New(spliceid.New(1, 2), point.Zero, []rune("b"), a, end)
	tree.InsertBetween(a, end, b)

	assert.Equal(t, b, tree.Successor(a))
	assert.Equal(t, a, tree.Predecessor(b))
	assert.Nil(t, tree.Successor(end))
	assert.Nil(t, tree.Predecessor(start))
}

func TestEmptyDocumentHasZeroExtent(t *testing.T) {
	tree, _, _ := newTestTree()
	assert.Equal(t, point.Zero, tree.VisibleExtent())
}
