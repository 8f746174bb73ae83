package splittree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
)

func TestNewSingleton(t *testing.T) {
	root := segment.New(spliceid.New(1, 1), point.Zero, []rune("hello"), nil, nil)
	tree := New(root)

	piece, start := tree.FindContainingOffset(point.New(0, 2))
	assert.Equal(t, root, piece)
	assert.Equal(t, point.Zero, start)

	segs := tree.Segments()
	require.Len(t, segs, 1)
	assert.Equal(t, root, segs[0])
}

func TestSplitSegment(t *testing.T) {
	root := segment.New(spliceid.New(1, 1), point.Zero, []rune("hello world"), nil, nil)
	tree := New(root)

	suffix := tree.SplitSegment(root, point.New(0, 5))

	assert.Equal(t, "hello", string(root.Text))
	assert.Equal(t, " world", string(suffix.Text))

	segs := tree.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, root, segs[0])
	assert.Equal(t, suffix, segs[1])

	piece, start := tree.FindContainingOffset(point.New(0, 5))
	assert.Equal(t, suffix, piece)
	assert.Equal(t, point.New(0, 5), start)
}

func TestFindContainingOffsetAcrossMultiplePieces(t *testing.T) {
	root := segment.New(spliceid.New(1, 1), point.Zero, []rune("abcdefgh"), nil, nil)
	tree := New(root)
	mid := tree.SplitSegment(root, point.New(0, 3))
	tree.SplitSegment(mid, point.New(0, 2))

	piece, start := tree.FindContainingOffset(point.New(0, 4))
	assert.Equal(t, point.New(0, 3), start)
	assert.Equal(t, "de", string(piece.Text))
}

func TestPredecessor(t *testing.T) {
	root := segment.New(spliceid.New(1, 1), point.Zero, []rune("hello world"), nil, nil)
	tree := New(root)
	suffix := tree.SplitSegment(root, point.New(0, 5))

	assert.Equal(t, root, tree.Predecessor(suffix))
	assert.Nil(t, tree.Predecessor(root))
}
