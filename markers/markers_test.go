package markers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cshekharsharma/go-textcrdt/doctree"
	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
	"github.com/cshekharsharma/go-textcrdt/splittree"
)

func alwaysVisible(s *segment.Segment) bool { return !s.IsSentinel() }

// fixture builds a three-segment document ("hello" + " world" + "!") and
// the split-tree lookup GetLogicalRange/ResolveLogicalRange need.
func fixture(t *testing.T) (*doctree.Tree, SplitLocator, *segment.Segment, *segment.Segment, *segment.Segment) {
	t.Helper()
	start := segment.NewSentinel(spliceid.SentinelStart)
	end := segment.NewSentinel(spliceid.SentinelEnd)
	tree := doctree.New(alwaysVisible, start, end)

	a := segment.New(spliceid.New(1, 1), point.Zero, []rune("hello"), start, end)
	tree.InsertBetween(start, end, a)
	b := segment.New(spliceid.New(1, 2), point.Zero, []rune(" world"), a, end)
	tree.InsertBetween(a, end, b)
	c := segment.New(spliceid.New(1, 3), point.Zero, []rune("!"), b, end)
	tree.InsertBetween(b, end, c)

	splitTrees := map[spliceid.SpliceId]*splittree.Tree{
		a.SpliceID: splittree.New(a),
		b.SpliceID: splittree.New(b),
		c.SpliceID: splittree.New(c),
	}
	locator := func(id spliceid.SpliceId) (*splittree.Tree, bool) {
		st, ok := splitTrees[id]
		return st, ok
	}
	return tree, locator, a, b, c
}

func TestGetLogicalRangeAndResolveRoundTrip(t *testing.T) {
	tree, locator, a, _, _ := fixture(t)

	r := operation.Range{Start: point.New(0, 1), End: point.New(0, 3)}
	lr := GetLogicalRange(tree, r, false)

	assert.Equal(t, a.SpliceID, lr.Start.SpliceID)
	assert.Equal(t, point.New(0, 1), lr.Start.Offset)

	resolved, ok := ResolveLogicalRange(tree, locator, lr, false)
	require.True(t, ok)
	assert.Equal(t, r, resolved)
}

func TestResolveLogicalRangeAcrossSegments(t *testing.T) {
	tree, locator, _, _, _ := fixture(t)

	// "hello world!" -> range covering "o world" spans segments a and b.
	r := operation.Range{Start: point.New(0, 4), End: point.New(0, 11)}
	lr := GetLogicalRange(tree, r, false)
	resolved, ok := ResolveLogicalRange(tree, locator, lr, false)
	require.True(t, ok)
	assert.Equal(t, r, resolved)
}

func TestResolveLogicalRangeMissingAnchorDefers(t *testing.T) {
	tree, _, _, _, _ := fixture(t)
	missingLocator := func(spliceid.SpliceId) (*splittree.Tree, bool) { return nil, false }

	lr := GetLogicalRange(tree, operation.Range{Start: point.New(0, 0), End: point.New(0, 2)}, false)
	_, ok := ResolveLogicalRange(tree, missingLocator, lr, false)
	assert.False(t, ok, "an anchor whose splice is not locally present must not resolve")
}

func TestDeferredTableFilesUnderBothAnchors(t *testing.T) {
	dt := NewDeferredTable()
	startID := spliceid.New(5, 1)
	endID := spliceid.New(6, 1)
	v := operation.MarkerValue{
		Range: operation.LogicalRange{
			Start: operation.Dependency{SpliceID: startID},
			End:   operation.Dependency{SpliceID: endID},
		},
	}
	dt.Defer(1, "cursors", "marker-a", v)

	readyOnStart := dt.Ready(startID)
	require.Len(t, readyOnStart, 1)
	assert.Equal(t, uint32(1), readyOnStart[0].Site)
	assert.Equal(t, "marker-a", readyOnStart[0].Marker)

	readyOnEnd := dt.Ready(endID)
	require.Len(t, readyOnEnd, 1)
}

func TestDeferredTableClearRemovesBothFilings(t *testing.T) {
	dt := NewDeferredTable()
	startID := spliceid.New(5, 1)
	endID := spliceid.New(6, 1)
	v := operation.MarkerValue{
		Range: operation.LogicalRange{
			Start: operation.Dependency{SpliceID: startID},
			End:   operation.Dependency{SpliceID: endID},
		},
	}
	dt.Defer(1, "cursors", "marker-a", v)
	dt.Clear(1, "cursors", "marker-a")

	assert.Empty(t, dt.Ready(startID))
	assert.Empty(t, dt.Ready(endID))
}

func TestBothAnchorsPresent(t *testing.T) {
	present := map[spliceid.SpliceId]bool{spliceid.New(1, 1): true}
	isPresent := func(id spliceid.SpliceId) bool { return present[id] }

	v := operation.MarkerValue{Range: operation.LogicalRange{
		Start: operation.Dependency{SpliceID: spliceid.New(1, 1)},
		End:   operation.Dependency{SpliceID: spliceid.New(1, 1)},
	}}
	assert.True(t, BothAnchorsPresent(v, isPresent))

	v.Range.End.SpliceID = spliceid.New(2, 1)
	assert.False(t, BothAnchorsPresent(v, isPresent))
}
