// Package markers implements the conversion between linear marker ranges
// and the logical (SpliceId, offset) anchors that survive concurrent
// edits, plus the table of deferred marker updates whose anchors refer to
// splices the local replica hasn't integrated yet.
package markers

import (
	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
	"github.com/cshekharsharma/go-textcrdt/splittree"
)

// DocLocator is the slice of doctree.Tree that logical-range resolution
// needs: finding the segment under a linear position, its document-tree
// successor, and a segment's current linear position and visibility.
type DocLocator interface {
	FindContainingPosition(p point.Point) (*segment.Segment, point.Point)
	Successor(seg *segment.Segment) *segment.Segment
	Position(seg *segment.Segment) point.Point
	IsVisible(seg *segment.Segment) bool
}

// SplitLocator resolves a SpliceId to its split tree, if that splice has
// been integrated locally.
type SplitLocator func(spliceid.SpliceId) (*splittree.Tree, bool)

// GetLogicalRange converts a linear range into its logical anchor form.
func GetLogicalRange(loc DocLocator, r operation.Range, isExclusive bool) operation.LogicalRange {
	startDep := findSegmentAnchor(loc, r.Start, isExclusive)
	endPreferStart := !isExclusive || r.Start.Compare(r.End) == 0
	endDep := findSegmentAnchor(loc, r.End, endPreferStart)
	return operation.LogicalRange{Start: startDep, End: endDep}
}

// findSegmentAnchor picks the segment a linear position anchors to. The
// document-tree lookup resolves a boundary position to the segment ending
// there; preferStart instead hops to the successor so the anchor rides
// with the text that follows the position; the marker exclusivity
// behaviors fall out of which side the anchor lands on.
func findSegmentAnchor(loc DocLocator, position point.Point, preferStart bool) operation.Dependency {
	seg, segStart := loc.FindContainingPosition(position)
	segEnd := segStart
	if loc.IsVisible(seg) {
		segEnd = segStart.Traverse(seg.Extent)
	}
	if preferStart && position.Compare(segEnd) == 0 {
		if succ := loc.Successor(seg); succ != nil {
			return operation.Dependency{SpliceID: succ.SpliceID, Offset: succ.Offset}
		}
	}
	within := position.Traversal(segStart)
	return operation.Dependency{SpliceID: seg.SpliceID, Offset: seg.Offset.Traverse(within)}
}

// ResolveLogicalRange converts a logical range back into linear
// coordinates. It returns ok=false if either anchor's splice has not been
// integrated locally (the caller should defer instead).
func ResolveLogicalRange(loc DocLocator, split SplitLocator, lr operation.LogicalRange, isExclusive bool) (operation.Range, bool) {
	start, ok := resolveLogicalPosition(loc, split, lr.Start.SpliceID, lr.Start.Offset, isExclusive)
	if !ok {
		return operation.Range{}, false
	}
	endPreferStart := !isExclusive || lr.Start == lr.End
	end, ok := resolveLogicalPosition(loc, split, lr.End.SpliceID, lr.End.Offset, endPreferStart)
	if !ok {
		return operation.Range{}, false
	}
	return operation.Range{Start: start, End: end}, true
}

func resolveLogicalPosition(loc DocLocator, split SplitLocator, id spliceid.SpliceId, offsetInSplice point.Point, preferStart bool) (point.Point, bool) {
	st, ok := split(id)
	if !ok {
		return point.Zero, false
	}
	piece, pieceStart := st.FindContainingOffset(offsetInSplice)
	if piece == nil {
		return point.Zero, false
	}
	// The split-tree lookup resolves a piece-boundary offset to the piece
	// starting there; without preferStart the anchor belongs to the piece
	// ending at the offset instead.
	if !preferStart && pieceStart.Compare(offsetInSplice) == 0 {
		if pred := st.Predecessor(piece); pred != nil {
			piece = pred
		}
	}
	segStart := loc.Position(piece)
	if !loc.IsVisible(piece) {
		return segStart, true
	}
	within := offsetInSplice.Traversal(piece.Offset)
	return segStart.Traverse(within), true
}

// depKey names one deferred marker slot.
type depKey struct {
	Site   uint32
	Layer  string
	Marker string
}

// DeferredTable holds marker updates whose anchors are not yet locally
// integrated, filed under every dependency SpliceId they're missing.
type DeferredTable struct {
	entries      map[depKey]operation.MarkerValue
	byDependency map[spliceid.SpliceId]map[depKey]struct{}
}

// NewDeferredTable builds an empty table.
func NewDeferredTable() *DeferredTable {
	return &DeferredTable{
		entries:      make(map[depKey]operation.MarkerValue),
		byDependency: make(map[spliceid.SpliceId]map[depKey]struct{}),
	}
}

func (t *DeferredTable) file(k depKey, v operation.MarkerValue) {
	t.entries[k] = v
	for _, id := range []spliceid.SpliceId{v.Range.Start.SpliceID, v.Range.End.SpliceID} {
		if t.byDependency[id] == nil {
			t.byDependency[id] = make(map[depKey]struct{})
		}
		t.byDependency[id][k] = struct{}{}
	}
}

// Clear removes any deferred entry for (site, layer, marker), used when a
// non-deferred update or a delete supersedes it.
func (t *DeferredTable) Clear(site uint32, layer, marker string) {
	k := depKey{site, layer, marker}
	v, ok := t.entries[k]
	if !ok {
		return
	}
	delete(t.entries, k)
	for _, id := range []spliceid.SpliceId{v.Range.Start.SpliceID, v.Range.End.SpliceID} {
		if set := t.byDependency[id]; set != nil {
			delete(set, k)
			if len(set) == 0 {
				delete(t.byDependency, id)
			}
		}
	}
}

// Defer files value as pending for (site, layer, marker) under both of its
// anchor dependency ids, superseding any prior deferred entry for the same
// slot.
func (t *DeferredTable) Defer(site uint32, layer, marker string, value operation.MarkerValue) {
	k := depKey{site, layer, marker}
	t.Clear(site, layer, marker)
	t.file(k, value)
}

// Ready returns every deferred entry filed under id (both anchors may or
// may not actually resolve yet; the caller re-checks with isPresent).
func (t *DeferredTable) Ready(id spliceid.SpliceId) []struct {
	Site   uint32
	Layer  string
	Marker string
	Value  operation.MarkerValue
} {
	var out []struct {
		Site   uint32
		Layer  string
		Marker string
		Value  operation.MarkerValue
	}
	for k := range t.byDependency[id] {
		if v, ok := t.entries[k]; ok {
			out = append(out, struct {
				Site   uint32
				Layer  string
				Marker string
				Value  operation.MarkerValue
			}{k.Site, k.Layer, k.Marker, v})
		}
	}
	return out
}

// Resolve finalizes and removes the deferred entry for (site, layer,
// marker) once both anchors are present.
func (t *DeferredTable) Resolve(site uint32, layer, marker string) {
	t.Clear(site, layer, marker)
}

// IsPresent is a convenience function type used by callers to ask whether
// a SpliceId has been locally integrated (present as a splice or as a
// deletion source).
type IsPresent func(spliceid.SpliceId) bool

// BothAnchorsPresent reports whether both ends of v's logical range are
// locally integrated.
func BothAnchorsPresent(v operation.MarkerValue, present IsPresent) bool {
	return present(v.Range.Start.SpliceID) && present(v.Range.End.SpliceID)
}
