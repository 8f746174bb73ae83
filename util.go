package textcrdt

import (
	"sort"

	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/segment"
)

// copySeqMap returns an independent copy of a per-site sequence-number
// map, used wherever a snapshot must outlive further mutation of the
// replica's live maxSeqBySite table.
func copySeqMap(in map[uint32]uint32) map[uint32]uint32 {
	out := make(map[uint32]uint32, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// mergeTextUpdates coalesces consecutive updates that touch the same
// boundary into a single update; only neighbours in the input are
// compared. buildTextUpdates and diffVisibility pass updates ordered by
// document position; IntegrateOperations passes each operation's list
// concatenated in the order the operations were applied.
func mergeTextUpdates(in []operation.TextUpdate) []operation.TextUpdate {
	if len(in) < 2 {
		return in
	}
	out := make([]operation.TextUpdate, 0, len(in))
	cur := in[0]
	for _, u := range in[1:] {
		if cur.OldEnd.Compare(u.OldStart) == 0 && cur.NewEnd.Compare(u.NewStart) == 0 {
			cur.OldEnd = u.OldEnd
			cur.OldText += u.OldText
			cur.NewEnd = u.NewEnd
			cur.NewText += u.NewText
			continue
		}
		out = append(out, cur)
		cur = u
	}
	out = append(out, cur)
	return out
}

// visSnapshot captures one segment's position and visibility at a point in
// time, so a later snapshot of the same segment can be diffed against it
// once document-tree aggregates have been refreshed.
type visSnapshot struct {
	seg     *segment.Segment
	pos     point.Point
	visible bool
}

// dedupeByIndex removes duplicate pointers from segs (a segment can be
// reached twice, e.g. once via its split tree and once via a deletion's
// covered-segment list) and orders the survivors by document-tree index,
// which stays stable across the visibility flips this package applies
// (undo-count changes never restructure either tree).
func (d *Document) dedupeByIndex(segs []*segment.Segment) []*segment.Segment {
	seen := make(map[*segment.Segment]bool, len(segs))
	uniq := make([]*segment.Segment, 0, len(segs))
	for _, s := range segs {
		if s == nil || seen[s] {
			continue
		}
		seen[s] = true
		uniq = append(uniq, s)
	}
	sort.Slice(uniq, func(i, j int) bool {
		return d.docTree.Index(uniq[i]) < d.docTree.Index(uniq[j])
	})
	return uniq
}

// snapshotVisibility records each segment's current position and
// visibility, to be compared against a post-mutation snapshot.
func (d *Document) snapshotVisibility(segs []*segment.Segment) []visSnapshot {
	out := make([]visSnapshot, len(segs))
	for i, s := range segs {
		out[i] = visSnapshot{seg: s, pos: d.docTree.Position(s), visible: d.docTree.IsVisible(s)}
	}
	return out
}

// refreshAggregates recomputes and re-splays each segment's document-tree
// aggregate after its visibility-affecting state (Deletions or an undo
// count) has changed.
func (d *Document) refreshAggregates(segs []*segment.Segment) {
	for _, s := range segs {
		d.docTree.Update(s)
		d.docTree.Splay(s)
	}
}

// buildTextUpdates compares each segment's before-mutation snapshot with
// its current (post-mutation, post-refresh) state and emits a coalesced
// TextUpdate for every segment whose visibility changed: one that became
// visible reads as an insertion, one that became invisible as a deletion.
func (d *Document) buildTextUpdates(before []visSnapshot) []operation.TextUpdate {
	var updates []operation.TextUpdate
	for _, b := range before {
		afterPos := d.docTree.Position(b.seg)
		afterVis := d.docTree.IsVisible(b.seg)
		if b.visible == afterVis {
			continue
		}
		text := string(b.seg.Text)
		if afterVis {
			updates = append(updates, operation.TextUpdate{
				OldStart: b.pos, OldEnd: b.pos,
				NewStart: afterPos, NewEnd: afterPos.Traverse(b.seg.Extent), NewText: text,
			})
		} else {
			updates = append(updates, operation.TextUpdate{
				OldStart: b.pos, OldEnd: b.pos.Traverse(b.seg.Extent), OldText: text,
				NewStart: afterPos, NewEnd: afterPos,
			})
		}
	}
	return mergeTextUpdates(updates)
}

// diffVisibility emits the coalesced TextUpdates that transform a
// hypothetical before-state of the document into its current state,
// without having mutated anything: segs (document-ordered) are probed
// with wasVisible for the before side and the live tree for the after
// side, and each segment's old position is derived from its current
// position via the delta the preceding updates accumulated.
func (d *Document) diffVisibility(segs []*segment.Segment, wasVisible func(*segment.Segment) bool) []operation.TextUpdate {
	var updates []operation.TextUpdate
	for _, s := range segs {
		newStart := d.docTree.Position(s)
		oldStart := newStart
		if n := len(updates); n > 0 {
			last := updates[n-1]
			oldStart = last.OldEnd.Traverse(newStart.Traversal(last.NewEnd))
		}
		was, is := wasVisible(s), d.docTree.IsVisible(s)
		if was == is {
			continue
		}
		u := operation.TextUpdate{OldStart: oldStart, OldEnd: oldStart, NewStart: newStart, NewEnd: newStart}
		if was {
			u.OldEnd = oldStart.Traverse(s.Extent)
			u.OldText = string(s.Text)
		} else {
			u.NewEnd = newStart.Traverse(s.Extent)
			u.NewText = string(s.Text)
		}
		updates = append(updates, u)
	}
	return mergeTextUpdates(updates)
}

// invertTextUpdates swaps the old/new sides of each update, used when
// storing undo-stack transactions in a History snapshot: the stored
// change list describes how to redo the transaction, which is the
// inverse of how it originally applied.
func invertTextUpdates(in []operation.TextUpdate) []operation.TextUpdate {
	out := make([]operation.TextUpdate, len(in))
	for i, u := range in {
		out[i] = operation.TextUpdate{
			OldStart: u.NewStart, OldEnd: u.NewEnd, OldText: u.NewText,
			NewStart: u.OldStart, NewEnd: u.OldEnd, NewText: u.OldText,
		}
	}
	return out
}
