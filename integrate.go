package textcrdt

import (
	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/replicaerr"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
	"github.com/cshekharsharma/go-textcrdt/splittree"
)

// IntegrateOperations applies remote operations regardless of arrival
// order: operations whose causal dependencies are not
// yet satisfied are filed under their missing dependency ids and
// re-checked every time a new dependency becomes available, so a single
// call can unblock an arbitrarily long chain of previously deferred
// operations.
func (d *Document) IntegrateOperations(ops []operation.Operation) (operation.DocumentStateUpdate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var textUpdates []operation.TextUpdate
	siteMarkers := make(operation.SiteMarkers)

	queue := append([]operation.Operation(nil), ops...)
	for len(queue) > 0 {
		op := queue[0]
		queue = queue[1:]

		switch {
		case op.Splice != nil:
			ready, missing, alreadyApplied := d.spliceReady(op.Splice)
			if alreadyApplied {
				continue
			}
			if !ready {
				d.deferOperation(op, missing)
				continue
			}
			updates, err := d.integrateSplice(op.Splice)
			if err != nil {
				return operation.DocumentStateUpdate{}, err
			}
			textUpdates = append(textUpdates, updates...)
			queue = append(queue, d.popPending(op.Splice.SpliceID)...)
			d.resolveMarkerDependents(op.Splice.SpliceID, siteMarkers)

		case op.Undo != nil:
			if !d.isPresent(op.Undo.SpliceID) {
				d.deferOperation(op, []spliceid.SpliceId{op.Undo.SpliceID})
				continue
			}
			if op.Undo.UndoCount <= d.undoCounts[op.Undo.SpliceID] {
				continue
			}
			updates := d.integrateUndo(op.Undo.SpliceID, op.Undo.UndoCount)
			textUpdates = append(textUpdates, updates...)
			d.operationLog = append(d.operationLog, operation.Operation{Undo: op.Undo})

		case op.MarkersUpdate != nil:
			d.integrateMarkersUpdate(op.MarkersUpdate, siteMarkers)

		default:
			return operation.DocumentStateUpdate{}, replicaerr.Wrap(replicaerr.ErrUnknownOperationKind, "integrate operations")
		}
	}

	return operation.DocumentStateUpdate{
		TextUpdates:   mergeTextUpdates(textUpdates),
		MarkerUpdates: siteMarkers,
	}, nil
}

// spliceReady reports whether a SpliceOperation can be applied right now;
// missing lists the SpliceIds it is still waiting on; alreadyApplied
// reports the idempotence case.
func (d *Document) spliceReady(o *operation.SpliceOperation) (ready bool, missing []spliceid.SpliceId, alreadyApplied bool) {
	cur := d.maxSeqBySite[o.SpliceID.SiteID]
	if cur >= o.SpliceID.SequenceNumber {
		return false, nil, true
	}
	if cur != o.SpliceID.SequenceNumber-1 {
		return false, []spliceid.SpliceId{{SiteID: o.SpliceID.SiteID, SequenceNumber: o.SpliceID.SequenceNumber - 1}}, false
	}

	var deps []spliceid.SpliceId
	if o.Deletion != nil {
		if !d.isPresent(o.Deletion.LeftDependency.SpliceID) {
			deps = append(deps, o.Deletion.LeftDependency.SpliceID)
		}
		if !d.isPresent(o.Deletion.RightDependency.SpliceID) {
			deps = append(deps, o.Deletion.RightDependency.SpliceID)
		}
		for site, seq := range o.Deletion.MaxSequenceNumberBySite {
			if d.maxSeqBySite[site] < seq {
				deps = append(deps, spliceid.SpliceId{SiteID: site, SequenceNumber: seq})
			}
		}
	}
	if o.Insertion != nil {
		if !d.isPresent(o.Insertion.LeftDependency.SpliceID) {
			deps = append(deps, o.Insertion.LeftDependency.SpliceID)
		}
		if !d.isPresent(o.Insertion.RightDependency.SpliceID) {
			deps = append(deps, o.Insertion.RightDependency.SpliceID)
		}
	}
	if len(deps) > 0 {
		return false, deps, false
	}
	return true, nil, false
}

func (d *Document) deferOperation(op operation.Operation, missing []spliceid.SpliceId) {
	for _, id := range missing {
		d.pendingOps[id] = append(d.pendingOps[id], op)
	}
}

func (d *Document) popPending(id spliceid.SpliceId) []operation.Operation {
	ops := d.pendingOps[id]
	delete(d.pendingOps, id)
	return ops
}

// integrateSplice applies a SpliceOperation already known to be ready.
func (d *Document) integrateSplice(o *operation.SpliceOperation) ([]operation.TextUpdate, error) {
	var updates []operation.TextUpdate

	if o.Deletion != nil {
		u, covered, err := d.integrateDeletion(o.SpliceID, o.Deletion)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u...)
		d.deletionsApplied[o.SpliceID] = copySeqMap(o.Deletion.MaxSequenceNumberBySite)
		d.deletionSegments[o.SpliceID] = covered
	}
	if o.Insertion != nil {
		u, err := d.integrateInsertion(o.SpliceID, o.Insertion)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u...)
	}

	d.maxSeqBySite[o.SpliceID.SiteID] = o.SpliceID.SequenceNumber
	d.operationLog = append(d.operationLog, operation.Operation{Splice: o})
	return updates, nil
}

// integrateDeletion applies a remote deletion:
// relocate the deletion's left/right dependencies, then for every segment
// between them (inclusive), cover it with spliceID only if the deleting
// replica's observed frontier (M) had already seen that segment's own
// splice.
func (d *Document) integrateDeletion(spliceID spliceid.SpliceId, mod *operation.TextDeletionMod) ([]operation.TextUpdate, []*segment.Segment, error) {
	left, err := d.findSegmentStart(mod.LeftDependency)
	if err != nil {
		return nil, nil, err
	}
	right, err := d.findSegmentEnd(mod.RightDependency)
	if err != nil {
		return nil, nil, err
	}

	var candidates []*segment.Segment
	cur := left
	for {
		candidates = append(candidates, cur)
		if cur == right {
			break
		}
		next := d.docTree.Successor(cur)
		if next == nil {
			break
		}
		cur = next
	}

	ordered := d.dedupeByIndex(candidates)
	before := d.snapshotVisibility(ordered)

	var covered []*segment.Segment
	for _, s := range ordered {
		if s.IsSentinel() {
			continue
		}
		if mod.MaxSequenceNumberBySite[s.SpliceID.SiteID] >= s.SpliceID.SequenceNumber {
			s.Deletions[spliceID] = struct{}{}
			covered = append(covered, s)
		}
	}
	d.refreshAggregates(ordered)
	updates := d.buildTextUpdates(before)
	return updates, covered, nil
}

// integrateInsertion places a remote insertion:
// relocate the insertion's dependencies, walk forward resolving
// ties against concurrent siblings by comparing site ids, and splice the
// new segment into its resolved position.
func (d *Document) integrateInsertion(spliceID spliceid.SpliceId, mod *operation.TextInsertionMod) ([]operation.TextUpdate, error) {
	left, err := d.findSegmentEnd(mod.LeftDependency)
	if err != nil {
		return nil, err
	}
	right, err := d.findSegmentStart(mod.RightDependency)
	if err != nil {
		return nil, err
	}

	placementLeftIndex := d.docTree.Index(left)
	placementRightIndex := d.docTree.Index(right)

	curLeft, curRight := left, right
	for {
		c := d.docTree.Successor(curLeft)
		if c == nil || c == curRight {
			break
		}
		if c.LeftDependency == nil || c.RightDependency == nil {
			curLeft = c
			continue
		}
		cLeftIdx := d.docTree.Index(c.LeftDependency)
		cRightIdx := d.docTree.Index(c.RightDependency)
		if cLeftIdx <= placementLeftIndex && cRightIdx >= placementRightIndex {
			if spliceID.LessThanSite(c.SpliceID) {
				curRight = c
			} else {
				curLeft = c
			}
			continue
		}
		curLeft = c
	}

	newSeg := segment.New(spliceID, point.Zero, []rune(mod.Text), left, right)
	d.docTree.InsertBetween(curLeft, curRight, newSeg)
	d.splitTreesSet(spliceID, newSeg)

	pos := d.docTree.Position(newSeg)
	update := operation.TextUpdate{
		OldStart: pos, OldEnd: pos,
		NewStart: pos, NewEnd: pos.Traverse(newSeg.Extent), NewText: mod.Text,
	}
	return []operation.TextUpdate{update}, nil
}

// integrateUndo applies a remote UndoOperation:
// max-wins on the absolute undo count, recomputing visibility for both
// the splice's own segments and every segment its deletions currently
// cover.
func (d *Document) integrateUndo(spliceID spliceid.SpliceId, undoCount uint32) []operation.TextUpdate {
	affected := d.segmentsForSpliceIDs([]spliceid.SpliceId{spliceID})
	ordered := d.dedupeByIndex(affected)
	before := d.snapshotVisibility(ordered)

	d.undoCounts[spliceID] = undoCount

	d.refreshAggregates(ordered)
	return d.buildTextUpdates(before)
}

// segmentsForSpliceIDs collects every segment that belongs to (insertion
// side) or is currently covered by a deletion from (deletion side) any of
// the given SpliceIds.
func (d *Document) segmentsForSpliceIDs(ids []spliceid.SpliceId) []*segment.Segment {
	var out []*segment.Segment
	for _, id := range ids {
		if st, ok := d.splitTrees[id]; ok {
			out = append(out, st.Segments()...)
		}
		out = append(out, d.deletionSegments[id]...)
	}
	return out
}

func (d *Document) splitTreesSet(id spliceid.SpliceId, seg *segment.Segment) {
	d.splitTrees[id] = splittree.New(seg)
}

