package textcrdt

import (
	"github.com/cshekharsharma/go-textcrdt/history"
	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/replicaerr"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
	"github.com/cshekharsharma/go-textcrdt/splittree"
)

// SetTextInRange applies a local edit: delete [start,end) if end>start,
// then insert text at start if text is non-empty. Both halves, if present,
// share one SpliceId. It pushes a single-op
// TransactionRecord and clears the redo stack.
func (d *Document) SetTextInRange(start, end point.Point, text string) (operation.SpliceOperation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	op, _, err := d.performLocalSplice(start, end, text)
	if err != nil {
		return operation.SpliceOperation{}, err
	}

	d.undoStack.PushTransaction(history.TransactionRecord{
		Timestamp:  d.nowFn(),
		Operations: []history.TxOp{{Splice: &op}},
	})
	d.redoStack.Clear()

	return op, nil
}

// performLocalSplice does the actual delete/insert work and records the
// resulting SpliceOperation in the operation log, but does not touch the
// undo/redo stacks; populateHistory replays stored changes through this
// same path to rebuild transactions without double-pushing them.
func (d *Document) performLocalSplice(start, end point.Point, text string) (operation.SpliceOperation, []operation.TextUpdate, error) {
	spliceID := spliceid.New(d.siteID, d.nextSequenceNumber)
	if d.maxSeqBySite[d.siteID] != spliceID.SequenceNumber-1 {
		return operation.SpliceOperation{}, nil, replicaerr.Wrap(
			replicaerr.ErrOutOfOrderLocalOperation,
			"site %d: local sequence expected %d, have max %d",
			d.siteID, spliceID.SequenceNumber-1, d.maxSeqBySite[d.siteID])
	}

	var (
		updates      []operation.TextUpdate
		deletionMod  *operation.TextDeletionMod
		insertionMod *operation.TextInsertionMod
	)

	if end.Compare(start) > 0 {
		mod, covered, update, err := d.deleteLocal(start, end, spliceID)
		if err != nil {
			return operation.SpliceOperation{}, nil, err
		}
		deletionMod = mod
		updates = append(updates, update)
		d.deletionsApplied[spliceID] = copySeqMap(mod.MaxSequenceNumberBySite)
		d.deletionSegments[spliceID] = covered
	}
	if text != "" {
		mod, update, err := d.insertLocal(start, text, spliceID)
		if err != nil {
			return operation.SpliceOperation{}, nil, err
		}
		insertionMod = mod
		updates = append(updates, update)
	}

	d.nextSequenceNumber++
	d.maxSeqBySite[d.siteID] = spliceID.SequenceNumber

	op := operation.SpliceOperation{SpliceID: spliceID, Deletion: deletionMod, Insertion: insertionMod}
	d.operationLog = append(d.operationLog, operation.Operation{Splice: &op})
	return op, updates, nil
}

// deleteLocal locates the
// segments bracketing [start,end), splitting as needed, marks every one of
// them (inclusive) as covered by spliceID, and report the dependency
// anchors and per-site high-water mark needed to replicate the deletion.
func (d *Document) deleteLocal(start, end point.Point, spliceID spliceid.SpliceId) (*operation.TextDeletionMod, []*segment.Segment, operation.TextUpdate, error) {
	_, first, err := d.localSegmentBoundary(start)
	if err != nil {
		return nil, nil, operation.TextUpdate{}, err
	}
	last, _, err := d.localSegmentBoundary(end)
	if err != nil {
		return nil, nil, operation.TextUpdate{}, err
	}

	var covered []*segment.Segment
	maxSeq := make(map[uint32]uint32)
	var oldText []rune

	cur := first
	for cur != nil {
		covered = append(covered, cur)
		if !cur.SpliceID.IsSentinel() {
			if cur.SpliceID.SequenceNumber > maxSeq[cur.SpliceID.SiteID] {
				maxSeq[cur.SpliceID.SiteID] = cur.SpliceID.SequenceNumber
			}
		}
		if d.isVisibleNode(cur) {
			oldText = append(oldText, cur.Text...)
		}
		cur.Deletions[spliceID] = struct{}{}
		d.docTree.Update(cur)
		d.docTree.Splay(cur)
		if cur == last {
			break
		}
		cur = d.docTree.Successor(cur)
	}

	left := covered[0]
	right := covered[len(covered)-1]

	mod := &operation.TextDeletionMod{
		MaxSequenceNumberBySite: maxSeq,
		LeftDependency:          operation.Dependency{SpliceID: left.SpliceID, Offset: left.Offset},
		RightDependency:         operation.Dependency{SpliceID: right.SpliceID, Offset: right.Offset.Traverse(right.Extent)},
	}
	update := operation.TextUpdate{
		OldStart: start, OldEnd: end, OldText: string(oldText),
		NewStart: start, NewEnd: start,
	}
	return mod, covered, update, nil
}

// insertLocal locates the segments bracketing position, splitting as
// needed, creates a new segment with a fresh split tree, and splices it
// into the document tree.
func (d *Document) insertLocal(position point.Point, text string, spliceID spliceid.SpliceId) (*operation.TextInsertionMod, operation.TextUpdate, error) {
	left, right, err := d.localSegmentBoundary(position)
	if err != nil {
		return nil, operation.TextUpdate{}, err
	}

	newSeg := segment.New(spliceID, point.Zero, []rune(text), left, right)
	d.docTree.InsertBetween(left, right, newSeg)
	d.splitTrees[spliceID] = splittree.New(newSeg)

	mod := &operation.TextInsertionMod{
		Text:            text,
		LeftDependency:  operation.Dependency{SpliceID: left.SpliceID, Offset: left.EndOffset()},
		RightDependency: operation.Dependency{SpliceID: right.SpliceID, Offset: right.Offset},
	}
	update := operation.TextUpdate{
		OldStart: position, OldEnd: position,
		NewStart: position, NewEnd: position.Traverse(newSeg.Extent), NewText: text,
	}
	return mod, update, nil
}

// localSegmentBoundary returns the adjacent pair of segments meeting at
// linear position p: left ends at p (the start sentinel when p is the
// document origin), right starts at p. A position strictly inside a
// segment splits it in both trees first.
func (d *Document) localSegmentBoundary(p point.Point) (left, right *segment.Segment, err error) {
	seg, segStart := d.docTree.FindContainingPosition(p)
	if seg == nil {
		return nil, nil, replicaerr.Wrap(replicaerr.ErrPositionOutOfRange,
			"position %s exceeds document extent %s", p, d.docTree.VisibleExtent())
	}
	segEnd := segStart
	if d.isVisibleNode(seg) {
		segEnd = segStart.Traverse(seg.Extent)
	}
	if p.Compare(segEnd) < 0 {
		suffix := d.splitBothTrees(seg, p.Traversal(segStart))
		return seg, suffix, nil
	}
	return seg, d.docTree.Successor(seg), nil
}

// splitBothTrees splits seg at offsetInSeg (relative to seg's own text)
// and mirrors the split into both the segment's split tree and the
// document tree, returning the new suffix segment. The suffix inherits
// seg's deletion coverage, so every deletion that covers it is also told
// about the new piece, since undoing that deletion later must revisit
// the suffix too.
func (d *Document) splitBothTrees(seg *segment.Segment, offsetInSeg point.Point) *segment.Segment {
	st := d.splitTrees[seg.SpliceID]
	suffix := st.SplitSegment(seg, offsetInSeg)
	d.docTree.SplitSegment(seg, suffix)
	for id := range suffix.Deletions {
		d.deletionSegments[id] = append(d.deletionSegments[id], suffix)
	}
	return suffix
}

// findSegmentStart locates (splitting if necessary) the segment that
// begins at dep's offset within dep's own splice.
func (d *Document) findSegmentStart(dep operation.Dependency) (*segment.Segment, error) {
	if dep.SpliceID.IsSentinel() {
		return d.sentinelFor(dep.SpliceID), nil
	}
	st, ok := d.splitTrees[dep.SpliceID]
	if !ok {
		return nil, replicaerr.Wrap(replicaerr.ErrSegmentNotFound, "findSegmentStart: splice %s not present", dep.SpliceID)
	}
	piece, pieceStart := st.FindContainingOffset(dep.Offset)
	if piece == nil {
		return nil, replicaerr.Wrap(replicaerr.ErrSegmentNotFound, "findSegmentStart: offset %s in splice %s", dep.Offset, dep.SpliceID)
	}
	if pieceStart.Compare(dep.Offset) == 0 {
		return piece, nil
	}
	offsetInPiece := dep.Offset.Traversal(pieceStart)
	return d.splitBothTrees(piece, offsetInPiece), nil
}

// findSegmentEnd locates (splitting if necessary) the segment that ends
// at dep's offset within dep's own splice.
func (d *Document) findSegmentEnd(dep operation.Dependency) (*segment.Segment, error) {
	if dep.SpliceID.IsSentinel() {
		return d.sentinelFor(dep.SpliceID), nil
	}
	st, ok := d.splitTrees[dep.SpliceID]
	if !ok {
		return nil, replicaerr.Wrap(replicaerr.ErrSegmentNotFound, "findSegmentEnd: splice %s not present", dep.SpliceID)
	}
	piece, pieceStart := st.FindContainingOffset(dep.Offset)
	if piece == nil {
		return nil, replicaerr.Wrap(replicaerr.ErrSegmentNotFound, "findSegmentEnd: offset %s in splice %s", dep.Offset, dep.SpliceID)
	}
	if pieceStart.Compare(dep.Offset) == 0 {
		if pred := st.Predecessor(piece); pred != nil {
			return pred, nil
		}
		return piece, nil
	}
	if pieceStart.Traverse(piece.Extent).Compare(dep.Offset) == 0 {
		return piece, nil
	}
	offsetInPiece := dep.Offset.Traversal(pieceStart)
	d.splitBothTrees(piece, offsetInPiece)
	return piece, nil
}
