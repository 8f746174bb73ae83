package textcrdt

import (
	"github.com/google/uuid"

	"github.com/cshekharsharma/go-textcrdt/history"
	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
)

// Undo scans the undo stack top-down for the first TransactionRecord,
// refusing (returning ok=false) if a barrier checkpoint is hit first. The
// popped records move to the redo stack and the transaction's operations
// are replayed as local undo counter-flips.
func (d *Document) Undo() (operation.UndoRedoResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.undoLocked()
}

func (d *Document) undoLocked() (operation.UndoRedoResult, bool) {
	popped, tx, ok := d.undoStack.PopThroughTransaction()
	if !ok {
		return operation.UndoRedoResult{}, false
	}
	for _, r := range popped {
		d.redoStack.Push(r)
	}

	ops, updates := d.applyUndoRedo(tx.Operations)
	d.logUndoOps(ops)
	return operation.UndoRedoResult{
		Operations:  ops,
		TextUpdates: updates,
		Markers:     markersFromSnapshotOn(d, tx.MarkersBefore),
	}, true
}

// Redo symmetrically scans the redo stack, additionally carrying back any
// run of CheckpointRecords left on top of the redo stack once the
// transaction has been popped. Checkpoints created after an undo go onto
// the undo stack, so every checkpoint found here was moved by an earlier
// Undo.
func (d *Document) Redo() (operation.UndoRedoResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	popped, tx, ok := d.redoStack.PopThroughTransaction()
	if !ok {
		return operation.UndoRedoResult{}, false
	}
	d.undoStack.PushRecordsAndTrailingCheckpoints(popped, &d.redoStack)

	ops, updates := d.applyUndoRedo(tx.Operations)
	d.logUndoOps(ops)
	return operation.UndoRedoResult{
		Operations:  ops,
		TextUpdates: updates,
		Markers:     markersFromSnapshotOn(d, tx.MarkersAfter),
	}, true
}

// applyUndoRedo flips each TxOp's splice's undo count by one (odd =
// undone, even = live, the same toggle for both directions), recomputes
// visibility for the affected segments, and returns the resulting
// counter-UndoOperations plus the linear consequence. It does not touch
// the operation log: GetHistory's explore-and-restore walk flips counts
// transiently and must not leave traces there.
func (d *Document) applyUndoRedo(ops []history.TxOp) ([]operation.UndoOperation, []operation.TextUpdate) {
	ids := make([]spliceid.SpliceId, len(ops))
	for i, op := range ops {
		ids[i] = txOpSpliceID(op)
	}

	// Snapshot positions and visibility before any count flips: the
	// emitted updates' old side must describe the pre-change document.
	affected := d.dedupeByIndex(d.segmentsForSpliceIDs(ids))
	before := d.snapshotVisibility(affected)

	resultOps := make([]operation.UndoOperation, len(ids))
	for i, id := range ids {
		d.undoCounts[id]++
		resultOps[i] = operation.UndoOperation{SpliceID: id, UndoCount: d.undoCounts[id]}
	}

	d.refreshAggregates(affected)
	updates := d.buildTextUpdates(before)
	return resultOps, updates
}

func (d *Document) logUndoOps(ops []operation.UndoOperation) {
	for i := range ops {
		d.operationLog = append(d.operationLog, operation.Operation{Undo: &ops[i]})
	}
}

// CreateCheckpoint pushes an addressable CheckpointRecord onto the undo
// stack and returns its id.
func (d *Document) CreateCheckpoint(isBarrier bool) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.NewString()
	d.undoStack.PushCheckpoint(history.CheckpointRecord{
		ID:              id,
		IsBarrier:       isBarrier,
		MarkersSnapshot: d.snapshotMarkers(),
	})
	return id
}

// ApplyGroupingInterval sets the top undo-stack transaction's grouping
// interval, possibly merging it into the transaction below.
func (d *Document) ApplyGroupingInterval(ms int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	history.ApplyGroupingInterval(&d.undoStack, ms)
}

// GroupLastChanges merges the two topmost undo-stack transactions if no
// barrier separates them, reporting whether a merge occurred.
func (d *Document) GroupLastChanges() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return history.GroupLastChanges(&d.undoStack)
}

// GroupChangesSinceCheckpoint merges every transaction above the named
// checkpoint into a single TransactionRecord, refusing if the checkpoint
// is missing or a barrier lies above it.
func (d *Document) GroupChangesSinceCheckpoint(id string, deleteCheckpoint bool) ([]operation.TextUpdate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ops, before, ok := history.GroupChangesSinceCheckpoint(&d.undoStack, id, deleteCheckpoint)
	if !ok {
		return nil, false
	}
	if len(ops) == 0 {
		return nil, true
	}

	updates := d.textUpdatesForOps(ops)
	d.undoStack.PushTransaction(history.TransactionRecord{
		Timestamp:     d.nowFn(),
		Operations:    ops,
		MarkersBefore: before,
		MarkersAfter:  d.snapshotMarkers(),
	})
	return updates, true
}

// RevertToCheckpoint removes every record above the named checkpoint and
// undoes their operations in one stroke, restoring the document to the
// state it had at the checkpoint. The reverted edits leave history
// entirely; they do not land on the redo stack.
func (d *Document) RevertToCheckpoint(id string, deleteCheckpoint bool) (operation.UndoRedoResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ops, before, ok := history.GroupChangesSinceCheckpoint(&d.undoStack, id, deleteCheckpoint)
	if !ok {
		return operation.UndoRedoResult{}, false
	}

	resultOps, updates := d.applyUndoRedo(ops)
	d.logUndoOps(resultOps)
	return operation.UndoRedoResult{
		Operations:  resultOps,
		TextUpdates: updates,
		Markers:     markersFromSnapshotOn(d, before),
	}, true
}

// GetChangesSinceCheckpoint returns the linear TextUpdates every
// transaction above the named checkpoint has applied, without mutating
// the stack or the document.
func (d *Document) GetChangesSinceCheckpoint(id string) ([]operation.TextUpdate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ops, ok := history.OpsSinceCheckpoint(d.undoStack, id)
	if !ok {
		return nil, false
	}
	return d.textUpdatesForOps(ops), true
}

// textUpdatesForOps computes the coalesced linear transform a set of
// already-applied TxOps produced, by diffing each affected segment's
// current visibility against what it was before those ops ran. The
// before-view treats the ops' own splices as not yet existing and backs
// their undo-count flips out; nothing is mutated to answer the question.
func (d *Document) textUpdatesForOps(ops []history.TxOp) []operation.TextUpdate {
	ignore := make(map[spliceid.SpliceId]bool)
	undoDelta := make(map[spliceid.SpliceId]uint32)
	var ids []spliceid.SpliceId

	for _, op := range ops {
		id := txOpSpliceID(op)
		ids = append(ids, id)
		if op.Splice != nil {
			ignore[id] = true
		} else {
			undoDelta[id]++
		}
	}

	countBefore := func(id spliceid.SpliceId) uint32 {
		return d.undoCounts[id] - undoDelta[id]
	}
	wasVisible := func(s *segment.Segment) bool {
		if s.IsSentinel() || ignore[s.SpliceID] {
			return false
		}
		if countBefore(s.SpliceID)%2 != 0 {
			return false
		}
		for del := range s.Deletions {
			if !ignore[del] && countBefore(del)%2 == 0 {
				return false
			}
		}
		return true
	}

	affected := d.dedupeByIndex(d.segmentsForSpliceIDs(ids))
	return d.diffVisibility(affected, wasVisible)
}
