package textcrdt

import (
	"github.com/cshekharsharma/go-textcrdt/history"
	"github.com/cshekharsharma/go-textcrdt/markers"
	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/replicaerr"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
)

// HistoryTransaction is the materialized, linear-coordinate form of a
// history.TransactionRecord: its change list is expressed as concrete
// TextUpdates rather than CRDT operations, so a fresh replica can replay
// it without re-deriving visibility. The stored updates
// describe how to redo the transaction regardless of which stack it came
// from.
type HistoryTransaction struct {
	Timestamp        int64
	GroupingInterval *int64
	TextUpdates      []operation.TextUpdate
	MarkersBefore    operation.SiteMarkers
	MarkersAfter     operation.SiteMarkers
}

// HistoryCheckpoint mirrors a history.CheckpointRecord with its markers
// snapshot resolved to linear ranges.
type HistoryCheckpoint struct {
	ID        string
	IsBarrier bool
	Markers   operation.SiteMarkers
}

// HistoryRecord is one entry of a History's undo or redo stack: exactly
// one of Transaction or Checkpoint is set.
type HistoryRecord struct {
	Transaction *HistoryTransaction
	Checkpoint  *HistoryCheckpoint
}

// History is a read-only snapshot of the replica's edit history: enough
// to repopulate a fresh replica's undo/redo stacks without replaying the
// full operation log. BaseText is the document state below the oldest
// retained undo entry, so entries dropped by a maxEntries cap stay
// accounted for. Both stacks are stored newest-first, the order
// GetHistory walked them in.
type History struct {
	BaseText  string
	UndoStack []HistoryRecord
	RedoStack []HistoryRecord
}

// GetHistory captures a History snapshot: it walks the
// redo stack newest-first up to maxEntries, materializing each
// transaction's linear change list by actually redoing it against the
// live tree (so marker resolution sees the correct intermediate state),
// then reverts those redoes; symmetrically walks the undo stack and
// reverts its undoes. The document text observed with every retained undo
// transaction backed out becomes BaseText. The live undo-count table is
// restored exactly before returning, success or not, so this call is
// read-only overall.
func (d *Document) GetHistory(maxEntries int) History {
	d.mu.Lock()
	defer d.mu.Unlock()

	saved := copySeqMapU32(d.undoCounts)
	defer func() { d.undoCounts = saved }()

	h := History{}

	redoMaterialized, redoAppliedIDs := d.materializeStack(d.redoStack, maxEntries, true)
	h.RedoStack = redoMaterialized
	d.revertFlips(redoAppliedIDs)

	undoMaterialized, undoAppliedIDs := d.materializeStack(d.undoStack, maxEntries, false)
	h.UndoStack = undoMaterialized
	h.BaseText = d.getTextLocked()
	d.revertFlips(undoAppliedIDs)

	d.undoCounts = copySeqMapU32(saved)
	return h
}

// materializeStack walks s newest-first up to maxEntries records,
// producing HistoryRecords. For a TransactionRecord, redoing==true means
// "flip its operations forward and record markersBefore/markersAfter
// around that flip, storing the forward (redo) change list" (the redo
// stack's own materialization); redoing==false undoes instead and stores
// the inverted change list so both stacks carry redo-shaped updates.
// Every flipped SpliceId is appended to applied, in
// flip order, so the caller can revert them afterward in reverse.
func (d *Document) materializeStack(s history.Stack, maxEntries int, redoing bool) ([]HistoryRecord, []spliceid.SpliceId) {
	var out []HistoryRecord
	var applied []spliceid.SpliceId
	n := 0
	for i := len(s) - 1; i >= 0 && n < maxEntries; i-- {
		n++
		r := s[i]
		switch {
		case r.Checkpoint != nil:
			out = append(out, HistoryRecord{Checkpoint: &HistoryCheckpoint{
				ID:        r.Checkpoint.ID,
				IsBarrier: r.Checkpoint.IsBarrier,
				Markers:   markersFromSnapshotOn(d, r.Checkpoint.MarkersSnapshot),
			}})
		case r.Transaction != nil:
			tx := r.Transaction
			var flipped []spliceid.SpliceId
			for _, op := range tx.Operations {
				flipped = append(flipped, txOpSpliceID(op))
			}

			if redoing {
				before := d.resolveAllMarkers()
				_, updates := d.applyUndoRedo(tx.Operations)
				after := d.resolveAllMarkers()
				applied = append(applied, flipped...)
				out = append(out, HistoryRecord{Transaction: &HistoryTransaction{
					Timestamp: tx.Timestamp, GroupingInterval: tx.GroupingInterval,
					TextUpdates:   updates,
					MarkersBefore: before, MarkersAfter: after,
				}})
			} else {
				after := d.resolveAllMarkers()
				_, rawUpdates := d.applyUndoRedo(tx.Operations)
				before := d.resolveAllMarkers()
				applied = append(applied, flipped...)
				out = append(out, HistoryRecord{Transaction: &HistoryTransaction{
					Timestamp: tx.Timestamp, GroupingInterval: tx.GroupingInterval,
					TextUpdates:   invertTextUpdates(rawUpdates),
					MarkersBefore: before, MarkersAfter: after,
				}})
			}
		}
	}
	return out, applied
}

// revertFlips undoes the effect of materializeStack's forward flips by
// flipping each recorded SpliceId's undo count back down one, in reverse
// order, restoring document state so the explore-and-restore walk in
// GetHistory leaves the replica unchanged.
func (d *Document) revertFlips(ids []spliceid.SpliceId) {
	if len(ids) == 0 {
		return
	}
	affected := d.dedupeByIndex(d.segmentsForSpliceIDs(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		d.undoCounts[ids[i]]--
	}
	d.refreshAggregates(affected)
}

func txOpSpliceID(op history.TxOp) spliceid.SpliceId {
	if op.Splice != nil {
		return op.Splice.SpliceID
	}
	return op.Undo.SpliceID
}

func copySeqMapU32(in map[spliceid.SpliceId]uint32) map[spliceid.SpliceId]uint32 {
	out := make(map[spliceid.SpliceId]uint32, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// populateHistory restores a captured History into a fresh replica: it
// lays down the base text, then replays each stored transaction's linear
// change list as fresh local splices (reverse order within a transaction,
// so earlier updates cannot shift later ones' old coordinates), pushing
// rebuilt TransactionRecords as it goes. Redo-stack entries are
// replayed last and then undone once each, which carries them back onto
// the redo stack in their original layout.
func (d *Document) populateHistory(h History) error {
	if h.BaseText != "" {
		if _, _, err := d.performLocalSplice(point.Zero, point.Zero, h.BaseText); err != nil {
			return err
		}
	}

	// Both stacks are stored newest-first. Undo-stack entries replay
	// oldest-first to rebuild the original bottom-to-top layout; redo
	// entries follow in stored order, which for them is chronological.
	for i := len(h.UndoStack) - 1; i >= 0; i-- {
		if err := d.replayHistoryRecord(h.UndoStack[i]); err != nil {
			return err
		}
	}
	redoTransactions := 0
	for _, r := range h.RedoStack {
		if r.Transaction != nil {
			redoTransactions++
		}
		if err := d.replayHistoryRecord(r); err != nil {
			return err
		}
	}
	for i := 0; i < redoTransactions; i++ {
		d.undoLocked()
	}
	return nil
}

// replayHistoryRecord rebuilds one stored record on the undo stack. A
// checkpoint loses its barrier status on restore.
func (d *Document) replayHistoryRecord(r HistoryRecord) error {
	if r.Checkpoint != nil {
		d.undoStack.PushCheckpoint(history.CheckpointRecord{
			ID:              r.Checkpoint.ID,
			IsBarrier:       false,
			MarkersSnapshot: d.snapshotFromMarkers(r.Checkpoint.Markers),
		})
		return nil
	}

	if r.Transaction == nil {
		return replicaerr.Wrap(replicaerr.ErrUnknownUndoRecordKind, "restore history record")
	}

	tx := r.Transaction
	var ops []history.TxOp
	for i := len(tx.TextUpdates) - 1; i >= 0; i-- {
		u := tx.TextUpdates[i]
		op, _, err := d.performLocalSplice(u.OldStart, u.OldEnd, u.NewText)
		if err != nil {
			return err
		}
		spliceOp := op
		ops = append(ops, history.TxOp{Splice: &spliceOp})
	}
	d.undoStack.PushTransaction(history.TransactionRecord{
		Timestamp:        tx.Timestamp,
		GroupingInterval: tx.GroupingInterval,
		Operations:       ops,
		MarkersBefore:    d.snapshotFromMarkers(tx.MarkersBefore),
		MarkersAfter:     d.snapshotFromMarkers(tx.MarkersAfter),
	})
	return nil
}

// snapshotFromMarkers converts resolved linear marker ranges back into
// the logical anchor form stacks store, against the document's current
// state.
func (d *Document) snapshotFromMarkers(sm operation.SiteMarkers) history.MarkersSnapshot {
	if sm == nil {
		return nil
	}
	out := make(history.MarkersSnapshot, len(sm))
	for site, layers := range sm {
		layerCopy := make(map[string]map[string]operation.MarkerValue, len(layers))
		for layer, ids := range layers {
			idCopy := make(map[string]operation.MarkerValue, len(ids))
			for markerID, m := range ids {
				idCopy[markerID] = operation.MarkerValue{
					Exclusive: m.Exclusive,
					Reversed:  m.Reversed,
					Tailed:    m.Tailed,
					Range:     markers.GetLogicalRange(d.docTree, m.Range, m.Exclusive),
				}
			}
			layerCopy[layer] = idCopy
		}
		out[site] = layerCopy
	}
	return out
}
