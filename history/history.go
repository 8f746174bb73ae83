// Package history implements the undo/redo stack, checkpoints, and
// transaction grouping the replica's history API is built on. It owns the
// stack data structures and the barrier/grouping rules;
// it does not know how to apply an UndoOperation to a Document's segment
// trees; that belongs to the replica package, which drives these stacks
// and then asks markers/doctree to recompute visibility and linear
// ranges.
package history

import (
	"github.com/cshekharsharma/go-textcrdt/operation"
)

// TxOp is one entry of a TransactionRecord: either a splice or an undo
// counter-operation.
type TxOp struct {
	Splice *operation.SpliceOperation
	Undo   *operation.UndoOperation
}

// MarkersSnapshot is a site -> layer -> marker id -> logical marker value,
// captured so checkpoints and transactions survive later edits.
type MarkersSnapshot map[uint32]map[string]map[string]operation.MarkerValue

// TransactionRecord groups one or more operations performed together, with
// a timestamp for grouping-interval merging.
type TransactionRecord struct {
	Timestamp        int64
	GroupingInterval *int64
	Operations       []TxOp
	MarkersBefore    MarkersSnapshot
	MarkersAfter     MarkersSnapshot
}

// CheckpointRecord is an addressable stack marker; a barrier checkpoint
// blocks undo/revert/group across it.
type CheckpointRecord struct {
	ID              string
	IsBarrier       bool
	MarkersSnapshot MarkersSnapshot
}

// Record is one entry of the undo or redo stack: exactly one of
// Transaction or Checkpoint is set.
type Record struct {
	Transaction *TransactionRecord
	Checkpoint  *CheckpointRecord
}

// Stack is a LIFO of Records, newest at the end of the slice.
type Stack []Record

// Push appends a record to the top of the stack.
func (s *Stack) Push(r Record) {
	*s = append(*s, r)
}

// Pop removes and returns the top record, or false if the stack is empty.
func (s *Stack) Pop() (Record, bool) {
	if len(*s) == 0 {
		return Record{}, false
	}
	n := len(*s) - 1
	r := (*s)[n]
	*s = (*s)[:n]
	return r, true
}

// Peek returns the top record without removing it.
func (s Stack) Peek() (Record, bool) {
	if len(s) == 0 {
		return Record{}, false
	}
	return s[len(s)-1], true
}

// Clear empties the stack, used whenever a local edit invalidates the
// redo history.
func (s *Stack) Clear() {
	*s = (*s)[:0]
}

// PushTransaction is the common case: a single-operation (or pre-grouped)
// transaction pushed by a local edit.
func (s *Stack) PushTransaction(tx TransactionRecord) {
	s.Push(Record{Transaction: &tx})
}

// PushCheckpoint pushes an addressable checkpoint.
func (s *Stack) PushCheckpoint(cp CheckpointRecord) {
	s.Push(Record{Checkpoint: &cp})
}

// indexOfCheckpoint returns the slice index (counted from the bottom of
// the stack) of the topmost checkpoint with the given id, or -1.
func (s Stack) indexOfCheckpoint(id string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Checkpoint != nil && s[i].Checkpoint.ID == id {
			return i
		}
	}
	return -1
}

// barrierAbove reports whether any barrier checkpoint lies strictly above
// index idx, used by the checkpoint-scoped refusal rules. The record at
// idx itself (the checkpoint being addressed) does not block.
func (s Stack) barrierAbove(idx int) bool {
	for i := idx + 1; i < len(s); i++ {
		if s[i].Checkpoint != nil && s[i].Checkpoint.IsBarrier {
			return true
		}
	}
	return false
}

// PopThroughTransaction scans the stack top-down for the first
// TransactionRecord. If a barrier checkpoint is found first, it returns
// ok=false and leaves the stack untouched. Otherwise it pops every record
// from the top through and including that transaction and returns them in
// original (bottom-to-top) order, along with the transaction itself.
func (s *Stack) PopThroughTransaction() (popped []Record, tx *TransactionRecord, ok bool) {
	cur := *s
	for i := len(cur) - 1; i >= 0; i-- {
		if r := cur[i].Checkpoint; r != nil && r.IsBarrier {
			return nil, nil, false
		}
		if t := cur[i].Transaction; t != nil {
			popped = append([]Record(nil), cur[i:]...)
			*s = cur[:i]
			return popped, t, true
		}
	}
	return nil, nil, false
}

// PushRecordsAndTrailingCheckpoints pushes records (in the order returned
// by PopThroughTransaction) onto this stack, then additionally pulls any
// run of CheckpointRecords immediately following the transaction back off
// of trailing (the stack the transaction came from) onto this stack:
// redo's rule for carrying checkpoints created after a transaction back
// along with it when the transaction is redone.
func (s *Stack) PushRecordsAndTrailingCheckpoints(records []Record, trailing *Stack) {
	for _, r := range records {
		s.Push(r)
	}
	for {
		r, ok := trailing.Peek()
		if !ok || r.Checkpoint == nil {
			return
		}
		trailing.Pop()
		s.Push(r)
	}
}

// ApplyGroupingInterval sets the top transaction's grouping interval and,
// if the penultimate record is also a transaction recent enough per the
// smaller of the two intervals, merges the two into one.
func ApplyGroupingInterval(s *Stack, ms int64) {
	cur := *s
	if len(cur) == 0 || cur[len(cur)-1].Transaction == nil {
		return
	}
	top := cur[len(cur)-1].Transaction
	top.GroupingInterval = &ms

	if len(cur) < 2 {
		return
	}
	prevRec := cur[len(cur)-2]
	if prevRec.Transaction == nil {
		return
	}
	prev := prevRec.Transaction

	limit := ms
	if prev.GroupingInterval != nil && *prev.GroupingInterval < limit {
		limit = *prev.GroupingInterval
	}
	if top.Timestamp-prev.Timestamp >= limit {
		return
	}

	prev.Operations = append(prev.Operations, top.Operations...)
	prev.Timestamp = top.Timestamp
	prev.MarkersAfter = top.MarkersAfter
	prev.GroupingInterval = &ms

	*s = cur[:len(cur)-1]
}

// GroupLastChanges finds the two topmost transactions, scanning past
// ordinary checkpoints but refusing at a barrier, and merges the newer
// into the older, reporting whether a merge occurred.
func GroupLastChanges(s *Stack) bool {
	cur := *s
	topIdx := -1
	for i := len(cur) - 1; i >= 0; i-- {
		if cp := cur[i].Checkpoint; cp != nil {
			if cp.IsBarrier {
				return false
			}
			continue
		}
		if topIdx < 0 {
			topIdx = i
			continue
		}
		prev := cur[i].Transaction
		top := cur[topIdx].Transaction
		prev.Operations = append(prev.Operations, top.Operations...)
		prev.Timestamp = top.Timestamp
		prev.MarkersAfter = top.MarkersAfter
		*s = append(cur[:topIdx], cur[topIdx+1:]...)
		return true
	}
	return false
}

// GroupChangesSinceCheckpoint pops every record above (and, if
// deleteCheckpoint, including) the named checkpoint and returns their
// concatenated transaction operations in chronological (bottom-to-top)
// order along with the checkpoint's stored markers snapshot, so the
// replica can build one merged TransactionRecord to push back. It refuses
// (ok=false) if the checkpoint is missing or a barrier lies above it; the
// addressed checkpoint being a barrier itself does not block.
func GroupChangesSinceCheckpoint(s *Stack, id string, deleteCheckpoint bool) (ops []TxOp, before MarkersSnapshot, ok bool) {
	cur := *s
	idx := cur.indexOfCheckpoint(id)
	if idx < 0 {
		return nil, nil, false
	}
	if cur.barrierAbove(idx) {
		return nil, nil, false
	}
	cp := cur[idx].Checkpoint
	for i := idx + 1; i < len(cur); i++ {
		if t := cur[i].Transaction; t != nil {
			ops = append(ops, t.Operations...)
		}
	}
	if deleteCheckpoint {
		*s = append(Stack(nil), cur[:idx]...)
	} else {
		*s = append(Stack(nil), cur[:idx+1]...)
	}
	return ops, cp.MarkersSnapshot, true
}

// OpsSinceCheckpoint returns the concatenated operations of every
// transaction above the named checkpoint without mutating the stack,
// refusing under the same missing-checkpoint/barrier conditions as the
// mutating variant.
func OpsSinceCheckpoint(s Stack, id string) (ops []TxOp, ok bool) {
	idx := s.indexOfCheckpoint(id)
	if idx < 0 {
		return nil, false
	}
	if s.barrierAbove(idx) {
		return nil, false
	}
	for i := idx + 1; i < len(s); i++ {
		if t := s[i].Transaction; t != nil {
			ops = append(ops, t.Operations...)
		}
	}
	return ops, true
}
