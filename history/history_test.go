package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
)

func txRecord(ts int64, id spliceid.SpliceId) TransactionRecord {
	op := operation.SpliceOperation{SpliceID: id}
	return TransactionRecord{Timestamp: ts, Operations: []TxOp{{Splice: &op}}}
}

func TestPopThroughTransaction(t *testing.T) {
	var s Stack
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))
	s.PushCheckpoint(CheckpointRecord{ID: "cp1"})
	s.PushTransaction(txRecord(2, spliceid.New(1, 2)))

	popped, tx, ok := s.PopThroughTransaction()
	require.True(t, ok)
	require.Len(t, popped, 1)
	assert.Equal(t, int64(2), tx.Timestamp)
	assert.Len(t, s, 2, "the checkpoint and first transaction must remain")
}

func TestPopThroughTransactionRefusedByBarrier(t *testing.T) {
	var s Stack
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))
	s.PushCheckpoint(CheckpointRecord{ID: "barrier", IsBarrier: true})

	_, _, ok := s.PopThroughTransaction()
	assert.False(t, ok, "a barrier checkpoint above the transaction must refuse the pop")
	assert.Len(t, s, 2, "the stack must be left untouched on refusal")
}

func TestApplyGroupingIntervalMergesRecentTransactions(t *testing.T) {
	var s Stack
	s.PushTransaction(txRecord(1000, spliceid.New(1, 1)))
	s.PushTransaction(txRecord(1050, spliceid.New(1, 2)))

	ApplyGroupingInterval(&s, 200)

	require.Len(t, s, 1, "two transactions within the grouping interval must merge into one")
	assert.Len(t, s[0].Transaction.Operations, 2)
}

func TestApplyGroupingIntervalLeavesDistantTransactionsSeparate(t *testing.T) {
	var s Stack
	s.PushTransaction(txRecord(1000, spliceid.New(1, 1)))
	s.PushTransaction(txRecord(5000, spliceid.New(1, 2)))

	ApplyGroupingInterval(&s, 200)

	assert.Len(t, s, 2, "transactions outside the grouping interval must not merge")
}

func TestGroupLastChanges(t *testing.T) {
	var s Stack
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))
	s.PushTransaction(txRecord(2, spliceid.New(1, 2)))

	ok := GroupLastChanges(&s)
	assert.True(t, ok)
	require.Len(t, s, 1)
	assert.Len(t, s[0].Transaction.Operations, 2)
}

func TestGroupLastChangesNeedsTwoTransactions(t *testing.T) {
	var s Stack
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))
	assert.False(t, GroupLastChanges(&s))
}

func TestGroupChangesSinceCheckpoint(t *testing.T) {
	var s Stack
	s.PushCheckpoint(CheckpointRecord{ID: "cp1", MarkersSnapshot: MarkersSnapshot{}})
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))
	s.PushTransaction(txRecord(2, spliceid.New(1, 2)))

	ops, _, ok := GroupChangesSinceCheckpoint(&s, "cp1", false)
	require.True(t, ok)
	assert.Len(t, ops, 2)
	require.Len(t, s, 1, "the checkpoint stays when deleteCheckpoint is false")
	assert.Equal(t, "cp1", s[0].Checkpoint.ID)
}

func TestGroupChangesSinceCheckpointDeletesCheckpoint(t *testing.T) {
	var s Stack
	s.PushCheckpoint(CheckpointRecord{ID: "cp1"})
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))

	_, _, ok := GroupChangesSinceCheckpoint(&s, "cp1", true)
	require.True(t, ok)
	assert.Empty(t, s)
}

func TestGroupChangesSinceCheckpointRefusedByBarrier(t *testing.T) {
	var s Stack
	s.PushCheckpoint(CheckpointRecord{ID: "cp1"})
	s.PushCheckpoint(CheckpointRecord{ID: "barrier", IsBarrier: true})
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))

	_, _, ok := GroupChangesSinceCheckpoint(&s, "cp1", false)
	assert.False(t, ok)
}

func TestGroupChangesSinceCheckpointMissingID(t *testing.T) {
	var s Stack
	_, _, ok := GroupChangesSinceCheckpoint(&s, "missing", false)
	assert.False(t, ok)
}

func TestOpsSinceCheckpointDoesNotMutate(t *testing.T) {
	var s Stack
	s.PushCheckpoint(CheckpointRecord{ID: "cp1"})
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))

	ops, ok := OpsSinceCheckpoint(s, "cp1")
	require.True(t, ok)
	assert.Len(t, ops, 1)
	assert.Len(t, s, 2, "OpsSinceCheckpoint must not mutate the stack")
}

func TestGroupLastChangesScansPastCheckpoint(t *testing.T) {
	var s Stack
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))
	s.PushCheckpoint(CheckpointRecord{ID: "cp1"})
	s.PushTransaction(txRecord(2, spliceid.New(1, 2)))

	ok := GroupLastChanges(&s)
	require.True(t, ok)
	require.Len(t, s, 2, "the checkpoint between the transactions survives the merge")
	assert.Len(t, s[0].Transaction.Operations, 2)
	assert.Equal(t, "cp1", s[1].Checkpoint.ID)
}

func TestGroupLastChangesRefusedByBarrier(t *testing.T) {
	var s Stack
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))
	s.PushCheckpoint(CheckpointRecord{ID: "barrier", IsBarrier: true})
	s.PushTransaction(txRecord(2, spliceid.New(1, 2)))

	assert.False(t, GroupLastChanges(&s))
	assert.Len(t, s, 3, "the stack must be untouched when a barrier separates the transactions")
}

func TestGroupChangesSinceBarrierCheckpointItself(t *testing.T) {
	// The addressed checkpoint being a barrier does not block grouping up
	// to it; only a barrier above it does.
	var s Stack
	s.PushCheckpoint(CheckpointRecord{ID: "cp1", IsBarrier: true})
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))

	ops, _, ok := GroupChangesSinceCheckpoint(&s, "cp1", false)
	require.True(t, ok)
	assert.Len(t, ops, 1)
}

func TestOpsSinceCheckpointRefusedByBarrier(t *testing.T) {
	var s Stack
	s.PushCheckpoint(CheckpointRecord{ID: "cp1"})
	s.PushCheckpoint(CheckpointRecord{ID: "barrier", IsBarrier: true})
	s.PushTransaction(txRecord(1, spliceid.New(1, 1)))

	_, ok := OpsSinceCheckpoint(s, "cp1")
	assert.False(t, ok)
}

func TestPushRecordsAndTrailingCheckpoints(t *testing.T) {
	// popped is what PopThroughTransaction returns for a bare transaction;
	// redo still carries a checkpoint created above it that belongs with it
	// once it moves back onto the undo stack.
	var undo, redo Stack
	popped := []Record{{Transaction: &TransactionRecord{Timestamp: 1}}}
	redo.PushCheckpoint(CheckpointRecord{ID: "cp-after"})

	undo.PushRecordsAndTrailingCheckpoints(popped, &redo)

	require.Len(t, undo, 2)
	assert.NotNil(t, undo[0].Transaction)
	assert.Equal(t, "cp-after", undo[1].Checkpoint.ID)
	assert.Empty(t, redo, "the trailing checkpoint must move off the redo stack")
}
