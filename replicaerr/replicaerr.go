// Package replicaerr defines the error kinds a Document replica can
// surface. Each sentinel is wrapped with call-site context via
// github.com/pkg/errors so callers can both discriminate the kind with
// errors.Is and read a human trace of where and why it occurred.
package replicaerr

import "github.com/pkg/errors"

// Sentinel error kinds. Compare with errors.Is; none of these are
// recovered internally by the replica.
var (
	// ErrReservedSiteID: constructor called with siteId == 0.
	ErrReservedSiteID = errors.New("replicaerr: site id 0 is reserved for sentinel segments")

	// ErrOutOfOrderLocalOperation: local SetTextInRange called while the
	// per-site sequence counter is inconsistent. Unreachable under
	// correct use; indicates a bug in the caller or the replica itself.
	ErrOutOfOrderLocalOperation = errors.New("replicaerr: local operation is out of sequence order")

	// ErrUnknownOperationKind: integration encountered an operation
	// variant it doesn't recognize.
	ErrUnknownOperationKind = errors.New("replicaerr: unknown operation kind")

	// ErrUnknownUndoRecordKind: the undo-stack scan encountered an
	// unknown record variant.
	ErrUnknownUndoRecordKind = errors.New("replicaerr: unknown undo record kind")

	// ErrPositionOutOfRange: a requested linear position lies beyond the
	// document's visible extent.
	ErrPositionOutOfRange = errors.New("replicaerr: position out of range")

	// ErrSegmentNotFound: a tree lookup hit a nil branch where a segment
	// was required, an internal invariant violation.
	ErrSegmentNotFound = errors.New("replicaerr: segment not found")
)

// Wrap attaches a formatted call-site message to one of the sentinel
// errors above while keeping it discriminable with errors.Is(err, kind).
func Wrap(kind error, format string, args ...any) error {
	return errors.Wrapf(kind, format, args...)
}
