// Package operation defines the public, wire-agnostic record schemas:
// the values a Document replica emits and accepts to
// communicate with peers and with a host editor. Representation on the
// wire is left to a transport the core does not implement; this package
// only guarantees that two operations compare equal iff their fields do.
package operation

import (
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
)

// Dependency names a splice's bracketing piece by its SpliceId and an
// offset within that splice's own text.
type Dependency struct {
	SpliceID spliceid.SpliceId
	Offset   point.Point
}

// TextInsertionMod is the insertion half of a SpliceOperation.
type TextInsertionMod struct {
	Text            string
	LeftDependency  Dependency
	RightDependency Dependency
}

// TextDeletionMod is the deletion half of a SpliceOperation.
type TextDeletionMod struct {
	// MaxSequenceNumberBySite is the per-site causal frontier the
	// deleting replica had observed when it formed this deletion; it
	// controls which segments a remote replica covers on integration.
	MaxSequenceNumberBySite map[uint32]uint32
	LeftDependency          Dependency
	RightDependency         Dependency
}

// SpliceOperation is one local edit: a deletion, an insertion, or both,
// named by a single SpliceId.
type SpliceOperation struct {
	SpliceID  spliceid.SpliceId
	Deletion  *TextDeletionMod
	Insertion *TextInsertionMod
}

// UndoOperation carries the new absolute undo count for a splice;
// integration uses max-wins.
type UndoOperation struct {
	SpliceID  spliceid.SpliceId
	UndoCount uint32
}

// MarkerValue is the wire form of one marker's state, or nil for a
// tombstone.
type MarkerValue struct {
	Exclusive bool
	Reversed  bool
	Tailed    bool
	Range     LogicalRange
}

// LogicalRange anchors a range to two (SpliceId, offsetInSplice) pairs
// that survive concurrent edits.
type LogicalRange struct {
	Start Dependency
	End   Dependency
}

// LayerUpdate is a layer's marker updates for one site: nil means "remove
// this layer for the site"; within a present layer, a nil *MarkerValue
// means "remove this marker"; a marker id absent from Markers means
// "unchanged".
type LayerUpdate struct {
	Markers map[string]*MarkerValue
}

// MarkersUpdateOperation is a site's update to its own marker layers.
type MarkersUpdateOperation struct {
	SiteID  uint32
	Updates map[string]*LayerUpdate
}

// Operation is the closed sum type integration dispatches on. Exactly one
// of the three fields is set.
type Operation struct {
	Splice        *SpliceOperation
	Undo          *UndoOperation
	MarkersUpdate *MarkersUpdateOperation
}

// TextUpdate describes one linear-coordinate transform a host editor's
// RawDocument must apply.
type TextUpdate struct {
	OldStart point.Point
	OldEnd   point.Point
	OldText  string
	NewStart point.Point
	NewEnd   point.Point
	NewText  string
}

// Range is a linear (start, end) pair in Points, the resolved form of a
// LogicalRange.
type Range struct {
	Start point.Point
	End   point.Point
}

// Marker is the resolved, linear-range form of a marker returned to
// callers.
type Marker struct {
	Exclusive bool
	Reversed  bool
	Tailed    bool
	Range     Range
}

// SiteMarkers is site -> layer -> marker id -> resolved marker.
type SiteMarkers map[uint32]map[string]map[string]Marker

// DocumentStateUpdate bundles the linear consequences of an integration
// or local edit: the TextUpdates a host editor must apply, and any marker
// ranges that changed as a result.
type DocumentStateUpdate struct {
	TextUpdates   []TextUpdate
	MarkerUpdates SiteMarkers
}

// UndoRedoResult is what Undo/Redo return on success.
type UndoRedoResult struct {
	Operations  []UndoOperation
	TextUpdates []TextUpdate
	Markers     SiteMarkers
}
