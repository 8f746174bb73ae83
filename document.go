// Package textcrdt is the replicated core of a real-time collaborative
// text editor. A Document accepts local edits, emits SpliceOperations for
// broadcast, integrates remote operations regardless of arrival order, and
// maintains a local undo/redo history with checkpoints and transaction
// grouping. Replicas that have integrated the same operation set converge
// to the same text and the same marker ranges.
//
// The package composes the lower layers bottom-up (point -> spliceid ->
// segment -> splay -> splittree/doctree -> this package): a small,
// mutex-guarded struct with a constructor per use case and a flat method
// set, rather than a builder or options pattern.
package textcrdt

import (
	"sync"

	"github.com/cshekharsharma/go-textcrdt/doctree"
	"github.com/cshekharsharma/go-textcrdt/history"
	"github.com/cshekharsharma/go-textcrdt/markers"
	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/replicaerr"
	"github.com/cshekharsharma/go-textcrdt/segment"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
	"github.com/cshekharsharma/go-textcrdt/splittree"
)

// Clock abstracts wall-clock time behind a replaceable source so tests can
// drive deterministic grouping-interval behavior.
type Clock func() int64

// Document is one site's full replica of a shared document.
type Document struct {
	mu sync.Mutex

	siteID uint32
	nowFn  Clock

	nextSequenceNumber uint32
	maxSeqBySite       map[uint32]uint32

	startSeg *segment.Segment
	endSeg   *segment.Segment

	docTree          *doctree.Tree
	splitTrees       map[spliceid.SpliceId]*splittree.Tree
	deletionsApplied map[spliceid.SpliceId]map[uint32]uint32  // deletion spliceId -> its MaxSequenceNumberBySite, kept for idempotence checks
	deletionSegments map[spliceid.SpliceId][]*segment.Segment // deletion spliceId -> every segment it currently covers
	undoCounts       map[spliceid.SpliceId]uint32

	pendingOps map[spliceid.SpliceId][]operation.Operation

	liveMarkers     map[uint32]map[string]map[string]operation.MarkerValue
	deferredMarkers *markers.DeferredTable

	undoStack history.Stack
	redoStack history.Stack

	operationLog []operation.Operation
}

// New constructs an empty replica for siteID, which must not be the
// reserved sentinel site 0.
func New(siteID uint32) (*Document, error) {
	return newDocument(siteID, realClock)
}

// NewWithClock is New with an injectable clock, for deterministic tests of
// grouping-interval behavior.
func NewWithClock(siteID uint32, clock Clock) (*Document, error) {
	return newDocument(siteID, clock)
}

func newDocument(siteID uint32, clock Clock) (*Document, error) {
	if siteID == spliceid.ReservedSiteID {
		return nil, replicaerr.Wrap(replicaerr.ErrReservedSiteID, "new document with site %d", siteID)
	}
	d := &Document{
		siteID:             siteID,
		nowFn:              clock,
		nextSequenceNumber: 1,
		maxSeqBySite:       make(map[uint32]uint32),
		splitTrees:         make(map[spliceid.SpliceId]*splittree.Tree),
		deletionsApplied:   make(map[spliceid.SpliceId]map[uint32]uint32),
		deletionSegments:   make(map[spliceid.SpliceId][]*segment.Segment),
		undoCounts:         make(map[spliceid.SpliceId]uint32),
		pendingOps:         make(map[spliceid.SpliceId][]operation.Operation),
		liveMarkers:        make(map[uint32]map[string]map[string]operation.MarkerValue),
		deferredMarkers:    markers.NewDeferredTable(),
	}

	start := segment.NewSentinel(spliceid.SentinelStart)
	end := segment.NewSentinel(spliceid.SentinelEnd)
	d.startSeg, d.endSeg = start, end
	d.docTree = doctree.New(d.isVisibleNode, start, end)
	d.splitTrees[spliceid.SentinelStart] = splittree.New(start)
	d.splitTrees[spliceid.SentinelEnd] = splittree.New(end)

	return d, nil
}

// NewWithText builds a replica, then performs a single initial
// SetTextInRange(0,0,text) and discards any undo history it would have
// produced.
func NewWithText(siteID uint32, text string) (*Document, error) {
	d, err := New(siteID)
	if err != nil {
		return nil, err
	}
	if _, err := d.SetTextInRange(point.Zero, point.Zero, text); err != nil {
		return nil, err
	}
	d.undoStack.Clear()
	d.redoStack.Clear()
	return d, nil
}

// NewFromHistory restores a replica from a previously captured History.
func NewFromHistory(siteID uint32, h History) (*Document, error) {
	d, err := New(siteID)
	if err != nil {
		return nil, err
	}
	if err := d.populateHistory(h); err != nil {
		return nil, err
	}
	return d, nil
}

func realClock() int64 { return nowMillis() }

func (d *Document) isVisibleNode(s *segment.Segment) bool {
	return s.IsVisible(d.undoCount)
}

func (d *Document) undoCount(id spliceid.SpliceId) uint32 {
	return d.undoCounts[id]
}

// GetText concatenates every visible segment's text in document order.
func (d *Document) GetText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getTextLocked()
}

func (d *Document) getTextLocked() string {
	var b []rune
	for _, s := range d.docTree.Segments() {
		if d.isVisibleNode(s) {
			b = append(b, s.Text...)
		}
	}
	return string(b)
}

func (d *Document) splitTreeFor(id spliceid.SpliceId) (*splittree.Tree, bool) {
	st, ok := d.splitTrees[id]
	return st, ok
}

func (d *Document) isPresent(id spliceid.SpliceId) bool {
	if _, ok := d.splitTrees[id]; ok {
		return true
	}
	if _, ok := d.deletionsApplied[id]; ok {
		return true
	}
	return false
}

func (d *Document) sentinelFor(id spliceid.SpliceId) *segment.Segment {
	if id == spliceid.SentinelStart {
		return d.startSeg
	}
	return d.endSeg
}
