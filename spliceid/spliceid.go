// Package spliceid defines SpliceId, the identifier that names a single
// local edit on the site that produced it, and the sentinel values
// reserved for the document's boundary segments. The site component also
// serves as the deterministic tie-break when concurrent insertions land
// at identical dependencies.
package spliceid

import "fmt"

// ReservedSiteID is reserved for the two sentinel segments that bound every
// document; a real replica must never use it as its own site identifier.
const ReservedSiteID uint32 = 0

// SentinelStartSeq and SentinelEndSeq name the two sentinel segments
// bounding every document: empty segments at document start and
// end that are never deleted and carry no visible extent.
const (
	SentinelStartSeq uint32 = 0
	SentinelEndSeq   uint32 = 1
)

// SpliceId uniquely names one local edit: a deletion and an insertion
// produced by the same SetTextInRange call share a single SpliceId.
type SpliceId struct {
	SiteID         uint32
	SequenceNumber uint32
}

// SentinelStart and SentinelEnd are the fixed ids of the document's
// boundary segments.
var (
	SentinelStart = SpliceId{SiteID: ReservedSiteID, SequenceNumber: SentinelStartSeq}
	SentinelEnd   = SpliceId{SiteID: ReservedSiteID, SequenceNumber: SentinelEndSeq}
)

// New constructs a SpliceId for a real site. Callers are responsible for
// rejecting ReservedSiteID; see textcrdt.New for the enforced check.
func New(siteID, sequenceNumber uint32) SpliceId {
	return SpliceId{SiteID: siteID, SequenceNumber: sequenceNumber}
}

// Equal reports whether two SpliceIds name the same splice. A single
// differing field makes two ids unequal, which is exactly what
// component-wise struct equality gives.
func (s SpliceId) Equal(other SpliceId) bool {
	return s.SiteID == other.SiteID && s.SequenceNumber == other.SequenceNumber
}

// IsSentinel reports whether s names one of the two boundary segments.
func (s SpliceId) IsSentinel() bool {
	return s.SiteID == ReservedSiteID
}

func (s SpliceId) String() string {
	return fmt.Sprintf("%d@%d", s.SequenceNumber, s.SiteID)
}

// LessThanSite reports whether s's site identifier sorts before other's,
// the tie-break the integration rule applies to concurrent insertions at
// identical dependencies.
func (s SpliceId) LessThanSite(other SpliceId) bool {
	return s.SiteID < other.SiteID
}
