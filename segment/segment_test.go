package segment

import (
	"testing"

	"github.com/cshekharsharma/go-textcrdt/point"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
)

func alwaysEven(spliceid.SpliceId) uint32 { return 0 }

func TestIsVisibleDefault(t *testing.T) {
	s := New(spliceid.New(1, 1), point.Zero, []rune("hello"), nil, nil)
	if !s.IsVisible(alwaysEven) {
		t.Error("a fresh segment with no deletions should be visible")
	}
}

func TestIsVisibleOwnUndoCount(t *testing.T) {
	s := New(spliceid.New(1, 1), point.Zero, []rune("hello"), nil, nil)
	odd := func(spliceid.SpliceId) uint32 { return 1 }
	if s.IsVisible(odd) {
		t.Error("a segment whose own splice has an odd undo count should be invisible")
	}
}

func TestIsVisibleDeletion(t *testing.T) {
	s := New(spliceid.New(1, 1), point.Zero, []rune("hello"), nil, nil)
	delID := spliceid.New(2, 1)
	s.Deletions[delID] = struct{}{}

	counts := map[spliceid.SpliceId]uint32{delID: 0}
	lookup := func(id spliceid.SpliceId) uint32 { return counts[id] }
	if s.IsVisible(lookup) {
		t.Error("a segment covered by a live (even-count) deletion should be invisible")
	}

	counts[delID] = 1
	if !s.IsVisible(lookup) {
		t.Error("a segment whose only deletion has been undone (odd-count) should be visible again")
	}
}

func TestSentinelNeverVisible(t *testing.T) {
	s := NewSentinel(spliceid.SentinelStart)
	if s.IsVisible(alwaysEven) {
		t.Error("a sentinel should never be visible")
	}
	if !s.IsSentinel() {
		t.Error("NewSentinel should report IsSentinel")
	}
}

func TestEndOffset(t *testing.T) {
	s := New(spliceid.New(1, 1), point.New(0, 2), []rune("ab\ncd"), nil, nil)
	got := s.EndOffset()
	want := point.New(0, 2).Traverse(point.New(1, 2))
	if got != want {
		t.Errorf("EndOffset = %v, want %v", got, want)
	}
}

func TestSplit(t *testing.T) {
	left := NewSentinel(spliceid.SentinelStart)
	right := NewSentinel(spliceid.SentinelEnd)
	s := New(spliceid.New(1, 1), point.Zero, []rune("hello world"), left, right)

	suffix := s.Split(point.New(0, 5))

	if string(s.Text) != "hello" {
		t.Errorf("prefix text = %q, want %q", string(s.Text), "hello")
	}
	if string(suffix.Text) != " world" {
		t.Errorf("suffix text = %q, want %q", string(suffix.Text), " world")
	}
	if suffix.SpliceID != s.SpliceID {
		t.Error("suffix must share the prefix's SpliceID")
	}
	if suffix.Offset != point.New(0, 5) {
		t.Errorf("suffix offset = %v, want (0,5)", suffix.Offset)
	}
	if s.NextSplit != suffix {
		t.Error("prefix.NextSplit must point at the new suffix")
	}
	if s.LeftDependency != left || s.RightDependency != right {
		t.Error("splitting must not rewrite the prefix's dependencies")
	}
	if suffix.LeftDependency != left || suffix.RightDependency != right {
		t.Error("suffix must inherit the splice's original dependencies unchanged")
	}
}

func TestSplitCopiesDeletionsIndependently(t *testing.T) {
	s := New(spliceid.New(1, 1), point.Zero, []rune("abcdef"), nil, nil)
	delID := spliceid.New(9, 1)
	s.Deletions[delID] = struct{}{}

	suffix := s.Split(point.New(0, 3))
	delete(suffix.Deletions, delID)

	if _, ok := s.Deletions[delID]; !ok {
		t.Error("clearing the suffix's copy must not affect the prefix's own Deletions set")
	}
}

func TestMultiRowExtent(t *testing.T) {
	s := New(spliceid.New(1, 1), point.Zero, []rune("ab\ncd\nef"), nil, nil)
	if want := point.New(2, 2); s.Extent != want {
		t.Errorf("Extent = %v, want %v", s.Extent, want)
	}
}
