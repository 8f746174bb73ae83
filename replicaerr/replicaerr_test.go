package replicaerr

import (
	"testing"

	"github.com/pkg/errors"
)

func TestWrapPreservesSentinelForErrorsIs(t *testing.T) {
	err := Wrap(ErrSegmentNotFound, "lookup splice %d", 7)
	if !errors.Is(err, ErrSegmentNotFound) {
		t.Error("Wrap must keep the sentinel discriminable via errors.Is")
	}
	if errors.Is(err, ErrPositionOutOfRange) {
		t.Error("Wrap must not also match an unrelated sentinel")
	}
}

func TestWrapIncludesFormattedContext(t *testing.T) {
	err := Wrap(ErrReservedSiteID, "new document with site %d", 0)
	want := "new document with site 0: replicaerr: site id 0 is reserved for sentinel segments"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
