package point

import "testing"

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b Point
		want int
	}{
		{New(0, 0), New(0, 0), 0},
		{New(0, 1), New(0, 2), -1},
		{New(1, 0), New(0, 5), 1},
		{New(2, 3), New(2, 3), 0},
	}
	for _, c := range cases {
		if got := c.a.Compare(c.b); got != c.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestLessThan(t *testing.T) {
	if !New(0, 1).LessThan(New(0, 2)) {
		t.Error("expected (0,1) < (0,2)")
	}
	if New(1, 0).LessThan(New(0, 9)) {
		t.Error("expected (1,0) to not be < (0,9)")
	}
	if !New(1, 1).LessThanOrEqual(New(1, 1)) {
		t.Error("expected LessThanOrEqual to hold for equal points")
	}
}

func TestTraverseSameRow(t *testing.T) {
	pos := New(2, 5)
	got := pos.Traverse(New(0, 3))
	want := New(2, 8)
	if got != want {
		t.Errorf("Traverse same row = %v, want %v", got, want)
	}
}

func TestTraverseAcrossRows(t *testing.T) {
	pos := New(2, 5)
	got := pos.Traverse(New(1, 3))
	want := New(3, 3)
	if got != want {
		t.Errorf("Traverse across rows = %v, want %v", got, want)
	}
}

func TestTraversalIsInverseOfTraverse(t *testing.T) {
	start := New(4, 7)
	delta := New(2, 1)
	end := start.Traverse(delta)
	if got := end.Traversal(start); got != delta {
		t.Errorf("Traversal = %v, want %v", got, delta)
	}
}

func TestExtentOfString(t *testing.T) {
	cases := []struct {
		s    string
		want Point
	}{
		{"", Zero},
		{"hello", New(0, 5)},
		{"a\nbc", New(1, 2)},
		{"a\nb\n", New(2, 0)},
	}
	for _, c := range cases {
		if got := ExtentOfString(c.s); got != c.want {
			t.Errorf("ExtentOfString(%q) = %v, want %v", c.s, got, c.want)
		}
	}
}

func TestIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Error("Zero should be zero")
	}
	if New(0, 1).IsZero() {
		t.Error("(0,1) should not be zero")
	}
}
