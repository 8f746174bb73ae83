// Package point implements the (row, column) extent arithmetic that every
// higher layer of the replica uses to describe lengths and positions in the
// document. A Point measures either an absolute position from the document
// origin or the extent of some span of text; the two use the same algebra.
package point

import "fmt"

// Zero is the document origin and also the extent of the empty string.
var Zero = Point{}

// Point is a (row, column) pair ordered lexicographically, with (0,0) as the
// smallest value. It is used both as an absolute position and as an extent
// (the length, in rows/columns, of some span of text).
type Point struct {
	Row    uint32
	Column uint32
}

// New builds a Point from a row and column.
func New(row, column uint32) Point {
	return Point{Row: row, Column: column}
}

// Compare orders two Points lexicographically: row first, then column.
// It returns -1, 0, or 1.
func (p Point) Compare(other Point) int {
	switch {
	case p.Row != other.Row:
		if p.Row < other.Row {
			return -1
		}
		return 1
	case p.Column != other.Column:
		if p.Column < other.Column {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// IsZero reports whether p is the origin.
func (p Point) IsZero() bool {
	return p.Row == 0 && p.Column == 0
}

// LessThan reports whether p sorts before other.
func (p Point) LessThan(other Point) bool { return p.Compare(other) < 0 }

// LessThanOrEqual reports whether p sorts before or equal to other.
func (p Point) LessThanOrEqual(other Point) bool { return p.Compare(other) <= 0 }

// Traverse concatenates two extents: p is an absolute position (or an
// accumulated extent) and delta is the extent being appended after it. If
// delta spans no rows, the column is added to p's column; otherwise p
// advances by delta's rows and adopts delta's column.
func (p Point) Traverse(delta Point) Point {
	if delta.Row == 0 {
		return Point{Row: p.Row, Column: p.Column + delta.Column}
	}
	return Point{Row: p.Row + delta.Row, Column: delta.Column}
}

// Traversal computes the extent that, when traversed from start, yields end.
// It is the inverse of Traverse and requires start <= end.
func (p Point) Traversal(start Point) Point {
	end := p
	if end.Row == start.Row {
		return Point{Row: 0, Column: end.Column - start.Column}
	}
	return Point{Row: end.Row - start.Row, Column: end.Column}
}

// Add concatenates two extents; subtree aggregates use it to fold the
// extents of a left subtree, a node, and a right subtree into one. It is
// the same operation as Traverse, named for the symmetric call sites where
// neither operand is conceptually "the position" and the other "the delta".
func Add(a, b Point) Point {
	return a.Traverse(b)
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Column)
}

// ExtentOfString returns the Point extent of s: number of newline-terminated
// rows and the column offset into the final row.
func ExtentOfString(s string) Point {
	row := uint32(0)
	col := uint32(0)
	for _, r := range s {
		if r == '\n' {
			row++
			col = 0
			continue
		}
		col++
	}
	return Point{Row: row, Column: col}
}
