// Package grid maps tile indices between two row-major tile grids where the
// new grid is the old one cut into horizontal bands laid side by side.
package grid

import "fmt"

// Shape is a rectangular row-major tile grid. Index 0 is the top-left cell;
// indices grow left to right, then top to bottom.
type Shape struct {
	Rows int `mapstructure:"rows" yaml:"rows"`
	Cols int `mapstructure:"cols" yaml:"cols"`
}

// Coord is a 1-based row/column position within a Shape.
type Coord struct {
	Row int
	Col int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// Total returns the number of cells in the grid.
func (s Shape) Total() int {
	return s.Rows * s.Cols
}

// Validate checks that both dimensions are positive.
//
// Postcondition: returns nil or an *InvalidShapeError.
func (s Shape) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return &InvalidShapeError{Old: s, New: s, Reason: "rows and cols must be positive"}
	}
	return nil
}

// Contains reports whether index addresses a cell of s.
func (s Shape) Contains(index int) bool {
	return index >= 0 && index < s.Total()
}

// Locate converts a zero-based index into 1-based coordinates. The column is
// a 1-based modulo: a zero remainder becomes Cols.
//
// Precondition: s.Cols > 0.
func (s Shape) Locate(index int) Coord {
	pos := index + 1
	col := pos % s.Cols
	if col == 0 {
		col = s.Cols
	}
	return Coord{Row: ceilDiv(pos, s.Cols), Col: col}
}

// Index converts 1-based coordinates back into a zero-based index.
func (s Shape) Index(c Coord) int {
	return (c.Row-1)*s.Cols + c.Col - 1
}

// Reband derives the shape produced by cutting old into bands of newRows
// rows and placing the bands side by side.
//
// Postcondition: returns a shape with the same Total as old, or an
// *InvalidShapeError when newRows does not divide old.Rows.
func Reband(old Shape, newRows int) (Shape, error) {
	if err := old.Validate(); err != nil {
		return Shape{}, err
	}
	next := Shape{Rows: newRows}
	if newRows <= 0 {
		return Shape{}, &InvalidShapeError{Old: old, New: next, Reason: "new rows must be positive"}
	}
	if old.Rows%newRows != 0 {
		return Shape{}, &InvalidShapeError{
			Old:    old,
			New:    next,
			Reason: fmt.Sprintf("old rows %d not divisible into bands of %d", old.Rows, newRows),
		}
	}
	next.Cols = old.Cols * (old.Rows / newRows)
	return next, nil
}

// CheckBanding verifies that newShape is a re-banding of old: both shapes valid,
// equal cell counts, and old.Rows divisible by new.Rows.
//
// Postcondition: returns nil or an *InvalidShapeError naming the first violation.
func CheckBanding(old, newShape Shape) error {
	if old.Rows <= 0 || old.Cols <= 0 || newShape.Rows <= 0 || newShape.Cols <= 0 {
		return &InvalidShapeError{Old: old, New: newShape, Reason: "rows and cols must be positive"}
	}
	if old.Total() != newShape.Total() {
		return &InvalidShapeError{
			Old:    old,
			New:    newShape,
			Reason: fmt.Sprintf("cell counts differ (%d vs %d)", old.Total(), newShape.Total()),
		}
	}
	if old.Rows%newShape.Rows != 0 {
		return &InvalidShapeError{
			Old:    old,
			New:    newShape,
			Reason: fmt.Sprintf("old rows %d not divisible into bands of %d", old.Rows, newShape.Rows),
		}
	}
	return nil
}

// ceilDiv rounds a/b towards positive infinity for any sign of a.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}
