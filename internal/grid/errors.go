package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape is the errors.Is target for every *InvalidShapeError.
	ErrInvalidShape = errors.New("invalid grid shape")
	// ErrIndexOutOfRange is the errors.Is target for every *IndexOutOfRangeError.
	ErrIndexOutOfRange = errors.New("tile index out of range")
)

// InvalidShapeError reports a shape with non-positive dimensions or an
// old/new pair that violates the banding invariant.
type InvalidShapeError struct {
	Old    Shape
	New    Shape
	Reason string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("invalid grid shape %s -> %s: %s", e.Old, e.New, e.Reason)
}

// Is reports whether target is ErrInvalidShape.
func (e *InvalidShapeError) Is(target error) bool { return target == ErrInvalidShape }

// IndexOutOfRangeError reports a tile index outside [0, Total).
type IndexOutOfRangeError struct {
	Index int
	Total int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("tile index %d out of range [0, %d)", e.Index, e.Total)
}

// Is reports whether target is ErrIndexOutOfRange.
func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }
