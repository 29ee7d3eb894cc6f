package grid

// Remap translates a zero-based index of the old grid into the index of the
// same tile in the re-banded new grid. No validation is performed: an index
// outside the old grid or a pair of shapes that is not a re-banding yields a
// well-defined but meaningless result.
//
// Precondition: old.Cols > 0 and newShape.Rows > 0.
func Remap(oldIndex int, old, newShape Shape) int {
	at := old.Locate(oldIndex)
	band := ceilDiv(at.Row, newShape.Rows)
	return newShape.Index(Coord{
		Row: at.Row - (band-1)*newShape.Rows,
		Col: (band-1)*old.Cols + at.Col,
	})
}

// Option configures a Remapper.
type Option func(*Remapper)

// Strict enables validation of the banding invariant at construction and of
// index bounds on every call.
func Strict() Option {
	return func(r *Remapper) { r.strict = true }
}

// Remapper binds an old and new shape. It is immutable and safe for
// concurrent use.
type Remapper struct {
	old    Shape
	new    Shape
	strict bool
}

// NewRemapper constructs a Remapper for the given shapes.
//
// Precondition: both shapes must have positive dimensions.
// Postcondition: returns a non-nil Remapper, or an *InvalidShapeError when a
// dimension is non-positive or, in strict mode, the banding invariant fails.
func NewRemapper(old, newShape Shape, opts ...Option) (*Remapper, error) {
	r := &Remapper{old: old, new: newShape}
	for _, opt := range opts {
		opt(r)
	}
	if r.strict {
		if err := CheckBanding(old, newShape); err != nil {
			return nil, err
		}
		return r, nil
	}
	if err := old.Validate(); err != nil {
		return nil, err
	}
	if err := newShape.Validate(); err != nil {
		return nil, &InvalidShapeError{Old: old, New: newShape, Reason: "rows and cols must be positive"}
	}
	return r, nil
}

// Old returns the shape indices are translated from.
func (r *Remapper) Old() Shape { return r.old }

// New returns the shape indices are translated into.
func (r *Remapper) New() Shape { return r.new }

// IsStrict reports whether bounds checking is enabled.
func (r *Remapper) IsStrict() bool { return r.strict }

// Remap translates oldIndex. In strict mode an index outside the old grid
// fails with *IndexOutOfRangeError; otherwise Remap never fails.
func (r *Remapper) Remap(oldIndex int) (int, error) {
	if r.strict && !r.old.Contains(oldIndex) {
		return 0, &IndexOutOfRangeError{Index: oldIndex, Total: r.old.Total()}
	}
	return Remap(oldIndex, r.old, r.new), nil
}
