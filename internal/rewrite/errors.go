package rewrite

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is the errors.Is target for every *MalformedInputError.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError reports an input that could not be read or a matched
// tile reference whose value is not a usable integer.
type MalformedInputError struct {
	// Path is the input file, when known.
	Path string
	// Line is the 1-based line of the offending reference; 0 when the whole
	// input is at fault.
	Line int
	// Raw is the matched reference text.
	Raw string
	Err error
}

func (e *MalformedInputError) Error() string {
	where := e.Path
	if where == "" {
		where = "input"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: malformed tile reference %q: %v", where, e.Line, e.Raw, e.Err)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedInput.
func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }
