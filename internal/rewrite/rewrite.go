// Package rewrite substitutes remapped tile indices into map documents,
// leaving every other byte of the document untouched.
package rewrite

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/retile/internal/grid"
)

// tileRef matches <tile id="N"> and <tile gid="N"/>. The value group is
// deliberately permissive so that an empty value is reported, not skipped.
var tileRef = regexp.MustCompile(`<tile (id|gid)="([0-9]*)"(/?)>`)

// Rewriter applies a grid.Remapper to the tile references of a document.
// It holds no mutable state and is safe for concurrent use.
type Rewriter struct {
	remapper *grid.Remapper
	rule     Rule
	logger   *zap.Logger
}

// New constructs a Rewriter.
//
// Precondition: remapper and logger must be non-nil.
// Postcondition: returns a non-nil Rewriter.
func New(remapper *grid.Remapper, rule Rule, logger *zap.Logger) *Rewriter {
	return &Rewriter{remapper: remapper, rule: rule, logger: logger}
}

// Remapper returns the remapper applied to content references.
func (rw *Rewriter) Remapper() *grid.Remapper { return rw.remapper }

// Rule returns the pass-through rule in effect.
func (rw *Rewriter) Rule() Rule { return rw.rule }

// Rewrite returns a copy of src in which every content tile reference holds
// its remapped value. References outside the content range are copied
// verbatim, as is all text between references.
//
// Postcondition: returns the rewritten document and its Stats, or a
// *MalformedInputError and no document.
func (rw *Rewriter) Rewrite(src []byte) ([]byte, Stats, error) {
	var stats Stats
	matches := tileRef.FindAllSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return bytes.Clone(src), stats, nil
	}

	out := make([]byte, 0, len(src)+len(matches))
	last := 0
	for _, m := range matches {
		kindStart, kindEnd := m[2], m[3]
		valStart, valEnd := m[4], m[5]

		// tileRef only captures the two known spellings.
		kind := Kind(src[kindStart:kindEnd])
		raw := string(src[valStart:valEnd])
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, Stats{}, rw.malformed(src, m, fmt.Errorf("parsing %s value: %w", kind, err))
		}

		out = append(out, src[last:valStart]...)
		last = valStart

		if !rw.rule.InRange(kind, value) {
			stats.counts(kind).PassedThrough++
			rw.logger.Debug("tile reference passed through",
				zap.String("kind", string(kind)),
				zap.Int("value", value),
			)
			continue
		}

		off := rw.rule.Offset(kind)
		next, err := rw.remapper.Remap(value - off)
		if err != nil {
			return nil, Stats{}, rw.malformed(src, m, err)
		}
		out = strconv.AppendInt(out, int64(next+off), 10)
		last = valEnd
		stats.counts(kind).Remapped++
	}
	out = append(out, src[last:]...)
	return out, stats, nil
}

func (rw *Rewriter) malformed(src []byte, m []int, err error) *MalformedInputError {
	return &MalformedInputError{
		Line: bytes.Count(src[:m[0]], []byte("\n")) + 1,
		Raw:  string(src[m[0]:m[1]]),
		Err:  err,
	}
}
