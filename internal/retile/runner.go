// Package retile orchestrates a batch rewrite of map files: every input is
// rewritten into a sibling output file, and either all outputs are written or
// none are.
package retile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/retile/internal/config"
	"github.com/cory-johannsen/retile/internal/grid"
	"github.com/cory-johannsen/retile/internal/observability"
	"github.com/cory-johannsen/retile/internal/rewrite"
)

// Rewriter rewrites the tile references of one document.
type Rewriter interface {
	Rewrite(src []byte) ([]byte, rewrite.Stats, error)
	Remapper() *grid.Remapper
}

// Options controls output placement and concurrency.
type Options struct {
	// Suffix is appended to each input path to form its output path.
	Suffix string
	// Workers bounds the number of files rewritten concurrently.
	Workers int
	// ReportPath, when non-empty, receives the YAML run report.
	ReportPath string
}

// Runner rewrites a set of input files.
type Runner struct {
	rw     Rewriter
	opts   Options
	logger *zap.Logger
	report func(*Report)
}

// NewRunner constructs a Runner.
//
// Precondition: rw and logger must be non-nil; opts.Suffix must be non-empty.
// Postcondition: returns a non-nil Runner.
func NewRunner(rw Rewriter, opts Options, logger *zap.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{rw: rw, opts: opts, logger: logger}
}

// OnReport registers fn to receive the report of every successful run.
func (r *Runner) OnReport(fn func(*Report)) { r.report = fn }

// OutputPath returns the output path for input.
func (r *Runner) OutputPath(input string) string {
	return input + r.opts.Suffix
}

type staged struct {
	file FileReport
	tmp  string
}

// Run rewrites every input. Outputs are staged next to their final path and
// only moved into place once every input has been rewritten; on any failure
// the staged files are removed and no output is produced.
//
// Precondition: inputs must be non-empty and free of duplicates.
// Postcondition: returns a Report with one FileReport per input in input
// order, or a non-nil error and no new output files.
func (r *Runner) Run(ctx context.Context, inputs []string) (*Report, error) {
	if err := r.checkInputs(inputs); err != nil {
		return nil, err
	}

	remapper := r.rw.Remapper()
	report := &Report{
		RunID:   uuid.New().String(),
		Started: time.Now(),
		Old:     remapper.Old(),
		New:     remapper.New(),
		Strict:  remapper.IsStrict(),
	}
	logger := observability.WithRun(r.logger, report.RunID)
	logger.Info("run started", zap.Int("inputs", len(inputs)), zap.Int("workers", r.opts.Workers))

	results := make([]staged, len(inputs))
	var mu sync.Mutex
	var tmps []string
	cleanup := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, tmp := range tmps {
			if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn("removing staged output", zap.String("path", tmp), zap.Error(err))
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.stage(input, func(tmp string) {
				mu.Lock()
				tmps = append(tmps, tmp)
				mu.Unlock()
			})
			if err != nil {
				return err
			}
			results[i] = res
			logger.Debug("staged",
				zap.String("input", input),
				zap.Int("remapped", res.file.Stats.Remapped()),
				zap.Int("passed_through", res.file.Stats.PassedThrough()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cleanup()
		logger.Error("run failed; no output written", zap.Error(err))
		return nil, err
	}

	for _, res := range results {
		report.Files = append(report.Files, res.file)
		report.Totals.Add(res.file.Stats)
	}
	report.Elapsed = time.Since(report.Started)

	if r.opts.ReportPath != "" {
		if err := report.WriteFile(r.opts.ReportPath); err != nil {
			cleanup()
			return nil, err
		}
	}

	for i, res := range results {
		if err := os.Rename(res.tmp, res.file.Output); err != nil {
			// Undo the outputs already committed by this run.
			for _, done := range results[:i] {
				if rmErr := os.Remove(done.file.Output); rmErr != nil {
					logger.Warn("removing committed output", zap.String("path", done.file.Output), zap.Error(rmErr))
				}
			}
			if r.opts.ReportPath != "" {
				if rmErr := os.Remove(r.opts.ReportPath); rmErr != nil {
					logger.Warn("removing report", zap.String("path", r.opts.ReportPath), zap.Error(rmErr))
				}
			}
			cleanup()
			return nil, fmt.Errorf("committing %s: %w", res.file.Output, err)
		}
	}

	logger.Info("run complete",
		zap.Int("files", len(report.Files)),
		zap.Int("remapped", report.Totals.Remapped()),
		zap.Int("passed_through", report.Totals.PassedThrough()),
		zap.Duration("elapsed", report.Elapsed),
	)
	if r.report != nil {
		r.report(report)
	}
	return report, nil
}

func (r *Runner) checkInputs(inputs []string) error {
	if len(inputs) == 0 {
		return &config.Error{Violations: []string{"no input files given"}}
	}
	var errs []string
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", in, err)
		}
		if seen[abs] {
			errs = append(errs, fmt.Sprintf("input %s given more than once", in))
		}
		seen[abs] = true
	}
	outputs := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		out, _ := filepath.Abs(r.OutputPath(in))
		outputs[out] = true
		if seen[out] {
			errs = append(errs, fmt.Sprintf("output %s would overwrite an input", r.OutputPath(in)))
		}
	}
	if r.opts.ReportPath != "" {
		report, err := filepath.Abs(r.opts.ReportPath)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", r.opts.ReportPath, err)
		}
		if seen[report] {
			errs = append(errs, fmt.Sprintf("report %s would overwrite an input", r.opts.ReportPath))
		}
		if outputs[report] {
			errs = append(errs, fmt.Sprintf("report %s collides with an output", r.opts.ReportPath))
		}
	}
	if len(errs) > 0 {
		return &config.Error{Violations: errs}
	}
	return nil
}

// stage rewrites input into a temp file beside its output path. track is
// called with the temp path as soon as it exists.
func (r *Runner) stage(input string, track func(string)) (staged, error) {
	start := time.Now()
	src, err := os.ReadFile(input)
	if err != nil {
		return staged{}, &rewrite.MalformedInputError{Path: input, Err: err}
	}

	out, stats, err := r.rw.Rewrite(src)
	if err != nil {
		var malformed *rewrite.MalformedInputError
		if errors.As(err, &malformed) && malformed.Path == "" {
			malformed.Path = input
		}
		return staged{}, err
	}

	output := r.OutputPath(input)
	f, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*")
	if err != nil {
		return staged{}, fmt.Errorf("staging %s: %w", output, err)
	}
	track(f.Name())
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return staged{}, fmt.Errorf("staging %s: %w", output, err)
	}
	if _, err := f.Write(out); err != nil {
		f.Close()
		return staged{}, fmt.Errorf("staging %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return staged{}, fmt.Errorf("staging %s: %w", output, err)
	}

	return staged{
		tmp: f.Name(),
		file: FileReport{
			Input:   input,
			Output:  output,
			Bytes:   len(out),
			Elapsed: time.Since(start),
			Stats:   stats,
		},
	}, nil
}
