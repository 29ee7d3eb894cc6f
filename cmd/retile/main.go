// Package main provides the retile binary, which rewrites the tile
// references of Tiled map files after their tileset atlas has been re-banded.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/retile/internal/config"
	"github.com/cory-johannsen/retile/internal/observability"
	"github.com/cory-johannsen/retile/internal/retile"
	"github.com/cory-johannsen/retile/internal/rewrite"
	"github.com/cory-johannsen/retile/internal/watch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flagKeys maps command-line flags onto configuration keys. A flag only
// overrides the configuration when it is set explicitly.
var flagKeys = map[string]string{
	"suffix":  "output.suffix",
	"workers": "output.workers",
	"report":  "output.report",
	"strict":  "grid.strict",
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	start := time.Now()

	fs := flag.NewFlagSet("retile", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file (defaults and RETILE_* env when empty)")
	suffix := fs.String("suffix", "_edit", "suffix appended to each input path to form its output path")
	workers := fs.Int("workers", 4, "number of files rewritten concurrently")
	report := fs.String("report", "", "optional path for a YAML run report")
	strict := fs.Bool("strict", true, "validate grid banding and tile bounds")
	watchMode := fs.Bool("watch", false, "re-run whenever an input file changes")
	verbose := fs.Bool("v", false, "log at debug level, including passed-through references")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: retile [flags] map.tmx [more.tmx ...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		fs.Usage()
		return fmt.Errorf("no input files given")
	}

	values := map[string]any{
		"suffix":  *suffix,
		"workers": *workers,
		"report":  *report,
		"strict":  *strict,
	}
	cfg, err := config.Load(*configPath, func(v *viper.Viper) {
		fs.Visit(func(f *flag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				v.Set(key, values[f.Name])
			}
		})
		if *verbose {
			v.Set("logging.level", "debug")
		}
	})
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	remapper, err := cfg.Grid.Remapper()
	if err != nil {
		return &config.Error{Violations: []string{err.Error()}}
	}
	logger.Info("grid remap configured",
		zap.Stringer("old", remapper.Old()),
		zap.Stringer("new", remapper.New()),
		zap.Int("tile_count", cfg.Grid.TileCount),
		zap.Int("first_gid", cfg.Grid.FirstGID),
		zap.Bool("strict", remapper.IsStrict()),
	)

	rw := rewrite.New(remapper, rewrite.Rule{TileCount: cfg.Grid.TileCount, FirstGID: cfg.Grid.FirstGID}, logger)
	runner := retile.NewRunner(rw, retile.Options{
		Suffix:     cfg.Output.Suffix,
		Workers:    cfg.Output.Workers,
		ReportPath: cfg.Output.Report,
	}, logger)
	runner.OnReport(func(r *retile.Report) { printReport(stdout, r) })

	if _, err := runner.Run(ctx, inputs); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "total   %s\n", time.Since(start).Round(time.Millisecond))

	if !*watchMode {
		return nil
	}
	w, err := watch.New(inputs, func(ctx context.Context) error {
		_, err := runner.Run(ctx, inputs)
		return err
	}, logger, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	defer w.Close()
	logger.Info("watching inputs", zap.Strings("inputs", inputs))
	return w.Run(ctx)
}

func printReport(w io.Writer, r *retile.Report) {
	for _, f := range r.Files {
		fmt.Fprintf(w, "wrote   %s  (%d remapped, %d passed through)  in %s\n",
			f.Output, f.Stats.Remapped(), f.Stats.PassedThrough(), f.Elapsed.Round(time.Millisecond))
	}
}
