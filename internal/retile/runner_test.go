package retile_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/retile/internal/config"
	"github.com/cory-johannsen/retile/internal/grid"
	"github.com/cory-johannsen/retile/internal/retile"
	"github.com/cory-johannsen/retile/internal/rewrite"
	"github.com/cory-johannsen/retile/internal/testutil"
)

func newRunner(t testing.TB, opts retile.Options) *retile.Runner {
	t.Helper()
	r, err := grid.NewRemapper(grid.Shape{Rows: 512, Cols: 8}, grid.Shape{Rows: 64, Cols: 64}, grid.Strict())
	require.NoError(t, err)
	rw := rewrite.New(r, rewrite.Rule{TileCount: 4096, FirstGID: 1030}, zap.NewNop())
	if opts.Suffix == "" {
		opts.Suffix = "_edit"
	}
	return retile.NewRunner(rw, opts, zap.NewNop())
}

func entries(t testing.TB, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestRunner_Run_WritesSuffixedOutput(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.TMX{FirstGID: 1030, IDs: []int{63}, GIDs: []int{0, 1094}}.String()
	in := testutil.WriteFile(t, dir, "grassland.tmx", doc)

	report, err := newRunner(t, retile.Options{}).Run(context.Background(), []string{in})
	require.NoError(t, err)

	assert.Equal(t, doc, testutil.ReadFile(t, in), "input must be left untouched")
	want := testutil.TMX{FirstGID: 1030, IDs: []int{455}, GIDs: []int{0, 1542}}.String()
	assert.Equal(t, want, testutil.ReadFile(t, in+"_edit"))
	assert.ElementsMatch(t, []string{"grassland.tmx", "grassland.tmx_edit"}, entries(t, dir))

	require.Len(t, report.Files, 1)
	assert.Equal(t, in+"_edit", report.Files[0].Output)
	assert.Equal(t, 2, report.Totals.Remapped())
	assert.Equal(t, 1, report.Totals.PassedThrough())
	assert.NotEmpty(t, report.RunID)

	info, err := os.Stat(in + "_edit")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestRunner_Run_FailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteFile(t, dir, "good.tmx", testutil.TMX{GIDs: []int{1030}}.String())
	bad := testutil.WriteFile(t, dir, "bad.tmx", `<map><tile gid=""/></map>`)

	_, err := newRunner(t, retile.Options{Workers: 2}).Run(context.Background(), []string{good, bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, rewrite.ErrMalformedInput)
	assert.Contains(t, err.Error(), bad)
	assert.ElementsMatch(t, []string{"good.tmx", "bad.tmx"}, entries(t, dir))
}

func TestRunner_Run_MissingInput(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.tmx")
	_, err := newRunner(t, retile.Options{}).Run(context.Background(), []string{missing})
	require.Error(t, err)
	assert.ErrorIs(t, err, rewrite.ErrMalformedInput)
	assert.Empty(t, entries(t, dir))
}

func TestRunner_Run_RejectsBadInputLists(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.tmx", "")
	b := testutil.WriteFile(t, dir, "a.tmx_edit", "")
	runner := newRunner(t, retile.Options{})

	cases := map[string][]string{
		"empty":     nil,
		"duplicate": {a, a},
		"collision": {a, b},
	}
	for name, inputs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runner.Run(context.Background(), inputs)
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrConfiguration)
		})
	}
	assert.ElementsMatch(t, []string{"a.tmx", "a.tmx_edit"}, entries(t, dir))
}

func TestRunner_Run_RejectsReportCollisions(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.TMX{FirstGID: 1030, GIDs: []int{1093}}.String()
	in := testutil.WriteFile(t, dir, "a.tmx", doc)

	cases := map[string]string{
		"report is input":  in,
		"report is output": in + "_edit",
	}
	for name, reportPath := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newRunner(t, retile.Options{ReportPath: reportPath}).Run(context.Background(), []string{in})
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrConfiguration)
			assert.Equal(t, doc, testutil.ReadFile(t, in))
			assert.Equal(t, []string{"a.tmx"}, entries(t, dir))
		})
	}
}

func TestRunner_Run_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "a.tmx", testutil.TMX{IDs: []int{1}}.String())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, retile.Options{}).Run(ctx, []string{in})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a.tmx"}, entries(t, dir))
}

func TestRunner_Run_WritesReport(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "a.tmx", testutil.TMX{FirstGID: 1030, IDs: []int{1, 64}}.String())
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	var seen *retile.Report
	runner := newRunner(t, retile.Options{ReportPath: reportPath})
	runner.OnReport(func(r *retile.Report) { seen = r })

	report, err := runner.Run(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Same(t, report, seen)

	loaded, err := retile.LoadReport(reportPath)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, loaded.RunID)
	require.Len(t, loaded.Files, 1)
	assert.Equal(t, in, loaded.Files[0].Input)
	assert.Equal(t, 2, loaded.Totals.ID.Remapped)
}

func TestRunner_Run_ReportPathUnwritable(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "a.tmx", testutil.TMX{IDs: []int{1}}.String())
	runner := newRunner(t, retile.Options{ReportPath: filepath.Join(dir, "missing", "report.yaml")})
	_, err := runner.Run(context.Background(), []string{in})
	require.Error(t, err)
	assert.Equal(t, []string{"a.tmx"}, entries(t, dir))
}

// TestRunner_Run_NInputsProduceNOutputs verifies that a run over N map files
// produces exactly N outputs, each next to its input.
func TestRunner_Run_NInputsProduceNOutputs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "numFiles")
		workers := rapid.IntRange(1, 4).Draw(rt, "workers")
		dir := t.TempDir()

		var inputs []string
		for i := 0; i < n; i++ {
			ids := rapid.SliceOfN(rapid.IntRange(0, 5000), 0, 8).Draw(rt, fmt.Sprintf("ids%d", i))
			inputs = append(inputs, testutil.WriteFile(t, dir, fmt.Sprintf("map_%d.tmx", i), testutil.TMX{IDs: ids}.String()))
		}

		report, err := newRunner(t, retile.Options{Workers: workers}).Run(context.Background(), inputs)
		if err != nil {
			rt.Fatal(err)
		}
		assert.Len(rt, entries(t, dir), 2*n)
		require.Len(rt, report.Files, n)
		for i, f := range report.Files {
			assert.Equal(rt, inputs[i], f.Input)
			assert.True(rt, testutil.Exists(f.Output))
		}
	})
}

func TestRunner_Run_ReportDescribesGrid(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "a.tmx", testutil.TMX{IDs: []int{1}}.String())
	report, err := newRunner(t, retile.Options{}).Run(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, grid.Shape{Rows: 512, Cols: 8}, report.Old)
	assert.Equal(t, grid.Shape{Rows: 64, Cols: 64}, report.New)
	assert.True(t, report.Strict)
}

func TestRunner_Run_CommitFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.tmx", testutil.TMX{IDs: []int{1}}.String())
	b := testutil.WriteFile(t, dir, "b.tmx", testutil.TMX{IDs: []int{2}}.String())
	// A non-empty directory in place of b's output makes its commit fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b.tmx_edit", "keep"), 0755))

	_, err := newRunner(t, retile.Options{}).Run(context.Background(), []string{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "committing")
	assert.False(t, testutil.Exists(a+"_edit"))
	assert.ElementsMatch(t, []string{"a.tmx", "b.tmx", "b.tmx_edit"}, entries(t, dir))
}
