package retile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/retile/internal/grid"
	"github.com/cory-johannsen/retile/internal/rewrite"
)

// Report summarises one successful run.
type Report struct {
	RunID   string        `yaml:"run_id"`
	Started time.Time     `yaml:"started"`
	Elapsed time.Duration `yaml:"elapsed"`
	Old     grid.Shape    `yaml:"old"`
	New     grid.Shape    `yaml:"new"`
	Strict  bool          `yaml:"strict"`
	Files   []FileReport  `yaml:"files"`
	Totals  rewrite.Stats `yaml:"totals"`
}

// FileReport summarises one input file.
type FileReport struct {
	Input   string        `yaml:"input"`
	Output  string        `yaml:"output"`
	Bytes   int           `yaml:"bytes"`
	Elapsed time.Duration `yaml:"elapsed"`
	Stats   rewrite.Stats `yaml:"stats"`
}

// WriteFile serialises r as YAML to path.
//
// Postcondition: path holds the report, or an error is returned.
func (r *Report) WriteFile(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("serialising report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", path, err)
	}
	return nil
}

// LoadReport reads a report written by WriteFile.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}
