// Package migration drives the embedded goose migrations of the metadata
// stores and summarizes what each command did.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
)

// Supported commands.
const (
	Up      = "up"
	Down    = "down"
	Reset   = "reset"
	Status  = "status"
	Version = "version"
)

// Commands lists the supported commands in help order.
var Commands = []string{Up, Down, Reset, Status, Version}

// Step is one migration touched or inspected by a command.
type Step struct {
	Version   int64      `json:"version"`
	Name      string     `json:"name"`
	State     string     `json:"state"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
	Duration  string     `json:"duration,omitempty"`
}

// Report is the outcome of a command. Version is the schema version afterwards.
type Report struct {
	Command string `json:"command"`
	Version int64  `json:"version"`
	Steps   []Step `json:"steps,omitempty"`
}

// Source returns the migrations directory of an embedded filesystem.
func Source(embedded fs.FS) (fs.FS, error) {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations directory: %w", err)
	}
	return sub, nil
}

// Run executes command through p.
func Run(ctx context.Context, p *goose.Provider, command string) (*Report, error) {
	report := &Report{Command: command}
	var err error
	switch command {
	case Up:
		var results []*goose.MigrationResult
		results, err = p.Up(ctx)
		report.Steps = resultSteps(results)
	case Down:
		var result *goose.MigrationResult
		result, err = p.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			err = nil
		}
		if result != nil {
			report.Steps = resultSteps([]*goose.MigrationResult{result})
		}
	case Reset:
		var results []*goose.MigrationResult
		results, err = p.DownTo(ctx, 0)
		report.Steps = resultSteps(results)
	case Status:
		var statuses []*goose.MigrationStatus
		statuses, err = p.Status(ctx)
		report.Steps = statusSteps(statuses)
	case Version:
	default:
		return nil, fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return nil, fmt.Errorf("migrate %s: %w", command, err)
	}
	if report.Version, err = p.GetDBVersion(ctx); err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	return report, nil
}

func resultSteps(results []*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:  r.Source.Version,
			Name:     filepath.Base(r.Source.Path),
			State:    r.Direction,
			Duration: r.Duration.Round(time.Millisecond).String(),
		})
	}
	return steps
}

func statusSteps(statuses []*goose.MigrationStatus) []Step {
	steps := make([]Step, 0, len(statuses))
	for _, s := range statuses {
		if s == nil || s.Source == nil {
			continue
		}
		step := Step{Version: s.Source.Version, Name: filepath.Base(s.Source.Path), State: string(s.State)}
		if s.State == goose.StateApplied && !s.AppliedAt.IsZero() {
			at := s.AppliedAt.UTC()
			step.AppliedAt = &at
		}
		steps = append(steps, step)
	}
	return steps
}
