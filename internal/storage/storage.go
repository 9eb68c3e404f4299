// Package storage defines persistence contracts for simulation runs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/combatsim/internal/report"
)

// ErrRunNotFound is returned when a run id has no stored record.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded invocation of the simulator.
type Run struct {
	ID             string
	Studies        []string
	Seed           uint64
	StandoffTrials int
	DuelTrials     int
	Workers        int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Result is one flattened value of a run's result tree.
type Result struct {
	RunID    string
	Position int
	Path     string
	Label    string
	Value    float64
	Text     string
}

// RunStore persists runs and their results.
type RunStore interface {
	RecordRun(ctx context.Context, run Run, results []Result) error
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListResults(ctx context.Context, runID string) ([]Result, error)
}

// ResultsFromEntries converts flattened report entries into result rows in
// tree order.
func ResultsFromEntries(runID string, entries []report.Entry) []Result {
	results := make([]Result, 0, len(entries))
	for i, entry := range entries {
		results = append(results, Result{
			RunID:    runID,
			Position: i,
			Path:     entry.Path,
			Label:    entry.Label,
			Value:    entry.Value,
			Text:     entry.Text,
		})
	}
	return results
}
