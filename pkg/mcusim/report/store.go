package report

import (
	"context"
	"errors"
)

// Store keeps reports per run.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a report. A report with the same (RunID, Seq) is replaced.
	Save(ctx context.Context, r Report) error

	// List returns all reports of a run ordered by Seq.
	// Returns an empty slice (not an error) for an unknown run.
	List(ctx context.Context, runID string) ([]Report, error)

	// Latest returns the report with the highest Seq for a run.
	// Returns ErrNotFound if the run has no reports.
	Latest(ctx context.Context, runID string) (Report, error)

	// Runs returns the IDs of all runs with at least one report.
	Runs(ctx context.Context) ([]string, error)

	// DeleteRun removes all reports of a run.
	// Returns nil if the run has no reports.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a run has no reports.
	ErrNotFound = errors.New("report not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("report store closed")
)
