// Package store persists the run journal: one record per invocation and one
// record per (dataset, dataset type, subject) unit of work, so past runs can
// be inspected with the runs subcommand.
package store

import (
	"context"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Command string          `json:"command,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run journal.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, command, outputDir string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Units
	RecordUnit(ctx context.Context, runID string, unit model.Unit) error
	ListUnits(ctx context.Context, runID string) ([]model.Unit, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
