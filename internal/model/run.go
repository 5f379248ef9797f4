package model

import "time"

// RunStatus is the lifecycle state of one cohort-creator invocation.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// UnitState is the terminal state of one (dataset, dataset type, subject)
// unit of work. Units are never retried within a run.
type UnitState string

const (
	UnitPending              UnitState = "pending"
	UnitSkippedNoURI         UnitState = "skipped_no_uri"
	UnitSkippedNoParticipant UnitState = "skipped_no_participant"
	UnitWarnedEmpty          UnitState = "warned_empty"
	UnitFetched              UnitState = "fetched"
	UnitCopied               UnitState = "copied"
	UnitFailed               UnitState = "failed"
)

// Run records one invocation of an install/get/copy phase.
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	OutputDir  string    `json:"output_dir"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Unit records the outcome of processing one subject of one dataset variant
// during a run.
type Unit struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Dataset     string    `json:"dataset"`
	DatasetType string    `json:"dataset_type"`
	Subject     string    `json:"subject"`
	State       UnitState `json:"state"`
	Detail      string    `json:"detail,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}
