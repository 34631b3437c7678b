package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a persisted analysis run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusDegraded  RunStatus = "degraded"
	RunStatusFailed    RunStatus = "failed"
)

// AnalysisRun is the persisted record of one analysis invocation. It is
// the result object the scheduling collaborator observes: either a
// completed run or a failure with kind, offending parameter and the
// series it was analyzing.
type AnalysisRun struct {
	ID          uuid.UUID `json:"id"`
	Symbol      string    `json:"symbol"`
	Frequency   Frequency `json:"frequency"`
	Status      RunStatus `json:"status"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	ErrorParam  string    `json:"error_param,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
