package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/corpora/core"
)

// Status is the outcome reported to callers of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// DocumentError records a document that was skipped during a run.
type DocumentError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// SourceError records a structured source that was skipped during a run.
type SourceError struct {
	Loader string `json:"loader"`
	Path   string `json:"path"`
	Error  string `json:"error"`
}

// Result is the report of a full ingestion run. Status and Detail form the
// service-level answer; the remaining fields describe what happened.
type Result struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`

	// Stage is the final stage, StageCommitted or StageFailed.
	Stage Stage `json:"stage"`
	// FailedAt is the last stage reached before a failure.
	FailedAt Stage `json:"failed_at,omitempty"`

	Rows           map[core.Table]int `json:"rows"`
	SkippedRecords int                `json:"skipped_records,omitempty"`
	Documents      int                `json:"documents"`
	Chunks         int                `json:"chunks"`
	Batches        int                `json:"batches"`
	DocumentErrors []DocumentError    `json:"document_errors,omitempty"`
	SourceErrors   []SourceError      `json:"source_errors,omitempty"`
	Duration       time.Duration      `json:"duration"`

	// Err is the failure, for callers that match with errors.Is.
	Err error `json:"-"`

	stage Stage
}

func newResult() *Result {
	return &Result{
		Rows:  make(map[core.Table]int),
		stage: StageIdle,
	}
}

// advance records that the run reached stage.
func (r *Result) advance(stage Stage) {
	r.stage = stage
	r.Stage = stage
}

func (r *Result) fail(err error) {
	r.Status = StatusError
	r.Detail = err.Error()
	r.FailedAt = r.stage
	r.Stage = StageFailed
	r.Err = err
}

func (r *Result) complete() {
	r.Status = StatusCompleted
	r.advance(StageCommitted)
}

// OK reports whether the run committed.
func (r *Result) OK() bool {
	return r.Status == StatusCompleted
}

// Summary is a one-line description for logs and the CLI.
func (r *Result) Summary() string {
	var sb strings.Builder
	if r.OK() {
		sb.WriteString("ingestion completed")
	} else {
		fmt.Fprintf(&sb, "ingestion failed after %s: %s", r.FailedAt, r.Detail)
	}
	structured := 0
	for _, n := range r.Rows {
		structured += n
	}
	fmt.Fprintf(&sb, " (%d structured rows, %d documents, %d chunks", structured, r.Documents, r.Chunks)
	if n := len(r.DocumentErrors); n > 0 {
		fmt.Fprintf(&sb, ", %d documents skipped", n)
	}
	if n := len(r.SourceErrors); n > 0 {
		fmt.Fprintf(&sb, ", %d sources skipped", n)
	}
	sb.WriteString(")")
	return sb.String()
}

// FailedResult reports a run that could not start.
func FailedResult(err error) *Result {
	res := newResult()
	res.fail(err)
	return res
}
