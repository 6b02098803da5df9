// Package ingest implements the ingestion pipelines: CSV contact readers,
// the staging-file binding import, and the identity import that feeds the
// CRM sink and the binding store.
package ingest

import (
	"time"

	"github.com/google/uuid"
)

// Report captures the outcome of one ingestion run. Per-item rejections and
// skips are counted separately from fatal errors so an operator can tell a
// clean (re-runnable) batch from an aborted one.
type Report struct {
	// RunID identifies this ingestion run in logs.
	RunID string `json:"runId"`

	// Operation names the pipeline ("import-bindings", "import-contacts",
	// "import-identities").
	Operation string `json:"operation"`

	// Created counts successful writes (bindings, blobs, CRM contacts).
	Created int `json:"created"`

	// Skipped counts items dropped because they already exist.
	Skipped int `json:"skipped"`

	// RejectedPII counts bindings refused by the PII guard.
	RejectedPII int `json:"rejectedPii"`

	// Errors counts per-item failures that did not abort the batch.
	Errors int `json:"errors"`

	// Stages holds timing for the named stages of the run.
	Stages []Stage `json:"stages,omitempty"`

	// TotalDurationMs is the total elapsed time of the run.
	TotalDurationMs int64 `json:"totalDurationMs"`
}

// Stage is a single timed phase within an ingestion run.
type Stage struct {
	Name       string           `json:"name"`
	DurationMs int64            `json:"durationMs"`
	Counters   map[string]int64 `json:"counters,omitempty"`
}

func newReport(operation string) *Report {
	return &Report{
		RunID:     uuid.New().String(),
		Operation: operation,
	}
}

// addStage appends a completed stage and folds its duration into the total.
func (r *Report) addStage(s Stage) {
	r.Stages = append(r.Stages, s)
	r.TotalDurationMs += s.DurationMs
}

// stageTimer measures one stage of a run.
type stageTimer struct {
	name   string
	start  time.Time
	report *Report
}

func startStage(name string, report *Report) *stageTimer {
	return &stageTimer{name: name, start: time.Now(), report: report}
}

func (st *stageTimer) finish(counters map[string]int64) {
	st.report.addStage(Stage{
		Name:       st.name,
		DurationMs: time.Since(st.start).Milliseconds(),
		Counters:   counters,
	})
}
