package etl

import "time"

// Status is the lifecycle state of a sync or load run.
type Status string

const (
	StatusPending        Status = "pending"
	StatusRunning        Status = "running"
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusPartialSuccess Status = "partial_success"
)

// Result is the structured outcome of a pipeline or batch run. It is owned
// and mutated only by the component that created it; callers treat a
// returned Result as read-only.
type Result struct {
	Status         Status         `json:"status"`
	ProcessedCount int            `json:"processed_count"`
	SuccessCount   int            `json:"success_count"`
	ErrorCount     int            `json:"error_count"`
	Errors         []string       `json:"errors,omitempty"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewResult creates a running Result stamped with the current time.
func NewResult() *Result {
	return &Result{
		Status:    StatusRunning,
		StartTime: time.Now().UTC(),
		Metadata:  map[string]any{},
	}
}

// Duration is zero until the result has been finalized.
func (r *Result) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Finalize sets EndTime once. Later calls are no-ops, so every exit path may
// call it unconditionally.
func (r *Result) Finalize() {
	if r.EndTime.IsZero() {
		r.EndTime = time.Now().UTC()
	}
}

// AddError records one error message and bumps the error count.
func (r *Result) AddError(msg string) {
	r.ErrorCount++
	r.Errors = append(r.Errors, msg)
}

// Merge folds a downstream load result's counts and messages into r.
// ProcessedCount is not merged; the pipeline owns it.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.SuccessCount += other.SuccessCount
	r.ErrorCount += other.ErrorCount
	r.Errors = append(r.Errors, other.Errors...)
}

// DecideStatus applies the status rule: success when nothing errored,
// partial_success when both counts are positive, failed when nothing
// succeeded but something errored.
func (r *Result) DecideStatus() {
	switch {
	case r.ErrorCount == 0:
		r.Status = StatusSuccess
	case r.SuccessCount > 0:
		r.Status = StatusPartialSuccess
	default:
		r.Status = StatusFailed
	}
}
