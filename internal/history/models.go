package history

import "time"

// Status is the outcome of a run.
type Status string

const (
	StatusRunning Status = "running"
	// StatusMatched means both OB and DC lists are non-empty.
	StatusMatched Status = "matched"
	// StatusIncomplete means OB or DC came back empty and diagnostics were exported.
	StatusIncomplete Status = "incomplete"
	StatusFailed     Status = "failed"
)

// Run is one matching run.
type Run struct {
	ID                 string
	SampleFolder       string
	Status             Status
	StartedAt          time.Time
	FinishedAt         *time.Time
	SampleCount        int
	OBCandidates       int
	DCCandidates       int
	ConfigurationCount int
	MatchedOB          int
	MatchedDC          int
	SkippedFrames      int
	DiagnosticsPath    string
	ErrorMessage       string
}

// Duration returns the elapsed run time, zero while running.
func (r *Run) Duration() time.Duration {
	if r == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
