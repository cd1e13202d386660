package dto

import "time"

// Skip reasons recorded in a DispatchReport.
const (
	SkipReasonCoachDisabled = "coach-disabled"
	SkipReasonNoRecipient   = "no-recipient-account"
	SkipReasonDuplicate     = "duplicate"
	SkipReasonDeadline      = "deadline"
)

// Per-candidate dispatch results.
const (
	DispatchResultSent    = "sent"
	DispatchResultSkipped = "skipped"
	DispatchResultFailed  = "failed"
)

// SweepRequest triggers an on-demand reminder sweep. TargetClientID narrows
// the sweep to a single client for manual verification; the dedup and
// dispatch logic is identical to the periodic path.
type SweepRequest struct {
	Mode           string `json:"mode"`
	TargetClientID string `json:"targetClientId"`
}

// DispatchOutcome records what happened to one candidate lesson.
type DispatchOutcome struct {
	LessonID string `json:"lessonId"`
	Result   string `json:"result"`
	Reason   string `json:"reason,omitempty"`
}

// DispatchReport accumulates per-candidate outcomes for one sweep run.
type DispatchReport struct {
	Mode       string            `json:"mode"`
	RanAt      time.Time         `json:"ranAt"`
	Duration   time.Duration     `json:"duration"`
	Candidates int               `json:"candidates"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	Skipped    map[string]int    `json:"skipped,omitempty"`
	Outcomes   []DispatchOutcome `json:"outcomes,omitempty"`
}

// NewDispatchReport initializes an empty report for a run.
func NewDispatchReport(mode string, ranAt time.Time) *DispatchReport {
	return &DispatchReport{Mode: mode, RanAt: ranAt, Skipped: make(map[string]int)}
}

// Add records one candidate outcome.
func (r *DispatchReport) Add(outcome DispatchOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	switch outcome.Result {
	case DispatchResultSent:
		r.Sent++
	case DispatchResultSkipped:
		r.Skipped[outcome.Reason]++
	case DispatchResultFailed:
		r.Failed++
	}
}
