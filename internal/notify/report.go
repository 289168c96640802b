package notify

import "time"

// Report is the per-record outcome of one reconciliation run. Only the
// notified count crosses the HTTP boundary; the rest feeds logs and the
// audit sink.
type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Notified int `json:"notified"` // sent, accepted and confirmed locally
	Skipped  int `json:"skipped"`  // failed validation before sending
	Failed   int `json:"failed"`   // transport error or non-success status
	Gaps     int `json:"gaps"`     // accepted remotely, unconfirmed locally

	NotifiedClickIDs []int `json:"notifiedClickIds,omitempty"`
	SkippedClickIDs  []int `json:"skippedClickIds,omitempty"`
	FailedClickIDs   []int `json:"failedClickIds,omitempty"`
	GapClickIDs      []int `json:"gapClickIds,omitempty"`
}

func (r *Report) Total() int {
	return r.Notified + r.Skipped + r.Failed + r.Gaps
}
