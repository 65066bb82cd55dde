package model

import "time"

// RunMetric is one append-only outcome record per (target, URL) run.
// It is written by the orchestrator after every run, success or not.
type RunMetric struct {
	ID        int64     `json:"id"`
	TargetID  int64     `json:"target_id"`
	Retries   int       `json:"retries"`
	PermFail  bool      `json:"permanent_fail"`
	Timestamp time.Time `json:"timestamp"`
}

// ScrapeLog is the human-readable companion of RunMetric: one entry per
// (target, URL) run with the failure message when the run failed.
type ScrapeLog struct {
	ID        int64     `json:"id"`
	TargetID  int64     `json:"target_id"`
	URL       string    `json:"url"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JobStatus is the lifecycle state of a queued scrape job.
type JobStatus string

// Job states reported by the queue.
const (
	JobPending JobStatus = "pending"
	JobStarted JobStatus = "started"
	JobSuccess JobStatus = "success"
	JobFailure JobStatus = "failure"
)

// JobResult is the terminal outcome of a queued job: either a result
// value or a structured failure with a kind and message.
type JobResult struct {
	Status    JobStatus `json:"status"`
	Inserted  int       `json:"inserted,omitempty"`
	FailKind  string    `json:"fail_kind,omitempty"`
	FailError string    `json:"fail_error,omitempty"`
}
