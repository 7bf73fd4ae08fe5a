package models

import "time"

// InvocationStatus is the lifecycle state of one action invocation as the
// host recorded it.
type InvocationStatus string

const (
	InvocationRunning   InvocationStatus = "running"
	InvocationSucceeded InvocationStatus = "succeeded"
	InvocationFailed    InvocationStatus = "failed"
	InvocationTimedOut  InvocationStatus = "timed_out"
)

// InvocationRecord is the audit entry the host keeps per execute call.
// Output holds the provider's success value; Error holds the plain message
// string on failure. A timed-out invocation was abandoned by the host while
// the provider call may still have been running.
type InvocationRecord struct {
	ID         string           `json:"id"`
	Provider   string           `json:"provider"`
	Action     string           `json:"action"`
	Args       map[string]any   `json:"args,omitempty"`
	Output     any              `json:"output,omitempty"`
	Error      string           `json:"error,omitempty"`
	Status     InvocationStatus `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	DurationMS int64            `json:"duration_ms"`
}
