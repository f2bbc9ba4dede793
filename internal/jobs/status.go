package jobs

import "strings"

// Status is the client's view of a job's lifecycle state.
//
//	submitted → (poll) → running → completed
//	                            └→ failed
//
// The backend owns the state machine; the client never re-polls a terminal
// job. Status strings the client does not recognise are bucketed as
// StatusUnknown and treated as in-progress rather than rejected.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

// ParseStatus maps a raw backend status string onto the known set.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusSubmitted:
		return StatusSubmitted
	case StatusQueued:
		return StatusQueued
	case StatusRunning:
		return StatusRunning
	case StatusCompleted:
		return StatusCompleted
	case StatusFailed:
		return StatusFailed
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Succeeded reports whether detail collections may be loaded for the job.
func (s Status) Succeeded() bool { return s == StatusCompleted }
