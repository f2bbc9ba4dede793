// Package notify fans out job lifecycle events to configured channels.
package notify

import "context"

// Event represents a notification-worthy job lifecycle event.
type Event struct {
	Type  string // "job.completed" | "job.failed" | "job.cancelled" | "schedule.failed"
	Title string
	Body  string
	JobID string
	Kind  string // job kind, e.g. "port_scan"
	URL   string // optional deep link into the backend dashboard
}

// Channel is implemented by each notification provider.
type Channel interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, evt Event) error
}
