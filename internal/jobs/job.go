package jobs

// Job is a server-tracked unit of work as seen in listings and detail
// responses. The identifier is opaque and assigned by the server; the client
// never generates or mutates it.
type Job struct {
	ID          string `json:"id"`
	Kind        string `json:"kind,omitempty"`
	Target      string `json:"target,omitempty"`
	Status      string `json:"status"`
	Progress    int    `json:"progress,omitempty"`
	Message     string `json:"message,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	// Summary counters (finding counts, scores) are populated by the server
	// only once the job is terminal.
	Summary map[string]int `json:"summary,omitempty"`
}

// ParsedStatus buckets the job's raw status string.
func (j Job) ParsedStatus() Status { return ParseStatus(j.Status) }

// StatusUpdate is one observation from GET /api/<service>/<id>/status.
// Progress and Message are best-effort: absent fields decode to zero values.
type StatusUpdate struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// Parsed buckets the raw status string.
func (u StatusUpdate) Parsed() Status { return ParseStatus(u.Status) }
