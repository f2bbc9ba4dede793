package api

// Page is the paginated listing envelope returned by the backend's job
// listing endpoints.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ServiceStatus is the health object returned by GET /api/<service>/.
type ServiceStatus struct {
	Service     string         `json:"service"`
	Operational bool           `json:"operational"`
	Counters    map[string]int `json:"counters,omitempty"`
	Message     string         `json:"message,omitempty"`
}
