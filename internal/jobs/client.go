package jobs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cybersectk/cstk/internal/api"
)

// ValidationError reports a submission rejected before any network call.
type ValidationError struct {
	Kind   Kind
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s submission is missing required fields: %s", e.Kind, strings.Join(e.Fields, ", "))
}

// ValidateConfig checks that every mandatory field for the kind is present
// and non-empty. The rest of the configuration is opaque to the client and
// passed through verbatim.
func (s Service) ValidateConfig(cfg map[string]any) error {
	var missing []string
	for _, field := range s.Required {
		v, ok := cfg[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Kind: s.Kind, Fields: missing}
	}
	return nil
}

// API exposes the typed job operations of one backend service.
type API struct {
	client *api.Client
}

// NewAPI wraps an api.Client.
func NewAPI(client *api.Client) *API { return &API{client: client} }

// Submit validates cfg and POSTs it to the service's create endpoint.
// Validation failures short-circuit: no request is issued. On success the
// server-assigned job identifier is returned.
func (a *API) Submit(ctx context.Context, svc Service, cfg map[string]any) (string, error) {
	if err := svc.ValidateConfig(cfg); err != nil {
		return "", err
	}

	var resp map[string]any
	if err := a.client.Post(ctx, svc.CreatePath(), cfg, &resp); err != nil {
		return "", fmt.Errorf("submitting %s: %w", svc.Kind, err)
	}

	id, _ := resp[svc.IDField].(string)
	if id == "" {
		// Some services return numeric identifiers.
		if n, ok := resp[svc.IDField].(float64); ok {
			id = strconv.FormatInt(int64(n), 10)
		}
	}
	if id == "" {
		return "", fmt.Errorf("submitting %s: response has no %q field", svc.Kind, svc.IDField)
	}
	return id, nil
}

// Status fetches one status observation for a job.
func (a *API) Status(ctx context.Context, svc Service, id string) (StatusUpdate, error) {
	var u StatusUpdate
	if err := a.client.Get(ctx, svc.JobStatusPath(id), nil, &u); err != nil {
		return StatusUpdate{}, fmt.Errorf("fetching %s %s status: %w", svc.Kind, id, err)
	}
	return u, nil
}

// Get fetches a single job record.
func (a *API) Get(ctx context.Context, svc Service, id string) (Job, error) {
	var j Job
	if err := a.client.Get(ctx, svc.JobPath(id), nil, &j); err != nil {
		return Job{}, fmt.Errorf("fetching %s %s: %w", svc.Kind, id, err)
	}
	if j.Kind == "" {
		j.Kind = string(svc.Kind)
	}
	return j, nil
}

// ListQuery carries the listing filters understood by the backend.
type ListQuery struct {
	Search   string
	Status   string
	Page     int
	PageSize int
}

// List fetches one page of the service's job listing.
func (a *API) List(ctx context.Context, svc Service, q ListQuery) (api.Page[Job], error) {
	values := url.Values{}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Status != "" {
		values.Set("status", q.Status)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}

	var page api.Page[Job]
	if err := a.client.Get(ctx, svc.ListPath(), values, &page); err != nil {
		return api.Page[Job]{}, fmt.Errorf("listing %s jobs: %w", svc.Kind, err)
	}
	if page.Items == nil {
		page.Items = []Job{}
	}
	for i := range page.Items {
		if page.Items[i].Kind == "" {
			page.Items[i].Kind = string(svc.Kind)
		}
	}
	return page, nil
}

// Delete removes a job from the backend.
func (a *API) Delete(ctx context.Context, svc Service, id string) error {
	if err := a.client.Delete(ctx, svc.JobPath(id)); err != nil {
		return fmt.Errorf("deleting %s %s: %w", svc.Kind, id, err)
	}
	return nil
}

// ServiceHealth fetches the service status object from GET <base>/.
func (a *API) ServiceHealth(ctx context.Context, svc Service) (api.ServiceStatus, error) {
	var st api.ServiceStatus
	if err := a.client.Get(ctx, svc.StatusURL(), nil, &st); err != nil {
		return api.ServiceStatus{}, fmt.Errorf("fetching %s service status: %w", svc.Kind, err)
	}
	if st.Service == "" {
		st.Service = string(svc.Kind)
	}
	return st, nil
}
