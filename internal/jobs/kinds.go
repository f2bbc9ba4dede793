// Package jobs defines the client-side model of backend jobs: the job kinds
// and their service endpoints, the status state machine, and the typed
// operations (submit, status, list, delete) built on the api client.
package jobs

import (
	"fmt"
	"strings"
)

// Kind enumerates the job kinds the backend runs.
type Kind string

const (
	KindPortScan          Kind = "port_scan"
	KindVulnerabilityScan Kind = "vulnerability_scan"
	KindContractAudit     Kind = "contract_audit"
	KindModelEvaluation   Kind = "model_evaluation"
	KindPlaybookExecution Kind = "playbook_execution"
	KindPhishingCampaign  Kind = "phishing_campaign"
)

// Service describes one backend service's endpoint layout. Paths vary per
// service but the pattern is constant, so everything downstream (poller,
// result loader, list view) is parameterised by a Service rather than
// duplicated per kind.
type Service struct {
	Kind  Kind
	Label string
	// Base is the service root, e.g. "/api/network".
	Base string
	// Jobs is the path segment for creating (POST) and listing (GET) jobs.
	Jobs string
	// IDField names the job identifier field in the create response.
	IDField string
	// Required lists configuration fields that must be non-empty on submit.
	Required []string
	// Collections are the detail sub-resources of a completed job.
	Collections []string
}

var services = []Service{
	{
		Kind:        KindPortScan,
		Label:       "Port Scan",
		Base:        "/api/network",
		Jobs:        "scans",
		IDField:     "scan_id",
		Required:    []string{"target"},
		Collections: []string{"devices", "vulnerabilities"},
	},
	{
		Kind:        KindVulnerabilityScan,
		Label:       "Vulnerability Scan",
		Base:        "/api/vulnscan",
		Jobs:        "scans",
		IDField:     "scan_id",
		Required:    []string{"target_url"},
		Collections: []string{"vulnerabilities"},
	},
	{
		Kind:        KindContractAudit,
		Label:       "Contract Audit",
		Base:        "/api/contracts",
		Jobs:        "audits",
		IDField:     "audit_id",
		Required:    []string{"contract_address"},
		Collections: []string{"findings"},
	},
	{
		Kind:        KindModelEvaluation,
		Label:       "Model Evaluation",
		Base:        "/api/aimodels",
		Jobs:        "evaluations",
		IDField:     "evaluation_id",
		Required:    []string{"model_endpoint"},
		Collections: []string{"findings"},
	},
	{
		Kind:        KindPlaybookExecution,
		Label:       "Playbook Execution",
		Base:        "/api/soar",
		Jobs:        "executions",
		IDField:     "execution_id",
		Required:    []string{"playbook"},
		Collections: []string{"actions", "iocs"},
	},
	{
		Kind:        KindPhishingCampaign,
		Label:       "Phishing Campaign",
		Base:        "/api/phishing",
		Jobs:        "campaigns",
		IDField:     "campaign_id",
		Required:    []string{"template", "target_domain"},
		Collections: []string{"results"},
	},
}

// Services returns all service descriptors in a stable order.
func Services() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	return out
}

// ServiceFor resolves the Service descriptor for a kind.
func ServiceFor(kind Kind) (Service, error) {
	for _, s := range services {
		if s.Kind == kind {
			return s, nil
		}
	}
	return Service{}, fmt.Errorf("unknown job kind %q (valid: %s)", kind, strings.Join(kindNames(), ", "))
}

// ParseKind validates a user-supplied kind string.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, err := ServiceFor(k); err != nil {
		return "", err
	}
	return k, nil
}

func kindNames() []string {
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = string(s.Kind)
	}
	return names
}

// StatusURL is the health endpoint: GET /api/<service>/.
func (s Service) StatusURL() string { return s.Base + "/" }

// CreatePath is where job configurations are POSTed.
func (s Service) CreatePath() string { return s.Base + "/" + s.Jobs }

// ListPath is the paginated/filtered job listing.
func (s Service) ListPath() string { return s.Base + "/" + s.Jobs }

// JobPath addresses a single job (GET for detail, DELETE to remove).
func (s Service) JobPath(id string) string { return s.Base + "/" + id }

// JobStatusPath is the polling endpoint for a job.
func (s Service) JobStatusPath(id string) string { return s.Base + "/" + id + "/status" }

// CollectionPath addresses one detail collection of a job.
func (s Service) CollectionPath(id, collection string) string {
	return s.Base + "/" + id + "/" + collection
}

// ReportsPath is the report-generation endpoint.
func (s Service) ReportsPath() string { return s.Base + "/reports" }
