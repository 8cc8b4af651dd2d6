package system

import (
	"context"
	"time"

	"github.com/frahmantamala/vuln-management/internal/nvd"
)

// Role is a per-system membership role.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleReporter Role = "reporter"
	RoleViewer   Role = "viewer"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleOwner, RoleReporter, RoleViewer:
		return Role(value), true
	}
	return "", false
}

// Severity buckets follow the external catalog's CVSS labels plus an
// explicit "unknown" for CVEs the catalog scores with no metric.
type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities is the fixed bucket order used by summaries.
var Severities = []Severity{
	SeverityUnknown,
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

func ParseSeverity(value string) (Severity, bool) {
	switch Severity(value) {
	case SeverityUnknown, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(value), true
	}
	return "", false
}

// State is the lifecycle state of a reported vulnerability.
type State string

const (
	StateOpen       State = "open"
	StateRemediated State = "remediated"
)

func ParseState(value string) (State, bool) {
	switch State(value) {
	case StateOpen, StateRemediated:
		return State(value), true
	}
	return "", false
}

// System is a tenant owning memberships and vulnerability records.
type System struct {
	CreatedBy    string    `json:"created_by"`
	CreationDate time.Time `json:"creation_date"`
	Description  string    `json:"description"`
	Name         string    `json:"name"`
}

// SystemUser is a membership grant within a system.
type SystemUser struct {
	AddedDate  time.Time `json:"added_date"`
	AddedBy    string    `json:"added_by"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	SystemName string    `json:"system_name"`
}

// Vulnerability is one CVE reported against one system.
type Vulnerability struct {
	AddedBy       string    `json:"added_by"`
	AddedDate     time.Time `json:"added_date"`
	CVE           string    `json:"cve"`
	Description   string    `json:"description"`
	ModifiedBy    string    `json:"modified_by"`
	ModifiedDate  time.Time `json:"modified_date"`
	References    []string  `json:"references"`
	Severity      Severity  `json:"severity"`
	SeverityScore *float64  `json:"severity_score"`
	State         State     `json:"state"`
	SystemName    string    `json:"system_name"`
}

// VulnerabilityPatch is the only mutation a vulnerability record admits:
// a state transition plus its audit trail, written as one update.
type VulnerabilityPatch struct {
	ModifiedBy   string    `json:"modified_by"`
	ModifiedDate time.Time `json:"modified_date"`
	State        State     `json:"state"`
}

// VulnerabilityCounts aggregates totals by lifecycle state.
type VulnerabilityCounts struct {
	TotalVulns           int `json:"total_vulns"`
	TotalOpenVulns       int `json:"total_open_vulns"`
	TotalRemediatedVulns int `json:"total_remediated_vulns"`
}

// VulnerabilityDetail is the per-CVE entry of a detailed summary.
type VulnerabilityDetail struct {
	CVE           string   `json:"cve"`
	Description   string   `json:"description"`
	References    []string `json:"references"`
	Severity      Severity `json:"severity"`
	SeverityScore *float64 `json:"severity_score"`
	State         State    `json:"state"`
}

// SeveritySummary is one severity bucket. Details is nil when the caller
// did not request details and non-nil (possibly empty) when it did.
type SeveritySummary struct {
	Severity Severity               `json:"severity"`
	Summary  VulnerabilityCounts    `json:"summary"`
	Details  *[]VulnerabilityDetail `json:"details,omitempty"`
}

// Summary is the aggregate view over all vulnerabilities of a system.
type Summary struct {
	Summary    VulnerabilityCounts `json:"summary"`
	BySeverity []SeveritySummary   `json:"summary_by_severity"`
}

// Repository is the persistence surface for systems, memberships, and
// vulnerabilities. Create operations report duplicates with
// datastore.ErrConflict; Get operations return nil without error when
// no record exists.
type Repository interface {
	CreateSystem(ctx context.Context, s *System) error
	GetSystem(ctx context.Context, name string) (*System, error)

	AddSystemUser(ctx context.Context, su *SystemUser) error
	GetSystemUser(ctx context.Context, systemName, email string) (*SystemUser, error)

	CreateVulnerability(ctx context.Context, v *Vulnerability) error
	GetVulnerability(ctx context.Context, systemName, cve string) (*Vulnerability, error)
	ListVulnerabilities(ctx context.Context, systemName string) ([]Vulnerability, error)
	UpdateVulnerability(ctx context.Context, systemName, cve string, patch VulnerabilityPatch) error
}

// CVEProvider is the external vulnerability catalog.
type CVEProvider interface {
	FetchCVE(ctx context.Context, cveID string) (*nvd.CVEInfo, error)
}
