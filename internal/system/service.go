package system

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/datastore"
)

// Service handles tenant, membership, and vulnerability business logic.
// All identifiers are expected pre-normalized by the transport layer.
type Service struct {
	repo   Repository
	cves   CVEProvider
	logger *slog.Logger

	// Now is the clock used for audit timestamps; overridable in tests.
	Now func() time.Time
}

func NewService(repo Repository, cves CVEProvider, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cves:   cves,
		logger: logger,
		Now:    time.Now,
	}
}

// CreateSystem registers a tenant and grants its creator the owner role
// in the same operation, so every system has an owner from birth.
func (s *Service) CreateSystem(ctx context.Context, name, description, creatorEmail string) (*System, error) {
	existing, err := s.repo.GetSystem(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load system: %w", err)
	}
	if existing != nil {
		return nil, internal.ErrSystemAlreadyExists
	}

	record := &System{
		CreatedBy:    creatorEmail,
		CreationDate: s.Now(),
		Description:  description,
		Name:         name,
	}
	if err := s.repo.CreateSystem(ctx, record); err != nil {
		if errors.Is(err, datastore.ErrConflict) {
			return nil, internal.ErrSystemAlreadyExists
		}
		return nil, fmt.Errorf("create system: %w", err)
	}

	if _, err := s.AddUser(ctx, name, creatorEmail, RoleOwner, creatorEmail); err != nil {
		return nil, fmt.Errorf("grant creator ownership: %w", err)
	}

	s.logger.Info("system created", "system", name, "created_by", creatorEmail)
	return record, nil
}

// AddUser grants a membership role; one membership per (system, email).
func (s *Service) AddUser(ctx context.Context, systemName, email string, role Role, addedBy string) (*SystemUser, error) {
	existing, err := s.repo.GetSystemUser(ctx, systemName, email)
	if err != nil {
		return nil, fmt.Errorf("load system user: %w", err)
	}
	if existing != nil {
		return nil, internal.ErrSystemUserAlreadyExists
	}

	record := &SystemUser{
		AddedDate:  s.Now(),
		AddedBy:    addedBy,
		Email:      email,
		Role:       role,
		SystemName: systemName,
	}
	if err := s.repo.AddSystemUser(ctx, record); err != nil {
		if errors.Is(err, datastore.ErrConflict) {
			return nil, internal.ErrSystemUserAlreadyExists
		}
		return nil, fmt.Errorf("add system user: %w", err)
	}

	s.logger.Info("system user added",
		"system", systemName,
		"email", email,
		"role", role,
		"added_by", addedBy)
	return record, nil
}

// RoleOf resolves a caller's role within a system; an uncached read so
// it always reflects the latest membership.
func (s *Service) RoleOf(ctx context.Context, systemName, email string) (Role, bool, error) {
	member, err := s.repo.GetSystemUser(ctx, systemName, email)
	if err != nil {
		return "", false, fmt.Errorf("load system user: %w", err)
	}
	if member == nil {
		return "", false, nil
	}
	return member.Role, true, nil
}

// ReportVulnerability fetches catalog data for the CVE and records it
// against the system in state open. One record per (system, cve).
func (s *Service) ReportVulnerability(ctx context.Context, systemName, cve, reporterEmail string) (*Vulnerability, error) {
	existing, err := s.repo.GetVulnerability(ctx, systemName, cve)
	if err != nil {
		return nil, fmt.Errorf("load vulnerability: %w", err)
	}
	if existing != nil {
		return nil, internal.ErrVulnerabilityAlreadyExists
	}

	info, err := s.cves.FetchCVE(ctx, cve)
	if err != nil {
		return nil, err
	}

	severity := SeverityUnknown
	var score *float64
	if info.Severity != nil {
		if parsed, ok := ParseSeverity(info.Severity.Severity); ok {
			severity = parsed
		}
		value := info.Severity.Score
		score = &value
	}

	now := s.Now()
	record := &Vulnerability{
		AddedBy:       reporterEmail,
		AddedDate:     now,
		CVE:           cve,
		Description:   info.Description,
		ModifiedBy:    reporterEmail,
		ModifiedDate:  now,
		References:    info.References,
		Severity:      severity,
		SeverityScore: score,
		State:         StateOpen,
		SystemName:    systemName,
	}
	if err := s.repo.CreateVulnerability(ctx, record); err != nil {
		if errors.Is(err, datastore.ErrConflict) {
			return nil, internal.ErrVulnerabilityAlreadyExists
		}
		return nil, fmt.Errorf("create vulnerability: %w", err)
	}

	s.logger.Info("vulnerability reported",
		"system", systemName,
		"cve", cve,
		"severity", severity,
		"reported_by", reporterEmail)
	return record, nil
}

// UpdateVulnerabilityState transitions a vulnerability. A transition to
// the current state is an idempotent no-op with no write; otherwise
// state, modifier, and modified timestamp change in a single write.
func (s *Service) UpdateVulnerabilityState(ctx context.Context, systemName, cve string, state State, actorEmail string) error {
	existing, err := s.repo.GetVulnerability(ctx, systemName, cve)
	if err != nil {
		return fmt.Errorf("load vulnerability: %w", err)
	}
	if existing == nil {
		return internal.ErrVulnerabilityNotFound
	}

	if existing.State == state {
		return nil
	}

	patch := VulnerabilityPatch{
		ModifiedBy:   actorEmail,
		ModifiedDate: s.Now(),
		State:        state,
	}
	if err := s.repo.UpdateVulnerability(ctx, systemName, cve, patch); err != nil {
		return fmt.Errorf("update vulnerability: %w", err)
	}

	s.logger.Info("vulnerability state updated",
		"system", systemName,
		"cve", cve,
		"state", state,
		"modified_by", actorEmail)
	return nil
}

// Summarize aggregates the system's vulnerabilities overall and into the
// five fixed severity buckets; zero-count buckets are always present.
func (s *Service) Summarize(ctx context.Context, systemName string, detailed bool) (*Summary, error) {
	vulns, err := s.repo.ListVulnerabilities(ctx, systemName)
	if err != nil {
		return nil, fmt.Errorf("list vulnerabilities: %w", err)
	}

	counts := make(map[Severity]*VulnerabilityCounts, len(Severities))
	details := make(map[Severity][]VulnerabilityDetail, len(Severities))
	for _, severity := range Severities {
		counts[severity] = &VulnerabilityCounts{}
		details[severity] = []VulnerabilityDetail{}
	}

	var overall VulnerabilityCounts
	for _, vuln := range vulns {
		bucket := counts[vuln.Severity]
		bucket.TotalVulns++
		overall.TotalVulns++
		switch vuln.State {
		case StateOpen:
			bucket.TotalOpenVulns++
			overall.TotalOpenVulns++
		case StateRemediated:
			bucket.TotalRemediatedVulns++
			overall.TotalRemediatedVulns++
		}
		if detailed {
			details[vuln.Severity] = append(details[vuln.Severity], VulnerabilityDetail{
				CVE:           vuln.CVE,
				Description:   vuln.Description,
				References:    vuln.References,
				Severity:      vuln.Severity,
				SeverityScore: vuln.SeverityScore,
				State:         vuln.State,
			})
		}
	}

	summary := &Summary{
		Summary:    overall,
		BySeverity: make([]SeveritySummary, 0, len(Severities)),
	}
	for _, severity := range Severities {
		bucket := SeveritySummary{
			Severity: severity,
			Summary:  *counts[severity],
		}
		if detailed {
			bucketDetails := details[severity]
			bucket.Details = &bucketDetails
		}
		summary.BySeverity = append(summary.BySeverity, bucket)
	}

	return summary, nil
}
