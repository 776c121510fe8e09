package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/shieldsec/shield-cli/internal/domain/organization"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

// Service provides access to organizations and their findings
type Service struct {
	orgs     organization.Repository
	gateway  assessment.Gateway
	findings assessment.FindingsGateway
}

// NewService creates a new catalog service
func NewService(orgs organization.Repository, gateway assessment.Gateway, findings assessment.FindingsGateway) *Service {
	return &Service{
		orgs:     orgs,
		gateway:  gateway,
		findings: findings,
	}
}

// ListOrganizations retrieves all organizations
func (s *Service) ListOrganizations(ctx context.Context) ([]*organization.Organization, error) {
	orgs, err := s.orgs.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// GetOrganization retrieves an organization by ID
func (s *Service) GetOrganization(ctx context.Context, id int64) (*organization.Organization, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidOrganizationID, id)
	}
	org, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// ListTestCases retrieves the test cases for an organization. A non-empty
// status keeps only matching cases.
func (s *Service) ListTestCases(ctx context.Context, orgID int64, status assessment.TestCaseStatus) ([]assessment.TestCase, error) {
	if orgID <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidOrganizationID, orgID)
	}
	cases, err := s.gateway.ListTestCases(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	if status == "" {
		return cases, nil
	}

	filtered := make([]assessment.TestCase, 0, len(cases))
	for _, c := range cases {
		if c.Status == status {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// ListVulnerabilities retrieves vulnerabilities at or above minSeverity,
// most severe first. An empty minSeverity keeps everything.
func (s *Service) ListVulnerabilities(ctx context.Context, orgID int64, minSeverity assessment.Severity) ([]assessment.Vulnerability, error) {
	if orgID <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidOrganizationID, orgID)
	}
	vulns, err := s.gateway.ListVulnerabilities(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vulnerabilities: %w", err)
	}

	filtered := make([]assessment.Vulnerability, 0, len(vulns))
	for _, v := range vulns {
		if minSeverity == "" || v.Severity.Rank() >= minSeverity.Rank() {
			filtered = append(filtered, v)
		}
	}
	SortBySeverity(filtered)
	return filtered, nil
}

// ShowTestCase retrieves a test case together with the vulnerabilities it
// discovered, most severe first.
func (s *Service) ShowTestCase(ctx context.Context, id int64) (*assessment.TestCaseDetail, []assessment.Vulnerability, error) {
	if id <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidFindingID, id)
	}
	tc, err := s.findings.GetTestCase(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get test case: %w", err)
	}
	vulns, err := s.findings.ListTestCaseVulnerabilities(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list test case vulnerabilities: %w", err)
	}
	SortBySeverity(vulns)
	return tc, vulns, nil
}

// RunTestCase executes a test case and returns its refreshed state.
func (s *Service) RunTestCase(ctx context.Context, id int64) (*assessment.TestRun, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidFindingID, id)
	}
	run, err := s.findings.RunTestCase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to run test case: %w", err)
	}
	SortBySeverity(run.Vulnerabilities)
	return run, nil
}

// GetVulnerability retrieves a vulnerability by ID
func (s *Service) GetVulnerability(ctx context.Context, id int64) (*assessment.VulnerabilityDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", sharedErrors.ErrInvalidFindingID, id)
	}
	v, err := s.findings.GetVulnerability(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get vulnerability: %w", err)
	}
	return v, nil
}

// SortBySeverity orders vulnerabilities by severity, then CVSS score, both
// descending. Ties keep their backend order.
func SortBySeverity(vulns []assessment.Vulnerability) {
	sort.SliceStable(vulns, func(i, j int) bool {
		ri, rj := vulns[i].Severity.Rank(), vulns[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return score(vulns[i]) > score(vulns[j])
	})
}

func score(v assessment.Vulnerability) float64 {
	if v.CVSSScore == nil {
		return -1
	}
	return *v.CVSSScore
}
