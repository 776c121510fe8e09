package api

import (
	"time"

	"github.com/shieldsec/shield-cli/internal/application/workflow"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/shieldsec/shield-cli/internal/domain/organization"
)

// Wire representations shared by the REST facade and the CLI's json/yaml output.

type OrganizationView struct {
	ID             int64    `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Industry       string   `json:"industry,omitempty" yaml:"industry,omitempty"`
	TechStack      []string `json:"tech_stack" yaml:"tech_stack"`
	StackMalformed bool     `json:"stack_malformed,omitempty" yaml:"stack_malformed,omitempty"`
}

type VulnerabilityView struct {
	ID              int64    `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Severity        string   `json:"severity" yaml:"severity"`
	CVSSScore       *float64 `json:"cvss_score,omitempty" yaml:"cvss_score,omitempty"`
	RemediationPlan string   `json:"remediation_plan,omitempty" yaml:"remediation_plan,omitempty"`
	Status          string   `json:"status,omitempty" yaml:"status,omitempty"`
}

type TestCaseView struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Target      string `json:"target,omitempty" yaml:"target,omitempty"`
	Status      string `json:"status" yaml:"status"`
}

type TestCaseDetailView struct {
	TestCaseView     `yaml:",inline"`
	OrganizationID   int64                  `json:"organization_id,omitempty" yaml:"organization_id,omitempty"`
	OrganizationName string                 `json:"organization_name,omitempty" yaml:"organization_name,omitempty"`
	Parameters       map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	CreatedAt        *time.Time             `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt        *time.Time             `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Vulnerabilities  []VulnerabilityView    `json:"vulnerabilities" yaml:"vulnerabilities"`
}

type VulnerabilityDetailView struct {
	VulnerabilityView  `yaml:",inline"`
	OrganizationID     int64                  `json:"organization_id,omitempty" yaml:"organization_id,omitempty"`
	OrganizationName   string                 `json:"organization_name,omitempty" yaml:"organization_name,omitempty"`
	AffectedComponents string                 `json:"affected_components,omitempty" yaml:"affected_components,omitempty"`
	Details            map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	CreatedAt          *time.Time             `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt          *time.Time             `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

type ResultView struct {
	AssessmentID         string              `json:"assessment_id" yaml:"assessment_id"`
	AssessmentType       string              `json:"assessment_type" yaml:"assessment_type"`
	Outcome              string              `json:"outcome" yaml:"outcome"`
	TestCasesCount       int                 `json:"test_cases_count" yaml:"test_cases_count"`
	VulnerabilitiesFound int                 `json:"vulnerabilities_found" yaml:"vulnerabilities_found"`
	HighestSeverity      string              `json:"highest_severity,omitempty" yaml:"highest_severity,omitempty"`
	Timestamp            time.Time           `json:"timestamp" yaml:"timestamp"`
	Vulnerabilities      []VulnerabilityView `json:"vulnerabilities" yaml:"vulnerabilities"`
}

type WorkflowView struct {
	Revision               uint64              `json:"revision" yaml:"revision"`
	State                  string              `json:"state" yaml:"state"`
	Busy                   bool                `json:"busy" yaml:"busy"`
	SelectedOrganizationID int64               `json:"selected_organization_id,omitempty" yaml:"selected_organization_id,omitempty"`
	Organizations          []OrganizationView  `json:"organizations" yaml:"organizations"`
	TechStack              []string            `json:"tech_stack" yaml:"tech_stack"`
	AssessmentType         string              `json:"assessment_type" yaml:"assessment_type"`
	View                   string              `json:"view" yaml:"view"`
	Error                  string              `json:"error,omitempty" yaml:"error,omitempty"`
	Validation             string              `json:"validation,omitempty" yaml:"validation,omitempty"`
	Notice                 string              `json:"notice,omitempty" yaml:"notice,omitempty"`
	Result                 *ResultView         `json:"result,omitempty" yaml:"result,omitempty"`
	TestCases              []TestCaseView      `json:"test_cases" yaml:"test_cases"`
	Vulnerabilities        []VulnerabilityView `json:"vulnerabilities" yaml:"vulnerabilities"`
}

func ToOrganizationView(o *organization.Organization) OrganizationView {
	return OrganizationView{
		ID:             o.ID(),
		Name:           o.Name(),
		Description:    o.Description(),
		Industry:       o.Industry(),
		TechStack:      o.StoredTechStack(),
		StackMalformed: o.StackMalformed(),
	}
}

func ToOrganizationViews(orgs []*organization.Organization) []OrganizationView {
	views := make([]OrganizationView, 0, len(orgs))
	for _, o := range orgs {
		views = append(views, ToOrganizationView(o))
	}
	return views
}

func toVulnerabilityView(v assessment.Vulnerability) VulnerabilityView {
	return VulnerabilityView{
		ID:              v.ID,
		Title:           v.Title,
		Description:     v.Description,
		Severity:        string(v.Severity),
		CVSSScore:       v.CVSSScore,
		RemediationPlan: v.RemediationPlan,
		Status:          v.Status,
	}
}

func ToVulnerabilityViews(vulns []assessment.Vulnerability) []VulnerabilityView {
	views := make([]VulnerabilityView, 0, len(vulns))
	for _, v := range vulns {
		views = append(views, toVulnerabilityView(v))
	}
	return views
}

func toTestCaseView(c assessment.TestCase) TestCaseView {
	return TestCaseView{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
		Target:      c.Target,
		Status:      string(c.Status),
	}
}

func ToTestCaseViews(cases []assessment.TestCase) []TestCaseView {
	views := make([]TestCaseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, toTestCaseView(c))
	}
	return views
}

// ToTestCaseDetailView pairs a test case with the vulnerabilities it found.
func ToTestCaseDetailView(tc *assessment.TestCaseDetail, vulns []assessment.Vulnerability) TestCaseDetailView {
	return TestCaseDetailView{
		TestCaseView:     toTestCaseView(tc.TestCase),
		OrganizationID:   tc.OrganizationID,
		OrganizationName: tc.OrganizationName,
		Parameters:       tc.Parameters,
		CreatedAt:        optionalTime(tc.CreatedAt),
		UpdatedAt:        optionalTime(tc.UpdatedAt),
		Vulnerabilities:  ToVulnerabilityViews(vulns),
	}
}

func ToVulnerabilityDetailView(v *assessment.VulnerabilityDetail) VulnerabilityDetailView {
	return VulnerabilityDetailView{
		VulnerabilityView:  toVulnerabilityView(v.Vulnerability),
		OrganizationID:     v.OrganizationID,
		OrganizationName:   v.OrganizationName,
		AffectedComponents: v.AffectedComponents,
		Details:            v.Details,
		CreatedAt:          optionalTime(v.CreatedAt),
		UpdatedAt:          optionalTime(v.UpdatedAt),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ToResultView returns nil for a nil result.
func ToResultView(r *assessment.Result) *ResultView {
	if r == nil {
		return nil
	}
	view := &ResultView{
		AssessmentID:         r.ID(),
		AssessmentType:       r.Type().String(),
		Outcome:              string(r.Outcome()),
		TestCasesCount:       r.TestCasesCount(),
		VulnerabilitiesFound: r.VulnerabilitiesFound(),
		Timestamp:            r.Timestamp(),
		Vulnerabilities:      ToVulnerabilityViews(r.Vulnerabilities()),
	}
	if sev := r.HighestSeverity(); sev != "" {
		view.HighestSeverity = string(sev)
	}
	return view
}

func ToWorkflowView(s workflow.Snapshot) WorkflowView {
	stack := s.TechStack
	if stack == nil {
		stack = []string{}
	}
	return WorkflowView{
		Revision:               s.Revision,
		State:                  string(s.State),
		Busy:                   s.Busy,
		SelectedOrganizationID: s.SelectedID(),
		Organizations:          ToOrganizationViews(s.Organizations),
		TechStack:              stack,
		AssessmentType:         s.AssessmentType.String(),
		View:                   string(s.View),
		Error:                  s.Error,
		Validation:             s.Validation,
		Notice:                 s.Notice,
		Result:                 ToResultView(s.Result),
		TestCases:              ToTestCaseViews(s.TestCases),
		Vulnerabilities:        ToVulnerabilityViews(s.Vulnerabilities),
	}
}
