package shieldapi

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/shieldsec/shield-cli/internal/domain/organization"
)

type organizationDTO struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Industry    string          `json:"industry"`
	TechStack   legacyTechStack `json:"tech_stack"`
}

// legacyTechStack decodes the tech_stack column. The backend stores it as a
// JSON-encoded array inside a string; a native array is accepted too.
// Anything that does not decode to a list of strings becomes an empty stack
// flagged as malformed, it never fails the surrounding payload.
type legacyTechStack struct {
	labels    []string
	malformed bool
}

func (l *legacyTechStack) UnmarshalJSON(data []byte) error {
	l.labels = nil
	l.malformed = false

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := data
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			l.malformed = true
			return nil
		}
		if strings.TrimSpace(encoded) == "" {
			return nil
		}
		raw = []byte(encoded)
	}

	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		l.malformed = true
		return nil
	}
	l.labels = labels
	return nil
}

func (d organizationDTO) toDomain() *organization.Organization {
	return organization.Reconstruct(d.ID, d.Name, d.Description, d.Industry, d.TechStack.labels, d.TechStack.malformed)
}

// vulnerabilityDTO covers both vulnerability shapes: the AI agent listings
// use title/remediation_plan, the vulnerability pages name/remediation.
type vulnerabilityDTO struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Severity        string   `json:"severity"`
	CVSSScore       *float64 `json:"cvss_score,omitempty"`
	RemediationPlan string   `json:"remediation_plan,omitempty"`
	Remediation     string   `json:"remediation,omitempty"`
	Status          string   `json:"status"`
}

func (d vulnerabilityDTO) toDomain() assessment.Vulnerability {
	return assessment.Vulnerability{
		ID:              d.ID,
		Title:           firstNonEmpty(d.Title, d.Name),
		Description:     d.Description,
		Severity:        assessment.ParseSeverity(d.Severity),
		CVSSScore:       d.CVSSScore,
		RemediationPlan: firstNonEmpty(d.RemediationPlan, d.Remediation),
		Status:          d.Status,
	}
}

type vulnerabilityDetailDTO struct {
	vulnerabilityDTO
	OrganizationID     int64           `json:"organization_id"`
	OrganizationName   string          `json:"organization_name"`
	AffectedComponents string          `json:"affected_components"`
	Details            json.RawMessage `json:"details"`
	CreatedAt          backendTime     `json:"created_at"`
	UpdatedAt          backendTime     `json:"updated_at"`
}

func (d vulnerabilityDetailDTO) toDomain() *assessment.VulnerabilityDetail {
	return &assessment.VulnerabilityDetail{
		Vulnerability:      d.vulnerabilityDTO.toDomain(),
		OrganizationID:     d.OrganizationID,
		OrganizationName:   d.OrganizationName,
		AffectedComponents: d.AffectedComponents,
		Details:            looseObject(d.Details),
		CreatedAt:          d.CreatedAt.Time,
		UpdatedAt:          d.UpdatedAt.Time,
	}
}

type testCaseDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	TestType    string `json:"test_type"`
	Target      string `json:"target"`
	Status      string `json:"status"`
}

func (d testCaseDTO) toDomain() assessment.TestCase {
	return assessment.TestCase{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Type:        firstNonEmpty(d.Type, d.TestType),
		Target:      d.Target,
		Status:      assessment.ParseTestCaseStatus(d.Status),
	}
}

type testCaseDetailDTO struct {
	testCaseDTO
	OrganizationID   int64           `json:"organization_id"`
	OrganizationName string          `json:"organization_name"`
	Parameters       json.RawMessage `json:"parameters"`
	CreatedAt        backendTime     `json:"created_at"`
	UpdatedAt        backendTime     `json:"updated_at"`
}

func (d testCaseDetailDTO) toDomain() *assessment.TestCaseDetail {
	return &assessment.TestCaseDetail{
		TestCase:         d.testCaseDTO.toDomain(),
		OrganizationID:   d.OrganizationID,
		OrganizationName: d.OrganizationName,
		Parameters:       looseObject(d.Parameters),
		CreatedAt:        d.CreatedAt.Time,
		UpdatedAt:        d.UpdatedAt.Time,
	}
}

type testRunDTO struct {
	TestCase        *testCaseDetailDTO `json:"test_case"`
	Vulnerabilities []vulnerabilityDTO `json:"vulnerabilities"`
}

// looseObject decodes a JSON object, or a string holding one. Anything else
// is dropped.
func looseObject(raw json.RawMessage) map[string]interface{} {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil
		}
		raw = []byte(encoded)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || len(obj) == 0 {
		return nil
	}
	return obj
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type assessmentRequestDTO struct {
	OrganizationID int64    `json:"organization_id"`
	TechStack      []string `json:"tech_stack"`
	AssessmentType string   `json:"assessment_type"`
}

func requestToDTO(req *assessment.Request) assessmentRequestDTO {
	return assessmentRequestDTO{
		OrganizationID: req.OrganizationID(),
		TechStack:      req.TechStack(),
		AssessmentType: req.Type().String(),
	}
}

type assessmentResultDTO struct {
	AssessmentID         string             `json:"assessment_id"`
	AssessmentType       string             `json:"assessment_type"`
	TestCasesCount       int                `json:"test_cases_count"`
	VulnerabilitiesFound int                `json:"vulnerabilities_found"`
	Vulnerabilities      []vulnerabilityDTO `json:"vulnerabilities"`
	Timestamp            backendTime        `json:"timestamp"`
}

func (d assessmentResultDTO) toDomain(requested assessment.Type) *assessment.Result {
	t := assessment.Type(d.AssessmentType)
	if !t.Valid() {
		t = requested
	}
	vulns := make([]assessment.Vulnerability, 0, len(d.Vulnerabilities))
	for _, v := range d.Vulnerabilities {
		vulns = append(vulns, v.toDomain())
	}
	return assessment.Reconstruct(d.AssessmentID, t, d.TestCasesCount, d.VulnerabilitiesFound, vulns, d.Timestamp.Time)
}

// backendTime accepts RFC 3339 and the zone-less ISO format the backend emits
// (treated as UTC). Unparseable values decode to the zero time.
type backendTime struct {
	time.Time
}

var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (b *backendTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		b.Time = time.Time{}
		return nil
	}
	for _, layout := range backendTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			b.Time = parsed.UTC()
			return nil
		}
	}
	b.Time = time.Time{}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) detail() string {
	if e := strings.TrimSpace(b.Error); e != "" {
		return e
	}
	return strings.TrimSpace(b.Message)
}

// submitResponseDTO decodes the assessment endpoint, which answers some
// failures with 200 and an error body.
type submitResponseDTO struct {
	assessmentResultDTO
	errorBody
}
