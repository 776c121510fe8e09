package assessment

import "time"

// TestCaseDetail is a single test case with its owning organization and run
// parameters.
type TestCaseDetail struct {
	TestCase
	OrganizationID   int64
	OrganizationName string
	Parameters       map[string]interface{}
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// VulnerabilityDetail is a single vulnerability with the components it
// affects.
type VulnerabilityDetail struct {
	Vulnerability
	OrganizationID     int64
	OrganizationName   string
	AffectedComponents string
	Details            map[string]interface{}
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TestRun is what executing one test case produced.
type TestRun struct {
	TestCase        TestCaseDetail
	Vulnerabilities []Vulnerability
}

// Found reports whether the run discovered anything.
func (r *TestRun) Found() bool {
	return r != nil && len(r.Vulnerabilities) > 0
}
