package assessment

import "context"

// Gateway defines the backend operations behind an assessment
type Gateway interface {
	// Submit sends one assessment request and waits for its result
	Submit(ctx context.Context, req *Request) (*Result, error)

	// ListTestCases retrieves the generated test cases for an organization
	ListTestCases(ctx context.Context, organizationID int64) ([]TestCase, error)

	// ListVulnerabilities retrieves discovered vulnerabilities for an organization
	ListVulnerabilities(ctx context.Context, organizationID int64) ([]Vulnerability, error)
}

// FindingsGateway reads and executes individual test cases and
// vulnerabilities
type FindingsGateway interface {
	// GetTestCase retrieves one test case
	GetTestCase(ctx context.Context, id int64) (*TestCaseDetail, error)

	// ListTestCaseVulnerabilities retrieves what a test case has discovered
	ListTestCaseVulnerabilities(ctx context.Context, testCaseID int64) ([]Vulnerability, error)

	// RunTestCase executes a test case and waits for its outcome
	RunTestCase(ctx context.Context, id int64) (*TestRun, error)

	// GetVulnerability retrieves one vulnerability
	GetVulnerability(ctx context.Context, id int64) (*VulnerabilityDetail, error)
}
