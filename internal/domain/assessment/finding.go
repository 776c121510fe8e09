package assessment

import "strings"

// Vulnerability as reported by the backend for an organization or an assessment.
type Vulnerability struct {
	ID              int64
	Title           string
	Description     string
	Severity        Severity
	CVSSScore       *float64
	RemediationPlan string
	Status          string
}

// TestCaseStatus tracks execution of a generated test case.
type TestCaseStatus string

const (
	TestCasePending   TestCaseStatus = "pending"
	TestCaseRunning   TestCaseStatus = "running"
	TestCaseCompleted TestCaseStatus = "completed"
	TestCaseFailed    TestCaseStatus = "failed"
)

// ParseTestCaseStatus normalizes backend statuses. The test-case pages use
// "Passed" and "In Progress"; unknown values are pending.
func ParseTestCaseStatus(s string) TestCaseStatus {
	switch st := TestCaseStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case TestCasePending, TestCaseRunning, TestCaseCompleted, TestCaseFailed:
		return st
	case "passed":
		return TestCaseCompleted
	case "in progress", "in_progress":
		return TestCaseRunning
	}
	return TestCasePending
}

// TestCase is a generated security test bound to a target.
type TestCase struct {
	ID          int64
	Name        string
	Description string
	Type        string
	Target      string
	Status      TestCaseStatus
}
