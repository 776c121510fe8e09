package assessment

import "time"

// Outcome classifies how a result is presented.
type Outcome string

const (
	// OutcomeClean is shown as a success state: nothing was found.
	OutcomeClean Outcome = "clean"
	// OutcomeFindings is shown as a warning state.
	OutcomeFindings Outcome = "findings"
)

// Result is the immutable response to one assessment submission.
type Result struct {
	id                   string
	assessmentType       Type
	testCasesCount       int
	vulnerabilitiesFound int
	vulnerabilities      []Vulnerability
	timestamp            time.Time
}

// Reconstruct creates a result from backend data (for gateway use)
func Reconstruct(id string, t Type, testCasesCount, vulnerabilitiesFound int, vulns []Vulnerability, timestamp time.Time) *Result {
	v := make([]Vulnerability, len(vulns))
	copy(v, vulns)
	return &Result{
		id:                   id,
		assessmentType:       t,
		testCasesCount:       testCasesCount,
		vulnerabilitiesFound: vulnerabilitiesFound,
		vulnerabilities:      v,
		timestamp:            timestamp,
	}
}

func (r *Result) ID() string {
	return r.id
}

func (r *Result) Type() Type {
	return r.assessmentType
}

func (r *Result) TestCasesCount() int {
	return r.testCasesCount
}

func (r *Result) VulnerabilitiesFound() int {
	return r.vulnerabilitiesFound
}

func (r *Result) Vulnerabilities() []Vulnerability {
	out := make([]Vulnerability, len(r.vulnerabilities))
	copy(out, r.vulnerabilities)
	return out
}

func (r *Result) Timestamp() time.Time {
	return r.timestamp
}

// Outcome is driven by the reported count, not by the length of the list.
func (r *Result) Outcome() Outcome {
	if r.vulnerabilitiesFound > 0 {
		return OutcomeFindings
	}
	return OutcomeClean
}

// HighestSeverity returns the most severe vulnerability in the result, or ""
// when the result carries none.
func (r *Result) HighestSeverity() Severity {
	var top Severity
	for _, v := range r.vulnerabilities {
		if top == "" || v.Severity.Rank() > top.Rank() {
			top = v.Severity
		}
	}
	return top
}
