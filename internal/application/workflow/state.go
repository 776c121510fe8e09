package workflow

import (
	"fmt"
	"strings"

	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/shieldsec/shield-cli/internal/domain/organization"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

// State is the controller lifecycle position.
type State string

const (
	StateIdle        State = "idle"
	StateConfiguring State = "configuring"
	StateSubmitting  State = "submitting"
	StateDisplaying  State = "displaying"
	StateError       State = "error"
)

// View selects which part of a result is shown.
type View string

const (
	ViewOverview        View = "overview"
	ViewTestCases       View = "test_cases"
	ViewVulnerabilities View = "vulnerabilities"
)

// ParseView accepts the canonical names plus a few short aliases used by the TUI.
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overview", "summary", "":
		return ViewOverview, nil
	case "test_cases", "testcases", "tests":
		return ViewTestCases, nil
	case "vulnerabilities", "vulns":
		return ViewVulnerabilities, nil
	}
	return "", fmt.Errorf("%w: %q", sharedErrors.ErrInvalidView, s)
}

// Snapshot is a point-in-time copy of controller state. Callers may keep it
// after the controller moves on; nothing in it is shared with the controller.
type Snapshot struct {
	Revision        uint64
	State           State
	Organizations   []*organization.Organization
	Selected        *organization.Organization
	TechStack       []string
	AssessmentType  assessment.Type
	View            View
	Busy            bool
	Error           string
	Validation      string
	Notice          string
	Result          *assessment.Result
	TestCases       []assessment.TestCase
	Vulnerabilities []assessment.Vulnerability
}

// SelectedID returns the selected organization id, or 0.
func (s Snapshot) SelectedID() int64 {
	if s.Selected == nil {
		return 0
	}
	return s.Selected.ID()
}

// Notifier receives a snapshot after every state change.
type Notifier interface {
	Publish(Snapshot)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Snapshot)

func (f NotifierFunc) Publish(s Snapshot) { f(s) }
