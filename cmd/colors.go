package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass", "completed", "fixed", "resolved":
		return colorSuccess(status)
	case "running", "in_progress":
		return colorInfo(status)
	case "error", "fail", "failed", "open":
		return colorError(status)
	default:
		return status
	}
}

// formatSeverity renders a severity badge: critical and high red, medium
// yellow, low and info cyan.
func formatSeverity(sev assessment.Severity) string {
	label := strings.ToUpper(string(sev))
	switch sev {
	case assessment.SeverityCritical, assessment.SeverityHigh:
		return colorError(label)
	case assessment.SeverityMedium:
		return colorWarn(label)
	case assessment.SeverityLow, assessment.SeverityInfo:
		return colorInfo(label)
	default:
		return label
	}
}

// formatOutcome is the one-line verdict shown above a result.
func formatOutcome(r *assessment.Result) string {
	if r.Outcome() == assessment.OutcomeClean {
		return colorSuccess("✓ No vulnerabilities found!")
	}
	return colorWarn(fmt.Sprintf("⚠ %d vulnerabilities found!", r.VulnerabilitiesFound()))
}
