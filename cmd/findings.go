package cmd

import (
	"fmt"
	"strings"

	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/spf13/cobra"
)

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Browse and run the test cases and vulnerabilities recorded for an organization",
}

var findingsVulnsCmd = &cobra.Command{
	Use:     "vulns",
	Aliases: []string{"vulnerabilities"},
	Short:   "List vulnerabilities, most severe first",
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := requireOrgFlag(cmd)
		if err != nil {
			return err
		}
		minSev, _ := cmd.Flags().GetString("min-severity")
		sev, err := parseSeverityFlag(minSev)
		if err != nil {
			return err
		}
		format, err := resolveOutput(cmd)
		if err != nil {
			return err
		}
		svc, err := getAppContext(cmd).services(cmd.Context())
		if err != nil {
			return err
		}

		vulns, err := svc.CatalogService.ListVulnerabilities(cmd.Context(), orgID, sev)
		if err != nil {
			return err
		}
		return renderVulnerabilities(cmd.OutOrStdout(), vulns, format)
	},
}

var findingsTestCasesCmd = &cobra.Command{
	Use:     "testcases",
	Aliases: []string{"tests", "test-cases"},
	Short:   "List generated test cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := requireOrgFlag(cmd)
		if err != nil {
			return err
		}
		statusFlag, _ := cmd.Flags().GetString("status")
		status, err := parseStatusFlag(statusFlag)
		if err != nil {
			return err
		}
		format, err := resolveOutput(cmd)
		if err != nil {
			return err
		}
		svc, err := getAppContext(cmd).services(cmd.Context())
		if err != nil {
			return err
		}

		cases, err := svc.CatalogService.ListTestCases(cmd.Context(), orgID, status)
		if err != nil {
			return err
		}
		return renderTestCases(cmd.OutOrStdout(), cases, format)
	},
}

var findingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one test case with what it discovered, or one vulnerability",
	Example: `  shield findings show --test-case 5
  shield findings show --vuln 9 -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		testCaseID, _ := cmd.Flags().GetInt64("test-case")
		vulnID, _ := cmd.Flags().GetInt64("vuln")
		if (testCaseID > 0) == (vulnID > 0) {
			return fmt.Errorf("exactly one of --test-case or --vuln is required")
		}
		format, err := resolveOutput(cmd)
		if err != nil {
			return err
		}
		svc, err := getAppContext(cmd).services(cmd.Context())
		if err != nil {
			return err
		}

		if vulnID > 0 {
			vuln, err := svc.CatalogService.GetVulnerability(cmd.Context(), vulnID)
			if err != nil {
				return err
			}
			return renderVulnerabilityDetail(cmd.OutOrStdout(), vuln, format)
		}
		tc, vulns, err := svc.CatalogService.ShowTestCase(cmd.Context(), testCaseID)
		if err != nil {
			return err
		}
		return renderTestCaseDetail(cmd.OutOrStdout(), tc, vulns, format)
	},
}

var findingsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one test case and show its outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetInt64("test-case")
		if id <= 0 {
			return fmt.Errorf("--test-case is required")
		}
		format, err := resolveOutput(cmd)
		if err != nil {
			return err
		}
		svc, err := getAppContext(cmd).services(cmd.Context())
		if err != nil {
			return err
		}

		showProgress, _ := cmd.Flags().GetBool("progress")
		var spinner *progressPrinter
		if showProgress && format == outputTable {
			spinner = newProgressPrinter(cmd.ErrOrStderr(), fmt.Sprintf("Running test case #%d", id))
			spinner.Start()
		}
		run, err := svc.CatalogService.RunTestCase(cmd.Context(), id)
		if spinner != nil {
			spinner.Stop()
		}
		if err != nil {
			return err
		}
		return renderTestRun(cmd.OutOrStdout(), run, format)
	},
}

func requireOrgFlag(cmd *cobra.Command) (int64, error) {
	id, _ := cmd.Flags().GetInt64("org")
	if id <= 0 {
		return 0, fmt.Errorf("--org is required")
	}
	return id, nil
}

// parseSeverityFlag is strict, unlike assessment.ParseSeverity which maps
// unknown backend values to info.
func parseSeverityFlag(s string) (assessment.Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	sev := assessment.Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("invalid severity %q (expected critical, high, medium, low or info)", s)
	}
	return sev, nil
}

func parseStatusFlag(s string) (assessment.TestCaseStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	switch st := assessment.TestCaseStatus(s); st {
	case assessment.TestCasePending, assessment.TestCaseRunning, assessment.TestCaseCompleted, assessment.TestCaseFailed:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q (expected pending, running, completed or failed)", s)
}

func init() {
	for _, c := range []*cobra.Command{findingsVulnsCmd, findingsTestCasesCmd} {
		c.Flags().Int64("org", 0, "organization id")
		addOutputFlag(c)
	}
	findingsVulnsCmd.Flags().String("min-severity", "", "only show vulnerabilities at or above this severity")
	findingsTestCasesCmd.Flags().String("status", "", "only show test cases with this status")

	findingsShowCmd.Flags().Int64("test-case", 0, "test case id")
	findingsShowCmd.Flags().Int64("vuln", 0, "vulnerability id")
	addOutputFlag(findingsShowCmd)

	findingsRunCmd.Flags().Int64("test-case", 0, "test case id")
	findingsRunCmd.Flags().Bool("progress", true, "show a spinner while the test case runs")
	addOutputFlag(findingsRunCmd)

	findingsCmd.AddCommand(findingsVulnsCmd, findingsTestCasesCmd, findingsShowCmd, findingsRunCmd)
	rootCmd.AddCommand(findingsCmd)
}
