package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shieldsec/shield-cli/internal/api"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/shieldsec/shield-cli/internal/domain/organization"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case outputTable, outputJSON, outputYAML:
		return f, nil
	case "":
		return outputTable, nil
	case "yml":
		return outputYAML, nil
	}
	return "", &InvalidOutputFormatError{Format: s}
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", string(outputTable), "output format (table, json, yaml)")
}

// resolveOutput prefers an explicit --output over the configured default.
func resolveOutput(cmd *cobra.Command) (outputFormat, error) {
	if flag := cmd.Flags().Lookup("output"); flag != nil && flag.Changed {
		return parseOutputFormat(flag.Value.String())
	}
	if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Config != nil {
		return parseOutputFormat(appCtx.Config.Defaults.Output)
	}
	return outputTable, nil
}

func writeStructured(w io.Writer, format outputFormat, v interface{}) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return &InvalidOutputFormatError{Format: string(format)}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderOrganizations(w io.Writer, orgs []*organization.Organization, format outputFormat) error {
	if format != outputTable {
		return writeStructured(w, format, api.ToOrganizationViews(orgs))
	}
	if len(orgs) == 0 {
		fmt.Fprintln(w, "No organizations found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tINDUSTRY\tTECH STACK")
	for _, o := range orgs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.ID(), o.Name(), dash(o.Industry()), stackSummary(o))
	}
	return tw.Flush()
}

func renderOrganization(w io.Writer, o *organization.Organization, format outputFormat) error {
	if format != outputTable {
		return writeStructured(w, format, api.ToOrganizationView(o))
	}
	fmt.Fprintf(w, "%s (#%d)\n", colorBold(o.Name()), o.ID())
	if o.Industry() != "" {
		fmt.Fprintf(w, "Industry   : %s\n", o.Industry())
	}
	if o.Description() != "" {
		fmt.Fprintf(w, "Description: %s\n", o.Description())
	}
	fmt.Fprintf(w, "Tech stack : %s\n", stackSummary(o))
	return nil
}

func stackSummary(o *organization.Organization) string {
	if o.StackMalformed() {
		return colorWarn("(unreadable)")
	}
	labels := o.StoredTechStack()
	if len(labels) == 0 {
		return "-"
	}
	return strings.Join(labels, ", ")
}

func renderTestCases(w io.Writer, cases []assessment.TestCase, format outputFormat) error {
	if format != outputTable {
		return writeStructured(w, format, api.ToTestCaseViews(cases))
	}
	if len(cases) == 0 {
		fmt.Fprintln(w, "No test cases found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tTARGET\tSTATUS")
	for _, c := range cases {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Name, dash(c.Type), dash(c.Target), formatStatusWithColor(string(c.Status)))
	}
	return tw.Flush()
}

func renderVulnerabilities(w io.Writer, vulns []assessment.Vulnerability, format outputFormat) error {
	if format != outputTable {
		return writeStructured(w, format, api.ToVulnerabilityViews(vulns))
	}
	if len(vulns) == 0 {
		fmt.Fprintln(w, "No vulnerabilities found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSEVERITY\tCVSS\tTITLE\tSTATUS")
	for _, v := range vulns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.ID, formatSeverity(v.Severity), cvss(v.CVSSScore), v.Title, formatStatusWithColor(dash(v.Status)))
	}
	return tw.Flush()
}

func renderTestCaseDetail(w io.Writer, tc *assessment.TestCaseDetail, vulns []assessment.Vulnerability, format outputFormat) error {
	if format != outputTable {
		return writeStructured(w, format, api.ToTestCaseDetailView(tc, vulns))
	}

	fmt.Fprintf(w, "Test case %s (#%d)\n", colorBold(tc.Name), tc.ID)
	fmt.Fprintf(w, "Status      : %s\n", formatStatusWithColor(string(tc.Status)))
	fmt.Fprintf(w, "Type        : %s\n", dash(tc.Type))
	if tc.Target != "" {
		fmt.Fprintf(w, "Target      : %s\n", tc.Target)
	}
	if tc.OrganizationName != "" {
		fmt.Fprintf(w, "Organization: %s (#%d)\n", tc.OrganizationName, tc.OrganizationID)
	}
	if !tc.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated     : %s\n", tc.UpdatedAt.Format(timestampLayout))
	}
	if tc.Description != "" {
		fmt.Fprintf(w, "Description : %s\n", tc.Description)
	}
	if len(tc.Parameters) > 0 {
		fmt.Fprintln(w, "Parameters  :")
		keys := make([]string, 0, len(tc.Parameters))
		for k := range tc.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s = %v\n", k, tc.Parameters[k])
		}
	}

	fmt.Fprintln(w)
	return renderVulnerabilities(w, vulns, format)
}

func renderVulnerabilityDetail(w io.Writer, v *assessment.VulnerabilityDetail, format outputFormat) error {
	if format != outputTable {
		return writeStructured(w, format, api.ToVulnerabilityDetailView(v))
	}

	fmt.Fprintf(w, "[%s] %s (#%d)\n", formatSeverity(v.Severity), colorBold(v.Title), v.ID)
	fmt.Fprintf(w, "Status      : %s\n", formatStatusWithColor(dash(v.Status)))
	if v.CVSSScore != nil {
		fmt.Fprintf(w, "CVSS        : %s\n", cvss(v.CVSSScore))
	}
	if v.OrganizationName != "" {
		fmt.Fprintf(w, "Organization: %s (#%d)\n", v.OrganizationName, v.OrganizationID)
	}
	if v.AffectedComponents != "" {
		fmt.Fprintf(w, "Affects     : %s\n", v.AffectedComponents)
	}
	if v.Description != "" {
		fmt.Fprintf(w, "Description : %s\n", v.Description)
	}
	if v.RemediationPlan != "" {
		fmt.Fprintf(w, "Remediation : %s\n", v.RemediationPlan)
	}
	return nil
}

func renderTestRun(w io.Writer, run *assessment.TestRun, format outputFormat) error {
	if format != outputTable {
		return writeStructured(w, format, api.ToTestCaseDetailView(&run.TestCase, run.Vulnerabilities))
	}
	if run.Found() {
		fmt.Fprintln(w, colorWarn(fmt.Sprintf("⚠ %d vulnerabilities found!", len(run.Vulnerabilities))))
	} else {
		fmt.Fprintln(w, colorSuccess("✓ No vulnerabilities found!"))
	}
	return renderTestCaseDetail(w, &run.TestCase, run.Vulnerabilities, format)
}

func renderResult(w io.Writer, r *assessment.Result, format outputFormat) error {
	if format != outputTable {
		return writeStructured(w, format, api.ToResultView(r))
	}

	fmt.Fprintf(w, "Assessment %s (%s)\n", colorBold(dash(r.ID())), r.Type().Label())
	if !r.Timestamp().IsZero() {
		fmt.Fprintf(w, "Completed : %s\n", r.Timestamp().Format(timestampLayout))
	}
	fmt.Fprintf(w, "Test cases: %d\n", r.TestCasesCount())
	fmt.Fprintln(w, formatOutcome(r))

	vulns := r.Vulnerabilities()
	if len(vulns) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for i, v := range vulns {
		fmt.Fprintf(w, "%d. [%s] %s", i+1, formatSeverity(v.Severity), v.Title)
		if v.CVSSScore != nil {
			fmt.Fprintf(w, " (CVSS %s)", cvss(v.CVSSScore))
		}
		fmt.Fprintln(w)
		if v.Description != "" {
			fmt.Fprintf(w, "   %s\n", v.Description)
		}
		if v.RemediationPlan != "" {
			fmt.Fprintf(w, "   Remediation: %s\n", v.RemediationPlan)
		}
	}
	return nil
}

func cvss(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
