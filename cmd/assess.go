package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shieldsec/shield-cli/internal/application/workflow"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
	"github.com/spf13/cobra"
)

// assessOptions describes one non-interactive run.
type assessOptions struct {
	OrgID        int64
	Add          []string
	Remove       []string
	Type         string
	Format       outputFormat
	ShowProgress bool
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run AI-agent security assessments",
}

var assessRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Configure and run one assessment, then print the result",
	Long: `Load the organizations, apply the tech stack edits and submit a single
assessment. Without --org the first organization is used. The stored tech
stack is the starting point; --remove-tech runs before --add-tech.`,
	Example: `  shield assess run --org 1 --add-tech Django --type pentest
  shield assess run --org 2 --remove-tech jQuery -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		format, err := resolveOutput(cmd)
		if err != nil {
			return err
		}
		opts := assessOptions{Format: format}
		opts.OrgID, _ = cmd.Flags().GetInt64("org")
		opts.Add, _ = cmd.Flags().GetStringArray("add-tech")
		opts.Remove, _ = cmd.Flags().GetStringArray("remove-tech")
		opts.Type = appCtx.Config.Defaults.AssessmentType
		opts.ShowProgress, _ = cmd.Flags().GetBool("progress")
		if format != outputTable {
			opts.ShowProgress = false
		}

		svc, err := appCtx.services(cmd.Context())
		if err != nil {
			return err
		}
		ctrl, err := svc.NewWorkflow(nil)
		if err != nil {
			return err
		}
		_, err = runAssessment(cmd.Context(), ctrl, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return err
	},
}

// runAssessment drives ctrl through load, select, edit and submit. Notices
// and warnings go to errOut; the rendered result goes to out.
func runAssessment(ctx context.Context, ctrl *workflow.Controller, opts assessOptions, out, errOut io.Writer) (*assessment.Result, error) {
	if err := ctrl.LoadOrganizations(ctx); err != nil {
		return nil, errors.New(ctrl.Snapshot().Error)
	}

	if opts.OrgID != 0 {
		if err := ctrl.SelectOrganization(opts.OrgID); err != nil {
			if errors.Is(err, sharedErrors.ErrOrganizationNotFound) {
				return nil, &OrganizationNotFoundError{ID: opts.OrgID}
			}
			return nil, err
		}
		// listing failures only affect the banner, not the run
		_ = ctrl.RefreshListings(ctx)
	}

	snap := ctrl.Snapshot()
	if snap.Selected == nil {
		return nil, errors.New("no organizations available")
	}
	if snap.Notice != "" {
		fmt.Fprintln(errOut, colorWarn("Warning:"), snap.Notice)
	}

	var missing []string
	for _, label := range opts.Remove {
		if !ctrl.RemoveTechnology(label) {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintln(errOut, colorWarn("Warning:"), (&TechStackEditError{Op: "remove", Labels: missing}).Error())
	}

	var duplicates []string
	for _, label := range opts.Add {
		err := ctrl.AddTechnology(label)
		switch {
		case err == nil:
		case errors.Is(err, sharedErrors.ErrDuplicateTechnology):
			duplicates = append(duplicates, label)
		default:
			return nil, fmt.Errorf("invalid technology %q: %w", label, err)
		}
	}
	if len(duplicates) > 0 {
		fmt.Fprintln(errOut, colorWarn("Warning:"), (&TechStackEditError{Op: "add duplicates", Labels: duplicates}).Error())
	}

	if opts.Type != "" {
		t, err := assessment.ParseType(opts.Type)
		if err != nil {
			return nil, err
		}
		if err := ctrl.SetAssessmentType(t); err != nil {
			return nil, err
		}
	}

	snap = ctrl.Snapshot()
	if opts.Format == outputTable {
		fmt.Fprintf(errOut, "%s %s (#%d): %s [%s]\n", colorInfo("Assessing"), snap.Selected.Name(),
			snap.SelectedID(), snap.AssessmentType.Label(), stackLine(snap.TechStack))
	}

	var spinner *progressPrinter
	if opts.ShowProgress {
		spinner = newProgressPrinter(errOut, "Running "+snap.AssessmentType.Label())
		spinner.Start()
	}
	result, err := ctrl.RunAssessment(ctx)
	var elapsed time.Duration
	if spinner != nil {
		elapsed = spinner.Stop()
	}

	if err != nil {
		after := ctrl.Snapshot()
		switch {
		case after.Validation != "":
			return nil, fmt.Errorf("%s: %w", after.Validation, sharedErrors.ErrValidation)
		case after.Error != "":
			return nil, &AssessmentFailedError{Message: after.Error, Err: err}
		}
		return nil, &AssessmentFailedError{Err: err}
	}

	if spinner != nil {
		fmt.Fprintf(errOut, "%s in %s\n", colorSuccess("Completed"), elapsed.Truncate(time.Millisecond))
	}
	if err := renderResult(out, result, opts.Format); err != nil {
		return result, err
	}
	return result, nil
}

func stackLine(labels []string) string {
	if len(labels) == 0 {
		return "empty stack"
	}
	return fmt.Sprintf("%d technologies", len(labels))
}

func init() {
	assessRunCmd.Flags().Int64("org", 0, "organization id (default: first organization)")
	assessRunCmd.Flags().StringArray("add-tech", nil, "technology to add to the stack (repeatable)")
	assessRunCmd.Flags().StringArray("remove-tech", nil, "technology to remove from the stack (repeatable)")
	assessRunCmd.Flags().StringVar(&cliConfig.Defaults.AssessmentType, "type", cliConfig.Defaults.AssessmentType, "assessment type (vuln_scan, pentest, threat_hunt)")
	assessRunCmd.Flags().IntVar(&cliConfig.Defaults.SubmitTimeoutSecs, "submit-timeout", cliConfig.Defaults.SubmitTimeoutSecs, "seconds to wait for the backend to finish the assessment")
	assessRunCmd.Flags().Bool("progress", true, "show a spinner while the assessment runs")
	addOutputFlag(assessRunCmd)

	assessCmd.AddCommand(assessRunCmd)
	rootCmd.AddCommand(assessCmd)
}
