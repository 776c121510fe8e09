package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shieldsec/shield-cli/internal/application/workflow"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/spf13/cobra"
)

const tuiHelp = `Commands:
  select <id>        switch organization (discards unsaved stack edits)
  add <technology>   add a technology to the stack
  rm <technology>    remove a technology from the stack
  type <type>        vuln_scan, pentest or threat_hunt
  run                submit the assessment
  view <view>        overview, tests or vulns
  refresh            re-fetch test cases and vulnerabilities
  reload             re-fetch organizations
  dismiss            clear the error banner
  help               show this help
  quit               exit`

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive assessment workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getAppContext(cmd).services(cmd.Context())
		if err != nil {
			return err
		}
		ctrl, err := svc.NewWorkflow(nil)
		if err != nil {
			return err
		}
		return runTUI(cmd.Context(), ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runTUI reads one command per line from in until quit or EOF, printing the
// workflow state after each command.
func runTUI(ctx context.Context, ctrl *workflow.Controller, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "=== SHIELD Assessment ===")
	if err := ctrl.LoadOrganizations(ctx); err != nil {
		fmt.Fprintln(out, "Type `reload` to try again.")
	}
	renderSnapshot(out, ctrl.Snapshot())

	for {
		fmt.Fprint(out, "> ")
		line, readErr := reader.ReadString('\n')
		line = strings.TrimSpace(line)

		if line != "" {
			quit, err := handleTUICommand(ctx, ctrl, line, out)
			if quit {
				return nil
			}
			if err != nil {
				fmt.Fprintln(out, colorError("Error:"), err)
			} else {
				renderSnapshot(out, ctrl.Snapshot())
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("failed to read command: %w", readErr)
		}
	}
}

func handleTUICommand(ctx context.Context, ctrl *workflow.Controller, line string, out io.Writer) (bool, error) {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		fmt.Fprintln(out, tuiHelp)
		return false, nil
	case "s", "select":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid organization id %q", arg)
		}
		if err := ctrl.SelectOrganization(id); err != nil {
			return false, err
		}
		_ = ctrl.RefreshListings(ctx)
		return false, nil
	case "a", "add":
		return false, ctrl.AddTechnology(arg)
	case "rm", "remove":
		if !ctrl.RemoveTechnology(arg) {
			return false, fmt.Errorf("%q is not in the stack", arg)
		}
		return false, nil
	case "t", "type":
		t, err := assessment.ParseType(arg)
		if err != nil {
			return false, err
		}
		return false, ctrl.SetAssessmentType(t)
	case "r", "run":
		label := "Running " + ctrl.Snapshot().AssessmentType.Label()
		spinner := newProgressPrinter(out, label)
		spinner.Start()
		_, err := ctrl.RunAssessment(ctx)
		spinner.Stop()
		// failures are shown through the banner
		if err != nil && ctrl.Snapshot().Error == "" && ctrl.Snapshot().Validation == "" {
			return false, err
		}
		return false, nil
	case "v", "view":
		v, err := workflow.ParseView(arg)
		if err != nil {
			return false, err
		}
		return false, ctrl.ViewResult(v)
	case "refresh":
		return false, ctrl.RefreshListings(ctx)
	case "reload":
		_ = ctrl.LoadOrganizations(ctx)
		return false, nil
	case "d", "dismiss":
		ctrl.DismissError()
		return false, nil
	}
	return false, fmt.Errorf("unknown command %q (type help)", verb)
}

// renderSnapshot prints the full workflow screen.
func renderSnapshot(w io.Writer, snap workflow.Snapshot) {
	fmt.Fprintln(w, "--------------------------------------------------")
	if snap.Error != "" {
		fmt.Fprintln(w, colorError("✗ "+snap.Error))
	}
	if snap.Notice != "" {
		fmt.Fprintln(w, colorWarn("! "+snap.Notice))
	}

	if len(snap.Organizations) == 0 {
		fmt.Fprintln(w, "No organizations loaded.")
		return
	}
	fmt.Fprintln(w, "Organizations:")
	for _, org := range snap.Organizations {
		marker := " "
		if org.ID() == snap.SelectedID() {
			marker = "*"
		}
		fmt.Fprintf(w, " %s [%d] %s\n", marker, org.ID(), org.Name())
	}

	fmt.Fprintf(w, "Tech stack (%d): %s\n", len(snap.TechStack), strings.Join(snap.TechStack, ", "))
	fmt.Fprintf(w, "Type: %s\n", snap.AssessmentType.Label())
	if snap.Validation != "" {
		fmt.Fprintln(w, colorWarn(snap.Validation))
	}
	if snap.Busy {
		fmt.Fprintln(w, colorInfo("Assessment running..."))
	}

	if snap.Result == nil {
		return
	}
	fmt.Fprintf(w, "\nResult [%s]\n", snap.View)
	switch snap.View {
	case workflow.ViewTestCases:
		_ = renderTestCases(w, snap.TestCases, outputTable)
	case workflow.ViewVulnerabilities:
		_ = renderVulnerabilities(w, snap.Result.Vulnerabilities(), outputTable)
	default:
		_ = renderResult(w, snap.Result, outputTable)
	}
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
