package cmd

import (
	"fmt"
	"os"
	"runtime"

	authapp "github.com/shieldsec/shield-cli/internal/application/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration, session and data directory information",
	Long: `Display SHIELD CLI configuration information including:
  - Data directory and session file
  - Configuration file path
  - Backend URL and timeouts
  - Current operator`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		out := cmd.OutOrStdout()

		configPath := viper.ConfigFileUsed()
		configExists := "✓ (loaded)"
		if configPath == "" {
			configPath = configFilePath()
			configExists = "✗ (using defaults)"
		}

		sessionPath := "-"
		sessionStatus := "✗ (not logged in)"
		if svc, err := appCtx.services(cmd.Context()); err != nil {
			sessionStatus = fmt.Sprintf("✗ (%v)", err)
		} else {
			sessionPath = svc.SessionRepo.Path()
			sess, err := svc.AuthService.Current(cmd.Context())
			switch {
			case err != nil:
				sessionStatus = colorError("✗ (unreadable)")
			case sess != nil && authapp.IsDemoToken(sess.Token()):
				sessionStatus = "✓ (demo token)"
			case sess != nil:
				sessionStatus = "✓ (logged in)"
			}
		}

		fmt.Fprintln(out, "SHIELD CLI System Information")
		fmt.Fprintln(out, "=============================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Operator:          %s\n", displayOperator(appCtx.Operator))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Backend:")
		fmt.Fprintf(out, "  API URL:            %s\n", appCtx.Config.API.BaseURL)
		fmt.Fprintf(out, "  Request Timeout:    %s\n", appCtx.Config.apiTimeout())
		fmt.Fprintf(out, "  Submit Timeout:     %s\n", appCtx.Config.submitTimeout())
		fmt.Fprintf(out, "  Assessment Type:    %s\n", appCtx.Config.Defaults.AssessmentType)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", appCtx.DataDir)
		fmt.Fprintf(out, "  Session File:       %s %s\n", sessionPath, sessionStatus)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configPath, configExists)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "To override the data directory set %s or add to the config file:\n", dataDirEnvVar)
		fmt.Fprintln(out, "  data_dir: /custom/path")

		if _, err := os.Stat(appCtx.DataDir); err != nil {
			fmt.Fprintln(out, colorWarn("Warning:"), "data directory is not accessible:", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
