package cmd

import (
	"fmt"

	authapp "github.com/shieldsec/shield-cli/internal/application/auth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the bearer token used for backend requests",
	Long: `Record a session token in the data directory. No credentials are checked:
the backend validates the token on each request. Without --token a demo
token is generated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		svc, err := appCtx.services(cmd.Context())
		if err != nil {
			return err
		}

		sess, err := svc.AuthService.Login(cmd.Context(), appCtx.Config.API.Token, appCtx.Operator)
		if err != nil {
			return err
		}
		appCtx.logger().Info("session stored",
			zap.String("operator", sess.Operator()),
			zap.Bool("demo", authapp.IsDemoToken(sess.Token())),
		)

		out := cmd.OutOrStdout()
		if authapp.IsDemoToken(sess.Token()) {
			fmt.Fprintf(out, "%s as %s with a demo token\n", colorSuccess("Logged in"), displayOperator(sess.Operator()))
		} else {
			fmt.Fprintf(out, "%s as %s\n", colorSuccess("Logged in"), displayOperator(sess.Operator()))
		}
		fmt.Fprintf(out, "Session file: %s\n", svc.SessionRepo.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		svc, err := appCtx.services(cmd.Context())
		if err != nil {
			return err
		}
		if err := svc.AuthService.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), colorSuccess("Logged out"))
		return nil
	},
}

func displayOperator(operator string) string {
	if operator == "" {
		return "anonymous"
	}
	return operator
}

func init() {
	// login stores the persistent --token value (or SHIELD_TOKEN)
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
