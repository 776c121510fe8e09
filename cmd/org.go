package cmd

import (
	"errors"
	"fmt"

	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
	"github.com/spf13/cobra"
)

var orgCmd = &cobra.Command{
	Use:     "org",
	Aliases: []string{"orgs", "organization"},
	Short:   "Browse organizations registered in the backend",
}

var orgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutput(cmd)
		if err != nil {
			return err
		}
		svc, err := getAppContext(cmd).services(cmd.Context())
		if err != nil {
			return err
		}

		orgs, err := svc.CatalogService.ListOrganizations(cmd.Context())
		if err != nil {
			return err
		}
		return renderOrganizations(cmd.OutOrStdout(), orgs, format)
	},
}

var orgViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View a single organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetInt64("id")
		if id <= 0 {
			return fmt.Errorf("--id is required")
		}
		format, err := resolveOutput(cmd)
		if err != nil {
			return err
		}
		svc, err := getAppContext(cmd).services(cmd.Context())
		if err != nil {
			return err
		}

		org, err := svc.CatalogService.GetOrganization(cmd.Context(), id)
		if err != nil {
			if errors.Is(err, sharedErrors.ErrOrganizationNotFound) {
				return &OrganizationNotFoundError{ID: id}
			}
			return err
		}
		return renderOrganization(cmd.OutOrStdout(), org, format)
	},
}

func init() {
	orgViewCmd.Flags().Int64("id", 0, "organization id")
	addOutputFlag(orgListCmd)
	addOutputFlag(orgViewCmd)

	orgCmd.AddCommand(orgListCmd, orgViewCmd)
	rootCmd.AddCommand(orgCmd)
}
