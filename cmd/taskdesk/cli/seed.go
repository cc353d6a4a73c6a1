package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdesk/taskdesk/internal/bootstrap"
	"github.com/taskdesk/taskdesk/internal/platform/db"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/users"
)

func newSeedCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the permission catalog, predefined roles and the admin identity",
		Long: `Seed is safe to run repeatedly: every permission, role and the admin
identity is looked up before it is created.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN, cfg.PoolOptions("cli"))
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return err
			}

			seeder := bootstrap.NewSeeder(
				roles.NewService(roles.NewRepository(pool)),
				users.NewRepository(pool),
				pool, cfg.AdminConfig(), logger, nil,
			)
			report, err := seeder.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(cmd, report, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, report bootstrap.Report, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err := fmt.Fprintf(out, "permissions created: %d\nroles created: %d\nadmin created: %t\nfailures: %d\n",
		report.PermissionsCreated, report.RolesCreated, report.AdminCreated, report.Failures)
	return err
}
