// Package cli implements the taskdesk command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taskdesk/taskdesk/internal/app"
)

// NewRootCommand builds the taskdesk command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskdesk",
		Short:         "Task and work-order API with role-based access control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newSeedCommand(), newJobsCommand())
	return root
}

func loadRuntime() (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.NewLogger(cfg), nil
}
