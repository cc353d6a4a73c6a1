package cli

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/taskdesk/taskdesk/jobs"
)

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	cmd.AddCommand(newJobsStatsCommand(), newJobsPruneCommand())
	return cmd
}

func newJobsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show default queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadRuntime()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer inspector.Close()
			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				if errors.Is(err, asynq.ErrQueueNotFound) {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue %s is empty\n", jobs.QueueDefault)
					return err
				}
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s size=%d pending=%d active=%d retry=%d archived=%d processed=%d failed=%d\n",
				info.Queue, info.Size, info.Pending, info.Active, info.Retry, info.Archived, info.Processed, info.Failed)
			return err
		},
	}
}

func newJobsPruneCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Enqueue an audit log prune",
		RunE: func(cmd *cobra.Command, _ []string) error {
			task, err := jobs.NewAuditPruneTask(days)
			if err != nil {
				return err
			}
			cfg, _, err := loadRuntime()
			if err != nil {
				return err
			}
			client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer client.Close()
			info, err := client.EnqueueContext(cmd.Context(), task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s)\n", info.Type, info.ID)
			return err
		},
	}
	cmd.Flags().IntVar(&days, "days", 180, "delete audit records older than this many days")
	return cmd
}
