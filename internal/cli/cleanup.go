package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/config"
	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/executor"
	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/gcloud"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete projects created by earlier runs",
	Long: `Delete all active projects whose id starts with the given prefix.

Deletions run through the same bounded worker pool and retry policy as
provisioning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		prefix, _ := cmd.Flags().GetString("prefix")
		if prefix == "" {
			return fmt.Errorf("--prefix is required")
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		log := newLogger(cfg)
		client := gcloud.NewClient(cfg.GcloudBin)

		ids, err := client.ListProjects(prefix)
		if err != nil {
			color.Red("✗ Failed to list projects: %v", err)
			return err
		}
		if len(ids) == 0 {
			color.Green("✓ No projects match prefix %q, nothing to delete", prefix)
			return nil
		}

		if dryRun {
			color.Cyan("Would delete %d projects:", len(ids))
			for _, id := range ids {
				fmt.Println("  " + id)
			}
			return nil
		}

		color.Yellow("⚠ Deleting %d projects with prefix %q...", len(ids), prefix)

		ctx, stop := signalContext()
		defer stop()

		items := make([]executor.Item, 0, len(ids))
		for _, id := range ids {
			items = append(items, executor.Item(id))
		}

		retry := executor.NewRetryPolicy(cfg.RetryAttempts, cfg.BackoffBase, cfg.BackoffJitter, log)
		runner := executor.NewTaskRunner(cfg.Concurrency, cfg.HeartbeatInterval, retry, log)

		res := runner.Run(ctx, "delete-projects", items, func(_ context.Context, item executor.Item) (string, error) {
			return "", client.DeleteProject(string(item))
		})

		if res.FailureCount > 0 {
			color.Red("✗ Deleted %d of %d projects (%d failed)", res.SuccessCount, len(items), res.FailureCount)
			return fmt.Errorf("cleanup incomplete: %d projects not deleted", res.FailureCount)
		}
		color.Green("✓ Deleted %d projects in %s", res.SuccessCount, res.Duration.Round(roundTo))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().String("prefix", "", "Project id prefix to delete (required)")
	cleanupCmd.Flags().Bool("dry-run", false, "List matching projects without deleting")
}
