package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/config"
	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/executor"
	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/gcloud"
	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/keyfile"
	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/plan"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a provisioning run",
	Long: `Execute a full provisioning run from a plan file.

The run proceeds in three stages: create projects, enable the requested
services, and issue API keys. Each stage hands only its successful items
to the next; a leading stage with zero successes aborts the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration (Viper resolves behind the scenes)
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		planFile, _ := cmd.Flags().GetString("plan")
		pl, err := plan.Load(planFile)
		if err != nil {
			return err
		}
		if err := pl.Validate(); err != nil {
			color.Red("✗ Invalid plan: %v", err)
			return err
		}

		log := newLogger(cfg)
		client := gcloud.NewClient(cfg.GcloudBin)

		store, err := keyfile.Open(cfg.Output.KeysFile, cfg.Output.JoinedKeysFile, cfg.Output.Separator)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signalContext()
		defer stop()

		items := executor.GenerateItems(pl.Prefix, pl.Count)
		retry := executor.NewRetryPolicy(cfg.RetryAttempts, cfg.BackoffBase, cfg.BackoffJitter, log)
		runner := executor.NewTaskRunner(cfg.Concurrency, cfg.HeartbeatInterval, retry, log)

		stages := []executor.Stage{
			{
				Name: "create-projects",
				Task: createProjectTask(client, pl),
			},
			{
				Name:        "enable-services",
				Task:        enableServicesTask(client, pl),
				SettleAfter: cfg.SettleDelay,
			},
			{
				Name: "create-keys",
				Task: createKeyTask(client, pl, store),
			},
		}

		color.Cyan("Provisioning %d projects (prefix %q)...", pl.Count, pl.Prefix)
		color.Cyan("Concurrency: %d, retry attempts: %d", cfg.Concurrency, cfg.RetryAttempts)

		run := executor.NewPipeline(runner, stages, log).Run(ctx, items)
		printRunReport(run, store.Count(), cfg)

		if run.Aborted {
			return fmt.Errorf("provisioning aborted: a stage produced no successes")
		}
		return nil
	},
}

func init() {
	// Define flags
	runCmd.Flags().String("plan", "./plan.yaml", "Run plan file (YAML or JSON)")
	runCmd.Flags().Int("concurrency", 0, "Max simultaneous operations per stage")
	runCmd.Flags().Int("retries", 0, "Max attempts per operation")

	// Bind flags to viper
	viper.BindPFlag("concurrency", runCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("retry-attempts", runCmd.Flags().Lookup("retries"))
}

// createProjectTask creates the project and links billing when the plan
// names a billing account. An id that already exists was created by an
// earlier retried attempt of this run and counts as success.
func createProjectTask(client *gcloud.Client, pl *plan.Plan) executor.Task {
	return func(_ context.Context, item executor.Item) (string, error) {
		err := client.CreateProject(string(item), pl.DisplayName)
		if errors.Is(err, gcloud.ErrAlreadyExists) {
			err = nil
		}
		if err != nil {
			return "", err
		}
		if pl.BillingAccount != "" {
			if err := client.LinkBilling(string(item), pl.BillingAccount); err != nil {
				return "", err
			}
		}
		return "", nil
	}
}

func enableServicesTask(client *gcloud.Client, pl *plan.Plan) executor.Task {
	return func(_ context.Context, item executor.Item) (string, error) {
		for _, svc := range pl.Services {
			if err := client.EnableService(string(item), svc); err != nil {
				return "", err
			}
		}
		return "", nil
	}
}

// createKeyTask issues the key and appends the extracted key string to the
// shared output files before reporting success, so a recorded success always
// has its key persisted.
func createKeyTask(client *gcloud.Client, pl *plan.Plan, store *keyfile.Store) executor.Task {
	return func(_ context.Context, item executor.Item) (string, error) {
		displayName := pl.DisplayName
		if displayName == "" {
			displayName = pl.Prefix
		}
		key, err := client.CreateAPIKey(string(item), displayName)
		if err != nil {
			return "", err
		}
		if err := store.Append(key); err != nil {
			return "", executor.Permanent(err)
		}
		return key, nil
	}
}

// roundTo keeps durations readable in report rows.
const roundTo = 100 * time.Millisecond

func printRunReport(run *executor.PipelineRun, keys int, cfg *config.Config) {
	color.Cyan("\nStage             Planned  Succeeded  Failed  Duration")
	color.Cyan("──────────────────────────────────────────────────────────")

	planned := run.Planned
	for _, st := range run.Stages {
		printStageRow(st, planned)
		planned = st.SuccessCount
	}

	if run.Aborted {
		color.Red("\n✗ Run aborted after %s", run.Duration.Round(roundTo))
		return
	}

	final := run.Stages[len(run.Stages)-1]
	if final.FailureCount > 0 {
		color.Yellow("\n⚠ Run completed with failures in %s", run.Duration.Round(roundTo))
	} else {
		color.Green("\n✓ Run completed in %s", run.Duration.Round(roundTo))
	}
	color.Cyan("Keys written: %d → %s (joined: %s)", keys, cfg.Output.KeysFile, cfg.Output.JoinedKeysFile)
}

func printStageRow(st executor.StageResult, planned int) {
	succeeded := color.GreenString("%9d", st.SuccessCount)
	failed := color.GreenString("%6d", st.FailureCount)
	if st.FailureCount > 0 {
		failed = color.RedString("%6d", st.FailureCount)
	}
	color.New().Printf("%-17s %7d  %s  %s  %s\n",
		st.Name, planned, succeeded, failed, st.Duration.Round(roundTo))
}
