package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/config"
	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/gcloud"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check the local environment before a run",
	Long:  `Verify that gcloud is installed, an account is authenticated, and projects are listable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client := gcloud.NewClient(cfg.GcloudBin)
		result := client.Preflight()

		// Print checks
		color.Cyan("Check            Status")
		color.Cyan("────────────────────────────────")

		printCheck("gcloud binary", result.Binary)
		printCheck("authentication", result.Auth)
		printCheck("project access", result.ProjectAccess)

		if result.ActiveAccount != "" {
			color.Cyan("\nActive account: %s", result.ActiveAccount)
		}

		if !result.Ready() {
			color.Red("\n✗ Environment not ready for provisioning")
			return fmt.Errorf("preflight failed")
		}
		color.Green("\n✓ Ready to provision")
		return nil
	},
}

func printCheck(name string, status gcloud.CheckStatus) {
	var statusText string
	switch status {
	case gcloud.CheckOK:
		statusText = color.GreenString("✓ OK")
	case gcloud.CheckFailed:
		statusText = color.RedString("✗ FAILED")
	default:
		statusText = color.YellowString("⚠ SKIPPED")
	}

	color.New().Printf("%-16s %s\n", name, statusText)
}
