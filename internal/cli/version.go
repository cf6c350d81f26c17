package cli

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gcp-bulk version %s\n", cmd.Root().Version)

		if out, err := exec.Command(viper.GetString("gcloud-bin"), "version", "--format=value(\"Google Cloud SDK\")").Output(); err == nil {
			fmt.Printf("gcloud SDK %s\n", strings.TrimSpace(string(out)))
		}
	},
}
