// Package cli implements the gcp-bulk command tree.
package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "gcp-bulk",
	Short: "Bulk-provision GCP projects, services, and API keys",
	Long: `gcp-bulk provisions GCP resources in bulk: it generates project ids,
creates the projects, enables the requested services, and issues one API
key per project, running every stage with bounded concurrency and
per-item retries.

Extracted key strings are appended to two output files as they arrive.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().IntP("verbosity", "v", 0, "Diagnostic log verbosity (0=quiet)")
	viper.BindPFlag("verbosity", rootCmd.PersistentFlags().Lookup("verbosity"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(preflightCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the diagnostic logger handed to the executor. User-facing
// progress goes through color prints; this logger carries attempt-level
// detail to stderr.
func newLogger(cfg *config.Config) logr.Logger {
	stdr.SetVerbosity(cfg.Verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. Workers
// stop spawning on cancellation; in-flight attempts finish first.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
