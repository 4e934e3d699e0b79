// Package commands implements the tpu command line.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the tpu command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tpu",
		Short: "tpu - batch processor for the d:swarm engine",
		Long: `tpu - task processing unit for the d:swarm data management platform.

tpu uploads every file of a watch folder into a prototype resource, runs the
prototype project's mappings as a task and writes the transformed records as
RDF, with a bounded number of files in flight.

Available commands:
  run      - Process the watch folder once
  watch    - Process the watch folder and every file that arrives later
  runs     - List batches recorded in the run ledger
  am       - Show and validate configuration ("I am")
  version  - Show version information

Examples:
  tpu am validate          # Check tpu.toml before a run
  tpu run -v               # One batch with per-file progress
  tpu watch --threads 4    # Keep processing new files`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: tpu.toml cascade)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(RunCmd)
	rootCmd.AddCommand(WatchCmd)
	rootCmd.AddCommand(RunsCmd)
	rootCmd.AddCommand(AmCmd)
	rootCmd.AddCommand(VersionCmd)
	return rootCmd
}
