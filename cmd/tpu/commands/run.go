package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/ixgest"
	"github.com/teranos/tpu/logger"
)

// RunCmd processes the watch folder once
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every file in the watch folder once",
	Long: `Run one batch: every regular file directly in resource.watchfolder is
uploaded to the d:swarm engine, transformed with the prototype project and
written to results.folder as RDF.

Files fail independently. The command exits 0 once the batch completes, even
when some files failed; it fails only when the batch cannot start.

Examples:
  tpu run                          # Use tpu.toml from the cascade
  tpu run --config batch.toml -v   # Explicit config, per-file progress
  tpu run --threads 4 --json       # Four workers, JSON logs and report`,
	RunE: runBatchCommand,
}

func init() {
	addBatchFlags(RunCmd)
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("threads", 0, "Number of concurrent workflows (overrides engine.threads)")
	cmd.Flags().Bool("json", false, "JSON logs and report instead of terminal output")
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newCommandLogger(cmd, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer logger.Cleanup(log)

	verbosity, _ := cmd.Flags().GetCount("verbose")
	p, err := newPipeline(cfg, log, verbosity, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer p.Close()

	items, err := ixgest.Scan(cfg.Resource.WatchFolder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := p.orchestrator.Run(ctx, items)
	if cfg.Log.JSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return nil
}

// commandContext returns cmd's context, or Background outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
