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

// WatchCmd processes the watch folder and then every file that arrives in it
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process the watch folder, then keep processing new files",
	Long: `Run one batch over resource.watchfolder, then watch the folder and run a
new batch for the files created or written since the previous one. Events are
debounced so a copy of many files becomes one batch. Sequence numbers keep
increasing across batches, so output file names never collide.

Stop with Ctrl+C. Workflows in flight are canceled and reported.`,
	RunE: runWatchCommand,
}

func init() {
	addBatchFlags(WatchCmd)
	WatchCmd.Flags().Duration("debounce", ixgest.DefaultDebounce, "Quiet period before new files are processed")
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
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

	debounce, _ := cmd.Flags().GetDuration("debounce")
	// Watch before the first scan so files arriving during it are not missed
	watcher, err := ixgest.NewWatcher(cfg.Resource.WatchFolder, debounce, log)
	if err != nil {
		return errors.WithHint(err, "check resource.watchfolder")
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchBatches(ctx, p, watcher)
}

// watchBatches runs the initial batch and then one batch per watcher release
// until ctx is done.
func watchBatches(ctx context.Context, p *pipeline, watcher *ixgest.Watcher) error {
	items, err := ixgest.Scan(p.cfg.Resource.WatchFolder)
	if err != nil {
		return err
	}
	p.orchestrator.Run(ctx, items)
	next := len(items) + 1
	unseen := dropScanned(items)

	p.logger.Infow("Watching for new files", logger.FieldPath, p.cfg.Resource.WatchFolder)
	err = watcher.Run(ctx, func(paths []string) {
		batchItems := ixgest.Items(unseen(paths), next)
		if len(batchItems) == 0 {
			return
		}
		next += len(batchItems)
		p.orchestrator.Run(ctx, batchItems)
	})
	if errors.IsAny(err, context.Canceled, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// dropScanned returns a filter for watcher releases. The first release it
// sees loses the paths of scanned, since the watcher was already running
// during the scan. Later releases pass through.
func dropScanned(scanned []ixgest.WorkItem) func(paths []string) []string {
	done := make(map[string]bool, len(scanned))
	for _, item := range scanned {
		done[item.Path] = true
	}
	return func(paths []string) []string {
		if done == nil {
			return paths
		}
		var kept []string
		for _, path := range paths {
			if !done[path] {
				kept = append(kept, path)
			}
		}
		done = nil
		return kept
	}
}
