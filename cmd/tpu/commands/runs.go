package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/tpu/am"
	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/ledger"
	"github.com/teranos/tpu/workflow"
)

// RunsCmd lists batches recorded in the run ledger
var RunsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded batch runs",
	Long: `List the batches recorded in the run ledger (ledger.path), newest first.
With a run id, list that run's per-file results in completion order.

Examples:
  tpu runs                 # Last 20 runs
  tpu runs --limit 5       # Last 5 runs
  tpu runs 3f2a...         # Results of one run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRunsCommand,
}

func init() {
	RunsCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	RunsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRunsCommand(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := am.Load(path)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if cfg.Ledger.Path == "" {
		return errors.WithHint(errors.New("run ledger is disabled"), "set ledger.path")
	}

	store, err := ledger.Open(cfg.Ledger.Path, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	ctx := commandContext(cmd)

	if len(args) == 1 {
		results, err := store.Results(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, results)
		}
		printResults(out, results)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, runs)
	}
	printRuns(out, runs)
	return nil
}

func printRuns(out io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		pterm.Fprintln(out, "No runs recorded")
		return
	}
	for _, r := range runs {
		status := "running"
		if r.Finished != nil {
			status = r.Finished.Sub(r.Started).Round(time.Millisecond).String()
		}
		pterm.Fprintln(out, fmt.Sprintf("%s  %s  %s  files=%d workers=%d %s %s %s  (%s)",
			pterm.LightCyan(r.ID), r.Started.Local().Format("2006-01-02 15:04:05"), r.Service,
			r.Files, r.Workers,
			pterm.Green(fmt.Sprintf("ok=%d", r.Succeeded)),
			fmt.Sprintf("skipped=%d", r.Skipped),
			pterm.Red(fmt.Sprintf("failed=%d", r.Failed)),
			status))
	}
}

func printResults(out io.Writer, results []workflow.Result) {
	if len(results) == 0 {
		pterm.Fprintln(out, "No results recorded")
		return
	}
	for _, res := range results {
		pterm.Fprintln(out, fmt.Sprintf("%4d  %-8s %s", res.Seq, res.Outcome, res.Message))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode output")
}
