package batch

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/teranos/tpu/logger"
	"github.com/teranos/tpu/pulse"
	"github.com/teranos/tpu/workflow"
)

// ProgressEmitter extends pulse.ProgressEmitter with per-file results
//
// Implementations include:
// - CLIEmitter: terminal output using pterm
// - LogEmitter: structured log lines
// - NopEmitter: discards everything
type ProgressEmitter interface {
	pulse.ProgressEmitter

	// EmitResult announces the outcome of one file
	EmitResult(res workflow.Result)
}

// CLIEmitter outputs progress to terminal using pterm
type CLIEmitter struct {
	verbosity int
	out       io.Writer
}

// NewCLIEmitter creates a CLI progress emitter. out nil = stdout.
func NewCLIEmitter(verbosity int, out io.Writer) *CLIEmitter {
	if out == nil {
		out = os.Stdout
	}
	return &CLIEmitter{verbosity: verbosity, out: out}
}

// EmitStage prints a stage announcement
func (e *CLIEmitter) EmitStage(stage string, message string) {
	pterm.Fprintln(e.out, fmt.Sprintf("%s: %s", pterm.LightCyan(stage), message))
}

// EmitProgress prints the number of finished files at -v and above
func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	if e.verbosity < 1 {
		return
	}
	if total, ok := metadata["total"].(int); ok {
		pterm.Fprintln(e.out, fmt.Sprintf("  %s/%d done", pterm.Green(count), total))
		return
	}
	pterm.Fprintln(e.out, fmt.Sprintf("  %s done", pterm.Green(count)))
}

// EmitResult prints one line per file
func (e *CLIEmitter) EmitResult(res workflow.Result) {
	switch res.Outcome {
	case workflow.OutcomeSuccess:
		pterm.Success.WithWriter(e.out).Println(res.Message)
	case workflow.OutcomeSkipped:
		pterm.Info.WithWriter(e.out).Println(res.Message)
	default:
		pterm.Error.WithWriter(e.out).Println(res.Message)
	}
}

// EmitComplete prints the summary, sorted by key
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	pterm.Fprintln(e.out, fmt.Sprintf("d:swarm tasks executed. (Processing time: %v)", summary["elapsed"]))
	if e.verbosity < 1 {
		return
	}
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pterm.Fprintln(e.out, fmt.Sprintf("  %s: %v", k, summary[k]))
	}
}

// EmitError prints an error
func (e *CLIEmitter) EmitError(stage string, err error) {
	pterm.Error.WithWriter(e.out).Printf("Error in %s: %v\n", stage, err)
}

// EmitInfo prints informational message at -v and above
func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity >= 1 {
		pterm.Info.WithWriter(e.out).Println(message)
	}
}

// LogEmitter writes progress as structured log entries
type LogEmitter struct {
	logger *zap.SugaredLogger
}

// NewLogEmitter creates a log-backed emitter
func NewLogEmitter(log *zap.SugaredLogger) *LogEmitter {
	return &LogEmitter{logger: logger.OrNop(log).Named("progress")}
}

func (e *LogEmitter) EmitStage(stage string, message string) {
	e.logger.Infow(message, "stage", stage)
}

func (e *LogEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	kv := []interface{}{logger.FieldCount, count}
	for k, v := range metadata {
		kv = append(kv, k, v)
	}
	e.logger.Debugw("Batch progress", kv...)
}

func (e *LogEmitter) EmitResult(res workflow.Result) {
	kv := []interface{}{
		logger.FieldSeq, res.Seq,
		logger.FieldFile, res.File,
		logger.FieldOutcome, string(res.Outcome),
		logger.FieldDurationMS, res.Duration.Milliseconds(),
	}
	if res.Failed() {
		e.logger.Errorw(res.Message, append(kv, logger.FieldCategory, res.Category)...)
		return
	}
	e.logger.Infow(res.Message, kv...)
}

func (e *LogEmitter) EmitComplete(summary map[string]interface{}) {
	kv := make([]interface{}, 0, len(summary)*2)
	for k, v := range summary {
		kv = append(kv, k, v)
	}
	e.logger.Infow("Batch complete", kv...)
}

func (e *LogEmitter) EmitError(stage string, err error) {
	e.logger.Errorw("Batch error", "stage", stage, logger.FieldError, err)
}

func (e *LogEmitter) EmitInfo(message string) {
	e.logger.Infow(message)
}

// NopEmitter discards all progress
type NopEmitter struct{}

func (NopEmitter) EmitStage(string, string)                {}
func (NopEmitter) EmitProgress(int, map[string]interface{}) {}
func (NopEmitter) EmitResult(workflow.Result)               {}
func (NopEmitter) EmitComplete(map[string]interface{})      {}
func (NopEmitter) EmitError(string, error)                  {}
func (NopEmitter) EmitInfo(string)                          {}
