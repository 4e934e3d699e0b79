// Package batch runs one workflow per input file on a fixed-size worker
// pool and aggregates the per-file results into a Report.
//
// Every input file yields exactly one Result, whether its workflow
// succeeded, failed or never started because the batch was canceled.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/ixgest"
	"github.com/teranos/tpu/logger"
	"github.com/teranos/tpu/workflow"
)

// Runner processes one work item. *workflow.Workflow is the production Runner.
type Runner interface {
	Run(ctx context.Context, item ixgest.WorkItem) workflow.Result
}

// Recorder persists runs and results. Recorder errors are logged and never
// affect the batch.
type Recorder interface {
	BeginRun(ctx context.Context, runID, service string, workers, files int, started time.Time) error
	RecordResult(ctx context.Context, runID string, res workflow.Result) error
	FinishRun(ctx context.Context, runID string, finished time.Time, succeeded, skipped, failed int) error
}

// Config configures an Orchestrator
type Config struct {
	// Workers is the pool size K, values below 1 mean 1
	Workers int
	// Service names the run in the ledger
	Service string
	// Emitter receives progress, nil = NopEmitter
	Emitter ProgressEmitter
	// Recorder stores the run, nil = not recorded
	Recorder Recorder
	Logger   *zap.SugaredLogger
	// NewRunID generates run identifiers (nil = uuid.NewString)
	NewRunID func() string
}

// Orchestrator runs batches of work items
type Orchestrator struct {
	runner   Runner
	workers  int
	service  string
	emitter  ProgressEmitter
	recorder Recorder
	logger   *zap.SugaredLogger
	newRunID func() string
}

// New creates an Orchestrator
func New(runner Runner, cfg Config) *Orchestrator {
	o := &Orchestrator{
		runner:   runner,
		workers:  max(cfg.Workers, 1),
		service:  cfg.Service,
		emitter:  cfg.Emitter,
		recorder: cfg.Recorder,
		logger:   logger.OrNop(cfg.Logger).Named("pulse"),
		newRunID: cfg.NewRunID,
	}
	if o.emitter == nil {
		o.emitter = NopEmitter{}
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	return o
}

// Workers returns the pool size
func (o *Orchestrator) Workers() int {
	return o.workers
}

// Run processes items with at most Workers concurrent workflows and returns
// after every item has a result. Canceling ctx stops dequeuing; items not yet
// started are reported as failed with the context's category.
func (o *Orchestrator) Run(ctx context.Context, items []ixgest.WorkItem) *Report {
	report := &Report{RunID: o.newRunID(), Started: time.Now()}
	ctx = logger.WithRunID(ctx, report.RunID)
	log := logger.FromContext(ctx, o.logger)

	workers := min(o.workers, max(len(items), 1))
	o.emitter.EmitStage("batch", pluralFiles(len(items), workers))
	log.Infow("Batch started", logger.FieldCount, len(items), logger.FieldWorker, workers)
	o.record(log, "begin run", func(rctx context.Context) error {
		return o.recorder.BeginRun(rctx, report.RunID, o.service, workers, len(items), report.Started)
	})

	jobs := make(chan ixgest.WorkItem)
	results := make(chan workflow.Result, len(items))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go o.worker(ctx, i, jobs, results, &wg)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- item:
			case <-ctx.Done():
				for _, rest := range items[i:] {
					results <- notStarted(rest, ctx.Err())
				}
				log.Warnw("Batch canceled", "not_started", len(items)-i)
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		report.add(res)
		o.emitter.EmitResult(res)
		o.emitter.EmitProgress(report.Total(), map[string]interface{}{"total": len(items)})
		o.record(log, "record result", func(rctx context.Context) error {
			return o.recorder.RecordResult(rctx, report.RunID, res)
		})
	}

	report.Elapsed = time.Since(report.Started)
	o.record(log, "finish run", func(rctx context.Context) error {
		return o.recorder.FinishRun(rctx, report.RunID, report.Started.Add(report.Elapsed), report.Succeeded, report.Skipped, report.Failed)
	})
	o.emitter.EmitComplete(report.Summary())
	log.Infow("Batch finished",
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		logger.FieldDurationMS, report.Elapsed.Milliseconds())
	return report
}

func (o *Orchestrator) worker(ctx context.Context, id int, jobs <-chan ixgest.WorkItem, results chan<- workflow.Result, wg *sync.WaitGroup) {
	defer wg.Done()
	for item := range jobs {
		o.logger.Debugw("Worker picked up file", logger.FieldWorker, id, logger.FieldSeq, item.Seq, logger.FieldFile, item.Name())
		results <- o.runner.Run(ctx, item)
	}
}

// record calls a Recorder method outside the batch's cancellation
func (o *Orchestrator) record(log *zap.SugaredLogger, operation string, fn func(ctx context.Context) error) {
	if o.recorder == nil {
		return
	}
	if err := fn(context.Background()); err != nil {
		log.Warnw("Ledger write failed", logger.FieldOperation, operation, logger.FieldError, err)
	}
}

// notStarted is the result of an item dequeued after cancellation
func notStarted(item ixgest.WorkItem, cause error) workflow.Result {
	err := errors.Wrap(cause, "batch stopped before the file was processed")
	category := errors.Category(err)
	return workflow.Result{
		File:     item.Name(),
		Seq:      item.Seq,
		Outcome:  workflow.OutcomeFailed,
		Message:  workflow.FailureMessage(item.Name(), category),
		Category: category,
		Err:      err,
	}
}

func pluralFiles(files, workers int) string {
	noun := "files"
	if files == 1 {
		noun = "file"
	}
	return fmt.Sprintf("Processing %d %s with %d workers", files, noun, workers)
}
