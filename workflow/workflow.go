// Package workflow processes one input file against the d:swarm engine:
//
//	ResolveUpdateTarget → Preprocess → Ingest → RefreshDataModel → ExecuteTask → Project
//
// A workflow never returns an error. Every failure becomes a Result with
// Outcome Failed and the error's category, so one bad file cannot stop a batch.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/tpu/am"
	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/ixgest"
	"github.com/teranos/tpu/logger"
	"github.com/teranos/tpu/rdfgraph"
)

// Engine is the part of the engine client a workflow drives
type Engine interface {
	FetchProjectResourceRef(ctx context.Context, dataModelID string) (string, error)
	UpdateResource(ctx context.Context, resourceID, filePath, name, description string) (string, error)
	TriggerDataModelRefresh(ctx context.Context, dataModelID string) (string, error)
	ExecuteTask(ctx context.Context, inputDataModelID, projectID, outputDataModelID string) (json.RawMessage, error)
}

// Preprocessor rewrites an input file before upload
type Preprocessor interface {
	Apply(ctx context.Context, input string) (output string, cleanup func(), err error)
}

// Workflow runs the per-file state machine. One Workflow is shared by all
// workers of a batch. Workflows on the same prototype data model take turns
// from upload to task execution, since they all overwrite one resource.
type Workflow struct {
	engine       Engine
	cfg          *am.Config
	preprocessor Preprocessor
	logger       *zap.SugaredLogger

	mu    sync.Mutex
	turns map[string]chan struct{}
}

// Options configures optional collaborators of a Workflow
type Options struct {
	// Preprocessor is applied to every file before upload, nil = upload as is
	Preprocessor Preprocessor
	Logger       *zap.SugaredLogger
}

// New creates a Workflow
func New(engine Engine, cfg *am.Config, opts Options) *Workflow {
	return &Workflow{
		engine:       engine,
		cfg:          cfg,
		preprocessor: opts.Preprocessor,
		logger:       logger.OrNop(opts.Logger).Named("workflow"),
		turns:        make(map[string]chan struct{}),
	}
}

// acquire waits for exclusive use of the data model's resource. The returned
// func gives it back.
func (w *Workflow) acquire(ctx context.Context, dataModelID string) (func(), error) {
	w.mu.Lock()
	turn, ok := w.turns[dataModelID]
	if !ok {
		turn = make(chan struct{}, 1)
		w.turns[dataModelID] = turn
	}
	w.mu.Unlock()

	select {
	case turn <- struct{}{}:
		return func() { <-turn }, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for data model %s", dataModelID)
	}
}

// Run processes item and reports its outcome. Panics are recovered and
// reported as failures.
func (w *Workflow) Run(ctx context.Context, item ixgest.WorkItem) (res Result) {
	start := time.Now()
	file := item.Name()
	ctx = logger.WithItem(ctx, item.Seq, file)
	log := logger.FromContext(ctx, w.logger)

	if deadline := w.cfg.Engine.Deadline(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res = w.failed(log, file, item.Seq, res.ResourceID, errors.Newf("workflow panicked: %v", r))
		}
		res.Duration = time.Since(start)
		log.Infow("Workflow finished",
			logger.FieldOutcome, string(res.Outcome),
			logger.FieldDurationMS, res.Duration.Milliseconds())
	}()

	res = Result{File: file, Seq: item.Seq}
	r := &run{Workflow: w, item: item, file: file, log: log}
	if err := r.execute(ctx, &res); err != nil {
		if w.cfg.Engine.Deadline() > 0 && ctx.Err() == context.DeadlineExceeded && !errors.IsTimeoutError(err) {
			err = errors.Mark(err, errors.ErrTimeout)
		}
		return w.failed(log, file, item.Seq, res.ResourceID, err)
	}
	return res
}

func (w *Workflow) failed(log *zap.SugaredLogger, file string, seq int, resourceID string, err error) Result {
	category := errors.Category(err)
	log.Errorw("Processing resource failed",
		logger.FieldCategory, category,
		logger.FieldError, err)
	return Result{
		File:       file,
		Seq:        seq,
		Outcome:    OutcomeFailed,
		Message:    FailureMessage(file, category),
		Category:   category,
		ResourceID: resourceID,
		Err:        err,
	}
}

// run holds the state of one file's pass through the workflow
type run struct {
	*Workflow
	item ixgest.WorkItem
	file string
	log  *zap.SugaredLogger
}

func (r *run) execute(ctx context.Context, res *Result) error {
	cfg := r.cfg
	dataModelID := cfg.Prototype.DataModelID

	target, err := r.resolve(ctx)
	if err != nil {
		return err
	}

	uploadPath := r.item.Path
	if target != "" && r.preprocessor != nil {
		path, cleanup, err := r.preprocessor.Apply(ctx, r.item.Path)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return err
		}
		uploadPath = path
	}

	records, err := r.transform(ctx, res, target, uploadPath)
	if err != nil || res.Outcome == OutcomeSkipped {
		return err
	}

	if !cfg.Results.PersistInFolder {
		res.Outcome = OutcomeSuccess
		res.Message = notPersistedMessage(r.file)
		return nil
	}

	if cfg.Results.WriteDMPJSON {
		path := r.outputPath(fmt.Sprintf("%s.%d.json", dataModelID, r.item.Seq))
		if err := writeOutput(path, func(f *os.File) error {
			_, err := f.Write(records)
			return err
		}); err != nil {
			return err
		}
		r.log.Infow("Task output written", logger.FieldPath, path)
	}

	graph, err := rdfgraph.Project(records, cfg.Results.RDF.Graph, r.log)
	if err != nil {
		return err
	}
	res.Outcome = OutcomeSuccess
	if graph.Empty() {
		res.Message = emptyMessage(r.file)
		return nil
	}

	format := rdfgraph.ParseFormat(cfg.Results.RDF.Format)
	path := r.outputPath(fmt.Sprintf("%s.%d.rdf.%s", dataModelID, r.item.Seq, format.Extension()))
	if err := writeOutput(path, func(f *os.File) error {
		return graph.Serialize(f, format)
	}); err != nil {
		return err
	}
	r.log.Infow("Graph written",
		logger.FieldPath, path,
		logger.FieldFormat, string(format),
		logger.FieldStatements, graph.Len())

	res.Output = path
	res.Message = transformedMessage(r.file, path)
	return nil
}

// resolve looks up the prototype resource to overwrite. In permissive mode a
// failed lookup yields an empty target and the update fails on it.
func (r *run) resolve(ctx context.Context) (string, error) {
	dataModelID := r.cfg.Prototype.DataModelID
	target, err := r.engine.FetchProjectResourceRef(ctx, dataModelID)
	if err == nil {
		return target, nil
	}
	if r.cfg.Workflow.ResolveFailureFatal || ctx.Err() != nil {
		return "", err
	}
	r.log.Warnw("Could not resolve update target",
		logger.FieldDataModel, dataModelID,
		logger.FieldCategory, errors.Category(err),
		logger.FieldError, err)
	return "", nil
}

// transform overwrites the target resource with path, refreshes the data
// model and runs the task, holding the data model's turn throughout. With transformation disabled it stops after the
// refresh and marks res Skipped.
func (r *run) transform(ctx context.Context, res *Result, target, path string) (json.RawMessage, error) {
	cfg := r.cfg
	dataModelID := cfg.Prototype.DataModelID
	name := fmt.Sprintf("resource for project '%s", r.file)
	description := fmt.Sprintf("%s' - case %d", cfg.Project.Name, r.item.Seq)

	release, err := r.acquire(ctx, dataModelID)
	if err != nil {
		return nil, err
	}
	defer release()

	resourceID, err := r.engine.UpdateResource(ctx, target, path, name, description)
	if err != nil {
		return nil, err
	}
	res.ResourceID = resourceID

	if _, err := r.engine.TriggerDataModelRefresh(ctx, dataModelID); err != nil {
		return nil, err
	}

	if !cfg.Workflow.Transform {
		res.Outcome = OutcomeSkipped
		res.Message = ingestedMessage(r.file)
		return nil, nil
	}

	records, err := r.engine.ExecuteTask(ctx, dataModelID, cfg.Prototype.ProjectID, cfg.Prototype.OutputDataModelID)
	if err != nil {
		return nil, err
	}
	r.log.Infow("Task executed", logger.FieldProject, cfg.Prototype.ProjectID, "bytes", len(records))
	return records, nil
}

func (r *run) outputPath(name string) string {
	return filepath.Join(r.cfg.Results.Folder, name)
}

// writeOutput creates path, creating its folder if needed, and fills it with write
func writeOutput(path string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), am.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create results folder %s", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, am.DefaultFilePermissions)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return errors.Wrapf(f.Close(), "failed to close %s", path)
}
