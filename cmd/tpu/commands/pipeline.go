package commands

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/tpu/am"
	"github.com/teranos/tpu/dswarm"
	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/internal/httpclient"
	"github.com/teranos/tpu/ixgest"
	"github.com/teranos/tpu/ledger"
	"github.com/teranos/tpu/logger"
	"github.com/teranos/tpu/pulse/batch"
	"github.com/teranos/tpu/version"
	"github.com/teranos/tpu/workflow"
)

// pipeline is everything one invocation of run or watch needs
type pipeline struct {
	cfg          *am.Config
	logger       *zap.SugaredLogger
	orchestrator *batch.Orchestrator
	ledger       *ledger.Store
}

// loadConfig reads the configuration named by --config (or the default
// cascade), applies command line overrides and validates the result.
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := am.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if f := cmd.Flags().Lookup("threads"); f != nil && f.Changed {
		cfg.Engine.Threads, _ = cmd.Flags().GetInt("threads")
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		cfg.Log.JSON = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// newCommandLogger builds the logger for cmd from -v and log.json
func newCommandLogger(cmd *cobra.Command, cfg *am.Config) (*zap.SugaredLogger, error) {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	log, err := logger.New(logger.Options{
		JSON:      cfg.Log.JSON,
		Verbosity: verbosity,
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	log.Debugw("Logger ready", "verbosity", logger.VerbosityName(verbosity), "json", cfg.Log.JSON)
	return log, nil
}

// newPipeline wires the engine client, the workflow and the orchestrator.
// Progress lines go to out unless JSON logging is enabled.
func newPipeline(cfg *am.Config, log *zap.SugaredLogger, verbosity int, out io.Writer) (*pipeline, error) {
	httpClient := httpclient.New(httpclient.Options{
		Timeout:        cfg.Engine.CallTimeout(),
		BlockPrivateIP: cfg.Engine.BlockPrivateIP,
		UserAgent:      version.Get().UserAgent(),
	})
	if _, err := httpClient.ValidateURL(cfg.Engine.API); err != nil {
		return nil, errors.WithHint(err, "check engine.api")
	}

	client, err := dswarm.NewClient(dswarm.Config{
		BaseURL:              cfg.Engine.API,
		HTTPClient:           httpClient,
		Logger:               log,
		CallTimeout:          cfg.Engine.CallTimeout(),
		MaxRequestsPerMinute: cfg.Engine.MaxRequestsPerMinute,
		ProjectName:          cfg.Project.Name,
		PersistInDMP:         cfg.Results.PersistInDMP,
	})
	if err != nil {
		return nil, errors.WithHint(err, "check engine.api")
	}

	opts := workflow.Options{Logger: log}
	if cfg.Resource.Preprocessing {
		pre, err := ixgest.NewPreprocessor(cfg.Preprocessing, log)
		if err != nil {
			return nil, err
		}
		opts.Preprocessor = pre
	}
	wf := workflow.New(client, cfg, opts)

	p := &pipeline{cfg: cfg, logger: log}

	var emitter batch.ProgressEmitter = batch.NewCLIEmitter(verbosity, out)
	if cfg.Log.JSON {
		emitter = batch.NewLogEmitter(log)
	}
	batchCfg := batch.Config{
		Workers: cfg.Engine.Threads,
		Service: cfg.Service.Name,
		Emitter: emitter,
		Logger:  log,
	}
	if cfg.Ledger.Path != "" {
		store, err := ledger.Open(cfg.Ledger.Path, log)
		if err != nil {
			return nil, err
		}
		p.ledger = store
		batchCfg.Recorder = store
	}
	p.orchestrator = batch.New(wf, batchCfg)

	if warning := batch.CheckCapacity(p.orchestrator.Workers()); warning != "" {
		log.Warn(warning)
	}
	return p, nil
}

// Close releases the ledger, if any
func (p *pipeline) Close() {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.Close(); err != nil {
		p.logger.Warnw("Failed to close ledger", logger.FieldError, err)
	}
}
