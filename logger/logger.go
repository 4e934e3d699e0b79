package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the output format and threshold of a logger built by New.
type Options struct {
	// JSON switches to zap's production JSON encoder for machine consumption
	JSON bool
	// Verbosity is the CLI flag count (-v, -vv), see VerbosityToLevel
	Verbosity int
	// Output receives log lines; nil means stderr
	Output io.Writer
	// NoColor disables ANSI colors in the console encoder
	NoColor bool
}

// New builds a sugared logger. There is no package-level logger: callers pass
// the returned value to every component that logs, usually via Named().
func New(opts Options) (*zap.SugaredLogger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := VerbosityToLevel(opts.Verbosity)

	var encoder zapcore.Encoder
	if opts.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		// Human-readable console output with minimal, calm formatting
		encoder = newMinimalEncoder(!opts.NoColor)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return zap.New(core).Sugar(), nil
}

// Nop returns a logger that discards everything, for tests and library defaults.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return Nop()
	}
	return l
}

// Cleanup flushes any buffered log entries
func Cleanup(l *zap.SugaredLogger) {
	if l != nil {
		_ = l.Sync()
	}
}
