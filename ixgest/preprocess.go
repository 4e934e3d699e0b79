package ixgest

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/teranos/tpu/am"
	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/logger"
)

// Command template placeholders
const (
	PlaceholderInput  = "{input}"
	PlaceholderOutput = "{output}"
	PlaceholderXSLT   = "{xslt}"
)

// Preprocessor runs the external stylesheet command on an input file and
// writes the result to a uniquely named file in its folder.
type Preprocessor struct {
	folder string
	xslt   string
	argv   []string
	logger *zap.SugaredLogger
}

// NewPreprocessor parses the command template of cfg
func NewPreprocessor(cfg am.PreprocessingConfig, log *zap.SugaredLogger) (*Preprocessor, error) {
	command := cfg.Command
	if strings.TrimSpace(command) == "" {
		command = am.DefaultPreprocessingCommand
	}
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "preprocessing command %q: %s", command, err)
	}
	if len(argv) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "preprocessing command is empty")
	}
	if !strings.Contains(command, PlaceholderOutput) {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidRequest, "preprocessing command %q has no %s placeholder", command, PlaceholderOutput),
			"the command must write its result to {output}")
	}

	folder := cfg.Folder
	if folder == "" {
		folder = os.TempDir()
	}

	return &Preprocessor{
		folder: folder,
		xslt:   cfg.XSLT,
		argv:   argv,
		logger: logger.OrNop(log).Named("preprocess"),
	}, nil
}

// Apply transforms input and returns the path of the result. cleanup
// removes the result file and is safe to call when err is non-nil.
func (p *Preprocessor) Apply(ctx context.Context, input string) (output string, cleanup func(), err error) {
	output = filepath.Join(p.folder, uuid.NewString()+".xml")
	cleanup = func() {
		if rmErr := os.Remove(output); rmErr != nil && !os.IsNotExist(rmErr) {
			p.logger.Warnw("Failed to remove preprocessed file", logger.FieldPath, output, logger.FieldError, rmErr)
		}
	}

	if err := os.MkdirAll(p.folder, am.DefaultDirPermissions); err != nil {
		return "", cleanup, errors.Wrapf(err, "failed to create preprocessing folder %s", p.folder)
	}

	args := p.expand(input, output)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Debugw("Preprocessing", logger.FieldFile, filepath.Base(input), "command", shellquote.Join(args...))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", cleanup, errors.Wrapf(ctx.Err(), "preprocessing %s interrupted", filepath.Base(input))
		}
		return "", cleanup, errors.WithDetailf(
			errors.Wrapf(err, "preprocessing %s failed", filepath.Base(input)),
			"stderr: %s", strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(output); err != nil {
		return "", cleanup, errors.Wrapf(err, "preprocessing %s produced no output", filepath.Base(input))
	}
	return output, cleanup, nil
}

// expand substitutes the placeholders in every argument
func (p *Preprocessor) expand(input, output string) []string {
	r := strings.NewReplacer(PlaceholderInput, input, PlaceholderOutput, output, PlaceholderXSLT, p.xslt)
	args := make([]string, len(p.argv))
	for i, a := range p.argv {
		args[i] = r.Replace(a)
	}
	return args
}
