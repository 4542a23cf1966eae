package session

import (
	"errors"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ef6/ocrcli/internal/engine"
	apperrors "github.com/ef6/ocrcli/internal/errors"
)

// Runner processes exactly one image and returns. Any error is meant to end
// the process with a non-zero status.
type Runner struct {
	gw   engine.Gateway
	proc *Processor
	log  logrus.FieldLogger
}

// NewRunner returns a single-shot runner.
func NewRunner(gw engine.Gateway, proc *Processor, log logrus.FieldLogger) *Runner {
	return &Runner{gw: gw, proc: proc, log: log}
}

// Run validates path, initializes the engine and processes the image once.
// The path is checked before the engine is touched.
func (r *Runner) Run(path string) error {
	if path == "" {
		return apperrors.NewInputError("image path is required for OCR processing, use --path to specify the image file", apperrors.ErrNoPath)
	}
	if _, err := os.Stat(path); err != nil {
		cause := err
		if errors.Is(err, fs.ErrNotExist) {
			cause = apperrors.ErrNotFound
		}
		r.log.WithField("path", path).Error("Input image file does not exist")
		return apperrors.NewInputError("input file not found: "+path, cause)
	}

	r.log.Info("Initializing OCR engine")
	if err := r.gw.Initialize(); err != nil {
		return apperrors.Wrap(apperrors.KindEngine, "failed to initialize OCR engine", err)
	}

	if err := r.proc.Process(path); err != nil {
		return err
	}
	r.log.Info("OCR process completed")
	return nil
}
