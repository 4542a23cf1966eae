// Package session drives OCR requests: the single-shot runner and the
// interactive controller share one engine handle and one Processor.
package session

import (
	"image"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ef6/ocrcli/internal/engine"
	apperrors "github.com/ef6/ocrcli/internal/errors"
	"github.com/ef6/ocrcli/internal/imaging"
	"github.com/ef6/ocrcli/internal/output"
	"github.com/ef6/ocrcli/internal/pipeline"
)

// Options are the per-process request settings.
type Options struct {
	Mode    output.Mode
	Verbose bool

	// Annotate, when set in JSON mode, receives a copy of each processed
	// image with the reported regions outlined.
	Annotate string
}

// Processor loads one image, runs the aggregator for the configured mode and
// writes the report.
type Processor struct {
	opts Options
	agg  *pipeline.Aggregator
	out  io.Writer
	log  logrus.FieldLogger
}

// NewProcessor returns a processor writing reports to out. gw must be
// initialized before Process is called.
func NewProcessor(gw engine.Gateway, opts Options, out io.Writer, log logrus.FieldLogger) *Processor {
	if opts.Mode == "" {
		opts.Mode = output.ModeText
	}
	return &Processor{
		opts: opts,
		agg:  pipeline.NewAggregator(gw, log),
		out:  out,
		log:  log,
	}
}

// Options returns the settings the processor was built with.
func (p *Processor) Options() Options {
	return p.opts
}

// Process runs and reports one image.
func (p *Processor) Process(path string) error {
	res, err := p.Run(path)
	if err != nil {
		return err
	}
	return p.Report(res)
}

// Run loads the image at path and aggregates engine results for it.
func (p *Processor) Run(path string) (*pipeline.Result, error) {
	log := p.log.WithField("path", path)
	log.Info("Loading image")

	img, err := imaging.Load(path)
	if err != nil {
		log.WithError(err).Error("Failed to load image")
		return nil, apperrors.NewInputError("failed to load image "+path, err)
	}
	if info, err := imaging.LoadImageInfo(path); err == nil {
		log.Infof("Image loaded, size: %dx%d, format: %s, bytes: %d",
			info.Width, info.Height, info.Format, info.FileSizeBytes)
	} else {
		b := img.Bounds()
		log.WithError(err).Debug("Image header unavailable")
		log.Infof("Image loaded, size: %dx%d", b.Dx(), b.Dy())
	}

	var res pipeline.Result
	if p.opts.Mode.Structured() {
		log.Info("Processing in JSON mode")
		if res.Boxes, err = p.agg.Structured(img); err != nil {
			return nil, err
		}
		if p.opts.Annotate != "" {
			if err := p.annotate(img, res.Boxes); err != nil {
				return nil, err
			}
		}
	} else {
		log.Info("Processing in text mode")
		if res.Lines, err = p.agg.Plain(img); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

// Report writes res in the configured mode.
func (p *Processor) Report(res *pipeline.Result) error {
	return output.Write(p.out, p.opts.Mode, res)
}

func (p *Processor) annotate(img image.Image, boxes []pipeline.TextBox) error {
	rects := make([]image.Rectangle, len(boxes))
	for i, b := range boxes {
		rects[i] = b.Position.ImageRect()
	}
	if err := imaging.SaveAnnotated(img, rects, p.opts.Annotate); err != nil {
		return apperrors.NewOutputError("failed to write annotated image", err)
	}
	p.log.WithField("annotate", p.opts.Annotate).Info("Annotated image written")
	return nil
}
