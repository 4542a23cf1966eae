// Package pipeline turns raw engine output into ordered report records.
package pipeline

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ef6/ocrcli/internal/engine"
	apperrors "github.com/ef6/ocrcli/internal/errors"
)

// Aggregator pairs detected rectangles with their crops and recognized text.
type Aggregator struct {
	gw  engine.Gateway
	log logrus.FieldLogger
}

// NewAggregator returns an aggregator over an initialized gateway.
func NewAggregator(gw engine.Gateway, log logrus.FieldLogger) *Aggregator {
	return &Aggregator{gw: gw, log: log}
}

// Structured returns one TextBox per readable region, in detection order.
//
// No detected text is a valid outcome and yields an empty, non-nil slice.
// A mismatch between the number of rectangles and crops fails the whole
// image, since regions can no longer be paired by index. Degenerate crops
// (nil or zero-sized) and regions whose recognition fails are logged and left out; the rest of
// the image is still reported.
func (a *Aggregator) Structured(img image.Image) ([]TextBox, error) {
	rects, err := a.gw.Detect(img)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEngine, "text detection failed", err)
	}
	a.log.WithField("count", len(rects)).Info("Found text regions")

	boxes := make([]TextBox, 0, len(rects))
	if len(rects) == 0 {
		a.log.Info("No text regions detected in the image")
		return boxes, nil
	}

	crops, err := a.gw.ExtractCrops(img)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEngine, "text region extraction failed", err)
	}
	a.log.WithField("count", len(crops)).Info("Extracted text images")

	if len(rects) != len(crops) {
		a.log.WithFields(logrus.Fields{
			"rects": len(rects),
			"crops": len(crops),
		}).Error("Mismatch between text rectangles and text images")
		return nil, apperrors.NewEngineError(
			fmt.Sprintf("%d rectangles but %d crops", len(rects), len(crops)),
			apperrors.ErrCountMismatch,
		)
	}

	for i, rect := range rects {
		log := a.log.WithField("region", i)
		log.Debugf("Processing text region %d of %d", i+1, len(rects))

		if rect.Empty() || degenerate(crops[i]) {
			log.WithField("rect", rect.String()).Error("Skipping region with zero dimensions")
			continue
		}

		text, err := a.gw.Recognize(crops[i])
		if err != nil {
			log.WithError(err).Error("Failed to recognize text in region")
			continue
		}

		boxes = append(boxes, TextBox{
			Text:       text,
			Confidence: DefaultConfidence,
			Position:   rect,
		})
	}
	return boxes, nil
}

func degenerate(crop image.Image) bool {
	if crop == nil {
		return true
	}
	b := crop.Bounds()
	return b.Dx() == 0 || b.Dy() == 0
}

// Plain returns the recognized strings from the engine's full pipeline,
// verbatim and in order.
func (a *Aggregator) Plain(img image.Image) ([]string, error) {
	texts, err := a.gw.RunFull(img)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEngine, "OCR failed", err)
	}
	if texts == nil {
		texts = []string{}
	}
	return texts, nil
}
