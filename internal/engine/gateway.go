// Package engine defines the contract between the OCR front end and the
// text detection and recognition engine, plus the box geometry shared by
// engine implementations.
//
// A Gateway is an explicitly owned handle: construct it once at startup, call
// Initialize exactly once before any image is submitted, and pass it to
// whoever needs it. Implementations guard Initialize so repeated calls are
// no-ops returning the first outcome.
package engine

import (
	"fmt"
	"image"
)

// Gateway is the narrow engine contract consumed by the aggregator.
//
// Detect and ExtractCrops must agree positionally: crop i is the pixels of
// rectangle i. Callers verify the counts match before pairing them.
type Gateway interface {
	// Initialize loads models. Safe to call more than once.
	Initialize() error

	// Detect returns text rectangles in reading order.
	Detect(img image.Image) ([]Rect, error)

	// ExtractCrops returns one sub-image per detected rectangle.
	ExtractCrops(img image.Image) ([]image.Image, error)

	// Recognize converts one cropped line into text.
	Recognize(crop image.Image) (string, error)

	// RunFull runs detection and recognition and returns the recognized
	// strings in reading order. Per-region failures are handled internally.
	RunFull(img image.Image) ([]string, error)

	// Close releases engine resources.
	Close() error
}

// Rect is an axis-aligned region in image pixel coordinates.
type Rect struct {
	Left   int  `json:"left"`
	Top    int  `json:"top"`
	Width  uint `json:"width"`
	Height uint `json:"height"`
}

// FromImageRect converts a canonical image.Rectangle.
func FromImageRect(r image.Rectangle) Rect {
	r = r.Canon()
	return Rect{
		Left:   r.Min.X,
		Top:    r.Min.Y,
		Width:  uint(r.Dx()),
		Height: uint(r.Dy()),
	}
}

// ImageRect converts back to an image.Rectangle.
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+int(r.Width), r.Top+int(r.Height))
}

// Empty reports whether the region has zero area.
func (r Rect) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.Left, r.Top, r.Width, r.Height)
}
