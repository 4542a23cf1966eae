// Package enginetest provides a scripted engine.Gateway for tests.
package enginetest

import (
	"fmt"
	"image"

	"github.com/ef6/ocrcli/internal/engine"
)

var _ engine.Gateway = (*Gateway)(nil)

// Gateway replays canned detection and recognition results and counts calls.
//
// Crops defaults to one blank image per rectangle sized like the rectangle.
// Recognize maps a crop back to its index and answers with Texts[i], or
// RecognizeErrs[i] when set.
type Gateway struct {
	Rects         []engine.Rect
	Crops         []image.Image
	Texts         []string
	RecognizeErrs map[int]error
	Lines         []string

	InitErr   error
	DetectErr error
	CropsErr  error
	FullErr   error

	InitCalls      int
	DetectCalls    int
	CropsCalls     int
	RecognizeCalls int
	FullCalls      int
	CloseCalls     int

	issued []image.Image
}

func (g *Gateway) Initialize() error {
	g.InitCalls++
	return g.InitErr
}

func (g *Gateway) Detect(img image.Image) ([]engine.Rect, error) {
	g.DetectCalls++
	if g.DetectErr != nil {
		return nil, g.DetectErr
	}
	return append([]engine.Rect(nil), g.Rects...), nil
}

func (g *Gateway) ExtractCrops(img image.Image) ([]image.Image, error) {
	g.CropsCalls++
	if g.CropsErr != nil {
		return nil, g.CropsErr
	}
	if g.Crops != nil {
		g.issued = g.Crops
		return g.Crops, nil
	}
	crops := make([]image.Image, len(g.Rects))
	for i, r := range g.Rects {
		crops[i] = image.NewGray(image.Rect(0, 0, int(r.Width), int(r.Height)))
	}
	g.issued = crops
	return crops, nil
}

func (g *Gateway) Recognize(crop image.Image) (string, error) {
	g.RecognizeCalls++
	for i, c := range g.issued {
		if c != crop {
			continue
		}
		if err := g.RecognizeErrs[i]; err != nil {
			return "", err
		}
		if i < len(g.Texts) {
			return g.Texts[i], nil
		}
		return "", nil
	}
	return "", fmt.Errorf("unknown crop")
}

func (g *Gateway) RunFull(img image.Image) ([]string, error) {
	g.FullCalls++
	if g.FullErr != nil {
		return nil, g.FullErr
	}
	return g.Lines, nil
}

func (g *Gateway) Close() error {
	g.CloseCalls++
	return nil
}

// Invoked reports whether any image was submitted to the engine.
func (g *Gateway) Invoked() bool {
	return g.DetectCalls+g.CropsCalls+g.RecognizeCalls+g.FullCalls > 0
}
