package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ef6/ocrcli/internal/engine"
)

// DefaultConfidence is attached to every recognized region.
//
// The engine contract does not expose a per-region score, so this is a
// placeholder and not a measured value.
const DefaultConfidence Confidence = 1.0

// Confidence is a recognition score in [0, 1].
type Confidence float32

// MarshalJSON always emits a fractional part ("1.0", not "1") so consumers
// see a float regardless of value.
func (c Confidence) MarshalJSON() ([]byte, error) {
	f := float64(c)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported confidence value %v", f)
	}
	s := strconv.FormatFloat(f, 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

// TextBox is one recognized region in the structured report.
type TextBox struct {
	Text       string      `json:"text"`
	Confidence Confidence  `json:"confidence"`
	Position   engine.Rect `json:"position"`
}

// Result holds the output of one processed image. Boxes is set in
// structured mode, Lines in text mode.
type Result struct {
	Boxes []TextBox
	Lines []string
}
