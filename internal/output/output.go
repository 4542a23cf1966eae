// Package output renders processing results for the operator.
package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/ef6/ocrcli/internal/errors"
	"github.com/ef6/ocrcli/internal/pipeline"
)

// Mode selects how results are rendered.
type Mode string

const (
	// ModeJSON renders a pretty-printed array of text boxes.
	ModeJSON Mode = "json"
	// ModeText renders one recognized string per line.
	ModeText Mode = "text"
)

// ParseMode accepts "json" or "text", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeJSON:
		return ModeJSON, nil
	case ModeText:
		return ModeText, nil
	}
	return "", fmt.Errorf("invalid mode %q (expected json or text)", s)
}

// UnmarshalText lets flag parsers fill a Mode directly.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) String() string {
	return string(m)
}

// Structured reports whether the mode needs per-region records.
func (m Mode) Structured() bool {
	return m == ModeJSON
}

// Write renders r to w according to mode.
func Write(w io.Writer, mode Mode, r *pipeline.Result) error {
	switch mode {
	case ModeJSON:
		return WriteJSON(w, r.Boxes)
	case ModeText:
		return WriteText(w, r.Lines)
	}
	return apperrors.NewOutputError(fmt.Sprintf("unknown output mode %q", mode), nil)
}

// MarshalBoxes pretty-prints boxes as a JSON array. An empty or nil slice
// renders as []. Recognized text is written verbatim, without HTML escaping.
func MarshalBoxes(boxes []pipeline.TextBox) ([]byte, error) {
	if boxes == nil {
		boxes = []pipeline.TextBox{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(boxes); err != nil {
		return nil, apperrors.NewOutputError("failed to serialize results", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteJSON writes MarshalBoxes' output followed by a newline.
func WriteJSON(w io.Writer, boxes []pipeline.TextBox) error {
	data, err := MarshalBoxes(boxes)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return apperrors.NewOutputError("failed to write results", err)
	}
	return nil
}

// WriteText writes each line followed by a newline. No lines, no output.
func WriteText(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return apperrors.NewOutputError("failed to write results", err)
	}
	return nil
}
