package session

import (
	"bufio"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ef6/ocrcli/internal/engine"
	"github.com/ef6/ocrcli/internal/engine/enginetest"
	apperrors "github.com/ef6/ocrcli/internal/errors"
	"github.com/ef6/ocrcli/internal/output"
)

// writePNG writes a small white PNG to dir/name and returns its path. The
// extension is up to the caller, so non-image names still hold valid pixels.
func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

type harness struct {
	gw   *enginetest.Gateway
	ctl  *Controller
	out  *bytes.Buffer
	err  *bytes.Buffer
	hook *test.Hook
}

func newHarness(gw *enginetest.Gateway, mode output.Mode, input string) *harness {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	proc := NewProcessor(gw, Options{Mode: mode}, out, log)
	ctl := NewController(gw, proc, Console{In: strings.NewReader(input), Out: out, Err: errOut}, log)
	return &harness{gw: gw, ctl: ctl, out: out, err: errOut, hook: hook}
}

func (h *harness) errorMessages() []string {
	var msgs []string
	for _, e := range h.hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

func TestController_ExitDirectives(t *testing.T) {
	for _, input := range []string{"exit", "EXIT", "Exit", "quit", "QUIT", "  Quit  "} {
		t.Run(input, func(t *testing.T) {
			h := newHarness(&enginetest.Gateway{}, output.ModeText, input+"\nnever-read.png\n")

			require.NoError(t, h.ctl.Run())
			assert.False(t, h.gw.Invoked())
			assert.True(t, strings.HasSuffix(h.out.String(), "Exiting interactive mode...\n"))
			assert.Equal(t, 1, strings.Count(h.out.String(), "> "))
		})
	}
}

func TestController_EmptyLinesKeepPrompting(t *testing.T) {
	h := newHarness(&enginetest.Gateway{}, output.ModeText, "\n   \n\t\nexit\n")

	require.NoError(t, h.ctl.Run())
	assert.Equal(t, 4, strings.Count(h.out.String(), "> "))
	assert.False(t, h.gw.Invoked())
	assert.Empty(t, h.err.String())
}

func TestController_EndOfInputExits(t *testing.T) {
	h := newHarness(&enginetest.Gateway{}, output.ModeText, "")

	require.NoError(t, h.ctl.Run())
	assert.Contains(t, h.out.String(), "Exiting interactive mode...")
}

func TestController_NonexistentFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.png")
	h := newHarness(&enginetest.Gateway{}, output.ModeText, missing+"\nexit\n")

	require.NoError(t, h.ctl.Run())
	assert.Contains(t, h.err.String(), "Error: File does not exist: "+missing)
	assert.False(t, h.gw.Invoked())
	assert.Equal(t, 2, strings.Count(h.out.String(), "> "), "re-prompts after the error")
}

func TestController_UnrecognizedExtensionDeclined(t *testing.T) {
	path := writePNG(t, t.TempDir(), "scan.dat")

	for _, answer := range []string{"n", "N", "no", "", "maybe"} {
		t.Run(answer, func(t *testing.T) {
			h := newHarness(&enginetest.Gateway{}, output.ModeText, path+"\n"+answer+"\nexit\n")

			require.NoError(t, h.ctl.Run())
			assert.Contains(t, h.err.String(), "Warning: File does not appear to be an image: "+path)
			assert.Contains(t, h.out.String(), "Do you want to continue? (y/N): ")
			assert.False(t, h.gw.Invoked())
		})
	}
}

func TestController_UnrecognizedExtensionConfirmed(t *testing.T) {
	path := writePNG(t, t.TempDir(), "scan.dat")

	for _, answer := range []string{"y", "Y", "yes", "YES"} {
		t.Run(answer, func(t *testing.T) {
			gw := &enginetest.Gateway{Lines: []string{"recognized"}}
			h := newHarness(gw, output.ModeText, path+"\n"+answer+"\nexit\n")

			require.NoError(t, h.ctl.Run())
			assert.Equal(t, 1, gw.FullCalls)
			assert.Contains(t, h.out.String(), "recognized\n")
		})
	}
}

func TestController_RecognizedExtensionSkipsConfirmation(t *testing.T) {
	path := writePNG(t, t.TempDir(), "page.PNG")
	gw := &enginetest.Gateway{Lines: []string{"Hello", "World"}}
	h := newHarness(gw, output.ModeText, path+"\nexit\n")

	require.NoError(t, h.ctl.Run())
	assert.NotContains(t, h.out.String(), "Do you want to continue?")
	assert.Contains(t, h.out.String(), "> Hello\nWorld\n> ")
}

func TestController_FailuresDoNotEndSession(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0644))
	good := writePNG(t, dir, "good.png")

	gw := &enginetest.Gateway{Lines: []string{"fine"}}
	h := newHarness(gw, output.ModeText, bad+"\n"+good+"\n"+good+"\nexit\n")

	require.NoError(t, h.ctl.Run())
	assert.Equal(t, 2, gw.FullCalls)
	assert.Equal(t, 2, strings.Count(h.out.String(), "fine\n"))
	assert.Contains(t, h.errorMessages(), "Error processing image")
}

func TestController_EngineErrorDoesNotEndSession(t *testing.T) {
	path := writePNG(t, t.TempDir(), "page.png")
	gw := &enginetest.Gateway{
		Rects: []engine.Rect{{Width: 10, Height: 10}, {Left: 20, Width: 10, Height: 10}},
		Crops: []image.Image{image.NewGray(image.Rect(0, 0, 10, 10))},
	}
	h := newHarness(gw, output.ModeJSON, path+"\n"+path+"\nexit\n")

	require.NoError(t, h.ctl.Run())
	assert.Equal(t, 2, gw.DetectCalls, "both submissions reached the engine")
	assert.NotContains(t, h.out.String(), "[", "no partial report on count mismatch")
	assert.Equal(t, 3, strings.Count(h.out.String(), "> "))
}

func TestController_InitializesEngineOnce(t *testing.T) {
	path := writePNG(t, t.TempDir(), "page.png")
	gw := &enginetest.Gateway{}
	h := newHarness(gw, output.ModeJSON, path+"\n"+path+"\n"+path+"\nexit\n")

	assert.False(t, h.ctl.Session().EngineInitialized)
	require.NoError(t, h.ctl.Run())
	assert.Equal(t, 1, gw.InitCalls)
	assert.True(t, h.ctl.Session().EngineInitialized)
	assert.Equal(t, output.ModeJSON, h.ctl.Session().OutputMode)
	assert.Equal(t, 3, strings.Count(h.out.String(), "[]\n"))
}

func TestController_InitFailureIsFatal(t *testing.T) {
	gw := &enginetest.Gateway{InitErr: errors.New("no models")}
	h := newHarness(gw, output.ModeText, "page.png\nexit\n")

	err := h.ctl.Run()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindEngine))
	assert.NotContains(t, h.out.String(), "> ")
	assert.False(t, h.gw.Invoked())
}

func TestController_JSONReport(t *testing.T) {
	path := writePNG(t, t.TempDir(), "page.png")
	gw := &enginetest.Gateway{
		Rects: []engine.Rect{{Left: 10, Top: 5, Width: 40, Height: 12}},
		Texts: []string{"Hello"},
	}
	h := newHarness(gw, output.ModeJSON, path+"\nexit\n")

	require.NoError(t, h.ctl.Run())
	assert.Contains(t, h.out.String(), `"text": "Hello"`)
	assert.Contains(t, h.out.String(), `"confidence": 1.0`)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "AwaitInput", AwaitInput.String())
	assert.Equal(t, "Exited", Exited.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestDirectives(t *testing.T) {
	assert.True(t, IsExitDirective(" EXIT "))
	assert.False(t, IsExitDirective("exit now"))
	assert.False(t, IsExitDirective(""))
	assert.True(t, IsAffirmative("Yes"))
	assert.False(t, IsAffirmative("yep"))
}

func TestController_OverlongLineEndsWithError(t *testing.T) {
	gw := &enginetest.Gateway{}
	input := strings.Repeat("x", 1024*1024+1) + "\nexit\n"
	h := newHarness(gw, output.ModeText, input)

	err := h.ctl.Run()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInput))
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.Contains(t, h.out.String(), "Exiting interactive mode...")
	assert.Zero(t, gw.DetectCalls)
}

func TestProcessor_LogsImageInfo(t *testing.T) {
	path := writePNG(t, t.TempDir(), "page.png")
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)
	proc := NewProcessor(&enginetest.Gateway{}, Options{}, &bytes.Buffer{}, log)

	_, err := proc.Run(path)
	require.NoError(t, err)

	var found bool
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Image loaded, size: 120x40, format: png, bytes: ") {
			found = true
		}
	}
	assert.True(t, found, "expected image info log entry")
}
