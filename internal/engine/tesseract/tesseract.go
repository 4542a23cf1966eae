// Package tesseract implements engine.Gateway on top of Tesseract via
// gosseract.
//
// One Engine owns one gosseract client for its whole lifetime. The client is
// not safe for concurrent use, which matches the single-threaded front end.
//
// # Model data
//
// When the configuration carries model blobs, they are written once into a
// private tessdata directory (osd.traineddata for detection, <language>.traineddata
// for recognition) and Tesseract is pointed at it. Files whose size already
// matches are left alone, so repeated runs do not rewrite them. Without blobs,
// the configured tessdata directory or the system default is used.
package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"github.com/ef6/ocrcli/internal/config"
	"github.com/ef6/ocrcli/internal/engine"
	apperrors "github.com/ef6/ocrcli/internal/errors"
)

// Backend names the engine in version output.
const Backend = "tesseract (gosseract)"

// contrastBoost is applied after grayscale conversion of each crop.
const contrastBoost = 0.2

var _ engine.Gateway = (*Engine)(nil)

// Engine is a Tesseract-backed engine gateway.
type Engine struct {
	cfg config.EngineConfig
	log logrus.FieldLogger

	once        sync.Once
	initErr     error
	initialized bool

	client *gosseract.Client
}

// New returns an engine handle. No models are loaded until Initialize.
func New(cfg config.EngineConfig, log logrus.FieldLogger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// Initialize creates the Tesseract client and loads the models. Only the
// first call does any work; later calls return the first call's result.
func (e *Engine) Initialize() error {
	e.once.Do(func() {
		e.initErr = e.initialize()
		e.initialized = e.initErr == nil
	})
	return e.initErr
}

func (e *Engine) initialize() error {
	tessdata := e.cfg.TessdataDir
	if len(e.cfg.RecModel) > 0 {
		dir, err := extractModels(e.cfg)
		if err != nil {
			return apperrors.NewEngineError("failed to prepare model data", err)
		}
		tessdata = dir
	}

	client := gosseract.NewClient()

	if tessdata != "" {
		e.log.WithField("tessdata", tessdata).Info("Using tessdata directory")
		if err := client.SetTessdataPrefix(tessdata); err != nil {
			client.Close()
			return apperrors.NewEngineError("failed to set tessdata path", err)
		}
	}
	if err := client.SetLanguage(e.cfg.Language); err != nil {
		client.Close()
		return apperrors.NewEngineError("failed to set language", err)
	}
	if wl := e.cfg.Whitelist(); wl != "" {
		if err := client.SetWhitelist(wl); err != nil {
			client.Close()
			return apperrors.NewEngineError("failed to set character whitelist", err)
		}
	}

	// gosseract defers API construction to the first recognition call; force
	// it now so a bad language or tessdata path fails the run up front.
	if err := warmUp(client); err != nil {
		client.Close()
		return apperrors.NewEngineError("failed to initialize tesseract", err)
	}

	e.client = client
	e.log.WithFields(logrus.Fields{
		"language":    e.cfg.Language,
		"version":     client.Version(),
		"border":      e.cfg.RectBorderSize,
		"merge_boxes": e.cfg.MergeBoxes,
	}).Info("OCR engine initialized")
	return nil
}

func warmUp(client *gosseract.Client) error {
	data, err := encodePNG(image.NewGray(image.Rect(0, 0, 64, 32)))
	if err != nil {
		return err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return err
	}
	_, err = client.Text()
	return err
}

func (e *Engine) ready() error {
	if !e.initialized {
		return apperrors.NewEngineError("engine used before initialization", apperrors.ErrNotInitialized)
	}
	return nil
}

// Detect returns text-line rectangles in Tesseract's reading order, inflated
// by the configured border and optionally merged.
func (e *Engine) Detect(img image.Image) ([]engine.Rect, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	data, err := encodePNG(img)
	if err != nil {
		return nil, apperrors.NewEngineError("failed to encode image", err)
	}
	if err := e.client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, apperrors.NewEngineError("failed to set page segmentation", err)
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return nil, apperrors.NewEngineError("failed to set image", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, apperrors.NewEngineError("text detection failed", err)
	}

	// The encoded PNG always starts at (0,0); shift back into img's space.
	bounds := img.Bounds()
	rects := make([]image.Rectangle, 0, len(boxes))
	for _, box := range boxes {
		r := box.Box.Add(bounds.Min)
		rects = append(rects, engine.Inflate(r, e.cfg.RectBorderSize, bounds))
	}
	if e.cfg.MergeBoxes {
		rects = engine.MergeBoxes(rects, e.cfg.MergeThreshold)
	}

	out := make([]engine.Rect, len(rects))
	for i, r := range rects {
		out[i] = engine.FromImageRect(r)
	}
	return out, nil
}

// ExtractCrops runs detection and crops every rectangle.
func (e *Engine) ExtractCrops(img image.Image) ([]image.Image, error) {
	rects, err := e.Detect(img)
	if err != nil {
		return nil, err
	}
	return engine.CropAll(img, rects), nil
}

// Recognize reads one line of text from crop.
func (e *Engine) Recognize(crop image.Image) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	b := crop.Bounds()
	if b.Empty() {
		return "", apperrors.NewEngineError("cannot recognize an empty image", nil)
	}

	data, err := encodePNG(e.preprocess(crop))
	if err != nil {
		return "", apperrors.NewEngineError("failed to encode crop", err)
	}
	if err := e.client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", apperrors.NewEngineError("failed to set page segmentation", err)
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return "", apperrors.NewEngineError("failed to set image", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", apperrors.NewEngineError("recognition failed", err)
	}
	return strings.TrimSpace(text), nil
}

// preprocess applies grayscale/contrast and upscales short lines.
func (e *Engine) preprocess(crop image.Image) image.Image {
	img := crop
	if e.cfg.Grayscale {
		img = adjust.Contrast(effect.Grayscale(img), contrastBoost)
	}
	if h := img.Bounds().Dy(); e.cfg.MinLineHeight > 0 && h < e.cfg.MinLineHeight {
		img = imaging.Resize(img, 0, e.cfg.MinLineHeight, imaging.Lanczos)
	}
	return img
}

// RunFull detects, crops and recognizes every region. Regions that fail or
// come back blank are dropped.
func (e *Engine) RunFull(img image.Image) ([]string, error) {
	rects, err := e.Detect(img)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(rects))
	for i, crop := range engine.CropAll(img, rects) {
		if crop.Bounds().Empty() {
			continue
		}
		text, err := e.Recognize(crop)
		if err != nil {
			e.log.WithField("region", i).WithError(err).Debug("Skipping unreadable region")
			continue
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	e.initialized = false
	return err
}

// extractModels writes configured model blobs into the tessdata cache
// directory and returns its path.
func extractModels(cfg config.EngineConfig) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "ocrcli", "tessdata")
	if err := os.MkdirAll(dir, 0755); err != nil {
		dir = filepath.Join(os.TempDir(), "ocrcli", "tessdata")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create tessdata directory: %w", err)
		}
	}

	files := map[string][]byte{
		cfg.Language + ".traineddata": cfg.RecModel,
	}
	if len(cfg.DetModel) > 0 {
		files["osd.traineddata"] = cfg.DetModel
	}

	for name, data := range files {
		dst := filepath.Join(dir, name)
		if info, err := os.Stat(dst); err == nil && info.Size() == int64(len(data)) {
			continue
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return dir, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
