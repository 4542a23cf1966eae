// Package config builds the immutable engine configuration from defaults, an
// optional YAML file, and environment variables (optionally seeded from .env).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults match the settings the engine was tuned with.
const (
	DefaultLanguage       = "eng"
	DefaultRectBorderSize = 12
	DefaultMergeThreshold = 1
	DefaultMinLineHeight  = 32
)

// EngineConfig describes everything the engine gateway needs for its single
// initialization. Build one with Load and pass it by value.
type EngineConfig struct {
	// Language is the recognizer language code (Tesseract naming, e.g. "eng").
	Language string

	// TessdataDir is the directory holding trained data. Empty means the
	// system default, unless model blobs are provided.
	TessdataDir string

	// DetModel and RecModel are optional trained-data blobs for layout
	// detection (osd) and recognition (Language).
	DetModel []byte
	RecModel []byte

	// Keys is the character-set table, one symbol per line. Empty means no
	// restriction.
	Keys []byte

	// RectBorderSize inflates every detected rectangle on all sides.
	RectBorderSize int

	// MergeBoxes joins boxes on the same line that are at most
	// MergeThreshold pixels apart.
	MergeBoxes     bool
	MergeThreshold int

	// Grayscale enables contrast-stretched grayscale preprocessing of crops.
	Grayscale bool

	// MinLineHeight upscales crops shorter than this many pixels. Zero disables.
	MinLineHeight int
}

// Whitelist returns the keys table flattened into a single string of allowed
// characters, preserving table order and dropping duplicates.
func (c EngineConfig) Whitelist() string {
	if len(c.Keys) == 0 {
		return ""
	}
	seen := make(map[rune]bool)
	var b strings.Builder
	for _, line := range strings.Split(string(c.Keys), "\n") {
		line = strings.TrimSuffix(line, "\r")
		for _, r := range line {
			if seen[r] {
				continue
			}
			seen[r] = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate checks numeric ranges and required fields.
func (c EngineConfig) Validate() error {
	if c.Language == "" {
		return fmt.Errorf("language is required")
	}
	if c.RectBorderSize < 0 {
		return fmt.Errorf("rect_border_size must be non-negative, got %d", c.RectBorderSize)
	}
	if c.MergeThreshold < 0 {
		return fmt.Errorf("merge_threshold must be non-negative, got %d", c.MergeThreshold)
	}
	if c.MinLineHeight < 0 {
		return fmt.Errorf("min_line_height must be non-negative, got %d", c.MinLineHeight)
	}
	if len(c.DetModel) > 0 && len(c.RecModel) == 0 {
		return fmt.Errorf("det_model requires rec_model")
	}
	return nil
}

// File is the on-disk YAML layout. Model and keys entries are paths,
// resolved relative to the config file.
type File struct {
	Language       string `yaml:"language"`
	TessdataDir    string `yaml:"tessdata_dir"`
	DetModel       string `yaml:"det_model"`
	RecModel       string `yaml:"rec_model"`
	Keys           string `yaml:"keys"`
	RectBorderSize *int   `yaml:"rect_border_size"`
	MergeBoxes     *bool  `yaml:"merge_boxes"`
	MergeThreshold *int   `yaml:"merge_threshold"`
	Grayscale      *bool  `yaml:"grayscale"`
	MinLineHeight  *int   `yaml:"min_line_height"`
}

// Default returns the built-in configuration.
func Default() EngineConfig {
	return EngineConfig{
		Language:       DefaultLanguage,
		RectBorderSize: DefaultRectBorderSize,
		MergeBoxes:     false,
		MergeThreshold: DefaultMergeThreshold,
		Grayscale:      true,
		MinLineHeight:  DefaultMinLineHeight,
	}
}

// LoadEnvFile seeds the process environment from the given dotenv files.
// Missing files are ignored; variables already set are not overwritten.
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds an EngineConfig: defaults, then the YAML file at path (if
// non-empty), then OCR_* environment overrides. Referenced blobs are read
// into memory and the result is validated.
func Load(path string) (EngineConfig, error) {
	cfg := Default()
	var f File

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return EngineConfig{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return EngineConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		f.resolve(filepath.Dir(path))
	}
	f.apply(&cfg)

	if err := applyEnv(&cfg); err != nil {
		return EngineConfig{}, err
	}

	var err error
	if cfg.DetModel, err = readBlob(f.DetModel, "det_model"); err != nil {
		return EngineConfig{}, err
	}
	if cfg.RecModel, err = readBlob(f.RecModel, "rec_model"); err != nil {
		return EngineConfig{}, err
	}
	if cfg.Keys, err = readBlob(f.Keys, "keys"); err != nil {
		return EngineConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// resolve makes relative paths relative to dir.
func (f *File) resolve(dir string) {
	for _, p := range []*string{&f.TessdataDir, &f.DetModel, &f.RecModel, &f.Keys} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func (f *File) apply(cfg *EngineConfig) {
	if f.Language != "" {
		cfg.Language = f.Language
	}
	if f.TessdataDir != "" {
		cfg.TessdataDir = f.TessdataDir
	}
	if f.RectBorderSize != nil {
		cfg.RectBorderSize = *f.RectBorderSize
	}
	if f.MergeBoxes != nil {
		cfg.MergeBoxes = *f.MergeBoxes
	}
	if f.MergeThreshold != nil {
		cfg.MergeThreshold = *f.MergeThreshold
	}
	if f.Grayscale != nil {
		cfg.Grayscale = *f.Grayscale
	}
	if f.MinLineHeight != nil {
		cfg.MinLineHeight = *f.MinLineHeight
	}
}

func applyEnv(cfg *EngineConfig) error {
	if v := os.Getenv("OCR_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("OCR_TESSDATA_DIR"); v != "" {
		cfg.TessdataDir = v
	}
	if err := envInt("OCR_RECT_BORDER_SIZE", &cfg.RectBorderSize); err != nil {
		return err
	}
	if err := envBool("OCR_MERGE_BOXES", &cfg.MergeBoxes); err != nil {
		return err
	}
	if err := envInt("OCR_MERGE_THRESHOLD", &cfg.MergeThreshold); err != nil {
		return err
	}
	if err := envBool("OCR_GRAYSCALE", &cfg.Grayscale); err != nil {
		return err
	}
	return envInt("OCR_MIN_LINE_HEIGHT", &cfg.MinLineHeight)
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	*dst = b
	return nil
}

func readBlob(path, field string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return data, nil
}
