package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OCR_LANGUAGE", "OCR_TESSDATA_DIR", "OCR_RECT_BORDER_SIZE", "OCR_MERGE_BOXES",
		"OCR_MERGE_THRESHOLD", "OCR_GRAYSCALE", "OCR_MIN_LINE_HEIGHT",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultLanguage, cfg.Language)
	assert.Equal(t, 12, cfg.RectBorderSize)
	assert.False(t, cfg.MergeBoxes)
	assert.Equal(t, 1, cfg.MergeThreshold)
	assert.Nil(t, cfg.DetModel)
	assert.Nil(t, cfg.RecModel)
	assert.Empty(t, cfg.Whitelist())
}

func TestLoad_YAMLAndBlobs(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "rec.traineddata", "rec-bytes")
	writeFile(t, dir, "keys.txt", "a\nb\nc\n")
	path := writeFile(t, dir, "engine.yaml", `
language: deu
rec_model: rec.traineddata
keys: keys.txt
rect_border_size: 4
merge_boxes: true
merge_threshold: 9
grayscale: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deu", cfg.Language)
	assert.Equal(t, []byte("rec-bytes"), cfg.RecModel)
	assert.Equal(t, "abc", cfg.Whitelist())
	assert.Equal(t, 4, cfg.RectBorderSize)
	assert.True(t, cfg.MergeBoxes)
	assert.Equal(t, 9, cfg.MergeThreshold)
	assert.False(t, cfg.Grayscale)
	assert.Equal(t, DefaultMinLineHeight, cfg.MinLineHeight, "unset fields keep defaults")
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "engine.yaml", "rect_border_size: 4\n")
	t.Setenv("OCR_RECT_BORDER_SIZE", "0")
	t.Setenv("OCR_MERGE_BOXES", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RectBorderSize)
	assert.True(t, cfg.MergeBoxes)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"negative border", "rect_border_size: -1\n", nil},
		{"negative threshold", "merge_threshold: -3\n", nil},
		{"missing model", "rec_model: nope.traineddata\n", nil},
		{"bad yaml", "rect_border_size: [\n", nil},
		{"bad env int", "", map[string]string{"OCR_MERGE_THRESHOLD": "far"}},
		{"bad env bool", "", map[string]string{"OCR_MERGE_BOXES": "perhaps"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, dir, "engine.yaml", tt.yaml)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestWhitelist_DedupAndCRLF(t *testing.T) {
	cfg := EngineConfig{Keys: []byte("x\r\ny\r\nx\r\n \r\n")}
	assert.Equal(t, "xy ", cfg.Whitelist())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "OCR_TEST_DOTENV=loaded\n")
	t.Setenv("OCR_TEST_DOTENV", "")
	os.Unsetenv("OCR_TEST_DOTENV")

	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("OCR_TEST_DOTENV"))
}
