package imaging

import (
	"fmt"
	"image"
	_ "image/gif" // Register GIF format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageExtensions are the lower-cased extensions treated as images without
// asking the operator.
var ImageExtensions = []string{"jpg", "jpeg", "png", "bmp", "tiff", "webp"}

// HasImageExtension reports whether path ends in one of ImageExtensions,
// compared case-insensitively.
func HasImageExtension(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, known := range ImageExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// Load opens and decodes the image at path.
//
// Returns an error if the file cannot be opened or is not a decodable image.
// The content decides the decoder, not the extension, so a PNG named
// "scan.dat" still loads.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return img, nil
}

// LoadImageInfo reads dimensions, detected format and file size without
// decoding pixel data.
func LoadImageInfo(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &ImageInfo{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}
