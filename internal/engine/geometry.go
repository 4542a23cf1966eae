package engine

import (
	"image"

	"github.com/disintegration/imaging"
)

// Inflate grows r by border pixels on every side, clamped to bounds.
func Inflate(r image.Rectangle, border int, bounds image.Rectangle) image.Rectangle {
	if border > 0 {
		r = image.Rect(r.Min.X-border, r.Min.Y-border, r.Max.X+border, r.Max.Y+border)
	}
	return r.Intersect(bounds)
}

// MergeBoxes joins boxes that sit on the same text line and are separated
// horizontally by at most threshold pixels. Merged boxes keep the position of
// the first box they absorbed, so reading order is preserved.
func MergeBoxes(boxes []image.Rectangle, threshold int) []image.Rectangle {
	if len(boxes) < 2 {
		return boxes
	}

	merged := make([]image.Rectangle, 0, len(boxes))
	for _, b := range boxes {
		merged = absorb(merged, b, threshold)
	}

	// A union can bring two earlier boxes within range of each other.
	for {
		next := make([]image.Rectangle, 0, len(merged))
		for _, b := range merged {
			next = absorb(next, b, threshold)
		}
		if len(next) == len(merged) {
			return next
		}
		merged = next
	}
}

func absorb(merged []image.Rectangle, b image.Rectangle, threshold int) []image.Rectangle {
	for i := range merged {
		if sameLine(merged[i], b) && horizontalGap(merged[i], b) <= threshold {
			merged[i] = merged[i].Union(b)
			return merged
		}
	}
	return append(merged, b)
}

// sameLine reports whether a and b overlap vertically by at least half the
// height of the shorter one.
func sameLine(a, b image.Rectangle) bool {
	overlap := minInt(a.Max.Y, b.Max.Y) - maxInt(a.Min.Y, b.Min.Y)
	shorter := minInt(a.Dy(), b.Dy())
	return shorter > 0 && overlap*2 >= shorter
}

// horizontalGap is the distance between a and b along x; negative when they overlap.
func horizontalGap(a, b image.Rectangle) int {
	return maxInt(a.Min.X, b.Min.X) - minInt(a.Max.X, b.Max.X)
}

// Crop returns the pixels of r. An empty r yields a zero-sized image rather
// than nil so crops stay index-aligned with their rectangles.
func Crop(img image.Image, r image.Rectangle) image.Image {
	if r.Empty() {
		return image.NewNRGBA(image.Rectangle{})
	}
	return imaging.Crop(img, r)
}

// CropAll crops every rectangle, preserving order.
func CropAll(img image.Image, rects []Rect) []image.Image {
	crops := make([]image.Image, len(rects))
	for i, r := range rects {
		crops[i] = Crop(img, r.ImageRect())
	}
	return crops
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
