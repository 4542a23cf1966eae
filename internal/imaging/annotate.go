package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// outlineWidth is the stroke width of region outlines in pixels.
const outlineWidth = 2

// Annotate returns a copy of img with every rectangle outlined in its own
// color and labeled with its index.
func Annotate(img image.Image, rects []image.Rectangle) *image.NRGBA {
	bounds := img.Bounds()
	result := image.NewNRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	palette := regionPalette(len(rects))
	for i, r := range rects {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		drawOutline(result, r, palette[i])
		drawLabel(result, r.Min.X, r.Min.Y, strconv.Itoa(i), palette[i])
	}
	return result
}

// SaveAnnotated writes Annotate's result to path; the format follows the
// file extension.
func SaveAnnotated(img image.Image, rects []image.Rectangle, path string) error {
	if err := imaging.Save(Annotate(img, rects), path); err != nil {
		return fmt.Errorf("failed to save annotated image: %w", err)
	}
	return nil
}

// regionPalette returns n visually distinct colors.
func regionPalette(n int) []color.Color {
	out := make([]color.Color, n)
	if n == 0 {
		return out
	}
	colors, err := colorful.HappyPalette(n)
	if err != nil {
		// HappyPalette gives up on very large n; hue rotation still separates neighbours.
		for i := range out {
			out[i] = colorful.Hsv(float64(i*47%360), 0.8, 0.9)
		}
		return out
	}
	for i, c := range colors {
		out[i] = c
	}
	return out
}

func drawOutline(img *image.NRGBA, r image.Rectangle, c color.Color) {
	for w := 0; w < outlineWidth; w++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, r.Min.Y+w, c)
			img.Set(x, r.Max.Y-1-w, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.Set(r.Min.X+w, y, c)
			img.Set(r.Max.X-1-w, y, c)
		}
	}
}

// drawLabel writes text just above (x, y) on a filled background, or just
// inside when there is no room above.
func drawLabel(img *image.NRGBA, x, y int, text string, bg color.Color) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil() + 2
	h := face.Height

	top := y - h
	if top < img.Bounds().Min.Y {
		top = y
	}
	box := image.Rect(x, top, x+w, top+h).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x + 1), Y: fixed.I(top + face.Ascent)},
	}
	d.DrawString(text)
}
