// Package imaging loads input images and renders region overlays.
//
// Decoding covers every extension the interactive session accepts without a
// confirmation prompt (jpg, jpeg, png, bmp, tiff, webp) plus gif. JPEG EXIF
// orientation is applied on load, so rectangles reported by the engine line
// up with what an image viewer shows.
//
// Coordinates follow the standard library: (0,0) is the top-left corner, X
// grows rightward, Y grows downward, and rectangles are half-open.
package imaging
