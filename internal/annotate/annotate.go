// Package annotate renders detection boxes onto processed images so batch
// runs leave a reviewable out_<name>.jpg next to each input.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

var (
	// Recognized marks faces matched to a roster identity.
	Recognized = color.RGBA{0, 200, 0, 255}
	// Unknown marks faces below the match threshold.
	Unknown = color.RGBA{220, 0, 0, 255}
)

// Box is one bounding box to draw.
type Box struct {
	BBox  []float64 // [x1, y1, x2, y2] in pixels
	Color color.RGBA
}

// Boxes draws the given boxes onto a copy of the image.
func Boxes(img image.Image, boxes []Box, lineWidth int) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	for _, b := range boxes {
		if len(b.BBox) != 4 {
			continue
		}
		x1, y1 := int(b.BBox[0]), int(b.BBox[1])
		x2, y2 := int(b.BBox[2]), int(b.BBox[3])
		for w := range lineWidth {
			drawHLine(dst, x1, x2, y1+w, b.Color)
			drawHLine(dst, x1, x2, y2-w, b.Color)
			drawVLine(dst, y1, y2, x1+w, b.Color)
			drawVLine(dst, y1, y2, x2-w, b.Color)
		}
	}
	return dst
}

// Resize scales an image to fit within maxSize while keeping aspect ratio.
// Images already within bounds are returned unchanged.
func Resize(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var newWidth, newHeight int
	if width > height {
		if width <= maxSize {
			return img
		}
		newWidth = maxSize
		newHeight = height * maxSize / width
	} else {
		if height <= maxSize {
			return img
		}
		newHeight = maxSize
		newWidth = width * maxSize / height
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// SaveJPEG writes an image to disk as JPEG.
func SaveJPEG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // path derives from the processed input filename
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}
	return nil
}

// drawHLine draws a horizontal line on the image.
func drawHLine(dst *image.RGBA, x1, x2, y int, c color.RGBA) {
	bounds := dst.Bounds()
	if y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	for x := x1; x <= x2; x++ {
		if x >= bounds.Min.X && x < bounds.Max.X {
			dst.Set(x, y, c)
		}
	}
}

// drawVLine draws a vertical line on the image.
func drawVLine(dst *image.RGBA, y1, y2, x int, c color.RGBA) {
	bounds := dst.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X {
		return
	}
	for y := y1; y <= y2; y++ {
		if y >= bounds.Min.Y && y < bounds.Max.Y {
			dst.Set(x, y, c)
		}
	}
}
