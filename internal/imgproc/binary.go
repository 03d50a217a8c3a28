package imgproc

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
)

// Binary is a boolean raster indexed [y][x], true meaning foreground.
type Binary [][]bool

// NewBinary allocates a cleared binary raster.
func NewBinary(width, height int) Binary {
	b := make(Binary, height)
	for y := range b {
		b[y] = make([]bool, width)
	}
	return b
}

// Dims returns (width, height). An empty raster reports (0, 0).
func (b Binary) Dims() (int, int) {
	if len(b) == 0 {
		return 0, 0
	}
	return len(b[0]), len(b)
}

// BinarizeGray thresholds a grayscale image. Pixels strictly above the
// threshold become foreground.
func BinarizeGray(g *image.Gray, threshold uint8) Binary {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := NewBinary(w, h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			out[y][x] = v > threshold
		}
	}
	return out
}

// Invert flips every pixel in place.
func (b Binary) Invert() {
	for y := range b {
		for x := range b[y] {
			b[y][x] = !b[y][x]
		}
	}
}

// ForegroundFraction returns the fraction of foreground pixels.
func (b Binary) ForegroundFraction() float64 {
	w, h := b.Dims()
	if w == 0 || h == 0 {
		return 0
	}
	count := 0
	for y := range b {
		for x := range b[y] {
			if b[y][x] {
				count++
			}
		}
	}
	return float64(count) / float64(w*h)
}

// ToGray renders the raster as an 8-bit image, foreground white.
func (b Binary) ToGray() *image.Gray {
	w, h := b.Dims()
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := range b {
		for x := range b[y] {
			if b[y][x] {
				g.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return g
}

// Dilate grows foreground regions by the given number of unit-radius
// passes.
func Dilate(b Binary, iterations int) Binary {
	img := image.Image(b.ToGray())
	for i := 0; i < iterations; i++ {
		img = effect.Dilate(img, 1)
	}
	return fromLuma(img)
}

// Close performs a morphological close: dilate then erode, each repeated
// the given number of passes. Closing bridges thin gaps between adjacent
// foreground regions without growing the final silhouette.
func Close(b Binary, iterations int) Binary {
	img := image.Image(b.ToGray())
	for i := 0; i < iterations; i++ {
		img = effect.Dilate(img, 1)
	}
	for i := 0; i < iterations; i++ {
		img = effect.Erode(img, 1)
	}
	return fromLuma(img)
}

// fromLuma rebuilds a Binary from any image by thresholding the red
// channel at mid-gray. bild filters return RGBA with equal channels for
// grayscale input.
func fromLuma(img image.Image) Binary {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := NewBinary(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out[y][x] = uint8(r>>8) > 127
		}
	}
	return out
}
