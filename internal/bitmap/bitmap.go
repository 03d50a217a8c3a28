// Package bitmap provides the fixed-size boolean raster that normalized
// screen captures are reduced to before vectorization.
package bitmap

import (
	"image"
	"image/color"
)

// Target dimensions of a normalized screen capture.
const (
	TargetWidth  = 128
	TargetHeight = 64
)

// Bitmap is a width x height boolean raster, true meaning a lit pixel.
type Bitmap struct {
	width  int
	height int
	bits   []bool
}

// New allocates a cleared bitmap. Non-positive dimensions yield an empty
// bitmap.
func New(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Bitmap{width: width, height: height, bits: make([]bool, width*height)}
}

// NewTarget allocates a cleared bitmap at the normalized screen size.
func NewTarget() *Bitmap {
	return New(TargetWidth, TargetHeight)
}

// Width returns the raster width.
func (b *Bitmap) Width() int { return b.width }

// Height returns the raster height.
func (b *Bitmap) Height() int { return b.height }

// In reports whether (x, y) is inside the raster.
func (b *Bitmap) In(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// At returns the pixel at (x, y). Out-of-range coordinates read false.
func (b *Bitmap) At(x, y int) bool {
	if !b.In(x, y) {
		return false
	}
	return b.bits[y*b.width+x]
}

// Set assigns the pixel at (x, y). Out-of-range coordinates are ignored.
func (b *Bitmap) Set(x, y int, on bool) {
	if !b.In(x, y) {
		return
	}
	b.bits[y*b.width+x] = on
}

// Count returns the number of lit pixels.
func (b *Bitmap) Count() int {
	n := 0
	for _, v := range b.bits {
		if v {
			n++
		}
	}
	return n
}

// Density returns the lit fraction, 0 for an empty raster.
func (b *Bitmap) Density() float64 {
	if len(b.bits) == 0 {
		return 0
	}
	return float64(b.Count()) / float64(len(b.bits))
}

// Clone returns an independent copy.
func (b *Bitmap) Clone() *Bitmap {
	c := New(b.width, b.height)
	copy(c.bits, b.bits)
	return c
}

// Equal reports whether two bitmaps have identical dimensions and pixels.
func (b *Bitmap) Equal(other *Bitmap) bool {
	if other == nil || b.width != other.width || b.height != other.height {
		return false
	}
	for i, v := range b.bits {
		if v != other.bits[i] {
			return false
		}
	}
	return true
}

// Bytes returns the pixels as row-major bytes, 1 for lit and 0 for unlit.
func (b *Bitmap) Bytes() []byte {
	out := make([]byte, len(b.bits))
	for i, v := range b.bits {
		if v {
			out[i] = 1
		}
	}
	return out
}

// ToGray renders the bitmap as an 8-bit grayscale image, lit pixels white.
func (b *Bitmap) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.At(x, y) {
				g.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return g
}

// FromGray thresholds a grayscale image into a bitmap. Pixels strictly
// above the threshold are lit.
func FromGray(g *image.Gray, threshold uint8) *Bitmap {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	b := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y > threshold {
				b.Set(x, y, true)
			}
		}
	}
	return b
}
