package imgproc

import (
	"image"
	"image/draw"

	"gonum.org/v1/gonum/stat"

	"screenvec/internal/geometry"
)

// ToGray converts any image to 8-bit grayscale with the origin at (0,0).
// Gray sources already anchored at the origin are returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// RegionPixels returns the intensities of a box region as float64 values in
// row-major order. The box is clamped to the image first.
func RegionPixels(g *image.Gray, box geometry.Box) []float64 {
	b := g.Bounds()
	box = box.Clamp(b.Dx(), b.Dy())
	pixels := make([]float64, 0, box.Area())
	for y := box.Y; y < box.Y+box.Height; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for x := box.X; x < box.X+box.Width; x++ {
			pixels = append(pixels, float64(row[x]))
		}
	}
	return pixels
}

// RegionStdDev returns the population standard deviation of intensities in
// the region, or 0 for an empty region.
func RegionStdDev(g *image.Gray, box geometry.Box) float64 {
	pixels := RegionPixels(g, box)
	if len(pixels) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(pixels, nil)
	return std
}

// StdDev returns the population standard deviation over the whole image.
func StdDev(g *image.Gray) float64 {
	b := g.Bounds()
	return RegionStdDev(g, geometry.Box{Width: b.Dx(), Height: b.Dy()})
}

// BorderContrast measures how crisp a region's boundary is: the mean
// standard deviation of the four border strips of the given thickness.
// Clean screen edges produce high values, full-frame boxes against flat
// page background produce values near zero.
func BorderContrast(g *image.Gray, box geometry.Box, thickness int) float64 {
	b := g.Bounds()
	box = box.Clamp(b.Dx(), b.Dy())
	if thickness <= 0 || box.Width < thickness || box.Height < thickness {
		return 0
	}

	strips := []geometry.Box{
		{X: box.X, Y: box.Y, Width: box.Width, Height: thickness},
		{X: box.X, Y: box.Y + box.Height - thickness, Width: box.Width, Height: thickness},
		{X: box.X, Y: box.Y, Width: thickness, Height: box.Height},
		{X: box.X + box.Width - thickness, Y: box.Y, Width: thickness, Height: box.Height},
	}

	var sum float64
	var n int
	for _, strip := range strips {
		pixels := RegionPixels(g, strip)
		if len(pixels) == 0 {
			continue
		}
		_, std := stat.PopMeanStdDev(pixels, nil)
		sum += std
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
