package imgproc

import (
	"image"

	"github.com/anthonynsimon/bild/histogram"
	"gonum.org/v1/gonum/stat"
)

// BlockVariance splits the image into a gridSize x gridSize lattice and
// returns the mean per-cell intensity variance. Flat synthetic renderings
// score much lower than photographed screens.
func BlockVariance(g *image.Gray, gridSize int) float64 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if gridSize <= 0 || w == 0 || h == 0 {
		return 0
	}
	cellW, cellH := w/gridSize, h/gridSize
	if cellW == 0 || cellH == 0 {
		return 0
	}

	var variances []float64
	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			yStart := i * cellH
			yEnd := minInt((i+1)*cellH, h)
			xStart := j * cellW
			xEnd := minInt((j+1)*cellW, w)

			var cell []float64
			for y := yStart; y < yEnd; y++ {
				row := g.Pix[y*g.Stride : y*g.Stride+w]
				for x := xStart; x < xEnd; x++ {
					cell = append(cell, float64(row[x]))
				}
			}
			if len(cell) > 0 {
				_, variance := stat.PopMeanVariance(cell, nil)
				variances = append(variances, variance)
			}
		}
	}
	if len(variances) == 0 {
		return 0
	}
	return stat.Mean(variances, nil)
}

// ColorEntropy measures colour diversity as the Shannon entropy (nats) of
// the channel-averaged RGB histogram. The second return value is true for
// single-channel sources, which should skip the colour check.
func ColorEntropy(img image.Image) (float64, bool) {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 0, true
	}

	hist := histogram.NewRGBAHistogram(img)
	bins := len(hist.R.Bins)
	combined := make([]float64, bins)
	var total float64
	for i := 0; i < bins; i++ {
		v := (float64(hist.R.Bins[i]) + float64(hist.G.Bins[i]) + float64(hist.B.Bins[i])) / 3.0
		combined[i] = v
		total += v
	}
	if total == 0 {
		return 0, false
	}
	for i := range combined {
		combined[i] /= total
	}
	return stat.Entropy(combined), false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
