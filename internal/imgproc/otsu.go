package imgproc

import "image"

// Histogram counts the 256 intensity levels of a grayscale image.
func Histogram(g *image.Gray) [256]int {
	var hist [256]int
	b := g.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

// OtsuThreshold picks the threshold that maximizes between-class variance
// over the intensity histogram. Pixels strictly above the returned value
// are foreground.
func OtsuThreshold(g *image.Gray) uint8 {
	hist := Histogram(g)

	total := 0
	var sum float64
	for level, count := range hist {
		total += count
		sum += float64(level) * float64(count)
	}
	if total == 0 {
		return 0
	}

	var sumBackground float64
	var weightBackground int
	var maxVariance float64
	var threshold uint8

	for level := 0; level < 256; level++ {
		weightBackground += hist[level]
		if weightBackground == 0 {
			continue
		}
		weightForeground := total - weightBackground
		if weightForeground == 0 {
			break
		}

		sumBackground += float64(level) * float64(hist[level])
		meanBackground := sumBackground / float64(weightBackground)
		meanForeground := (sum - sumBackground) / float64(weightForeground)

		diff := meanBackground - meanForeground
		variance := float64(weightBackground) * float64(weightForeground) * diff * diff
		if variance > maxVariance {
			maxVariance = variance
			threshold = uint8(level)
		}
	}
	return threshold
}
