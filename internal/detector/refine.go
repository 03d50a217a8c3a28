package detector

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"screenvec/internal/geometry"
	"screenvec/internal/imgproc"
)

// Refinement reason labels.
const (
	reasonSnapped     = "snapped_to_edges"
	reasonNoChange    = "no_change"
	reasonROITooSmall = "roi_too_small"
)

// RefinementInfo records what the snap-to-edges pass did to the winning
// candidate.
type RefinementInfo struct {
	Refined       bool         `json:"refined"`
	Reason        string       `json:"reason"`
	AreaReduction float64      `json:"area_reduction"`
	Original      geometry.Box `json:"original"`
	Snapped       geometry.Box `json:"snapped"`
}

// sideStats are the per-column or per-row measurements a scan position is
// scored on.
type sideStats struct {
	gradMean     float64
	edgeDensity  float64
	laplaceMean  float64
	intensityStd float64
}

// snap scans inward from each side of the box looking for the strongest
// content boundary and crops to it. Each side keeps the maximum-scoring
// position that clears both the adaptive thresholds and the absolute
// score floor.
func (c RefineConfig) snap(gray *image.Gray, box geometry.Box) (geometry.Box, RefinementInfo) {
	bounds := gray.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()
	info := RefinementInfo{Original: box, Snapped: box}

	box = box.Clamp(imgW, imgH)
	roi := cropGray(gray, box)
	roiW, roiH := roi.Bounds().Dx(), roi.Bounds().Dy()
	if roiW < c.MinSize || roiH < c.MinSize {
		info.Reason = reasonROITooSmall
		return info.Original, info
	}

	gradMag := imgproc.GradientMagnitude(roi)
	edges := imgproc.Canny(roi, c.CannyLow, c.CannyHigh)
	laplace := imgproc.LaplacianMagnitude(roi)

	// Baselines from the center half-region, where the screen content
	// lives, with whole-ROI fallbacks for sparse centers.
	centerGrad := regionMean(gradMag, roiH/4, 3*roiH/4, roiW/4, 3*roiW/4)
	centerEdge := regionFraction(edges, roiH/4, 3*roiH/4, roiW/4, 3*roiW/4)
	centerLaplace := regionMean(laplace, roiH/4, 3*roiH/4, roiW/4, 3*roiW/4)
	overallGrad := regionMean(gradMag, 0, roiH, 0, roiW)
	overallEdge := regionFraction(edges, 0, roiH, 0, roiW)

	gradThreshold := math.Max(math.Max(centerGrad*c.CenterGradFactor, overallGrad*c.OverallGradFactor), c.GradFloor)
	edgeThreshold := math.Max(math.Max(centerEdge*c.CenterEdgeFactor, overallEdge*c.OverallEdgeFactor), c.EdgeDensityFloor)
	laplaceThreshold := centerLaplace * c.CenterLaplaceScale

	accept := func(s sideStats, bestScore float64) (float64, bool) {
		score := s.gradMean*c.WeightGradient +
			s.edgeDensity*c.EdgeDensityScale*c.WeightEdge +
			s.laplaceMean*c.WeightLaplacian +
			s.intensityStd*c.WeightIntensity
		hasEdgeLine := s.edgeDensity > edgeThreshold
		hasGradient := s.gradMean > gradThreshold || s.laplaceMean > laplaceThreshold
		if (hasEdgeLine || hasGradient) && score > bestScore && score > c.ScoreFloor {
			return score, true
		}
		return score, false
	}

	columnStats := func(offset int) sideStats {
		var grad, edgeCount, lap float64
		intensities := make([]float64, roiH)
		for y := 0; y < roiH; y++ {
			grad += gradMag[y][offset]
			if edges[y][offset] {
				edgeCount++
			}
			lap += laplace[y][offset]
			intensities[y] = float64(roi.GrayAt(offset, y).Y)
		}
		n := float64(roiH)
		return sideStats{grad / n, edgeCount / n, lap / n, stat.PopStdDev(intensities, nil)}
	}
	rowStats := func(offset int) sideStats {
		var grad, edgeCount, lap float64
		intensities := make([]float64, roiW)
		for x := 0; x < roiW; x++ {
			grad += gradMag[offset][x]
			if edges[offset][x] {
				edgeCount++
			}
			lap += laplace[offset][x]
			intensities[x] = float64(roi.GrayAt(x, offset).Y)
		}
		n := float64(roiW)
		return sideStats{grad / n, edgeCount / n, lap / n, stat.PopStdDev(intensities, nil)}
	}

	scanMargin := minOf(c.MaxScanPixels, minOf(roiW, roiH)/4)

	bestLeft, bestLeftScore := 0, 0.0
	for offset := c.EdgeSkip; offset < minOf(scanMargin, roiW-c.EdgeSkip); offset++ {
		if score, ok := accept(columnStats(offset), bestLeftScore); ok {
			bestLeftScore = score
			bestLeft = offset
		}
	}

	bestRight, bestRightScore := roiW, 0.0
	for offset := roiW - 1 - c.EdgeSkip; offset >= maxOf(roiW-scanMargin, c.EdgeSkip); offset-- {
		if score, ok := accept(columnStats(offset), bestRightScore); ok {
			bestRightScore = score
			bestRight = offset + 1
		}
	}

	bestTop, bestTopScore := 0, 0.0
	for offset := c.EdgeSkip; offset < minOf(scanMargin, roiH-c.EdgeSkip); offset++ {
		if score, ok := accept(rowStats(offset), bestTopScore); ok {
			bestTopScore = score
			bestTop = offset
		}
	}

	bestBottom, bestBottomScore := roiH, 0.0
	for offset := roiH - 1 - c.EdgeSkip; offset >= maxOf(roiH-scanMargin, c.EdgeSkip); offset-- {
		if score, ok := accept(rowStats(offset), bestBottomScore); ok {
			bestBottomScore = score
			bestBottom = offset + 1
		}
	}

	snapped := geometry.Box{
		X:      box.X + bestLeft,
		Y:      box.Y + bestTop,
		Width:  bestRight - bestLeft,
		Height: bestBottom - bestTop,
	}

	if snapped.Width < c.MinSize {
		snapped.Width = c.MinSize
		if snapped.X+snapped.Width > imgW {
			snapped.X = maxOf(0, imgW-snapped.Width)
		}
	}
	if snapped.Height < c.MinSize {
		snapped.Height = c.MinSize
		if snapped.Y+snapped.Height > imgH {
			snapped.Y = maxOf(0, imgH-snapped.Height)
		}
	}
	snapped = snapped.Clamp(imgW, imgH)

	if snapped == info.Original {
		info.Reason = reasonNoChange
		return info.Original, info
	}

	info.Refined = true
	info.Reason = reasonSnapped
	info.Snapped = snapped
	if originalArea := info.Original.Area(); originalArea > 0 {
		info.AreaReduction = float64(originalArea-snapped.Area()) / float64(originalArea)
	}
	return snapped, info
}

func cropGray(g *image.Gray, box geometry.Box) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, box.Width, box.Height))
	for y := 0; y < box.Height; y++ {
		for x := 0; x < box.Width; x++ {
			out.SetGray(x, y, g.GrayAt(box.X+x, box.Y+y))
		}
	}
	return out
}

func regionMean(field [][]float64, y0, y1, x0, x1 int) float64 {
	var sum float64
	var n int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sum += field[y][x]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func regionFraction(mask imgproc.Binary, y0, y1, x0, x1 int) float64 {
	var count, n int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if mask[y][x] {
				count++
			}
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(count) / float64(n)
}

func minOf(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
