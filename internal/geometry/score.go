package geometry

import "math"

// ScoringConfig holds every tunable constant used when ranking candidate
// screen regions. The defaults were fitted against manually reviewed
// bounding boxes: most accepted boxes hug the top-left corner, the median
// aspect ratio sits just below 2:1, and a handful of pixel sizes recur
// across the corpus.
type ScoringConfig struct {
	// TargetAspect is the preferred width/height ratio.
	TargetAspect float64
	// AspectHardMin and AspectHardMax bound the acceptable aspect range.
	// Candidates outside score zero on the aspect component.
	AspectHardMin float64
	AspectHardMax float64
	// AspectFalloff controls how quickly the aspect score decays per unit
	// of distance from TargetAspect.
	AspectFalloff float64

	// AreaCap truncates the area fraction before scoring so that larger
	// regions stop earning extra credit.
	AreaCap float64
	// AreaPenaltyHigh applies above AreaHighFraction, AreaPenaltyModerate
	// above AreaModerateFraction. Near-full-frame boxes are usually the
	// photo itself rather than the embedded screen.
	AreaHighFraction     float64
	AreaPenaltyHigh      float64
	AreaModerateFraction float64
	AreaPenaltyModerate  float64

	// ContrastScale normalizes the ROI intensity stddev into [0,1].
	ContrastScale float64

	// PositionRange is the pixel distance from the left or top edge over
	// which the position score decays to zero.
	PositionRange float64

	// CommonSizes lists recurring (width, height) screen crops. A
	// candidate within SizeTolerance of any of them earns SizeBonus.
	CommonSizes   [][2]int
	SizeTolerance float64
	SizeBonus     float64

	// Component weights.
	WeightAspect         float64
	WeightArea           float64
	WeightRectangularity float64
	WeightContrast       float64
	WeightPosition       float64
}

// DefaultScoringConfig returns the scoring constants used in production.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		TargetAspect:  1.95,
		AspectHardMin: 0.7,
		AspectHardMax: 4.0,
		AspectFalloff: 1.5,

		AreaCap:              0.5,
		AreaHighFraction:     0.90,
		AreaPenaltyHigh:      0.4,
		AreaModerateFraction: 0.85,
		AreaPenaltyModerate:  0.7,

		ContrastScale: 50.0,
		PositionRange: 30.0,

		CommonSizes: [][2]int{
			{500, 250},
			{100, 100},
			{540, 280},
			{550, 280},
			{530, 280},
			{497, 250},
		},
		SizeTolerance: 0.1,
		SizeBonus:     0.15,

		WeightAspect:         0.30,
		WeightArea:           0.20,
		WeightRectangularity: 0.20,
		WeightContrast:       0.15,
		WeightPosition:       0.15,
	}
}

// Candidate is a scored region proposal. FillCount is the number of
// foreground pixels of the connected component that produced the box.
type Candidate struct {
	Box       Box
	FillCount int
}

// AspectScore scores an aspect ratio against the target. Zero outside the
// hard band, linear falloff inside it.
func (c ScoringConfig) AspectScore(aspect float64) float64 {
	if aspect < c.AspectHardMin || aspect > c.AspectHardMax {
		return 0
	}
	return math.Max(0, 1.0-math.Abs(aspect-c.TargetAspect)/c.AspectFalloff)
}

// AreaPenalty returns the multiplier applied to oversized candidates.
func (c ScoringConfig) AreaPenalty(areaFraction float64) float64 {
	switch {
	case areaFraction > c.AreaHighFraction:
		return c.AreaPenaltyHigh
	case areaFraction > c.AreaModerateFraction:
		return c.AreaPenaltyModerate
	default:
		return 1.0
	}
}

// PositionScore rewards boxes anchored near the top-left corner.
func (c ScoringConfig) PositionScore(x, y int) float64 {
	edgeDistance := float64(minInt(x, y))
	return math.Max(0, 1.0-edgeDistance/c.PositionRange)
}

// SizeScore returns SizeBonus when the box matches a common screen crop
// within tolerance on both dimensions.
func (c ScoringConfig) SizeScore(width, height int) float64 {
	for _, size := range c.CommonSizes {
		cw, ch := size[0], size[1]
		wMatch := math.Abs(float64(width-cw))/math.Max(float64(cw), 1) < c.SizeTolerance
		hMatch := math.Abs(float64(height-ch))/math.Max(float64(ch), 1) < c.SizeTolerance
		if wMatch && hMatch {
			return c.SizeBonus
		}
	}
	return 0
}

// ContrastScore normalizes an ROI stddev to [0,1].
func (c ScoringConfig) ContrastScore(stdDev float64) float64 {
	return math.Min(stdDev/c.ContrastScale, 1.0)
}

// Score combines the sub-scores for a candidate into a confidence value
// and per-component metrics. roiStdDev is the intensity stddev of the
// candidate's region in the grayscale image.
func (c ScoringConfig) Score(cand Candidate, imgWidth, imgHeight int, roiStdDev float64) (float64, map[string]float64) {
	aspect := cand.Box.Aspect()
	aspectScore := c.AspectScore(aspect)

	areaFraction := cand.Box.AreaFraction(imgWidth, imgHeight)
	penalty := c.AreaPenalty(areaFraction)

	rectangularity := 0.0
	if area := cand.Box.Area(); area > 0 {
		rectangularity = float64(cand.FillCount) / float64(area)
	}

	contrastScore := c.ContrastScore(roiStdDev)
	positionScore := c.PositionScore(cand.Box.X, cand.Box.Y)
	sizeScore := c.SizeScore(cand.Box.Width, cand.Box.Height)

	// The area term carries the penalty on its own and the whole sum is
	// penalized again, so near-full-frame boxes are doubly discounted.
	confidence := (aspectScore*c.WeightAspect +
		math.Min(areaFraction, c.AreaCap)*2.0*c.WeightArea*penalty +
		rectangularity*c.WeightRectangularity +
		contrastScore*c.WeightContrast +
		positionScore*c.WeightPosition +
		sizeScore) * penalty

	metrics := map[string]float64{
		"aspect_ratio":   aspect,
		"aspect_score":   aspectScore,
		"area_fraction":  areaFraction,
		"rectangularity": rectangularity,
		"contrast_score": contrastScore,
		"position_score": positionScore,
		"size_score":     sizeScore,
	}
	return confidence, metrics
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
