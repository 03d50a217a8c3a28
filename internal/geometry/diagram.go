package geometry

import "math"

// DiagramConfig holds the feature baselines used to separate wiring and
// signal-path diagrams from photographed screens. Each baseline is the
// typical value observed on real screen photos; measurements below the low
// cutoff collapse to LowScore because they point at a diagram.
type DiagramConfig struct {
	AspectLow     float64
	AspectHigh    float64
	TargetAspect  float64
	AspectFalloff float64

	EdgeDensityBaseline  float64
	EdgeDensityLowCutoff float64

	LineDensityBaseline  float64
	LineDensityLowCutoff float64

	VarianceBaseline  float64
	VarianceLowCutoff float64

	EntropyBaseline  float64
	EntropyLowCutoff float64

	ContrastBaseline  float64
	ContrastLowCutoff float64

	LowScore float64

	WeightAspect   float64
	WeightEdges    float64
	WeightLines    float64
	WeightVariance float64
	WeightEntropy  float64
	WeightContrast float64
}

// DefaultDiagramConfig returns the diagram-detection constants used in
// production.
func DefaultDiagramConfig() DiagramConfig {
	return DiagramConfig{
		AspectLow:     0.7,
		AspectHigh:    2.5,
		TargetAspect:  1.95,
		AspectFalloff: 0.5,

		EdgeDensityBaseline:  0.07,
		EdgeDensityLowCutoff: 0.05,

		LineDensityBaseline:  0.025,
		LineDensityLowCutoff: 0.015,

		VarianceBaseline:  6500.0,
		VarianceLowCutoff: 4000.0,

		EntropyBaseline:  2.7,
		EntropyLowCutoff: 2.0,

		ContrastBaseline:  103.0,
		ContrastLowCutoff: 80.0,

		LowScore: 0.3,

		WeightAspect:   0.20,
		WeightEdges:    0.20,
		WeightLines:    0.15,
		WeightVariance: 0.15,
		WeightEntropy:  0.15,
		WeightContrast: 0.15,
	}
}

// DiagramMeasurements are the raw image-level measurements scored by
// DiagramConfig. Grayscale marks single-channel sources, which skip the
// colour-diversity check entirely.
type DiagramMeasurements struct {
	Aspect        float64
	EdgeDensity   float64
	LineDensity   float64
	BlockVariance float64
	ColorEntropy  float64
	Contrast      float64
	Grayscale     bool
}

// Score converts measurements into a diagram likelihood in [0,1], higher
// meaning more diagram-like, plus the per-feature sub-scores.
func (c DiagramConfig) Score(m DiagramMeasurements) (float64, map[string]float64) {
	features := map[string]float64{}

	if m.Aspect < c.AspectLow || m.Aspect > c.AspectHigh {
		features["aspect_ratio_score"] = c.LowScore
	} else {
		features["aspect_ratio_score"] = math.Max(0, 1.0-math.Abs(m.Aspect-c.TargetAspect)/c.AspectFalloff)
	}

	features["edge_density_score"] = c.baselineScore(m.EdgeDensity, c.EdgeDensityLowCutoff, c.EdgeDensityBaseline)
	features["structured_line_score"] = c.baselineScore(m.LineDensity, c.LineDensityLowCutoff, c.LineDensityBaseline)
	features["structural_variance_score"] = c.baselineScore(m.BlockVariance, c.VarianceLowCutoff, c.VarianceBaseline)

	if m.Grayscale {
		features["color_diversity_score"] = 1.0
	} else {
		features["color_diversity_score"] = c.baselineScore(m.ColorEntropy, c.EntropyLowCutoff, c.EntropyBaseline)
	}

	features["contrast_score"] = c.baselineScore(m.Contrast, c.ContrastLowCutoff, c.ContrastBaseline)

	screenLikeness := features["aspect_ratio_score"]*c.WeightAspect +
		features["edge_density_score"]*c.WeightEdges +
		features["structured_line_score"]*c.WeightLines +
		features["structural_variance_score"]*c.WeightVariance +
		features["color_diversity_score"]*c.WeightEntropy +
		features["contrast_score"]*c.WeightContrast

	likelihood := 1.0 - screenLikeness
	features["diagram_confidence"] = likelihood
	return likelihood, features
}

func (c DiagramConfig) baselineScore(value, lowCutoff, baseline float64) float64 {
	if value < lowCutoff {
		return c.LowScore
	}
	return math.Min(1.0, value/baseline)
}
