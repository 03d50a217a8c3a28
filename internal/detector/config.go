package detector

import "screenvec/internal/geometry"

// Config collects the constants of the detection pass: binarization and
// morphology for the bright-region generator, Canny thresholds for the
// edge generator, the candidate area floor, and the refinement scan.
type Config struct {
	Scoring geometry.ScoringConfig

	// MinAreaFraction drops candidates smaller than this fraction of the
	// page before scoring.
	MinAreaFraction float64

	// InvertBelowForeground flips the binary mask when fewer than this
	// fraction of pixels threshold as foreground, handling dark screens
	// photographed on light pages.
	InvertBelowForeground float64

	// CloseIterations is the number of unit-radius close passes applied
	// to the thresholded mask.
	CloseIterations int

	// CannyLow and CannyHigh are the edge-generator thresholds.
	CannyLow  float64
	CannyHigh float64

	// EdgeDilateIterations thickens the Canny map so broken outlines form
	// connected components.
	EdgeDilateIterations int

	// EdgeContrastThickness is the border strip width used to measure
	// boundary contrast on the winning candidate.
	EdgeContrastThickness int

	Refine RefineConfig
}

// RefineConfig tunes the snap-to-edges pass that crops whitespace from
// the winning candidate.
type RefineConfig struct {
	// EdgeSkip skips the outermost pixels of each side, which often carry
	// the photo container edge rather than the screen bezel.
	EdgeSkip int

	// ScanFraction and MaxScanPixels bound how far each side scans
	// inward: min(side * ScanFraction, MaxScanPixels).
	ScanFraction  float64
	MaxScanPixels int

	// MinSize is the smallest width and height a snapped box may have.
	MinSize int

	// CannyLow and CannyHigh are deliberately lower than the detection
	// thresholds so half-pixel bezel lines still register.
	CannyLow  float64
	CannyHigh float64

	// Adaptive threshold factors against the ROI's center half-region and
	// whole-ROI baselines, with absolute floors.
	CenterGradFactor   float64
	OverallGradFactor  float64
	GradFloor          float64
	CenterEdgeFactor   float64
	OverallEdgeFactor  float64
	EdgeDensityFloor   float64
	CenterLaplaceScale float64

	// Position score weights. Edge density is scaled up before weighting
	// because it lives in [0,1] while the other terms are intensity
	// magnitudes.
	WeightGradient   float64
	WeightEdge       float64
	EdgeDensityScale float64
	WeightLaplacian  float64
	WeightIntensity  float64

	// ScoreFloor is the absolute minimum a position score must clear.
	ScoreFloor float64
}

// DefaultConfig returns the detection constants used in production.
func DefaultConfig() Config {
	return Config{
		Scoring:               geometry.DefaultScoringConfig(),
		MinAreaFraction:       0.10,
		InvertBelowForeground: 0.30,
		CloseIterations:       2,
		CannyLow:              50,
		CannyHigh:             150,
		EdgeDilateIterations:  2,
		EdgeContrastThickness: 3,
		Refine: RefineConfig{
			EdgeSkip:      2,
			ScanFraction:  0.25,
			MaxScanPixels: 80,
			MinSize:       10,
			CannyLow:      20,
			CannyHigh:     60,

			CenterGradFactor:   0.3,
			OverallGradFactor:  0.4,
			GradFloor:          3.0,
			CenterEdgeFactor:   0.2,
			OverallEdgeFactor:  0.2,
			EdgeDensityFloor:   0.005,
			CenterLaplaceScale: 0.3,

			WeightGradient:   0.2,
			WeightEdge:       0.5,
			EdgeDensityScale: 200,
			WeightLaplacian:  0.2,
			WeightIntensity:  0.1,

			ScoreFloor: 5.0,
		},
	}
}
