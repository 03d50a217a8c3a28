package detector

import (
	"image"

	"screenvec/internal/geometry"
	"screenvec/internal/imgproc"
)

// Measurement constants for the diagram check. Canny thresholds match the
// detection generator; the run length matches a 25px structuring element.
const (
	diagramCannyLow  = 50
	diagramCannyHigh = 150
	diagramMinRun    = 25
	diagramGridSize  = 8
)

// MeasureDiagram extracts the image-level features that separate vector
// diagrams from photographed screens and scores them with the given
// configuration. Returns the diagram likelihood and per-feature scores.
func MeasureDiagram(img image.Image, cfg geometry.DiagramConfig) (float64, map[string]float64) {
	gray := imgproc.ToGray(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	aspect := 0.0
	if h > 0 {
		aspect = float64(w) / float64(h)
	}

	edges := imgproc.Canny(gray, diagramCannyLow, diagramCannyHigh)
	entropy, grayscale := imgproc.ColorEntropy(img)

	m := geometry.DiagramMeasurements{
		Aspect:        aspect,
		EdgeDensity:   edges.ForegroundFraction(),
		LineDensity:   imgproc.LineRunDensity(edges, diagramMinRun),
		BlockVariance: imgproc.BlockVariance(gray, diagramGridSize),
		ColorEntropy:  entropy,
		Contrast:      imgproc.StdDev(gray),
		Grayscale:     grayscale,
	}
	return cfg.Score(m)
}
