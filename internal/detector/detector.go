// Package detector locates the embedded display region in a scanned page
// and decides whether the detection qualifies for vectorization.
package detector

import (
	"image"

	"screenvec/internal/geometry"
	"screenvec/internal/imgproc"
)

// Result is the outcome of a detection pass. A nil Box means no candidate
// survived; Metrics then carries bbox_missing so the non-result is still
// fully typed.
type Result struct {
	Box        *geometry.Box
	Confidence float64
	Metrics    map[string]float64
	Refinement *RefinementInfo
}

// candidateGenerator proposes candidate regions from a grayscale page.
type candidateGenerator func(gray *image.Gray) []geometry.Candidate

// Detector finds the screen region of a page image.
type Detector struct {
	cfg        Config
	generators []candidateGenerator
}

// New builds a detector from the given configuration.
func New(cfg Config) *Detector {
	d := &Detector{cfg: cfg}
	d.generators = []candidateGenerator{
		d.brightRegionCandidates,
		d.edgeOutlineCandidates,
	}
	return d
}

// Detect locates the most screen-like region of the image. The winning
// candidate is always run through the snap-to-edges refinement; a
// no-change refinement keeps the original box.
func (d *Detector) Detect(img image.Image) Result {
	gray := imgproc.ToGray(img)
	bounds := gray.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()
	totalArea := float64(imgW * imgH)

	var candidates []geometry.Candidate
	for _, generate := range d.generators {
		candidates = append(candidates, generate(gray)...)
	}
	if len(candidates) == 0 {
		return Result{Metrics: map[string]float64{"bbox_missing": 1.0}}
	}

	var best *geometry.Box
	bestScore := 0.0
	var bestMetrics map[string]float64

	for _, cand := range candidates {
		if float64(cand.Box.Area()) < totalArea*d.cfg.MinAreaFraction {
			continue
		}
		roiStd := imgproc.RegionStdDev(gray, cand.Box)
		confidence, metrics := d.cfg.Scoring.Score(cand, imgW, imgH, roiStd)
		if confidence > bestScore {
			bestScore = confidence
			box := cand.Box
			best = &box
			bestMetrics = metrics
		}
	}
	if best == nil {
		return Result{Metrics: map[string]float64{"bbox_missing": 1.0}}
	}

	bestMetrics["bbox_edge_contrast"] = imgproc.BorderContrast(gray, *best, d.cfg.EdgeContrastThickness)

	snapped, info := d.cfg.Refine.snap(gray, *best)
	if info.Refined {
		*best = snapped
		bestMetrics["refined"] = 1
		bestMetrics["area_reduction"] = info.AreaReduction
		bestMetrics["area_fraction"] = best.AreaFraction(imgW, imgH)
		bestMetrics["aspect_ratio"] = best.Aspect()
	} else {
		bestMetrics["refined"] = 0
	}

	return Result{
		Box:        best,
		Confidence: bestScore,
		Metrics:    bestMetrics,
		Refinement: &info,
	}
}

// ScoreBox recomputes confidence and metrics for a caller-supplied box,
// bypassing candidate generation. Used when a reviewer has adjusted the
// box by hand. The fill count comes from the same binary mask the
// bright-region generator uses, so rectangularity stays comparable.
func (d *Detector) ScoreBox(img image.Image, box geometry.Box) (float64, map[string]float64) {
	gray := imgproc.ToGray(img)
	bounds := gray.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()
	box = box.Clamp(imgW, imgH)

	mask := d.foregroundMask(gray)
	fill := 0
	for y := box.Y; y < box.Y+box.Height; y++ {
		for x := box.X; x < box.X+box.Width; x++ {
			if mask[y][x] {
				fill++
			}
		}
	}

	cand := geometry.Candidate{Box: box, FillCount: fill}
	confidence, metrics := d.cfg.Scoring.Score(cand, imgW, imgH, imgproc.RegionStdDev(gray, box))
	metrics["bbox_edge_contrast"] = imgproc.BorderContrast(gray, box, d.cfg.EdgeContrastThickness)
	return confidence, metrics
}

// foregroundMask thresholds the page with Otsu and flips the mask when
// foreground is scarce, which happens for dark screens on light pages.
func (d *Detector) foregroundMask(gray *image.Gray) imgproc.Binary {
	binary := imgproc.BinarizeGray(gray, imgproc.OtsuThreshold(gray))
	if binary.ForegroundFraction() < d.cfg.InvertBelowForeground {
		binary.Invert()
	}
	return binary
}

func (d *Detector) brightRegionCandidates(gray *image.Gray) []geometry.Candidate {
	mask := imgproc.Close(d.foregroundMask(gray), d.cfg.CloseIterations)
	return componentCandidates(mask)
}

func (d *Detector) edgeOutlineCandidates(gray *image.Gray) []geometry.Candidate {
	edges := imgproc.Canny(gray, d.cfg.CannyLow, d.cfg.CannyHigh)
	dilated := imgproc.Dilate(edges, d.cfg.EdgeDilateIterations)
	return componentCandidates(dilated)
}

func componentCandidates(mask imgproc.Binary) []geometry.Candidate {
	_, comps := imgproc.LabelComponents(mask)
	candidates := make([]geometry.Candidate, 0, len(comps))
	for _, comp := range comps {
		candidates = append(candidates, geometry.Candidate{Box: comp.Box, FillCount: comp.Count})
	}
	return candidates
}
