package detector

import (
	"image"

	"screenvec/internal/geometry"
)

// ReasonCode explains why a detection failed qualification.
type ReasonCode string

const (
	ReasonBBoxMissing       ReasonCode = "bbox_missing"
	ReasonDiagramDetected   ReasonCode = "diagram_detected"
	ReasonLowConfidence     ReasonCode = "low_confidence"
	ReasonAspectRatio       ReasonCode = "aspect_ratio"
	ReasonAreaTooSmall      ReasonCode = "area_too_small"
	ReasonBBoxTooLarge      ReasonCode = "bbox_too_large"
	ReasonLowRectangularity ReasonCode = "low_rectangularity"
	ReasonUnknown           ReasonCode = "unknown"
)

// QualifierConfig holds the acceptance thresholds. They are looser than
// the scoring targets because hand-reviewed accepted boxes span a wide
// aspect range.
type QualifierConfig struct {
	ConfidenceThreshold float64
	DiagramThreshold    float64

	AspectMin      float64
	AspectMax      float64
	AspectScoreMin float64

	AreaMin       float64
	AreaMax       float64
	FullFrameArea float64

	RectangularityMin float64

	// EdgeContrastMin and EdgeMargin drive the full-frame check: a box
	// within EdgeMargin of both the left and top edges that covers more
	// than FullFrameArea of the page and whose boundary contrast is
	// missing or below EdgeContrastMin is the page itself, not a screen.
	EdgeContrastMin float64
	EdgeMargin      int

	Diagram geometry.DiagramConfig
}

// DefaultQualifierConfig returns the qualification thresholds used in
// production.
func DefaultQualifierConfig() QualifierConfig {
	return QualifierConfig{
		ConfidenceThreshold: 0.75,
		DiagramThreshold:    0.4,

		AspectMin:      0.5,
		AspectMax:      5.0,
		AspectScoreMin: 0.3,

		AreaMin:       0.05,
		AreaMax:       0.90,
		FullFrameArea: 0.95,

		RectangularityMin: 0.6,

		EdgeContrastMin: 5,
		EdgeMargin:      10,

		Diagram: geometry.DefaultDiagramConfig(),
	}
}

// Qualification is the accept/reject decision with its reason codes.
// Reasons are ordered by check and never contain duplicates; a rejected
// item always has at least one.
type Qualification struct {
	Accepted bool
	Reasons  []ReasonCode
}

// Qualifier decides whether a detection result is a usable screen capture.
type Qualifier struct {
	cfg QualifierConfig
}

// NewQualifier builds a qualifier from the given configuration.
func NewQualifier(cfg QualifierConfig) *Qualifier {
	return &Qualifier{cfg: cfg}
}

// Qualify applies the reason-code checks to a detection. img may be nil,
// in which case the diagram check is skipped. A rejection is never
// unexplained: when no specific check fired, unknown is reported.
func (q *Qualifier) Qualify(box *geometry.Box, confidence float64, metrics map[string]float64, img image.Image) Qualification {
	if box == nil {
		return Qualification{Reasons: []ReasonCode{ReasonBBoxMissing}}
	}

	var reasons []ReasonCode
	add := func(code ReasonCode) {
		for _, existing := range reasons {
			if existing == code {
				return
			}
		}
		reasons = append(reasons, code)
	}

	if img != nil {
		likelihood, _ := MeasureDiagram(img, q.cfg.Diagram)
		if likelihood > q.cfg.DiagramThreshold {
			add(ReasonDiagramDetected)
		}
	}

	if confidence < q.cfg.ConfidenceThreshold {
		add(ReasonLowConfidence)
	}

	if aspect, ok := metrics["aspect_ratio"]; ok {
		if aspect < q.cfg.AspectMin || aspect > q.cfg.AspectMax {
			add(ReasonAspectRatio)
		} else if score, ok := metrics["aspect_score"]; ok && score < q.cfg.AspectScoreMin {
			add(ReasonAspectRatio)
		}
	} else if score, ok := metrics["aspect_score"]; ok && score < q.cfg.AspectScoreMin {
		add(ReasonAspectRatio)
	}

	if areaFraction, ok := metrics["area_fraction"]; ok {
		if areaFraction < q.cfg.AreaMin {
			add(ReasonAreaTooSmall)
		} else if areaFraction > q.cfg.AreaMax {
			add(ReasonBBoxTooLarge)
		}
	}

	if rectangularity, ok := metrics["rectangularity"]; ok && rectangularity < q.cfg.RectangularityMin {
		add(ReasonLowRectangularity)
	}

	// Full-frame check: a box hugging both top and left edges that covers
	// nearly the whole page needs crisp boundary contrast to survive.
	atLeft := box.X < q.cfg.EdgeMargin
	atTop := box.Y < q.cfg.EdgeMargin
	if atLeft && atTop && metrics["area_fraction"] > q.cfg.FullFrameArea {
		if contrast, ok := metrics["bbox_edge_contrast"]; !ok || contrast < q.cfg.EdgeContrastMin {
			add(ReasonBBoxTooLarge)
		}
	}

	accepted := confidence >= q.cfg.ConfidenceThreshold && len(reasons) == 0
	if !accepted && len(reasons) == 0 {
		add(ReasonUnknown)
	}
	return Qualification{Accepted: accepted, Reasons: reasons}
}

// ReasonStrings converts reason codes to their wire form.
func ReasonStrings(reasons []ReasonCode) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
