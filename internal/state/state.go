// Package state persists the per-item curation records for one device.
package state

import (
	"time"

	"screenvec/internal/bitmap"
	"screenvec/internal/geometry"
)

// DocumentVersion identifies the on-disk schema.
const DocumentVersion = "1.0"

// Flag keys and values with defined meaning. manual_status is a reviewer
// annotation for display only; it never affects artifact generation or
// where the source file lives.
const (
	FlagManualStatus = "manual_status"

	ManualStatusOK          = "ok"
	ManualStatusNeedsReview = "needs_review"
	ManualStatusRejected    = "rejected"
)

// Document is the full state file for a device, keyed by item slug.
type Document struct {
	Version string               `json:"version"`
	Items   map[string]ItemState `json:"items"`
}

// NormalizeParams records how an item was reduced to its bitmap.
type NormalizeParams struct {
	TargetSize    [2]int   `json:"target_size"`
	OtsuThreshold *float64 `json:"otsu_threshold,omitempty"`
}

// Validation is the qualification outcome for an item.
type Validation struct {
	IsQualifying bool     `json:"is_qualifying"`
	Confidence   float64  `json:"confidence"`
	ReasonCodes  []string `json:"reason_codes"`
	PixelDensity *float64 `json:"pixel_density,omitempty"`
}

// Overrides are absolute per-pixel corrections applied after
// thresholding. force_on is applied first, so a pixel in both lists ends
// up unlit.
type Overrides struct {
	ForceOn  [][2]int `json:"force_on,omitempty"`
	ForceOff [][2]int `json:"force_off,omitempty"`
}

// ItemState is one item's record. SourcePath is relative to the device
// images directory ("incoming/<file>" or "rejected/<file>").
type ItemState struct {
	SourcePath      string            `json:"source_path"`
	UpdatedAt       time.Time         `json:"updated_at"`
	BBox            *geometry.Box     `json:"bbox,omitempty"`
	NormalizeParams NormalizeParams   `json:"normalize_params"`
	Validation      Validation        `json:"validation"`
	Overrides       Overrides         `json:"overrides"`
	Flags           map[string]string `json:"flags,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

// NewItemState returns a fresh record for a source file with the
// default normalization target.
func NewItemState(sourcePath string) ItemState {
	return ItemState{
		SourcePath: sourcePath,
		NormalizeParams: NormalizeParams{
			TargetSize: [2]int{bitmap.TargetWidth, bitmap.TargetHeight},
		},
	}
}

// ManualStatus returns the reviewer's manual_status flag, or "" when
// unset.
func (s ItemState) ManualStatus() string {
	return s.Flags[FlagManualStatus]
}

// Patch is a partial update. Nil fields leave the current value alone.
// ForceOn and ForceOff replace their list wholesale when set; Flags
// merge key by key, with an empty value deleting the key.
type Patch struct {
	BBox      *geometry.Box     `json:"bbox,omitempty"`
	Threshold *float64          `json:"threshold,omitempty"`
	ForceOn   *[][2]int         `json:"force_on,omitempty"`
	ForceOff  *[][2]int         `json:"force_off,omitempty"`
	Flags     map[string]string `json:"flags,omitempty"`
	Notes     *string           `json:"notes,omitempty"`
}

func (p Patch) apply(item *ItemState) {
	if p.BBox != nil {
		box := *p.BBox
		item.BBox = &box
	}
	if p.Threshold != nil {
		t := *p.Threshold
		item.NormalizeParams.OtsuThreshold = &t
	}
	if p.ForceOn != nil {
		item.Overrides.ForceOn = clonePoints(*p.ForceOn)
	}
	if p.ForceOff != nil {
		item.Overrides.ForceOff = clonePoints(*p.ForceOff)
	}
	if len(p.Flags) > 0 {
		if item.Flags == nil {
			item.Flags = map[string]string{}
		}
		for k, v := range p.Flags {
			if v == "" {
				delete(item.Flags, k)
			} else {
				item.Flags[k] = v
			}
		}
		if len(item.Flags) == 0 {
			item.Flags = nil
		}
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
}

func (s ItemState) clone() ItemState {
	out := s
	if s.BBox != nil {
		box := *s.BBox
		out.BBox = &box
	}
	if s.NormalizeParams.OtsuThreshold != nil {
		t := *s.NormalizeParams.OtsuThreshold
		out.NormalizeParams.OtsuThreshold = &t
	}
	if s.Validation.PixelDensity != nil {
		d := *s.Validation.PixelDensity
		out.Validation.PixelDensity = &d
	}
	if s.Validation.ReasonCodes != nil {
		out.Validation.ReasonCodes = append([]string(nil), s.Validation.ReasonCodes...)
	}
	out.Overrides.ForceOn = clonePoints(s.Overrides.ForceOn)
	out.Overrides.ForceOff = clonePoints(s.Overrides.ForceOff)
	if s.Flags != nil {
		out.Flags = make(map[string]string, len(s.Flags))
		for k, v := range s.Flags {
			out.Flags[k] = v
		}
	}
	return out
}

func clonePoints(pts [][2]int) [][2]int {
	if pts == nil {
		return nil
	}
	return append([][2]int(nil), pts...)
}
