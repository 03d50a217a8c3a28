package workflow

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	apperrors "screenvec/internal/errors"
)

// ManifestScreen is one qualifying capture in the device manifest.
type ManifestScreen struct {
	ID         string    `json:"id"`
	SVG        string    `json:"svg"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ManifestRejection is one non-qualifying scan with its leading reason.
type ManifestRejection struct {
	File       string  `json:"file"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes,omitempty"`
}

// Manifest is the index the review frontend consumes.
type Manifest struct {
	Screens  []ManifestScreen    `json:"screens"`
	Rejected []ManifestRejection `json:"rejected"`
}

// BuildManifest assembles the manifest from the state document.
// Qualifying screens sort newest first; rejections sort by file name.
func (w *Workflow) BuildManifest() (*Manifest, error) {
	doc, err := w.store.Load()
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Screens:  []ManifestScreen{},
		Rejected: []ManifestRejection{},
	}
	for id, item := range doc.Items {
		if item.Validation.IsQualifying {
			manifest.Screens = append(manifest.Screens, ManifestScreen{
				ID:         id,
				SVG:        path.Join("screens", id+".svg"),
				Source:     item.SourcePath,
				Confidence: item.Validation.Confidence,
				UpdatedAt:  item.UpdatedAt,
			})
			continue
		}
		reason := "unknown"
		if len(item.Validation.ReasonCodes) > 0 {
			reason = item.Validation.ReasonCodes[0]
		}
		manifest.Rejected = append(manifest.Rejected, ManifestRejection{
			File:       path.Base(item.SourcePath),
			Reason:     reason,
			Confidence: item.Validation.Confidence,
			Notes:      item.Notes,
		})
	}

	sort.Slice(manifest.Screens, func(i, j int) bool {
		if !manifest.Screens[i].UpdatedAt.Equal(manifest.Screens[j].UpdatedAt) {
			return manifest.Screens[i].UpdatedAt.After(manifest.Screens[j].UpdatedAt)
		}
		return manifest.Screens[i].ID < manifest.Screens[j].ID
	})
	sort.Slice(manifest.Rejected, func(i, j int) bool {
		return manifest.Rejected[i].File < manifest.Rejected[j].File
	})
	return manifest, nil
}

// WriteManifest regenerates index.json for the device.
func (w *Workflow) WriteManifest() error {
	manifest, err := w.BuildManifest()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return apperrors.NewInternalError("failed to encode manifest", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.paths.ManifestPath), 0o755); err != nil {
		return apperrors.NewInternalError("failed to create images directory", err)
	}
	tmp := w.paths.ManifestPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.NewInternalError("failed to write manifest", err)
	}
	if err := os.Rename(tmp, w.paths.ManifestPath); err != nil {
		return apperrors.NewInternalError("failed to replace manifest", err)
	}
	return nil
}
