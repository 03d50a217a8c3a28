// Package workflow runs the curation pipeline: batch ingest of incoming
// scans, single-item reruns, file relocation between incoming and
// rejected, and manifest generation.
package workflow

import (
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"screenvec/internal/config"
	"screenvec/internal/detector"
	apperrors "screenvec/internal/errors"
	"screenvec/internal/geometry"
	"screenvec/internal/logger"
	"screenvec/internal/normalize"
	"screenvec/internal/shapes"
	"screenvec/internal/state"
	"screenvec/internal/storage"
	"screenvec/internal/vector"
)

// Options tune batch behavior.
type Options struct {
	// MoveRejected relocates non-qualifying scans from incoming/ to
	// rejected/ during batch ingest.
	MoveRejected bool
	// Workers is the batch pool size; zero selects one per CPU.
	Workers int
}

// Workflow wires the pipeline stages for one device.
type Workflow struct {
	paths     config.DevicePaths
	source    storage.ImageSource
	detector  *detector.Detector
	qualifier *detector.Qualifier
	store     *state.Store
	shapes    *shapes.Library
	opts      Options
}

// New builds a workflow over the given device layout and components.
func New(
	paths config.DevicePaths,
	source storage.ImageSource,
	det *detector.Detector,
	qual *detector.Qualifier,
	store *state.Store,
	lib *shapes.Library,
	opts Options,
) *Workflow {
	return &Workflow{
		paths:     paths,
		source:    source,
		detector:  det,
		qualifier: qual,
		store:     store,
		shapes:    lib,
		opts:      opts,
	}
}

// ItemResult summarizes one batch item for the operator.
type ItemResult struct {
	Slug       string
	File       string
	Accepted   bool
	Confidence float64
	Reasons    []string
	Err        error
}

var scanExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// ProcessBatch runs every scan in incoming/ through the pipeline across
// the worker pool. Results come back in directory order. A missing
// incoming directory is an empty batch.
func (w *Workflow) ProcessBatch() ([]ItemResult, error) {
	entries, err := os.ReadDir(w.paths.IncomingDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read incoming directory", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if scanExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}

	pool := NewWorkerPool(w.opts.Workers)
	pool.Start()
	defer pool.Close()

	results := make([]ItemResult, len(files))
	for i, name := range files {
		i, name := i, name
		pool.Submit(func() {
			results[i] = w.ProcessFile(name)
		})
	}
	pool.Wait()
	return results, nil
}

// ProcessFile ingests a single scan from incoming/: detect, qualify,
// then either generate artifacts or record the rejection (optionally
// relocating the file).
func (w *Workflow) ProcessFile(name string) ItemResult {
	slug := Slugify(name)
	res := ItemResult{Slug: slug, File: name}
	log := logger.WithFields(logrus.Fields{"item": slug, "file": name})

	img, err := w.source.Load(filepath.Join(w.paths.IncomingDir, name))
	if err != nil {
		res.Err = err
		log.WithError(err).Error("failed to load scan")
		return res
	}

	result := w.detector.Detect(img)
	qual := w.qualifier.Qualify(result.Box, result.Confidence, result.Metrics, img)
	res.Accepted = qual.Accepted
	res.Confidence = result.Confidence
	res.Reasons = detector.ReasonStrings(qual.Reasons)

	sourceRel := path.Join("incoming", name)
	if !qual.Accepted {
		if w.opts.MoveRejected {
			sourceRel = w.relocate(log, sourceRel, false)
		}
		_, err := w.recordRejection(slug, sourceRel, result.Box, result.Confidence, res.Reasons)
		if err != nil {
			res.Err = err
			log.WithError(err).Error("failed to record rejection")
			return res
		}
		log.WithField("reasons", res.Reasons).Info("scan rejected")
		return res
	}

	if _, err := w.generate(slug, img, *result.Box, result.Confidence, nil, true, sourceRel); err != nil {
		res.Err = err
		log.WithError(err).Error("failed to generate artifacts")
		return res
	}
	log.WithField("confidence", result.Confidence).Info("scan accepted")
	return res
}

// Rerun reprocesses one item from its stored record. A stored bbox is
// used as-is (hard error when out of bounds); otherwise detection runs
// again. Artifacts regenerate whenever a box exists; the shape table
// only updates for qualifying items. An acceptance flip relocates the
// source file best-effort.
func (w *Workflow) Rerun(id string) (state.ItemState, error) {
	st, err := w.store.Get(id)
	if err != nil {
		return state.ItemState{}, err
	}
	log := logger.WithField("item", id)

	img, err := w.source.Load(w.paths.SourcePath(st.SourcePath))
	if err != nil {
		return state.ItemState{}, err
	}
	bounds := img.Bounds()

	var box *geometry.Box
	var confidence float64
	var metrics map[string]float64
	if st.BBox != nil {
		b := *st.BBox
		if !b.Valid() || !b.Inside(bounds.Dx(), bounds.Dy()) {
			return state.ItemState{}, apperrors.NewValidationError("stored bbox out of image bounds", nil)
		}
		confidence, metrics = w.detector.ScoreBox(img, b)
		box = &b
	} else {
		result := w.detector.Detect(img)
		box, confidence, metrics = result.Box, result.Confidence, result.Metrics
	}

	qual := w.qualifier.Qualify(box, confidence, metrics, img)
	reasons := detector.ReasonStrings(qual.Reasons)
	sourceRel := w.relocate(log, st.SourcePath, qual.Accepted)

	if box == nil {
		return w.recordRejection(id, sourceRel, nil, confidence, reasons)
	}
	return w.generate(id, img, *box, confidence, reasons, qual.Accepted, sourceRel)
}

// generate normalizes, binarizes, writes the SVG and preview artifacts,
// updates the shape table for qualifying items, and persists the
// resulting record. The stored threshold and overrides survive; a
// missing threshold is computed once and persisted so later reruns
// reproduce the same bitmap.
func (w *Workflow) generate(
	slug string,
	img image.Image,
	box geometry.Box,
	confidence float64,
	reasons []string,
	qualifying bool,
	sourceRel string,
) (state.ItemState, error) {
	gray, err := normalize.Normalize(img, box)
	if err != nil {
		return state.ItemState{}, err
	}

	var threshold *float64
	var overrides state.Overrides
	if existing, err := w.store.Get(slug); err == nil {
		threshold = existing.NormalizeParams.OtsuThreshold
		overrides = existing.Overrides
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return state.ItemState{}, err
	}
	if threshold == nil {
		t := normalize.OtsuThreshold(gray)
		threshold = &t
	}

	bm := normalize.Binarize(gray, threshold, overrides.ForceOn, overrides.ForceOff)
	density := normalize.PixelDensity(gray)

	if err := os.MkdirAll(w.paths.ScreensDir, 0o755); err != nil {
		return state.ItemState{}, apperrors.NewInternalError("failed to create screens directory", err)
	}
	if err := os.WriteFile(w.paths.SVGPath(slug), []byte(vector.Export(bm)), 0o644); err != nil {
		return state.ItemState{}, apperrors.NewInternalError("failed to write svg artifact", err)
	}
	if err := writePreview(w.paths.PreviewPath(slug), bm.ToGray()); err != nil {
		return state.ItemState{}, err
	}

	if qualifying {
		if _, err := w.shapes.UpdateFromBitmap(bm); err != nil {
			return state.ItemState{}, err
		}
	}

	if reasons == nil {
		reasons = []string{}
	}
	return w.store.Upsert(slug,
		func() state.ItemState { return state.NewItemState(sourceRel) },
		func(it *state.ItemState) {
			it.SourcePath = sourceRel
			b := box
			it.BBox = &b
			it.NormalizeParams.OtsuThreshold = threshold
			d := density
			it.Validation = state.Validation{
				IsQualifying: qualifying,
				Confidence:   confidence,
				ReasonCodes:  reasons,
				PixelDensity: &d,
			}
		})
}

func (w *Workflow) recordRejection(slug, sourceRel string, box *geometry.Box, confidence float64, reasons []string) (state.ItemState, error) {
	return w.store.Upsert(slug,
		func() state.ItemState { return state.NewItemState(sourceRel) },
		func(it *state.ItemState) {
			it.SourcePath = sourceRel
			if box != nil {
				b := *box
				it.BBox = &b
			} else {
				it.BBox = nil
			}
			it.Validation = state.Validation{
				IsQualifying: false,
				Confidence:   confidence,
				ReasonCodes:  reasons,
			}
		})
}

// relocate moves a source file into the directory matching its
// acceptance. Failures are logged and the original path kept; the state
// record stays authoritative either way.
func (w *Workflow) relocate(log *logrus.Entry, sourceRel string, accepted bool) string {
	base := path.Base(sourceRel)
	wantRel := path.Join("rejected", base)
	destDir := w.paths.RejectedDir
	if accepted {
		wantRel = path.Join("incoming", base)
		destDir = w.paths.IncomingDir
	}
	if sourceRel == wantRel {
		return sourceRel
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		log.WithError(err).Warn("failed to create relocation directory")
		return sourceRel
	}
	from := w.paths.SourcePath(sourceRel)
	to := filepath.Join(destDir, base)
	if err := os.Rename(from, to); err != nil {
		log.WithError(err).WithField("dest", to).Warn("failed to relocate source file")
		return sourceRel
	}
	log.WithField("dest", wantRel).Info("relocated source file")
	return wantRel
}

func writePreview(dest string, gray *image.Gray) error {
	f, err := os.Create(dest)
	if err != nil {
		return apperrors.NewInternalError("failed to create preview artifact", err)
	}
	if err := png.Encode(f, gray); err != nil {
		f.Close()
		return apperrors.NewInternalError("failed to encode preview artifact", err)
	}
	if err := f.Close(); err != nil {
		return apperrors.NewInternalError("failed to write preview artifact", err)
	}
	return nil
}
