package state

import (
	"path/filepath"
	"testing"
	"time"

	apperrors "screenvec/internal/errors"
	"screenvec/internal/geometry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state.json"))
}

func TestStoreMissingFileIsEmptyDocument(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Version != DocumentVersion {
		t.Errorf("version = %q, want %q", doc.Version, DocumentVersion)
	}
	if len(doc.Items) != 0 {
		t.Errorf("items = %d, want 0", len(doc.Items))
	}

	if _, err := s.Get("absent"); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Get on empty store error = %v, want not_found", err)
	}
}

func TestStoreSetAndReload(t *testing.T) {
	s := newTestStore(t)

	item := NewItemState("incoming/boot-menu.png")
	item.BBox = &geometry.Box{X: 20, Y: 10, Width: 300, Height: 140}
	item.Validation = Validation{IsQualifying: true, Confidence: 0.91, ReasonCodes: []string{}}

	saved, err := s.Set("boot-menu", item)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("Set must stamp UpdatedAt")
	}
	if saved.NormalizeParams.TargetSize != [2]int{128, 64} {
		t.Errorf("target size = %v, want [128 64]", saved.NormalizeParams.TargetSize)
	}

	// A fresh store over the same file sees the persisted record.
	got, err := NewStore(s.path).Get("boot-menu")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if got.SourcePath != "incoming/boot-menu.png" {
		t.Errorf("source path = %q", got.SourcePath)
	}
	if got.BBox == nil || got.BBox.Width != 300 {
		t.Errorf("bbox = %+v, want width 300", got.BBox)
	}
}

func TestStoreCopiesOut(t *testing.T) {
	s := newTestStore(t)
	item := NewItemState("incoming/a.png")
	item.Overrides.ForceOn = [][2]int{{1, 1}}
	if _, err := s.Set("a", item); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Overrides.ForceOn[0] = [2]int{9, 9}
	got.Flags = map[string]string{FlagManualStatus: ManualStatusRejected}

	again, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Overrides.ForceOn[0] != [2]int{1, 1} {
		t.Error("mutating a returned record must not leak into the store")
	}
	if len(again.Flags) != 0 {
		t.Error("flags added to a returned record must not leak into the store")
	}
}

func TestApplyMergeSemantics(t *testing.T) {
	s := newTestStore(t)
	item := NewItemState("incoming/a.png")
	item.Overrides.ForceOn = [][2]int{{1, 1}, {2, 2}}
	item.Flags = map[string]string{"needs_crop": "true"}
	item.Notes = "original"
	if _, err := s.Set("a", item); err != nil {
		t.Fatalf("Set: %v", err)
	}

	threshold := 140.0
	notes := "tightened threshold"
	forceOff := [][2]int{{3, 3}}
	updated, err := s.Apply("a", Patch{
		Threshold: &threshold,
		ForceOff:  &forceOff,
		Flags:     map[string]string{FlagManualStatus: ManualStatusNeedsReview},
		Notes:     &notes,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Untouched fields survive.
	if len(updated.Overrides.ForceOn) != 2 {
		t.Errorf("force_on = %v, want the original two points", updated.Overrides.ForceOn)
	}
	if updated.Flags["needs_crop"] != "true" {
		t.Error("existing flag keys must survive a merge")
	}
	// Patched fields replace.
	if updated.NormalizeParams.OtsuThreshold == nil || *updated.NormalizeParams.OtsuThreshold != 140.0 {
		t.Errorf("threshold = %v, want 140", updated.NormalizeParams.OtsuThreshold)
	}
	if len(updated.Overrides.ForceOff) != 1 || updated.Overrides.ForceOff[0] != [2]int{3, 3} {
		t.Errorf("force_off = %v", updated.Overrides.ForceOff)
	}
	if updated.ManualStatus() != ManualStatusNeedsReview {
		t.Errorf("manual status = %q", updated.ManualStatus())
	}
	if updated.Notes != "tightened threshold" {
		t.Errorf("notes = %q", updated.Notes)
	}

	// An empty flag value deletes the key.
	updated, err = s.Apply("a", Patch{Flags: map[string]string{FlagManualStatus: ""}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if updated.ManualStatus() != "" {
		t.Errorf("manual status after delete = %q, want empty", updated.ManualStatus())
	}
}

func TestApplyMissingItem(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Apply("ghost", Patch{}); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Apply on missing item error = %v, want not_found", err)
	}
}

func TestApplyRefreshesUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Set("a", NewItemState("incoming/a.png")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	before, _ := s.Get("a")
	time.Sleep(5 * time.Millisecond)
	after, err := s.Apply("a", Patch{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("Apply must refresh UpdatedAt even for an empty patch")
	}
}

func TestUpsertCreatesThenMerges(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Upsert("b", func() ItemState { return NewItemState("incoming/b.png") }, func(it *ItemState) {
		it.Validation.Confidence = 0.8
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created.SourcePath != "incoming/b.png" || created.Validation.Confidence != 0.8 {
		t.Errorf("created = %+v", created)
	}

	// Second pass sees the existing record, not a fresh one.
	updated, err := s.Upsert("b", func() ItemState { return NewItemState("incoming/other.png") }, func(it *ItemState) {
		it.Validation.IsQualifying = true
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if updated.SourcePath != "incoming/b.png" {
		t.Errorf("source path = %q, want the original", updated.SourcePath)
	}
	if updated.Validation.Confidence != 0.8 || !updated.Validation.IsQualifying {
		t.Errorf("validation = %+v", updated.Validation)
	}
}
