package shapes

import (
	"path/filepath"
	"testing"

	"screenvec/internal/bitmap"
)

func drawGlyph(bm *bitmap.Bitmap, ox, oy int, rows []string) {
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				bm.Set(ox+x, oy+y, true)
			}
		}
	}
}

func TestExtractMasksSharedBoundingBox(t *testing.T) {
	// A C shape whose bounding box contains a separate single-pixel
	// component. The C's bitmap must not pick up the inner pixel.
	bm := bitmap.New(16, 16)
	drawGlyph(bm, 2, 2, []string{
		"#####",
		"#....",
		"#.#..",
		"#....",
		"#####",
	})

	comps := Extract(bm)
	if len(comps) != 2 {
		t.Fatalf("components = %d, want 2", len(comps))
	}

	// Row-major discovery: the C comes first.
	c, dot := comps[0], comps[1]
	if c.Bitmap.Count() != 13 {
		t.Errorf("C has %d lit pixels, want 13", c.Bitmap.Count())
	}
	if c.Box.Width != 5 || c.Box.Height != 5 {
		t.Errorf("C box = %+v, want 5x5", c.Box)
	}
	// The inner pixel sits at (2,2) inside the C's box but must be masked
	// out of the C's bitmap.
	if c.Bitmap.At(2, 2) {
		t.Error("inner pixel leaked into the enclosing component")
	}
	if dot.Bitmap.Count() != 1 || dot.Box.Width != 1 || dot.Box.Height != 1 {
		t.Errorf("dot component = %+v count %d, want lone pixel", dot.Box, dot.Bitmap.Count())
	}
}

func TestHashPositionInvariant(t *testing.T) {
	glyph := []string{
		".#.",
		"###",
		".#.",
	}

	a := bitmap.NewTarget()
	drawGlyph(a, 0, 0, glyph)
	b := bitmap.NewTarget()
	drawGlyph(b, 100, 50, glyph)

	compsA := Extract(a)
	compsB := Extract(b)
	if len(compsA) != 1 || len(compsB) != 1 {
		t.Fatalf("component counts = %d, %d, want 1 each", len(compsA), len(compsB))
	}
	if Hash(compsA[0].Bitmap) != Hash(compsB[0].Bitmap) {
		t.Error("identical glyphs at different positions must hash equal")
	}
}

func TestHashSensitivity(t *testing.T) {
	a := bitmap.New(3, 3)
	drawGlyph(a, 0, 0, []string{"###", "#.#", "###"})

	b := a.Clone()
	b.Set(1, 1, true)
	if Hash(a) == Hash(b) {
		t.Error("single-pixel difference must change the hash")
	}

	// Same pixel bytes, different dimensions: a 1x4 run vs a 2x2 block.
	run := bitmap.New(4, 1)
	for x := 0; x < 4; x++ {
		run.Set(x, 0, true)
	}
	block := bitmap.New(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			block.Set(x, y, true)
		}
	}
	if Hash(run) == Hash(block) {
		t.Error("dimension header must separate equal pixel streams")
	}
}

func TestLibraryCountsMonotonically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shapes.json")
	lib := NewLibrary(path)

	bm := bitmap.NewTarget()
	drawGlyph(bm, 10, 10, []string{"##", "##"})
	drawGlyph(bm, 40, 10, []string{"##", "##"})

	table, err := lib.UpdateFromBitmap(bm)
	if err != nil {
		t.Fatalf("UpdateFromBitmap: %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("distinct shapes = %d, want 1 (same glyph twice)", len(table))
	}
	for _, count := range table {
		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	}

	// A second pass over the same bitmap increments, never resets.
	table, err = lib.UpdateFromBitmap(bm)
	if err != nil {
		t.Fatalf("UpdateFromBitmap: %v", err)
	}
	for _, count := range table {
		if count != 4 {
			t.Errorf("count after second pass = %d, want 4", count)
		}
	}

	// Reopening reads the persisted table.
	loaded, err := NewLibrary(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("persisted shapes = %d, want 1", len(loaded))
	}
}

func TestLibraryMissingFileIsEmpty(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "absent.json"))
	table, err := lib.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(table) != 0 {
		t.Errorf("missing file loaded %d entries, want 0", len(table))
	}
}
