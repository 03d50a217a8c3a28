// Package shapes extracts glyph-level connected components from
// normalized bitmaps and maintains the per-device shape frequency table.
package shapes

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"screenvec/internal/bitmap"
	"screenvec/internal/geometry"
	"screenvec/internal/imgproc"
)

// Component is one 8-connected lit region of a bitmap. Bitmap holds only
// this component's pixels, cropped to its tight bounding box; pixels of
// other components sharing the box are masked out.
type Component struct {
	Bitmap *bitmap.Bitmap
	Box    geometry.Box
}

// Extract finds the 8-connected components of a bitmap in deterministic
// row-major discovery order.
func Extract(bm *bitmap.Bitmap) []Component {
	w, h := bm.Width(), bm.Height()
	mask := imgproc.NewBinary(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask[y][x] = bm.At(x, y)
		}
	}

	labels, comps := imgproc.LabelComponents(mask)
	out := make([]Component, 0, len(comps))
	for _, comp := range comps {
		cb := bitmap.New(comp.Box.Width, comp.Box.Height)
		for y := 0; y < comp.Box.Height; y++ {
			for x := 0; x < comp.Box.Width; x++ {
				if labels[comp.Box.Y+y][comp.Box.X+x] == comp.Label {
					cb.Set(x, y, true)
				}
			}
		}
		out = append(out, Component{Bitmap: cb, Box: comp.Box})
	}
	return out
}

// Hash returns the content hash of a component bitmap: SHA-256 over a
// width/height header followed by the row-major pixel bytes. Including
// the dimensions keeps a 1x4 run and a 2x2 square from colliding. The
// hash depends only on the pixel pattern, never on where the component
// sits in the screen.
func Hash(cb *bitmap.Bitmap) string {
	h := sha256.New()
	var dims [4]byte
	binary.LittleEndian.PutUint16(dims[0:2], uint16(cb.Width()))
	binary.LittleEndian.PutUint16(dims[2:4], uint16(cb.Height()))
	h.Write(dims[:])
	h.Write(cb.Bytes())
	return hex.EncodeToString(h.Sum(nil))
}
