// Package vector converts bitmaps into minimal axis-aligned rectangle
// covers and serializes them as SVG.
package vector

import (
	"fmt"
	"strings"

	"screenvec/internal/bitmap"
)

// Rect is one rectangle of a cover, in bitmap pixel units.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Cover decomposes the lit pixels of a bitmap into non-overlapping
// rectangles that cover them exactly. The result is deterministic for a
// given bitmap.
//
// Seeding is a row-major run-length pass producing height-1 rectangles.
// Merging then repeats full passes over the rectangle list: each surviving
// rectangle greedily absorbs vertically adjacent rectangles of identical x
// and width, then horizontally adjacent ones of identical y and height,
// until a full pass makes no change.
func Cover(bm *bitmap.Bitmap) []Rect {
	w, h := bm.Width(), bm.Height()

	var rects []Rect
	for y := 0; y < h; y++ {
		x := 0
		for x < w {
			if !bm.At(x, y) {
				x++
				continue
			}
			start := x
			for x < w && bm.At(x, y) {
				x++
			}
			rects = append(rects, Rect{X: start, Y: y, Width: x - start, Height: 1})
		}
	}

	changed := true
	for changed {
		changed = false
		merged := make([]Rect, 0, len(rects))
		used := make([]bool, len(rects))

		for i, r := range rects {
			if used[i] {
				continue
			}
			cur := r

			for {
				found := false

				// Vertical merge: identical column span, adjacent rows.
				for j, other := range rects {
					if used[j] || j == i {
						continue
					}
					if other.X == cur.X && other.Width == cur.Width {
						if other.Y == cur.Y+cur.Height {
							cur.Height += other.Height
							used[j] = true
							found = true
							changed = true
							break
						}
						if other.Y+other.Height == cur.Y {
							cur.Y = other.Y
							cur.Height += other.Height
							used[j] = true
							found = true
							changed = true
							break
						}
					}
				}

				// Horizontal merge: identical row span, adjacent columns.
				if !found {
					for j, other := range rects {
						if used[j] || j == i {
							continue
						}
						if other.Y == cur.Y && other.Height == cur.Height {
							if other.X == cur.X+cur.Width {
								cur.Width += other.Width
								used[j] = true
								found = true
								changed = true
								break
							}
							if other.X+other.Width == cur.X {
								cur.X = other.X
								cur.Width += other.Width
								used[j] = true
								found = true
								changed = true
								break
							}
						}
					}
				}

				if !found {
					break
				}
			}

			merged = append(merged, cur)
			used[i] = true
		}

		rects = merged
	}
	return rects
}

// SVG serializes a rectangle cover as a standalone SVG document with the
// given viewBox dimensions. Rectangles fill var(--foreground) so the host
// page controls the display colour, and crispEdges keeps pixel boundaries
// exact at any scale.
func SVG(rects []Rect, width, height int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" shape-rendering="crispEdges">`, width, height)
	sb.WriteString("\n  <g id=\"pixels\">\n")
	for _, r := range rects {
		fmt.Fprintf(&sb,
			"    <rect x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" fill=\"var(--foreground)\" shape-rendering=\"crispEdges\" />\n",
			r.X, r.Y, r.Width, r.Height)
	}
	sb.WriteString("  </g>\n</svg>")
	return sb.String()
}

// Export runs Cover and serializes the result at the bitmap's own size.
func Export(bm *bitmap.Bitmap) string {
	return SVG(Cover(bm), bm.Width(), bm.Height())
}

// Rasterize paints a rectangle cover back into a bitmap of the given
// dimensions. Rectangles outside the raster are clipped.
func Rasterize(rects []Rect, width, height int) *bitmap.Bitmap {
	bm := bitmap.New(width, height)
	for _, r := range rects {
		for y := r.Y; y < r.Y+r.Height; y++ {
			for x := r.X; x < r.X+r.Width; x++ {
				bm.Set(x, y, true)
			}
		}
	}
	return bm
}
