package geometry

// Box is an axis-aligned rectangle in pixel coordinates with the origin at
// the top-left corner of the image.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the number of pixels covered by the box.
func (b Box) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Aspect returns width/height, or 0 for a degenerate box.
func (b Box) Aspect() float64 {
	if b.Height <= 0 {
		return 0
	}
	return float64(b.Width) / float64(b.Height)
}

// Valid reports whether the box has positive dimensions.
func (b Box) Valid() bool {
	return b.Width > 0 && b.Height > 0
}

// Inside reports whether the box lies fully within an image of the given size.
func (b Box) Inside(imgWidth, imgHeight int) bool {
	return b.Valid() &&
		b.X >= 0 && b.Y >= 0 &&
		b.X+b.Width <= imgWidth &&
		b.Y+b.Height <= imgHeight
}

// Clamp returns the box constrained to an image of the given size. The
// result keeps positive dimensions where possible.
func (b Box) Clamp(imgWidth, imgHeight int) Box {
	x0 := clampInt(b.X, 0, imgWidth-1)
	y0 := clampInt(b.Y, 0, imgHeight-1)
	x1 := clampInt(b.X+b.Width, x0+1, imgWidth)
	y1 := clampInt(b.Y+b.Height, y0+1, imgHeight)
	return Box{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// AreaFraction returns the box area as a fraction of the image area.
func (b Box) AreaFraction(imgWidth, imgHeight int) float64 {
	total := imgWidth * imgHeight
	if total <= 0 {
		return 0
	}
	return float64(b.Area()) / float64(total)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
