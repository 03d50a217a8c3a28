// Package normalize reduces a detected screen region to the fixed-size
// boolean bitmap the vectorizer consumes.
package normalize

import (
	"image"

	"github.com/disintegration/imaging"

	"screenvec/internal/bitmap"
	apperrors "screenvec/internal/errors"
	"screenvec/internal/geometry"
	"screenvec/internal/imgproc"
)

// PixelDensityThreshold is the fixed cut used when measuring how much of
// a normalized capture is lit. It is intentionally independent of the
// binarization threshold so density stays comparable across items.
const PixelDensityThreshold = 127

// Normalize crops the image to the box, converts to grayscale and
// downsamples to the target bitmap size with an area (box) filter. The
// box must be fully inside the image with positive dimensions.
func Normalize(img image.Image, box geometry.Box) (*image.Gray, error) {
	bounds := img.Bounds()
	if !box.Valid() {
		return nil, apperrors.NewValidationError("bbox has non-positive dimensions", nil)
	}
	if !box.Inside(bounds.Dx(), bounds.Dy()) {
		return nil, apperrors.NewValidationError("bbox out of image bounds", nil)
	}

	cropRect := image.Rect(
		bounds.Min.X+box.X,
		bounds.Min.Y+box.Y,
		bounds.Min.X+box.X+box.Width,
		bounds.Min.Y+box.Y+box.Height,
	)
	cropped := imaging.Crop(img, cropRect)
	resized := imaging.Resize(cropped, bitmap.TargetWidth, bitmap.TargetHeight, imaging.Box)
	return imgproc.ToGray(imaging.Grayscale(resized)), nil
}

// OtsuThreshold computes the automatic binarization threshold for a
// normalized capture.
func OtsuThreshold(gray *image.Gray) float64 {
	return float64(imgproc.OtsuThreshold(gray))
}

// Binarize thresholds a normalized capture into a bitmap and applies the
// pixel overrides. A nil threshold selects Otsu. force_on is applied
// before force_off, so a pixel listed in both ends up unlit. Overrides
// are absolute: they hold regardless of the thresholded value.
func Binarize(gray *image.Gray, threshold *float64, forceOn, forceOff [][2]int) *bitmap.Bitmap {
	var cut uint8
	if threshold == nil {
		cut = imgproc.OtsuThreshold(gray)
	} else {
		cut = clampThreshold(*threshold)
	}

	bm := bitmap.FromGray(gray, cut)
	for _, p := range forceOn {
		bm.Set(p[0], p[1], true)
	}
	for _, p := range forceOff {
		bm.Set(p[0], p[1], false)
	}
	return bm
}

// PixelDensity returns the lit fraction of a normalized capture at the
// fixed density cut.
func PixelDensity(gray *image.Gray) float64 {
	return bitmap.FromGray(gray, PixelDensityThreshold).Density()
}

func clampThreshold(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
