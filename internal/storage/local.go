// Package storage loads scan images from disk and ingests new scans
// from remote sources into a device's incoming directory.
package storage

import (
	"image"
	"os"

	"github.com/disintegration/imaging"

	apperrors "screenvec/internal/errors"
)

// ImageSource loads a scan image by path.
type ImageSource interface {
	Load(path string) (image.Image, error)
}

type localSource struct{}

// NewLocalSource returns an ImageSource reading from the filesystem.
func NewLocalSource() ImageSource {
	return localSource{}
}

func (localSource) Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("source image not found: "+path, err)
		}
		return nil, apperrors.NewProcessingError("failed to decode source image: "+path, err)
	}
	return img, nil
}
