package workflow

import (
	"path"
	"strings"
)

// Slugify derives a stable item id from a source filename. The
// extension is dropped, anything outside [A-Za-z0-9_-] becomes a
// hyphen, runs of hyphens collapse, and an empty result falls back to
// "untitled".
func Slugify(filename string) string {
	stem := strings.TrimSuffix(path.Base(filename), path.Ext(filename))

	var b strings.Builder
	lastHyphen := false
	for _, r := range stem {
		keep := r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		switch {
		case keep:
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}
