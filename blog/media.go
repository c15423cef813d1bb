package blog

import (
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// allowedMediaExtensions lists the file extensions accepted for article
// thumbnails and image attachments.
var allowedMediaExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".svg":  {},
	".mp4":  {},
}

// ValidateMedia rejects media paths whose extension is not on the
// accepted list. Empty paths are allowed, media fields are optional.
func ValidateMedia(path string) error {
	if path == "" {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := allowedMediaExtensions[ext]; !ok {
		return goerrors.New("unsupported media type", goerrors.CategoryValidation).
			WithTextCode("INVALID_MEDIA").
			WithMetadata(map[string]any{"path": path, "extension": ext})
	}

	return nil
}
