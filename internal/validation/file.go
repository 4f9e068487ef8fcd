package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileConstraints defines validation rules for upload announcements.
// The server never sees upload bytes, so validation covers the declared
// filename, content type, and size of a presign request.
type FileConstraints struct {
	AllowedContentTypes map[string]bool
	AllowedExtensions   map[string]bool
	MaxSize             int64
}

// ImageConstraints defines validation rules for image uploads
var ImageConstraints = FileConstraints{
	AllowedContentTypes: map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	},
	AllowedExtensions: map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
	},
	MaxSize: 20 << 20, // 20MB
}

// ValidateUpload validates a declared upload against a constraint set.
// Size must be non-negative; zero is allowed (empty files are legal objects).
func ValidateUpload(filename, contentType string, size int64, constraints FileConstraints) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename is required")
	}

	if contentType == "" {
		return fmt.Errorf("content type is required")
	}

	if size < 0 {
		return fmt.Errorf("size must not be negative")
	}

	if constraints.MaxSize > 0 && size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return fmt.Errorf("file too large: maximum size is %d MB", maxMB)
	}

	if !constraints.AllowedContentTypes[strings.ToLower(contentType)] {
		return fmt.Errorf("invalid content type: %s", contentType)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !constraints.AllowedExtensions[ext] {
		return fmt.Errorf("invalid file extension: %q", ext)
	}

	return nil
}
