package storage

import (
	"fmt"
	"strings"
)

// MediaKind groups the content types a meeting report can attach.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// AllowedContentTypes maps each accepted MIME type to its media kind.
var AllowedContentTypes = map[string]MediaKind{
	"image/jpeg": MediaPhoto,
	"image/png":  MediaPhoto,
	"image/webp": MediaPhoto,
	"image/heic": MediaPhoto,

	"video/mp4":       MediaVideo,
	"video/webm":      MediaVideo,
	"video/quicktime": MediaVideo,

	"application/pdf": MediaDocument,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": MediaDocument,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       MediaDocument,
}

func normalizeContentType(contentType string) string {
	normalized := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(normalized))
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	if _, ok := AllowedContentTypes[normalizeContentType(contentType)]; !ok {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// KindOf returns the media kind for a content type, or "" if not allowed.
func KindOf(contentType string) MediaKind {
	return AllowedContentTypes[normalizeContentType(contentType)]
}

// ValidateFileSize checks if the file size is within limits.
func ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if sizeBytes > MaxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, MaxFileSize)
	}
	return nil
}
