// Package storage issues presigned URLs against S3-compatible object storage.
// Meeting report media (photos, videos, documents) is uploaded directly by the
// client; the API only ever hands out short-lived URLs and stores the keys.
package storage

import (
	"context"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MediaStore is what the reports module needs from object storage.
type MediaStore interface {
	// GenerateUploadURL creates a presigned PUT URL under folder.
	GenerateUploadURL(ctx context.Context, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOBucketReportMedia() string
	GetMinIOUploadURLTTL() time.Duration
	IsMinIOEnabled() bool
}
