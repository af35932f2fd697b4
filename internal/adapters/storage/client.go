package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MaxFileSize caps a single media upload (200 MB, videos included).
const MaxFileSize int64 = 200 << 20

// MinIOService implements MediaStore using MinIO.
type MinIOService struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// NewMinIOService creates a new MinIO storage service bound to the report media bucket.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ttl := cfg.GetMinIOUploadURLTTL()
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &MinIOService{
		client: client,
		bucket: cfg.GetMinIOBucketReportMedia(),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// EnsureBucketExists creates the media bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// GenerateUploadURL creates a presigned URL for uploading a file.
func (s *MinIOService) GenerateUploadURL(ctx context.Context, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	if err := ValidateContentType(contentType); err != nil {
		return nil, err
	}
	if err := ValidateFileSize(sizeBytes); err != nil {
		return nil, err
	}

	fileKey := ObjectKey(folder, fileName, uuid.New())

	expiresAt := s.now().Add(s.ttl)
	presignedURL, err := s.client.PresignedPutObject(ctx, s.bucket, fileKey, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// ObjectKey builds a collision-free key: folder/base_<8 hex><ext>.
func ObjectKey(folder, fileName string, id uuid.UUID) string {
	fileName = path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if fileName == "." || fileName == "/" {
		fileName = "file"
	}
	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	if baseName == "" {
		baseName = "file"
	}
	return path.Join(folder, fmt.Sprintf("%s_%s%s", baseName, id.String()[:8], ext))
}

var _ MediaStore = (*MinIOService)(nil)
