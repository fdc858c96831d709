// Package photos stores complaint photo attachments in MinIO and hands
// out opaque references for them.
package photos

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"complaints_portal_backend/platform/apperr"
	"complaints_portal_backend/platform/config"
)

const (
	// downloadURLTTL bounds how long a presigned photo link stays valid.
	downloadURLTTL = 15 * time.Minute

	// MaxPhotoSize is the largest accepted upload in bytes.
	MaxPhotoSize = 10 << 20
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Storage wraps a MinIO client scoped to the complaint photo bucket.
type Storage struct {
	client *minio.Client
	bucket string
}

// NewStorage connects to MinIO using the storage configuration.
func NewStorage(cfg config.StorageConfig) (*Storage, error) {
	if !cfg.IsStorageEnabled() {
		return nil, fmt.Errorf("photo storage is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Storage{client: client, bucket: cfg.GetPhotoBucket()}, nil
}

// EnsureBucket creates the photo bucket if it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
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

// Upload stores a photo and returns its opaque reference.
func (s *Storage) Upload(ctx context.Context, contentType string, reader io.Reader, size int64) (string, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return "", apperr.Validation(fmt.Sprintf("unsupported content type %q", contentType))
	}
	if size <= 0 || size > MaxPhotoSize {
		return "", apperr.Validation("photo size must be between 1 byte and 10 MiB")
	}

	key := path.Join(time.Now().UTC().Format("2006/01"), uuid.New().String()+ext)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo %s: %w", key, err)
	}
	return key, nil
}

// DownloadURL returns a short-lived presigned link for a stored photo.
func (s *Storage) DownloadURL(ctx context.Context, ref string) (string, time.Time, error) {
	ref = strings.TrimPrefix(ref, "/")
	if ref == "" {
		return "", time.Time{}, apperr.Validation("photo reference is required")
	}

	expiresAt := time.Now().Add(downloadURLTTL)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, ref, downloadURLTTL, url.Values{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign photo %s: %w", ref, err)
	}
	return presigned.String(), expiresAt, nil
}

// Delete removes a stored photo.
func (s *Storage) Delete(ctx context.Context, ref string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete photo %s: %w", ref, err)
	}
	return nil
}
