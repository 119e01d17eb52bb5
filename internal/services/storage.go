package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tchtranslate/portal/internal/config"
	"github.com/tchtranslate/portal/pkg/response"
)

var ErrStorageDisabled = response.NewServerError("file storage is not configured")

// BlobStore is path-addressed object storage. Paths are the ones recorded
// on documents, leading slash included.
type BlobStore interface {
	Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectPath string) error
	PresignedURL(ctx context.Context, objectPath string) (string, error)
}

// BuildObjectPath returns /{tenant}/{year}/{MonthName}/{code}/{category}/{file}.
func BuildObjectPath(tenant string, at time.Time, projectCode, category, fileName string) string {
	return fmt.Sprintf("/%s/%d/%s/%s/%s/%s",
		tenant, at.Year(), at.Month().String(), projectCode, category, cleanFileName(fileName))
}

// SourceFileName prefixes an uploaded source file with the request number
// and project code.
func SourceFileName(requestNumber, projectCode, fileName string) string {
	return fmt.Sprintf("%s-%s-%s", requestNumber, projectCode, cleanFileName(fileName))
}

// LogoObjectPath is where tenant logos live.
func LogoObjectPath(fileName string) string {
	return "/ClientLogos/" + cleanFileName(fileName)
}

// cleanFileName drops any directory part a client sent along.
func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Base("/" + name)
}

func objectName(objectPath string) string {
	return strings.TrimPrefix(objectPath, "/")
}

// MinioBlobStore keeps objects in one S3-compatible bucket.
type MinioBlobStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinioBlobStore(cfg *config.StorageConfig) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	days := cfg.ExpireDays
	if days <= 0 {
		days = 7
	}
	return &MinioBlobStore{
		client: client,
		bucket: cfg.Bucket,
		expiry: time.Duration(days) * 24 * time.Hour,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *MinioBlobStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinioBlobStore) Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName(objectPath), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	return nil
}

func (s *MinioBlobStore) Remove(ctx context.Context, objectPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName(objectPath), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectPath, err)
	}
	return nil
}

func (s *MinioBlobStore) PresignedURL(ctx context.Context, objectPath string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName(objectPath), s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectPath, err)
	}
	return u.String(), nil
}
