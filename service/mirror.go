package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/lexscan/regtracker/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactMirror copies generated artifacts (update reports, amendment
// drafts, new contract versions) to an S3-compatible bucket. The mirror is
// optional; a nil mirror is a no-op everywhere.
type ArtifactMirror struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

func NewArtifactMirror(cfg *config.MinioConfig) (*ArtifactMirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &ArtifactMirror{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (m *ArtifactMirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// ObjectName maps a local artifact path to its bucket key: the artifact's
// parent directory plus base name.
func ObjectName(localPath string) string {
	dir := filepath.Base(filepath.Dir(localPath))
	if dir == "." || dir == string(filepath.Separator) {
		return filepath.Base(localPath)
	}
	return dir + "/" + filepath.Base(localPath)
}

// UploadArtifact copies a local artifact into the bucket.
func (m *ArtifactMirror) UploadArtifact(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = m.client.PutObject(ctx, m.bucket, ObjectName(localPath), f, info.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}

	return nil
}

// GetPresignedURL generates a presigned URL for the object with expiration
func (m *ArtifactMirror) GetPresignedURL(ctx context.Context, objectName string) (string, error) {
	expiry := time.Duration(m.config.ExpireDays) * 24 * time.Hour
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

// GetPublicURL returns a public URL for the object (if bucket policy allows)
func (m *ArtifactMirror) GetPublicURL(objectName string) string {
	protocol := "http"
	if m.config.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, m.config.Endpoint, m.bucket, objectName)
}

// mirrorArtifact uploads best-effort: a nil mirror or a failed upload never
// aborts the pass that produced the artifact.
func mirrorArtifact(ctx context.Context, m *ArtifactMirror, localPath string) {
	if m == nil || localPath == "" {
		return
	}
	if err := m.UploadArtifact(ctx, localPath); err != nil {
		slog.Warn("artifact mirror upload failed", "path", localPath, "error", err)
	}
}
