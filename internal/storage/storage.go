// Package storage loads and stores document bytes, either in Google Cloud
// Storage (gs://bucket/object locators) or in a local upload directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const gcsScheme = "gs://"

var (
	// ErrOutsideUploadDir is returned for local locators that escape the upload directory.
	ErrOutsideUploadDir = errors.New("path is outside the upload directory")
	// ErrForeignBucket is returned for gs:// locators outside the configured bucket.
	ErrForeignBucket = errors.New("object is outside the upload bucket")
)

// Fetcher implements pipeline.ContentFetcher.
type Fetcher struct {
	client    *gcs.Client
	bucket    string
	uploadDir string
}

// NewFetcher creates a fetcher. Only gs:// locators in bucket are read.
// client may be nil, in which case gs:// locators are rejected and Save
// writes to uploadDir.
func NewFetcher(client *gcs.Client, bucket, uploadDir string) *Fetcher {
	return &Fetcher{client: client, bucket: bucket, uploadDir: uploadDir}
}

// Close closes the storage client, if any.
func (f *Fetcher) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Fetch downloads the bytes behind uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, gcsScheme) {
		return f.fetchFromGCS(ctx, uri)
	}

	p, err := f.localPath(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading %s: %w", p, err)
	}
	return data, nil
}

func (f *Fetcher) fetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	bucketName, objectPath, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	if f.bucket == "" || bucketName != f.bucket {
		return nil, fmt.Errorf("fetchFromGCS: %s: %w", uri, ErrForeignBucket)
	}
	if f.client == nil {
		return nil, fmt.Errorf("fetchFromGCS: %s: no storage client configured", uri)
	}

	rc, err := f.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}

// Save stores a local file and returns its locator: a gs:// URI when a
// bucket is configured, otherwise a path relative to the upload directory.
func (f *Fetcher) Save(ctx context.Context, filePath string) (string, error) {
	src, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("Save: open file %q: %w", filePath, err)
	}
	defer src.Close()

	objectName := path.Join("documents", uuid.NewString(), filepath.Base(filePath))

	if f.client != nil && f.bucket != "" {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		w := f.client.Bucket(f.bucket).Object(objectName).NewWriter(ctx)
		if _, err := io.Copy(w, src); err != nil {
			_ = w.Close()
			return "", fmt.Errorf("Save: copy file to GCS writer: %w", err)
		}
		// Close finalizes the upload.
		if err := w.Close(); err != nil {
			return "", fmt.Errorf("Save: finalize upload: %w", err)
		}
		return gcsScheme + f.bucket + "/" + objectName, nil
	}

	dst := filepath.Join(f.uploadDir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("Save: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("Save: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("Save: copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("Save: %w", err)
	}
	return objectName, nil
}

// localPath resolves a locator inside the upload directory.
func (f *Fetcher) localPath(uri string) (string, error) {
	p := strings.TrimPrefix(uri, "file://")
	if p == "" {
		return "", fmt.Errorf("empty locator")
	}
	if f.uploadDir == "" {
		return filepath.Clean(p), nil
	}

	base, err := filepath.Abs(f.uploadDir)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, filepath.FromSlash(p))
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", uri, ErrOutsideUploadDir)
	}
	return p, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object path.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, gcsScheme) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI returns the last path element of a locator.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, gcsScheme)
	if strings.HasPrefix(uri, gcsScheme) {
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) < 2 {
			return trimmed
		}
		trimmed = parts[1]
	}
	return path.Base(filepath.ToSlash(trimmed))
}
