package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSStore keeps blobs in a Cloud Storage bucket. Credentials come from the
// environment (GOOGLE_APPLICATION_CREDENTIALS or the metadata server).
type GCSStore struct {
	client     *storage.Client
	bucket     string
	publicBase string
}

// NewGCS connects to bucket. When publicBase is set, locations are returned
// as publicBase/key; otherwise as gs://bucket/key.
func NewGCS(ctx context.Context, bucket, publicBase string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("storage: gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (s *GCSStore) location(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return "gs://" + s.bucket + "/" + key
}

func (s *GCSStore) key(location string) string {
	if s.publicBase != "" {
		if k, ok := strings.CutPrefix(location, s.publicBase+"/"); ok {
			return k
		}
	}
	return strings.TrimPrefix(location, "gs://"+s.bucket+"/")
}

func (s *GCSStore) Put(ctx context.Context, prefix, filename, contentType string, r io.Reader) (string, error) {
	key := objectKey(prefix, filename)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache"
	w.ContentDisposition = fmt.Sprintf("attachment; filename=%q", filename)

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: commit gs://%s/%s: %w", s.bucket, key, err)
	}
	return s.location(key), nil
}

func (s *GCSStore) Delete(ctx context.Context, location string) error {
	err := s.client.Bucket(s.bucket).Object(s.key(location)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete %s: %w", location, err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
