// Package storage keeps provision files outside the CRM, on local disk or in
// a Google Cloud Storage bucket. Object keys are generated here; callers only
// choose a prefix.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/garnizeh/clientportal/internal/config"
)

// Store writes and removes blobs. Put returns the location to record.
type Store interface {
	Put(ctx context.Context, prefix, filename, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.StorageLocal:
		return NewLocal(cfg.Dir)
	case config.StorageGCS:
		return NewGCS(ctx, cfg.Bucket, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// objectKey joins the cleaned prefix with a random name that keeps the
// file's extension.
func objectKey(prefix, filename string) string {
	var parts []string
	for _, seg := range strings.Split(prefix, "/") {
		seg = cleanSegment(seg)
		if seg != "" && seg != "." && seg != ".." {
			parts = append(parts, seg)
		}
	}
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `\ `) {
		ext = ""
	}
	parts = append(parts, uuid.NewString()+ext)
	return strings.Join(parts, "/")
}

func cleanSegment(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
