// Package storage keeps uploaded images (recipe pictures, avatars) in either
// a local directory or an S3-compatible bucket and resolves their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tbourn/go-recipes-backend/internal/config"
)

// ErrInvalidKey is returned for object keys that escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// Store is the object storage used for uploaded media.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns where key is served from: an absolute URL, or a path
	// starting with '/' that the caller resolves against the request host.
	URL(key string) string
}

// New builds the backend selected by cfg.Backend. MinIO buckets are created
// on first use.
func New(ctx context.Context, cfg config.MediaConfig) (Store, error) {
	switch cfg.Backend {
	case config.MediaMinio:
		mc, err := NewMinioStore(cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := mc.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		return mc, nil
	case config.MediaLocal, "":
		return NewLocalStore(cfg.Root, cfg.URLPrefix)
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
	}
}
