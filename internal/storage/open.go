package storage

import (
	"context"
	"fmt"

	"github.com/iliyamo/document-registry/internal/config"
)

// Open builds the BlobStore selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "", "disk":
		return NewDiskStore(cfg.Dir)
	case "minio":
		return NewMinIOStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown UPLOAD_BACKEND %q", cfg.Backend)
	}
}
