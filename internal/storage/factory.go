package storage

import (
	"context"
	"fmt"

	"github.com/dev-tams/blobsweep/internal/config"
	"github.com/dev-tams/blobsweep/internal/storage/blob"
	"github.com/dev-tams/blobsweep/internal/storage/local"
	"github.com/dev-tams/blobsweep/internal/storage/memory"
	miniostore "github.com/dev-tams/blobsweep/internal/storage/minio"
	s3store "github.com/dev-tams/blobsweep/internal/storage/s3"
)

const Name = "blob"

// FromConfig builds the object store the sweeper runs against.
func FromConfig(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	switch cfg.Type {
	case "s3":
		s, err := s3store.New(ctx, s3store.Options{
			Name:         Name,
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
			PageSize:     cfg.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("storage s3: %w", err)
		}
		return s, nil

	case "minio":
		s, err := miniostore.New(miniostore.Options{
			Name:      Name,
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			PageSize:  cfg.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("storage minio: %w", err)
		}
		return s, nil

	case "local":
		if cfg.Local.Path == "" {
			return nil, fmt.Errorf("storage local: local.path is required")
		}
		s, err := local.New(Name, cfg.Local.Path, cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("storage local: %w", err)
		}
		return s, nil

	case "memory":
		return memory.New(cfg.PageSize), nil

	default:
		return nil, fmt.Errorf("storage: unknown type %q", cfg.Type)
	}
}
