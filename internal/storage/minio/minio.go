// Package miniostore talks to S3-compatible stores through minio-go. Continuation
// is expressed as StartAfter, so the cursor is the last key of the previous page.
package miniostore

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

type Options struct {
	Name      string
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PageSize  int
}

type Storage struct {
	name     string
	bucket   string
	pageSize int
	client   *minio.Client
}

func New(opt Options) (*Storage, error) {
	if opt.Endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint must be provided")
	}
	if opt.Bucket == "" {
		return nil, fmt.Errorf("minio: bucket must be provided")
	}
	if opt.AccessKey == "" || opt.SecretKey == "" {
		return nil, fmt.Errorf("minio: credentials must be provided")
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(opt.Endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.UseSSL,
		Region: opt.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	size := opt.PageSize
	if size <= 0 {
		size = 1000
	}
	return &Storage{name: opt.Name, bucket: opt.Bucket, pageSize: size, client: client}, nil
}

func (s *Storage) Name() string { return s.name }

func (s *Storage) List(ctx context.Context, prefix, cursor string) (blob.Page, error) {
	// Stop the listing goroutine once one page plus a lookahead object is read.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: cursor,
		MaxKeys:    s.pageSize,
	})

	page := blob.Page{Objects: make([]blob.Object, 0, s.pageSize)}
	more := false
	for info := range ch {
		if info.Err != nil {
			return blob.Page{}, fmt.Errorf("minio list %q: %w", prefix, info.Err)
		}
		if len(page.Objects) == s.pageSize {
			more = true
			break
		}
		page.Objects = append(page.Objects, blob.Object{
			Key:        info.Key,
			URL:        fmt.Sprintf("s3://%s/%s", s.bucket, info.Key),
			Size:       info.Size,
			UploadedAt: info.LastModified.UTC(),
		})
	}
	if more {
		page.NextCursor = page.Objects[len(page.Objects)-1].Key
	}
	return page, nil
}

func (s *Storage) Delete(ctx context.Context, url string) error {
	rest, ok := strings.CutPrefix(url, "s3://"+s.bucket+"/")
	if !ok || rest == "" {
		return fmt.Errorf("minio: url %q is not in bucket %s", url, s.bucket)
	}

	err := s.client.RemoveObject(ctx, s.bucket, rest, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("minio delete %s: %w", rest, blob.ErrNotFound)
		}
		return fmt.Errorf("minio delete %s: %w", rest, err)
	}
	return nil
}
