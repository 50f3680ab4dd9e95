package s3store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

const maxPageSize = 1000

// api is the subset of *s3.Client the store uses.
type api interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Storage struct {
	name     string
	bucket   string
	pageSize int32
	client   api
}

type Options struct {
	Name         string
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PageSize     int
}

func New(ctx context.Context, opt Options) (*Storage, error) {
	if opt.Bucket == "" || opt.Region == "" {
		return nil, fmt.Errorf("s3: bucket and region are required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opt.Region)}
	if opt.AccessKey != "" || opt.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
		}
		o.UsePathStyle = opt.UsePathStyle
	})

	return newWithClient(opt, client), nil
}

func newWithClient(opt Options, client api) *Storage {
	size := opt.PageSize
	if size <= 0 || size > maxPageSize {
		size = maxPageSize
	}
	return &Storage{
		name:     opt.Name,
		bucket:   opt.Bucket,
		pageSize: int32(size),
		client:   client,
	}
}

func (s *Storage) Name() string {
	return s.name
}

func (s *Storage) List(ctx context.Context, prefix, cursor string) (blob.Page, error) {
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(s.pageSize),
	}
	if cursor != "" {
		in.ContinuationToken = aws.String(cursor)
	}

	out, err := s.client.ListObjectsV2(ctx, in)
	if err != nil {
		return blob.Page{}, fmt.Errorf("s3 list %q: %w", prefix, describe(err))
	}

	page := blob.Page{Objects: make([]blob.Object, 0, len(out.Contents))}
	for _, o := range out.Contents {
		key := aws.ToString(o.Key)
		obj := blob.Object{
			Key:  key,
			URL:  s.url(key),
			Size: aws.ToInt64(o.Size),
		}
		if o.LastModified != nil {
			obj.UploadedAt = o.LastModified.UTC()
		}
		page.Objects = append(page.Objects, obj)
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextCursor = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

func (s *Storage) Delete(ctx context.Context, url string) error {
	bucket, key, err := parseURL(url)
	if err != nil {
		return err
	}
	if bucket != s.bucket {
		return fmt.Errorf("s3: url %q is not in bucket %s", url, s.bucket)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return fmt.Errorf("s3 delete %s: %w", key, blob.ErrNotFound)
		}
		return fmt.Errorf("s3 delete %s: %w", key, describe(err))
	}
	return nil
}

func (s *Storage) url(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

func parseURL(url string) (string, string, error) {
	rest, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return "", "", fmt.Errorf("s3: unsupported url %q", url)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3: malformed url %q", url)
	}
	return bucket, key, nil
}

func describe(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return err
}
