package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-tams/blobsweep/internal/config"
)

func TestFromConfigLocal(t *testing.T) {
	dir := t.TempDir()
	st, err := FromConfig(context.Background(), config.StorageConfig{
		Type:     "local",
		PageSize: 10,
		Local:    config.LocalConfig{Path: dir},
	})
	require.NoError(t, err)
	assert.Equal(t, Name, st.Name())
}

func TestFromConfigMemory(t *testing.T) {
	st, err := FromConfig(context.Background(), config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", st.Name())
}

func TestFromConfigS3WithStaticCredentials(t *testing.T) {
	st, err := FromConfig(context.Background(), config.StorageConfig{
		Type: "s3",
		S3: config.S3Config{
			Bucket:       "blobs",
			Region:       "us-east-1",
			Endpoint:     "http://localhost:4566",
			AccessKey:    "test",
			SecretKey:    "test",
			UsePathStyle: true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Name, st.Name())
}

func TestFromConfigMinio(t *testing.T) {
	st, err := FromConfig(context.Background(), config.StorageConfig{
		Type: "minio",
		S3: config.S3Config{
			Bucket:    "blobs",
			Endpoint:  "http://localhost:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Name, st.Name())
}

func TestFromConfigErrors(t *testing.T) {
	cases := []config.StorageConfig{
		{Type: "gcs"},
		{Type: "local"},
		{Type: "s3", S3: config.S3Config{Bucket: "blobs"}},
		{Type: "minio", S3: config.S3Config{Bucket: "blobs"}},
	}
	for _, c := range cases {
		_, err := FromConfig(context.Background(), c)
		assert.Error(t, err, "type %s", c.Type)
	}
}
