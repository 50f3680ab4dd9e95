package config

import (
	"fmt"
	"strings"

	"github.com/dev-tams/blobsweep/internal/retention"
	"github.com/dev-tams/blobsweep/internal/schedule"
)

var storageTypes = map[string]struct{}{
	"s3":     {},
	"minio":  {},
	"local":  {},
	"memory": {},
}

// Validate returns the first problem found in the configuration.
func (c *Config) Validate() error {
	if err := c.Storage.validate(); err != nil {
		return err
	}

	if c.Retention.DeleteConcurrency <= 0 {
		return fmt.Errorf("retention.delete_concurrency must be > 0")
	}
	if c.Retention.DeletesPerSecond < 0 {
		return fmt.Errorf("retention.deletes_per_second must be >= 0")
	}
	if _, err := retention.NewPolicyTable(c.Retention.MaxAgeDays); err != nil {
		return fmt.Errorf("retention.max_age_days: %w", err)
	}

	if strings.TrimSpace(c.Schedule.Cron) != "" {
		if _, err := schedule.ParseCronSpec(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}
	if c.Schedule.RunTimeout < 0 {
		return fmt.Errorf("schedule.run_timeout must be >= 0")
	}

	if c.Redis.Enabled() && c.Redis.History < 0 {
		return fmt.Errorf("redis.history must be >= 0")
	}

	for i, n := range c.Notifications {
		switch strings.ToLower(strings.TrimSpace(n.Type)) {
		case "webhook", "email":
		default:
			return fmt.Errorf("notifications[%d].type %q is not supported (webhook, email)", i, n.Type)
		}
	}
	return nil
}

func (s StorageConfig) validate() error {
	if _, ok := storageTypes[s.Type]; !ok {
		return fmt.Errorf("storage.type %q is not supported (s3, minio, local, memory)", s.Type)
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("storage.page_size must be > 0")
	}

	switch s.Type {
	case "s3":
		if s.S3.Bucket == "" || s.S3.Region == "" {
			return fmt.Errorf("storage.s3.bucket and storage.s3.region are required")
		}
	case "minio":
		if s.S3.Endpoint == "" || s.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.endpoint and storage.s3.bucket are required for minio")
		}
		if s.S3.AccessKey == "" || s.S3.SecretKey == "" {
			return fmt.Errorf("storage.s3.access_key and storage.s3.secret_key are required for minio (or env expansion failed)")
		}
	case "local":
		if s.Local.Path == "" {
			return fmt.Errorf("storage.local.path is required")
		}
	}
	return nil
}
