package app

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/dev-tams/blobsweep/internal/config"
	"github.com/dev-tams/blobsweep/internal/metrics"
	"github.com/dev-tams/blobsweep/internal/retention"
	"github.com/dev-tams/blobsweep/internal/storage"
	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

// BuildJob wires a Job from configuration, connecting to the configured store.
func BuildJob(ctx context.Context, cfg *config.Config, m *metrics.Collector) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	st, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return NewJobForStore(cfg.Retention, st, m)
}

func NewJobForStore(cfg config.RetentionConfig, st blob.Store, m *metrics.Collector) (*Job, error) {
	table, err := retention.NewPolicyTable(cfg.MaxAgeDays)
	if err != nil {
		return nil, err
	}

	return NewJob(JobConfig{
		Store:             st,
		Classifier:        retention.NewClassifier(retention.DefaultRules()),
		Evaluator:         retention.NewEvaluator(table, retention.DefaultProtected()),
		DeleteConcurrency: cfg.DeleteConcurrency,
		Limiter:           newLimiter(cfg.DeletesPerSecond),
		Metrics:           m,
	})
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(math.Ceil(perSecond))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
