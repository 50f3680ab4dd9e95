package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dev-tams/blobsweep/internal/metrics"
	"github.com/dev-tams/blobsweep/internal/retention"
	"github.com/dev-tams/blobsweep/internal/storage/blob"
	"github.com/dev-tams/blobsweep/pkg/logger"
)

const DefaultDeleteConcurrency = 8

type JobConfig struct {
	Store      blob.Store
	Classifier *retention.Classifier
	Evaluator  *retention.Evaluator
	// DeleteConcurrency bounds in-flight deletes per category.
	DeleteConcurrency int
	Limiter           *rate.Limiter
	Metrics           *metrics.Collector
	Now               func() time.Time
}

// Job is one retention pass over the store: scan each category's prefix,
// classify and evaluate every object, then delete or simulate.
type Job struct {
	store       blob.Store
	scanner     *Scanner
	executor    *Executor
	classifier  *retention.Classifier
	evaluator   *retention.Evaluator
	concurrency int
	metrics     *metrics.Collector
	now         func() time.Time
}

func NewJob(cfg JobConfig) (*Job, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("job: store is required")
	}
	if cfg.Classifier == nil || cfg.Evaluator == nil {
		return nil, fmt.Errorf("job: classifier and evaluator are required")
	}
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = DefaultDeleteConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Job{
		store:       cfg.Store,
		scanner:     NewScanner(cfg.Store),
		executor:    NewExecutor(cfg.Store, cfg.Limiter),
		classifier:  cfg.Classifier,
		evaluator:   cfg.Evaluator,
		concurrency: cfg.DeleteConcurrency,
		metrics:     cfg.Metrics,
		now:         cfg.Now,
	}, nil
}

type Options struct {
	DryRun bool
}

// Run performs one pass. Categories are swept concurrently; if any listing
// fails the remaining sweeps are cancelled and no report is returned.
func (j *Job) Run(ctx context.Context, opt Options) (*Report, error) {
	startedAt := j.now().UTC()
	runID := uuid.NewString()
	log := logger.Log.With().
		Str("run_id", runID).
		Str("store", j.store.Name()).
		Bool("dry_run", opt.DryRun).
		Logger()

	log.Info().Msg("retention run started")

	categories := j.classifier.Categories()
	tallies := make(map[retention.Category]*tally, len(categories))
	for _, c := range categories {
		tallies[c] = &tally{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range categories {
		c := c
		g.Go(func() error {
			return j.sweep(gctx, c, startedAt, opt.DryRun, tallies[c], log)
		})
	}

	err := g.Wait()
	elapsed := j.now().Sub(startedAt)
	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Msg("retention run failed")
		j.metrics.RunFinished(metrics.RunFailure, opt.DryRun, elapsed, j.now())
		return nil, err
	}

	outcomes := make(map[retention.Category]Outcome, len(tallies))
	for c, t := range tallies {
		o := t.outcome()
		outcomes[c] = o
		j.recordMetrics(c, o, opt.DryRun)
	}

	report := newReport(runID, j.store.Name(), opt.DryRun, startedAt, outcomes)
	report.Duration = elapsed

	log.Info().
		Int("deleted", report.Totals.Deleted).
		Int("kept", report.Totals.Kept).
		Int("skipped", report.Totals.Skipped).
		Int("errors", report.Totals.Errors).
		Dur("duration", elapsed).
		Msg("retention run finished")
	j.metrics.RunFinished(metrics.RunSuccess, opt.DryRun, elapsed, j.now())

	return report, nil
}

// sweep processes one category. Only objects the classifier assigns to
// category are counted, so overlapping listing prefixes never double count.
func (j *Job) sweep(ctx context.Context, category retention.Category, now time.Time, dryRun bool, t *tally, log zerolog.Logger) error {
	prefix, ok := j.classifier.Prefix(category)
	if !ok {
		return fmt.Errorf("category %s has no listing prefix", category)
	}
	log = log.With().Str("category", category.String()).Logger()

	var deletes errgroup.Group
	deletes.SetLimit(j.concurrency)

	err := j.scanner.Scan(ctx, prefix, func(objects []blob.Object) error {
		for _, obj := range objects {
			obj := obj
			got, ok := j.classifier.Classify(obj)
			if !ok || got != category {
				continue
			}

			v := j.evaluator.Evaluate(obj, category, now)
			log.Debug().
				Str("key", obj.Key).
				Str("decision", v.Decision.String()).
				Str("reason", v.Reason).
				Msg("evaluated")

			switch v.Decision {
			case retention.Keep:
				t.kept.Add(1)
			case retention.Skip:
				t.skipped.Add(1)
				log.Warn().Str("key", obj.Key).Msg("no usable timestamp, skipped")
			case retention.Delete:
				if dryRun {
					t.deleted.Add(1)
					continue
				}
				deletes.Go(func() error {
					switch j.executor.Delete(ctx, obj) {
					case Deleted, NotFound:
						t.deleted.Add(1)
					default:
						t.errors.Add(1)
					}
					return nil
				})
			}
		}
		return nil
	})
	// Deletes already issued are always waited for so counts are final.
	_ = deletes.Wait()
	if err != nil {
		return fmt.Errorf("scan %s: %w", category, err)
	}

	o := t.outcome()
	log.Info().
		Str("prefix", prefix).
		Int("deleted", o.Deleted).
		Int("kept", o.Kept).
		Int("skipped", o.Skipped).
		Int("errors", o.Errors).
		Msg("category swept")
	return nil
}

func (j *Job) recordMetrics(c retention.Category, o Outcome, dryRun bool) {
	name := c.String()
	j.metrics.ObjectsProcessed(name, "deleted", dryRun, o.Deleted)
	j.metrics.ObjectsProcessed(name, "kept", dryRun, o.Kept)
	j.metrics.ObjectsProcessed(name, "skipped", dryRun, o.Skipped)
	j.metrics.ObjectsProcessed(name, "errors", dryRun, o.Errors)
}
