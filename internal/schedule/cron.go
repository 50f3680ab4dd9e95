package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dev-tams/blobsweep/pkg/logger"
)

// Parser accepts standard 5-field expressions and descriptors such as @daily.
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func ParseCronSpec(expr string) (cron.Schedule, error) {
	s, err := Parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

// Job is one scheduled invocation. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context)

// Scheduler fires a job on a cron schedule in UTC. A tick that arrives while
// the previous run is still going is dropped.
type Scheduler struct {
	expr     string
	schedule cron.Schedule
	job      Job
}

func New(expr string, job Job) (*Scheduler, error) {
	s, err := ParseCronSpec(expr)
	if err != nil {
		return nil, err
	}
	return &Scheduler{expr: expr, schedule: s, job: job}, nil
}

// Next returns the first activation strictly after from.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.schedule.Next(from.UTC())
}

// Run blocks until ctx is cancelled, then waits for an in-flight job.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.job(ctx) }))

	c.Start()
	logger.Log.Info().
		Str("schedule", s.expr).
		Time("next", s.Next(time.Now())).
		Msg("scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Log.Info().Msg("scheduler stopped")
	return nil
}

// cronLogger routes cron's internal logging to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
