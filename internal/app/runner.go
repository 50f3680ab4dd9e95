package app

import (
	"context"
	"time"

	"github.com/dev-tams/blobsweep/internal/notify"
	"github.com/dev-tams/blobsweep/pkg/logger"
)

const notificationTimeout = 5 * time.Second

// ReportSink persists completed reports.
type ReportSink interface {
	SaveReport(ctx context.Context, r *Report) error
}

// Runner wraps a Job with the side effects every trigger shares: storing the
// report and sending notifications.
type Runner struct {
	job        *Job
	sink       ReportSink
	dispatcher *notify.Dispatcher
}

// NewRunner accepts a nil sink and a nil dispatcher.
func NewRunner(job *Job, sink ReportSink, dispatcher *notify.Dispatcher) *Runner {
	return &Runner{job: job, sink: sink, dispatcher: dispatcher}
}

func (r *Runner) Run(ctx context.Context, opt Options) (*Report, error) {
	started := time.Now()
	report, err := r.job.Run(ctx, opt)

	if err == nil && r.sink != nil {
		saveCtx, cancel := notificationContext(ctx)
		if serr := r.sink.SaveReport(saveCtx, report); serr != nil {
			logger.Log.Warn().Err(serr).Str("run_id", report.RunID).Msg("failed to store report")
		}
		cancel()
	}

	r.notifyResult(ctx, r.event(report, opt, time.Since(started), err))
	return report, err
}

func (r *Runner) event(report *Report, opt Options, elapsed time.Duration, err error) notify.Event {
	event := notify.Event{
		Store:    r.job.store.Name(),
		Status:   notify.StatusSuccess,
		DryRun:   opt.DryRun,
		Duration: elapsed.Round(time.Millisecond).String(),
	}
	if err != nil {
		event.Status = notify.StatusFailure
		event.Error = err.Error()
		return event
	}

	event.RunID = report.RunID
	event.Deleted = report.Totals.Deleted
	event.Kept = report.Totals.Kept
	event.Skipped = report.Totals.Skipped
	event.Errors = report.Totals.Errors
	return event
}

func (r *Runner) notifyResult(ctx context.Context, event notify.Event) {
	notifyCtx, cancel := notificationContext(ctx)
	defer cancel()

	if err := r.dispatcher.Notify(notifyCtx, event); err != nil {
		logger.Log.Warn().Err(err).Str("status", event.Status).Msg("notification failed")
	}
}

// notificationContext outlives the run's context so a cancelled or timed out
// run still reports.
func notificationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), notificationTimeout)
	}
	return context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
}
