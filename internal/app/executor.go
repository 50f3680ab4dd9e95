package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
	"github.com/dev-tams/blobsweep/pkg/logger"
)

type DeleteResult int

const (
	Deleted DeleteResult = iota
	// NotFound means someone else removed the object first.
	NotFound
	DeleteFailed
)

func (r DeleteResult) String() string {
	switch r {
	case Deleted:
		return "deleted"
	case NotFound:
		return "not-found"
	case DeleteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Executor issues single-object deletes. It never returns a Go error; a
// failure is reported as DeleteFailed and logged here.
type Executor struct {
	deleter blob.Deleter
	limiter *rate.Limiter
}

// NewExecutor returns an executor throttled by limiter. A nil limiter means
// no throttling.
func NewExecutor(d blob.Deleter, limiter *rate.Limiter) *Executor {
	return &Executor{deleter: d, limiter: limiter}
}

func (e *Executor) Delete(ctx context.Context, obj blob.Object) DeleteResult {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			e.logFailure(obj, fmt.Errorf("throttle: %w", err))
			return DeleteFailed
		}
	}

	err := e.deleter.Delete(ctx, obj.URL)
	switch {
	case err == nil:
		return Deleted
	case errors.Is(err, blob.ErrNotFound):
		logger.Log.Debug().Str("key", obj.Key).Msg("object already gone")
		return NotFound
	default:
		e.logFailure(obj, err)
		return DeleteFailed
	}
}

func (e *Executor) logFailure(obj blob.Object, err error) {
	logger.Log.Error().Err(err).Str("key", obj.Key).Msg("delete failed")
}
