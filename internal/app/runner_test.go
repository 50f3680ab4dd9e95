package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-tams/blobsweep/internal/config"
	"github.com/dev-tams/blobsweep/internal/notify"
	"github.com/dev-tams/blobsweep/internal/retention"
)

type recordingSink struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (s *recordingSink) SaveReport(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return s.err
}

func webhookDispatcher(t *testing.T, on string) (*notify.Dispatcher, <-chan notify.Event) {
	t.Helper()
	events := make(chan notify.Event, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev notify.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		events <- ev
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	d, err := notify.NewDispatcher([]config.NotificationConfig{{
		Type:   "webhook",
		On:     []string{on},
		Config: config.NotificationDetails{URL: srv.URL},
	}})
	require.NoError(t, err)
	return d, events
}

func TestRunnerStoresReportAndNotifies(t *testing.T) {
	st := seedStore(10)
	sink := &recordingSink{}
	d, events := webhookDispatcher(t, "success")

	report, err := NewRunner(newTestJob(t, st, nil), sink, d).Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	require.Len(t, sink.reports, 1)
	assert.Same(t, report, sink.reports[0])

	select {
	case ev := <-events:
		assert.Equal(t, notify.StatusSuccess, ev.Status)
		assert.Equal(t, report.RunID, ev.RunID)
		assert.True(t, ev.DryRun)
		assert.Equal(t, report.Totals.Deleted, ev.Deleted)
		assert.Equal(t, "memory", ev.Store)
	default:
		t.Fatal("expected a success notification")
	}
}

func TestRunnerNotifiesFailureWithoutStoring(t *testing.T) {
	st := seedStore(10)
	st.FailList(retention.ChatPreviewPrefix, errors.New("timeout"))
	sink := &recordingSink{}
	d, events := webhookDispatcher(t, "failure")

	report, err := NewRunner(newTestJob(t, st, nil), sink, d).Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Empty(t, sink.reports)

	select {
	case ev := <-events:
		assert.Equal(t, notify.StatusFailure, ev.Status)
		assert.Contains(t, ev.Error, "timeout")
	default:
		t.Fatal("expected a failure notification")
	}
}

func TestRunnerSinkErrorDoesNotFailRun(t *testing.T) {
	sink := &recordingSink{err: errors.New("redis down")}

	report, err := NewRunner(newTestJob(t, seedStore(10), nil), sink, nil).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.NotNil(t, report)
}

func TestNotificationContextIgnoresParentCancelAndPreservesValues(t *testing.T) {
	type key string
	const k key = "trace"

	parent, stop := context.WithCancel(context.WithValue(context.Background(), k, "abc"))
	stop()

	ctx, cancel := notificationContext(parent)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatalf("notification context should not be canceled by parent cancel")
	default:
	}

	if got := ctx.Value(k); got != "abc" {
		t.Fatalf("expected context value to be preserved, got %v", got)
	}
}

func TestNotificationContextAppliesTimeout(t *testing.T) {
	ctx, cancel := notificationContext(context.Background())
	defer cancel()

	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected deadline to be set")
	}

	remaining := time.Until(dl)
	if remaining <= 0 || remaining > notificationTimeout+time.Second {
		t.Fatalf("unexpected deadline window: %s", remaining)
	}
}
