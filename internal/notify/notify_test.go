package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dev-tams/blobsweep/internal/config"
)

type recordingNotifier struct {
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestDispatcherRoutesByStatus(t *testing.T) {
	onFailure := &recordingNotifier{}
	onBoth := &recordingNotifier{}
	d := &Dispatcher{routes: []route{
		{onFailure: true, notifier: onFailure},
		{onSuccess: true, onFailure: true, notifier: onBoth},
	}}

	if err := d.Notify(context.Background(), Event{Status: StatusSuccess}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := d.Notify(context.Background(), Event{Status: StatusFailure}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(onFailure.events) != 1 || onFailure.events[0].Status != StatusFailure {
		t.Fatalf("failure route got %+v", onFailure.events)
	}
	if len(onBoth.events) != 2 {
		t.Fatalf("both route got %d events, want 2", len(onBoth.events))
	}
}

func TestDispatcherJoinsErrors(t *testing.T) {
	bad := &recordingNotifier{err: errors.New("smtp down")}
	good := &recordingNotifier{}
	d := &Dispatcher{routes: []route{
		{onSuccess: true, notifier: bad},
		{onSuccess: true, notifier: good},
	}}

	err := d.Notify(context.Background(), Event{Status: StatusSuccess})
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(good.events) != 1 {
		t.Fatalf("later routes should still be notified")
	}
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	if err := d.Notify(context.Background(), Event{Status: StatusFailure}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewDispatcherValidates(t *testing.T) {
	cases := []config.NotificationConfig{
		{Type: "webhook", On: []string{"success"}},
		{Type: "webhook", On: []string{"sometimes"}, Config: config.NotificationDetails{URL: "http://x"}},
		{Type: "email", On: []string{"failure"}, Config: config.NotificationDetails{SMTPHost: "smtp", SMTPPort: 25, From: "a@b"}},
		{Type: "pager", On: []string{"both"}},
		{Type: "webhook", Config: config.NotificationDetails{URL: "http://x"}},
	}

	for i, c := range cases {
		if _, err := NewDispatcher([]config.NotificationConfig{c}); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestWebhookPostsEvent(t *testing.T) {
	var got Event
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("X-Token")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := NewWebhook(srv.URL, map[string]string{"X-Token": "t0k"})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}

	ev := Event{RunID: "run-1", Store: "blob", Status: StatusSuccess, Deleted: 4, Duration: "1.2s"}
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got != ev {
		t.Fatalf("payload = %+v, want %+v", got, ev)
	}
	if auth != "t0k" {
		t.Fatalf("header not forwarded: %q", auth)
	}
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewWebhook(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	if err := n.Notify(context.Background(), Event{Status: StatusFailure}); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestEmailBody(t *testing.T) {
	body := buildEmailBody(Event{
		RunID:   "run-7",
		Store:   "blob",
		Status:  StatusFailure,
		DryRun:  true,
		Errors:  2,
		Error:   "scan audit-preview: timeout",
		Deleted: 1,
	})

	for _, want := range []string{"run: run-7", "status: failure", "dry run: true", "errors: 2", "error: scan audit-preview: timeout"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSplitRecipients(t *testing.T) {
	got := splitRecipients(" a@x.io, ,b@x.io ")
	if len(got) != 2 || got[0] != "a@x.io" || got[1] != "b@x.io" {
		t.Fatalf("splitRecipients = %v", got)
	}
}
