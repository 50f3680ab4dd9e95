package app

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/dev-tams/blobsweep/internal/retention"
)

// Outcome counts what happened to the objects of one category.
type Outcome struct {
	Deleted int `json:"deleted"`
	Kept    int `json:"kept"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func (o Outcome) Add(other Outcome) Outcome {
	return Outcome{
		Deleted: o.Deleted + other.Deleted,
		Kept:    o.Kept + other.Kept,
		Skipped: o.Skipped + other.Skipped,
		Errors:  o.Errors + other.Errors,
	}
}

// Processed is the number of objects that reached a decision.
func (o Outcome) Processed() int {
	return o.Deleted + o.Kept + o.Skipped + o.Errors
}

// tally accumulates an Outcome from concurrent delete workers.
type tally struct {
	deleted atomic.Int64
	kept    atomic.Int64
	skipped atomic.Int64
	errors  atomic.Int64
}

func (t *tally) outcome() Outcome {
	return Outcome{
		Deleted: int(t.deleted.Load()),
		Kept:    int(t.kept.Load()),
		Skipped: int(t.skipped.Load()),
		Errors:  int(t.errors.Load()),
	}
}

// Report is the result of one completed run.
type Report struct {
	RunID      string
	Store      string
	DryRun     bool
	StartedAt  time.Time
	Duration   time.Duration
	Categories map[retention.Category]Outcome
	Totals     Outcome
}

func newReport(runID, store string, dryRun bool, startedAt time.Time, outcomes map[retention.Category]Outcome) *Report {
	r := &Report{
		RunID:      runID,
		Store:      store,
		DryRun:     dryRun,
		StartedAt:  startedAt,
		Categories: make(map[retention.Category]Outcome, len(retention.Categories)),
	}
	for _, c := range retention.Categories {
		o := outcomes[c]
		r.Categories[c] = o
		r.Totals = r.Totals.Add(o)
	}
	return r
}

// Outcome returns the counters for c, zero when c was not swept.
func (r *Report) Outcome(c retention.Category) Outcome {
	return r.Categories[c]
}

// deletedOnly is the reduced shape used for categories that never keep or
// skip by policy. Errors still surface when a delete failed.
type deletedOnly struct {
	Deleted int `json:"deleted"`
	Errors  int `json:"errors,omitempty"`
}

type environmentOutcomes struct {
	Production  Outcome     `json:"production"`
	Preview     Outcome     `json:"preview"`
	Development deletedOnly `json:"development"`
}

type artifactOutcomes struct {
	EmptyPlaceholders deletedOnly `json:"emptyPlaceholders"`
	OrphanSessions    deletedOnly `json:"orphanSessions"`
}

type reportBody struct {
	Success           bool                `json:"success"`
	DryRun            bool                `json:"dryRun"`
	Chats             environmentOutcomes `json:"chats"`
	FitAssessments    Outcome             `json:"fitAssessments"`
	ResumeGenerations Outcome             `json:"resumeGenerations"`
	Audit             environmentOutcomes `json:"audit"`
	Artifacts         artifactOutcomes    `json:"artifacts"`
	Totals            Outcome             `json:"totals"`
}

// MarshalJSON renders the response body returned to the trigger.
func (r *Report) MarshalJSON() ([]byte, error) {
	reduced := func(c retention.Category) deletedOnly {
		o := r.Categories[c]
		return deletedOnly{Deleted: o.Deleted, Errors: o.Errors}
	}

	return json.Marshal(reportBody{
		Success: true,
		DryRun:  r.DryRun,
		Chats: environmentOutcomes{
			Production:  r.Categories[retention.ChatProduction],
			Preview:     r.Categories[retention.ChatPreview],
			Development: reduced(retention.ChatDevelopment),
		},
		FitAssessments:    r.Categories[retention.FitAssessment],
		ResumeGenerations: r.Categories[retention.ResumeGeneration],
		Audit: environmentOutcomes{
			Production:  r.Categories[retention.AuditProduction],
			Preview:     r.Categories[retention.AuditPreview],
			Development: reduced(retention.AuditDevelopment),
		},
		Artifacts: artifactOutcomes{
			EmptyPlaceholders: reduced(retention.EmptyPlaceholder),
			OrphanSessions:    reduced(retention.OrphanSession),
		},
		Totals: r.Totals,
	})
}
