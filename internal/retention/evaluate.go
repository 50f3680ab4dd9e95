package retention

import (
	"time"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

type Decision int

const (
	Keep Decision = iota
	Delete
	Skip
)

func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Delete:
		return "delete"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of evaluating one object.
type Verdict struct {
	Decision Decision
	Reason   string
	// Age is only meaningful when the object had a usable timestamp.
	Age time.Duration
}

// Evaluator decides keep/delete/skip for classified objects. It has no side
// effects.
type Evaluator struct {
	table     *PolicyTable
	protected []ProtectedPredicate
}

func NewEvaluator(table *PolicyTable, protected []ProtectedPredicate) *Evaluator {
	return &Evaluator{table: table, protected: protected}
}

// Protection returns the name of the first predicate matching key.
func (e *Evaluator) Protection(key string) (string, bool) {
	for _, p := range e.protected {
		if p.Match(key) {
			return p.Name, true
		}
	}
	return "", false
}

func (e *Evaluator) Evaluate(obj blob.Object, category Category, now time.Time) Verdict {
	if name, ok := e.Protection(obj.Key); ok {
		return Verdict{Decision: Keep, Reason: "protected:" + name}
	}

	policy, ok := e.table.Lookup(category)
	if !ok {
		return Verdict{Decision: Keep, Reason: "no policy"}
	}
	if policy.Immediate {
		return Verdict{Decision: Delete, Reason: "immediate"}
	}

	ts, ok := ExtractTimestamp(obj.Key)
	if !ok && policy.UploadedAtFallback && !obj.UploadedAt.IsZero() {
		ts, ok = obj.UploadedAt.UTC(), true
	}
	if !ok {
		return Verdict{Decision: Skip, Reason: "no timestamp"}
	}

	age := now.Sub(ts)
	if age > policy.MaxAge() {
		return Verdict{Decision: Delete, Reason: "expired", Age: age}
	}
	return Verdict{Decision: Keep, Reason: "within retention", Age: age}
}
