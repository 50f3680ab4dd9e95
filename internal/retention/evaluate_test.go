package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

var evalNow = time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	table, err := NewPolicyTable(nil)
	require.NoError(t, err)
	return NewEvaluator(table, DefaultProtected())
}

func keyAt(prefix string, t time.Time) string {
	return prefix + "chat-" + t.Format(compactLayout) + ".json"
}

func TestEvaluateAgeThreshold(t *testing.T) {
	e := newTestEvaluator(t)

	old := blob.Object{Key: keyAt(ChatProductionPrefix, evalNow.AddDate(0, 0, -200)), Size: 10}
	v := e.Evaluate(old, ChatProduction, evalNow)
	assert.Equal(t, Delete, v.Decision)
	assert.Equal(t, "expired", v.Reason)

	recent := blob.Object{Key: keyAt(ChatProductionPrefix, evalNow.AddDate(0, 0, -30)), Size: 10}
	v = e.Evaluate(recent, ChatProduction, evalNow)
	assert.Equal(t, Keep, v.Decision)
	assert.Equal(t, 30*day, v.Age)
}

func TestEvaluateExactThresholdIsKept(t *testing.T) {
	e := newTestEvaluator(t)

	obj := blob.Object{Key: keyAt(ChatPreviewPrefix, evalNow.AddDate(0, 0, -ChatPreviewMaxAgeDays))}
	assert.Equal(t, Keep, e.Evaluate(obj, ChatPreview, evalNow).Decision)

	obj = blob.Object{Key: keyAt(ChatPreviewPrefix, evalNow.AddDate(0, 0, -ChatPreviewMaxAgeDays).Add(-time.Second))}
	assert.Equal(t, Delete, e.Evaluate(obj, ChatPreview, evalNow).Decision)
}

func TestEvaluateImmediateIgnoresAge(t *testing.T) {
	e := newTestEvaluator(t)

	for _, c := range []Category{ChatDevelopment, AuditDevelopment, EmptyPlaceholder, OrphanSession} {
		fresh := blob.Object{Key: "chats/development/chat-" + evalNow.Format(compactLayout) + ".json"}
		assert.Equal(t, Delete, e.Evaluate(fresh, c, evalNow).Decision, "category %s", c)

		undated := blob.Object{Key: "chats/development/whatever"}
		assert.Equal(t, Delete, e.Evaluate(undated, c, evalNow).Decision, "category %s", c)
	}
}

func TestEvaluateMissingTimestampIsSkipped(t *testing.T) {
	e := newTestEvaluator(t)

	obj := blob.Object{Key: "audit/production/legacy-event.json", UploadedAt: evalNow.AddDate(-1, 0, 0)}
	v := e.Evaluate(obj, AuditProduction, evalNow)
	assert.Equal(t, Skip, v.Decision)
}

func TestEvaluateUploadedAtFallback(t *testing.T) {
	e := newTestEvaluator(t)

	obj := blob.Object{Key: "resume-generations/resume-42.pdf", UploadedAt: evalNow.AddDate(0, 0, -365)}
	assert.Equal(t, Delete, e.Evaluate(obj, ResumeGeneration, evalNow).Decision)

	obj.UploadedAt = time.Time{}
	assert.Equal(t, Skip, e.Evaluate(obj, ResumeGeneration, evalNow).Decision)
}

func TestEvaluateProtectedAlwaysKept(t *testing.T) {
	e := newTestEvaluator(t)
	tenYears := evalNow.AddDate(-10, 0, 0)

	keys := []string{
		RootMarker,
		RootMarker + "/",
		RootMarker + "/chat-" + tenYears.Format(compactLayout) + ".json",
		"content/chat-" + tenYears.Format(compactLayout) + ".json",
		"chats/development/.keep",
	}

	for _, key := range keys {
		obj := blob.Object{Key: key}
		for _, c := range Categories {
			v := e.Evaluate(obj, c, evalNow)
			assert.Equal(t, Keep, v.Decision, "key %s category %s", key, c)
			assert.Contains(t, v.Reason, "protected:", "key %s", key)
		}
	}
}

func TestEvaluateFutureTimestampIsKept(t *testing.T) {
	e := newTestEvaluator(t)

	obj := blob.Object{Key: keyAt(ChatPreviewPrefix, evalNow.Add(48*time.Hour))}
	assert.Equal(t, Keep, e.Evaluate(obj, ChatPreview, evalNow).Decision)
}

func TestEvaluateUnknownCategoryIsKept(t *testing.T) {
	e := newTestEvaluator(t)

	obj := blob.Object{Key: keyAt(ChatPreviewPrefix, evalNow.AddDate(-1, 0, 0))}
	assert.Equal(t, Keep, e.Evaluate(obj, Category("made-up"), evalNow).Decision)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "keep", Keep.String())
	assert.Equal(t, "delete", Delete.String())
	assert.Equal(t, "skip", Skip.String())
}
