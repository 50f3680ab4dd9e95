package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-tams/blobsweep/internal/retention"
)

func TestReportTotals(t *testing.T) {
	r := newReport("run-1", "memory", false, testNow, map[retention.Category]Outcome{
		retention.ChatProduction:   {Deleted: 2, Kept: 5, Skipped: 1},
		retention.AuditPreview:     {Deleted: 1, Errors: 2},
		retention.EmptyPlaceholder: {Deleted: 4},
	})

	assert.Equal(t, Outcome{Deleted: 7, Kept: 5, Skipped: 1, Errors: 2}, r.Totals)
	assert.Equal(t, 15, r.Totals.Processed())
	assert.Len(t, r.Categories, len(retention.Categories))
	assert.Equal(t, Outcome{}, r.Outcome(retention.FitAssessment))
}

func TestReportJSONShape(t *testing.T) {
	r := newReport("run-1", "memory", true, testNow, map[retention.Category]Outcome{
		retention.ChatProduction:   {Deleted: 2, Kept: 5},
		retention.ChatDevelopment:  {Deleted: 3, Kept: 1},
		retention.AuditDevelopment: {Deleted: 1, Errors: 1},
		retention.OrphanSession:    {Deleted: 6},
		retention.ResumeGeneration: {Skipped: 2},
	})

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["dryRun"])
	assert.ElementsMatch(t,
		[]string{"success", "dryRun", "chats", "fitAssessments", "resumeGenerations", "audit", "artifacts", "totals"},
		keys(body))

	chats := body["chats"].(map[string]any)
	assert.Equal(t, map[string]any{"deleted": 2.0, "kept": 5.0, "skipped": 0.0, "errors": 0.0}, chats["production"])
	assert.Equal(t, map[string]any{"deleted": 3.0}, chats["development"])

	audit := body["audit"].(map[string]any)
	assert.Equal(t, map[string]any{"deleted": 1.0, "errors": 1.0}, audit["development"])

	artifacts := body["artifacts"].(map[string]any)
	assert.Equal(t, map[string]any{"deleted": 0.0}, artifacts["emptyPlaceholders"])
	assert.Equal(t, map[string]any{"deleted": 6.0}, artifacts["orphanSessions"])

	assert.Equal(t, 2.0, body["resumeGenerations"].(map[string]any)["skipped"])
	assert.Equal(t, 12.0, body["totals"].(map[string]any)["deleted"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
