package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levee/internal/types"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "traces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a
}

func sampleTrace(category, actorID string, outcome types.Outcome) types.Trace {
	return types.Trace{
		Timestamp:     time.Now().UTC().Truncate(time.Second),
		TraceID:       uuid.NewString(),
		RunID:         "run-1",
		Step:          4,
		ActorID:       actorID,
		ActorCategory: category,
		Skill:         "buy_insurance",
		Outcome:       outcome,
		RetryCount:    1,
		Validated:     outcome == types.OutcomeApproved,
		Issues:        []types.ValidationIssue{},
		Reasoning:     map[string]string{"threat_appraisal": "H"},
	}
}

func TestArchiveInsertAndQueryByCategory(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.Insert(sampleTrace("household", "h1", types.OutcomeApproved)))
	require.NoError(t, a.Insert(sampleTrace("household", "h2", types.OutcomeApproved)))
	require.NoError(t, a.Insert(sampleTrace("government", "g1", types.OutcomeApproved)))

	households, err := a.ByCategory("household", 10)
	require.NoError(t, err)
	require.Len(t, households, 2)
	assert.Equal(t, "household", households[0].ActorCategory)
	assert.Equal(t, "buy_insurance", households[0].Skill)
	assert.Equal(t, "H", households[0].Reasoning["threat_appraisal"])

	none, err := a.ByCategory("martian", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestArchiveFailures(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.Insert(sampleTrace("household", "h1", types.OutcomeApproved)))

	rejected := sampleTrace("household", "h2", types.OutcomeRejected)
	rejected.Issues = []types.ValidationIssue{{Level: types.SeverityError, Rule: "r", Message: "m"}}
	require.NoError(t, a.Insert(rejected))

	failures, err := a.Failures(10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "h2", failures[0].ActorID)
	assert.Equal(t, types.OutcomeRejected, failures[0].Outcome)
	require.Len(t, failures[0].Issues, 1)
	assert.Equal(t, types.SeverityError, failures[0].Issues[0].Level)
}

func TestArchiveInsertIsIdempotentPerTraceID(t *testing.T) {
	a := newTestArchive(t)
	tr := sampleTrace("household", "h1", types.OutcomeApproved)
	require.NoError(t, a.Insert(tr))
	require.NoError(t, a.Insert(tr))

	traces, err := a.ByCategory("household", 10)
	require.NoError(t, err)
	assert.Len(t, traces, 1)
}

func TestArchiveStats(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.Insert(sampleTrace("household", "h1", types.OutcomeApproved)))
	require.NoError(t, a.Insert(sampleTrace("household", "h2", types.OutcomeRejected)))

	stats, err := a.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["total_traces"])
	assert.Equal(t, 0.5, stats["approval_rate"])
	byCategory := stats["by_category"].(map[string]int64)
	assert.Equal(t, int64(2), byCategory["household"])
}
