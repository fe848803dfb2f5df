package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fendouba123/DCNN/stats"
)

func testRun(name string, started time.Time) Run {
	return Run{
		ID:      NewRunID(name, started),
		Name:    name,
		Model:   "mhattn",
		DataSet: "test.csv",
		Folds:   5,
		Seed:    42,
		Started: started,
		Results: []FoldResult{
			{Fold: 1, Metrics: stats.Metrics{Accuracy: 0.9, AUC: 0.95}, TPR: []float64{0, 1}, FPR: []float64{0, 1}},
		},
		Summary: map[string]string{"accuracy": "0.9000"},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	run := testRun("exp1", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.PutRun(run))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Name, got.Name)
	assert.Equal(t, run.Results[0].Metrics.AUC, got.Results[0].Metrics.AUC)
	assert.Equal(t, run.Summary, got.Summary)

	_, err = store.GetRun("missing")
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, store.PutRun(testRun(name, t0.Add(time.Duration(i)*time.Hour))))
	}
	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].Name, "most recent first")
	assert.Equal(t, "a", runs[2].Name)
}
