package events

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRunStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "hits.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewRunStore(s.DB())
}

func TestRunStoreRoundTrip(t *testing.T) {
	t.Parallel()

	rs := setupTestRunStore(t)

	run := &Run{
		ParamsJSON:    json.RawMessage(`{"angular_bin_size_deg":1,"intersection_width_deg":0.5}`),
		ConeCount:     1000,
		ClampedAngles: 3,
		PeakPhiDeg:    -12.5,
		PeakThetaDeg:  4.0,
		PeakValue:     812.7,
		DurationMs:    42,
	}
	require.NoError(t, rs.Insert(run))
	assert.NotEmpty(t, run.RunID, "insert must assign a run ID")
	assert.NotZero(t, run.CreatedAtNs)

	got, err := rs.Get(run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStoreList(t *testing.T) {
	t.Parallel()

	rs := setupTestRunStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, rs.Insert(&Run{
			CreatedAtNs: int64(1000 + i),
			ConeCount:   i,
		}))
	}

	runs, err := rs.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	// Most recent first.
	assert.Equal(t, 2, runs[0].ConeCount)

	runs, err = rs.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunStoreGetMissing(t *testing.T) {
	t.Parallel()

	rs := setupTestRunStore(t)
	_, err := rs.Get("no-such-run")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
