package recorder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/monitoring"
)

func openTemp(t *testing.T) *Recorder {
	t.Helper()
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })
	r, err := Open(filepath.Join(t.TempDir(), "scans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestOpen_MigratesToLatest(t *testing.T) {
	r := openTemp(t)

	version, dirty, err := r.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, r.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	r := openTemp(t)

	require.NoError(t, r.MigrateDown())
	version, _, err := r.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, r.MigrateUp())
	version, _, err = r.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestEpisodeRoundTrip(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	p := lidar.YDLidarX4()

	id, err := r.StartEpisode(ctx, p, true, 42)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	want := []Scan{
		{Episode: id, Sequence: 1, SimTime: 0.142, Samples: []float64{100, 0, 250.5}},
		{Episode: id, Sequence: 2, SimTime: 0.284, Samples: []float64{101, 0, 249.5}},
	}
	// Inserted out of order, read back in sequence order.
	require.NoError(t, r.RecordScan(ctx, id, 2, 0.284, want[1].Samples))
	require.NoError(t, r.RecordScan(ctx, id, 1, 0.142, want[0].Samples))

	got, err := r.Scans(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scans() mismatch (-want +got):\n%s", diff)
	}

	latest, err := r.LatestScan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Sequence)

	episodes, err := r.Episodes(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, id, episodes[0].ID)
	assert.Equal(t, "ydlidar-x4", episodes[0].Profile)
	assert.Equal(t, 720, episodes[0].NumSamples)
	assert.True(t, episodes[0].Realism)
	assert.Equal(t, int64(42), episodes[0].Seed)
	assert.Equal(t, 2, episodes[0].Scans)
	assert.False(t, episodes[0].StartedAt.IsZero())
}

func TestRecordScan_DuplicateSequence(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()

	id, err := r.StartEpisode(ctx, lidar.HokuyoUST10LX(), false, 1)
	require.NoError(t, err)
	require.NoError(t, r.RecordScan(ctx, id, 1, 0, []float64{1}))
	assert.Error(t, r.RecordScan(ctx, id, 1, 0, []float64{2}))
}

func TestRecordScan_UnknownEpisode(t *testing.T) {
	r := openTemp(t)
	assert.Error(t, r.RecordScan(context.Background(), uuid.New(), 1, 0, []float64{1}))
}

func TestLatestScan_Empty(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()

	id, err := r.StartEpisode(ctx, lidar.HokuyoUST10LX(), false, 1)
	require.NoError(t, err)
	_, err = r.LatestScan(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	scans, err := r.Scans(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestAttachAdminRoutes(t *testing.T) {
	r := openTemp(t)
	mux := http.NewServeMux()
	require.NoError(t, r.AttachAdminRoutes(mux))

	req := httptest.NewRequest(http.MethodGet, "/debug/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tailsql")
}
