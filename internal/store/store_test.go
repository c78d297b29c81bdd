package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xupeiwust/TPMS-Designer/internal/timeutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGet(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	run := &Run{
		Kind:           "equation",
		ParamsJSON:     json.RawMessage(`{"equation":"gyroid","vf":0.3}`),
		VolumeFraction: 0.3012,
		StiffnessJSON:  json.RawMessage(`[[1,0],[0,1]]`),
		ElapsedMS:      42,
	}
	require.NoError(t, s.Insert(run))
	assert.NotEmpty(t, run.RunID, "insert must assign a run id")
	assert.NotZero(t, run.CreatedAt, "insert must assign a timestamp")

	got, err := s.Get(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Kind, got.Kind)
	assert.Equal(t, run.ParamsJSON, got.ParamsJSON)
	assert.Equal(t, run.VolumeFraction, got.VolumeFraction)
	assert.Equal(t, run.StiffnessJSON, got.StiffnessJSON)
	assert.Equal(t, run.ElapsedMS, got.ElapsedMS)
	assert.Equal(t, run.CreatedAt, got.CreatedAt)
}

func TestInsertNullableColumns(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	run := &Run{Kind: "lattice", VolumeFraction: 0.5}
	require.NoError(t, s.Insert(run))

	got, err := s.Get(run.RunID)
	require.NoError(t, err)
	assert.Nil(t, got.ParamsJSON)
	assert.Nil(t, got.StiffnessJSON)
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	_, err := s.Get("no-such-run")
	require.Error(t, err)
}

func TestListByKindOrdering(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	for i, kind := range []string{"equation", "lattice", "equation"} {
		require.NoError(t, s.Insert(&Run{
			Kind:      kind,
			CreatedAt: int64(i + 1),
		}))
	}

	runs, err := s.ListByKind("equation")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].CreatedAt, runs[1].CreatedAt, "newest first")

	none, err := s.ListByKind("mesh")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsertTimestampFromClock(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.clock = timeutil.NewMockClock(at)

	run := &Run{Kind: "equation"}
	require.NoError(t, s.Insert(run))
	assert.Equal(t, at.UnixNano(), run.CreatedAt)
}

func TestOpenIdempotentMigrations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(&Run{Kind: "equation"}))
	require.NoError(t, s.Close())

	// Reopening applies no further migrations and keeps existing rows.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	runs, err := s2.ListByKind("equation")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
