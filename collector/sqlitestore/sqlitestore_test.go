package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordAndQuerySeries(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "run.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record("run-1", 0, map[string]float64{"A": 10}, map[string]float64{"T1": 0}))
	require.NoError(t, s.Record("run-1", 1, map[string]float64{"A": 9}, map[string]float64{"T1": 1}))

	times, values, err := s.PlaceSeries("run-1", "A")
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, times)
	require.Equal(t, []float64{10, 9}, values)

	tTimes, tValues, err := s.TransitionSeries("run-1", "T1")
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, tTimes)
	require.Equal(t, []float64{0, 1}, tValues)
}

func TestRunIDs(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "run.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record("run-a", 0, map[string]float64{"A": 1}, nil))
	require.NoError(t, s.Record("run-b", 0, map[string]float64{"A": 1}, nil))

	ids, err := s.RunIDs()
	require.NoError(t, err)
	require.Len(t, ids, 2)
}
