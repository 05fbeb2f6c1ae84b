package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	v := table.NewBuilder("v", table.Int64)
	s := table.NewBuilder("s", table.String)
	for _, r := range []struct {
		v any
		s string
	}{
		{int64(2), "b"},
		{int64(4), "a"},
		{nil, "b"},
		{int64(6), "c"},
	} {
		require.NoError(t, v.Append(r.v))
		s.AppendString(r.s)
	}
	tbl, err := table.New(v.Finish(), s.Finish())
	require.NoError(t, err)
	return tbl
}

func TestRegisterAndGet(t *testing.T) {
	s := New(zap.NewNop())
	meta, err := s.Register("t1", "sample", sampleTable(t))
	require.NoError(t, err)
	assert.Equal(t, "t1", meta.ID)
	assert.Equal(t, 4, meta.RowCount)
	assert.Equal(t, 2, meta.ColumnCount)

	got, err := s.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.NumRows())

	_, err = s.Register("t1", "dup", sampleTable(t))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRegisterGeneratesID(t *testing.T) {
	s := New(zap.NewNop())
	meta, err := s.Register("", "anon", sampleTable(t))
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ID)
}

func TestNumericColumnStats(t *testing.T) {
	s := New(zap.NewNop())
	_, err := s.Register("t1", "sample", sampleTable(t))
	require.NoError(t, err)

	stats, err := s.GetStats("t1", "v")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Min)
	assert.Equal(t, int64(6), stats.Max)
	assert.Equal(t, 1, stats.NullCount)
	assert.Equal(t, 3, stats.DistinctCount)
	require.NotNil(t, stats.Mean)
	assert.Equal(t, 4.0, *stats.Mean)
	require.NotNil(t, stats.StdDev)
	assert.InDelta(t, 1.632993, *stats.StdDev, 1e-5)
}

func TestNonNumericColumnStats(t *testing.T) {
	s := New(zap.NewNop())
	_, err := s.Register("t1", "sample", sampleTable(t))
	require.NoError(t, err)

	stats, err := s.GetStats("t1", "s")
	require.NoError(t, err)
	// First/last observed non-null values, not a true ordering.
	assert.Equal(t, "b", stats.Min)
	assert.Equal(t, "c", stats.Max)
	assert.Equal(t, 0, stats.NullCount)
	assert.Equal(t, 3, stats.DistinctCount)
	assert.Nil(t, stats.Mean)
	assert.Nil(t, stats.StdDev)
}

func TestUpdateTableRecomputesStats(t *testing.T) {
	s := New(zap.NewNop())
	_, err := s.Register("t1", "sample", sampleTable(t))
	require.NoError(t, err)

	b := table.NewBuilder("v", table.Int64)
	b.AppendInt64(100)
	replacement, err := table.New(b.Finish())
	require.NoError(t, err)

	meta, err := s.UpdateTable("t1", replacement)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.RowCount)
	assert.Equal(t, 1, meta.ColumnCount)

	stats, err := s.GetStats("t1", "v")
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.Min)
	assert.Equal(t, 1, stats.DistinctCount)

	_, err = s.UpdateTable("missing", replacement)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteAndList(t *testing.T) {
	s := New(zap.NewNop())
	_, err := s.Register("t1", "one", sampleTable(t))
	require.NoError(t, err)
	_, err = s.Register("t2", "two", sampleTable(t))
	require.NoError(t, err)

	assert.Len(t, s.List(), 2)

	require.NoError(t, s.Delete("t1"))
	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "t2", list[0].ID)

	assert.ErrorIs(t, s.Delete("t1"), apperrors.ErrNotFound)
	_, err = s.Get("t1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListOrderedByCreation(t *testing.T) {
	s := New(zap.NewNop())
	for _, id := range []string{"b", "a", "c"} {
		_, err := s.Register(id, id, sampleTable(t))
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	list := s.List()
	require.Len(t, list, 3)
	ids := []string{list[0].ID, list[1].ID, list[2].ID}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestGetStatsErrors(t *testing.T) {
	s := New(zap.NewNop())
	_, err := s.GetStats("nope", "v")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.Register("t1", "sample", sampleTable(t))
	require.NoError(t, err)
	_, err = s.GetStats("t1", "nope")
	assert.ErrorIs(t, err, apperrors.ErrColumnNotFound)
}
