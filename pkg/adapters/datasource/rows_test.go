package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

func TestTableFromValuesInference(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tbl, err := TableFromValues(
		[]string{"i", "f", "widened", "b", "s", "bytes", "ts", "mixed"},
		[][]any{
			{int32(1), float64(1.5), int64(1), true, "x", []byte("raw"), at, int64(1)},
			{int64(2), float32(2.5), float64(2.5), false, "y", []byte("data"), at, "two"},
			{nil, nil, nil, nil, nil, nil, nil, nil},
		},
	)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.NumRows())

	want := map[string]table.Type{
		"i":       table.Int64,
		"f":       table.Float64,
		"widened": table.Float64,
		"b":       table.Bool,
		"s":       table.String,
		"bytes":   table.String,
		"ts":      table.Timestamp,
		"mixed":   table.String,
	}
	for name, typ := range want {
		col, err := tbl.MustColumn(name)
		require.NoError(t, err)
		assert.Equal(t, typ, col.Type(), "column %s", name)
		assert.True(t, col.IsNull(2), "column %s row 2", name)
	}

	i, _ := tbl.MustColumn("i")
	assert.Equal(t, int64(1), i.Int64(0))
	w, _ := tbl.MustColumn("widened")
	assert.Equal(t, 2.5, w.Float64(1))
	bs, _ := tbl.MustColumn("bytes")
	assert.Equal(t, "raw", bs.Str(0))
	ts, _ := tbl.MustColumn("ts")
	assert.Equal(t, at.UnixMilli(), ts.Int64(0))
}

func TestTableFromValuesNoColumns(t *testing.T) {
	_, err := TableFromValues(nil, nil)
	assert.Error(t, err)
}

func TestRegistryUnknownAdapter(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	_, err := r.Loader(Config{Type: "oracle"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
