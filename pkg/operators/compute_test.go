package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

func ordersTable(t *testing.T) *table.Table {
	t.Helper()
	price := table.NewBuilder("price", table.Float64)
	qty := table.NewBuilder("qty", table.Int64)
	for _, r := range []struct {
		p float64
		q int64
	}{{2.5, 4}, {1.0, 3}, {10.0, 1}} {
		price.AppendFloat64(r.p)
		qty.AppendInt64(r.q)
	}
	tbl, err := table.New(price.Finish(), qty.Finish())
	require.NoError(t, err)
	return tbl
}

func TestComputeExpression(t *testing.T) {
	out, err := Compute(ordersTable(t), query.ComputeParams{
		Expression: "price * qty",
		Alias:      "total",
	})
	require.NoError(t, err)
	require.Equal(t, 3, out.NumColumns())

	total, ok := out.Column("total")
	require.True(t, ok)
	assert.Equal(t, table.Float64, total.Type())
	assert.Equal(t, 10.0, total.Float64(0))
	assert.Equal(t, 3.0, total.Float64(1))
	assert.Equal(t, 10.0, total.Float64(2))
}

func TestComputeCallback(t *testing.T) {
	out, err := Compute(ordersTable(t), query.ComputeParams{
		Alias: "row_tag",
		Fn: func(row map[string]any, index int) (any, error) {
			if row["qty"].(int64) > 2 {
				return "bulk", nil
			}
			return "single", nil
		},
	})
	require.NoError(t, err)
	tag, _ := out.Column("row_tag")
	assert.Equal(t, "bulk", tag.Str(0))
	assert.Equal(t, "single", tag.Str(2))
}

func TestComputeAllThreadsColumns(t *testing.T) {
	// The second expression references the first expression's output.
	out, err := ComputeAll(ordersTable(t), []query.ComputeParams{
		{Expression: "price * qty", Alias: "total"},
		{Expression: "total > 5 ? 'high' : 'low'", Alias: "band"},
	})
	require.NoError(t, err)

	band, _ := out.Column("band")
	assert.Equal(t, "high", band.Str(0))
	assert.Equal(t, "low", band.Str(1))
	assert.Equal(t, "high", band.Str(2))
}

func TestComputeTernaryAndBuiltins(t *testing.T) {
	out, err := Compute(ordersTable(t), query.ComputeParams{
		Expression: "concat('q=', qty)",
		Alias:      "label",
	})
	require.NoError(t, err)
	label, _ := out.Column("label")
	assert.Equal(t, "q=4", label.Str(0))
}

func TestComputeNullPropagation(t *testing.T) {
	b := table.NewBuilder("v", table.Int64)
	b.AppendInt64(1)
	b.AppendNull()
	tbl, err := table.New(b.Finish())
	require.NoError(t, err)

	out, err := Compute(tbl, query.ComputeParams{Expression: "v * 2", Alias: "double"})
	require.NoError(t, err)
	d, _ := out.Column("double")
	assert.Equal(t, int64(2), d.Int64(0))
	assert.True(t, d.IsNull(1))
}

func TestComputeReplacesExistingColumn(t *testing.T) {
	out, err := Compute(ordersTable(t), query.ComputeParams{Expression: "qty + 1", Alias: "qty"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumColumns())
	qty, _ := out.Column("qty")
	assert.Equal(t, int64(5), qty.Int64(0))
}

func TestComputeErrors(t *testing.T) {
	tbl := ordersTable(t)

	_, err := Compute(tbl, query.ComputeParams{Expression: "price * 2"})
	assert.ErrorIs(t, err, apperrors.ErrMissingParameter)

	_, err = Compute(tbl, query.ComputeParams{Alias: "x"})
	assert.ErrorIs(t, err, apperrors.ErrMissingParameter)

	_, err = Compute(tbl, query.ComputeParams{Expression: "missing + 1", Alias: "x"})
	assert.ErrorIs(t, err, apperrors.ErrColumnNotFound)

	_, err = Compute(tbl, query.ComputeParams{Expression: "price +", Alias: "x"})
	assert.ErrorIs(t, err, apperrors.ErrExpression)
}
