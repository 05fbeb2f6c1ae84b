package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
)

func intColumn(name string, vals ...int64) *Column {
	b := NewBuilder(name, Int64)
	for _, v := range vals {
		b.AppendInt64(v)
	}
	return b.Finish()
}

func strColumn(name string, vals ...string) *Column {
	b := NewBuilder(name, String)
	for _, v := range vals {
		b.AppendString(v)
	}
	return b.Finish()
}

func TestNewValidatesShape(t *testing.T) {
	_, err := New(intColumn("a", 1, 2), intColumn("b", 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = New(intColumn("a", 1), intColumn("a", 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	tbl, err := New(intColumn("a", 1, 2), strColumn("b", "x", "y"))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, 2, tbl.NumColumns())
}

func TestBuilderNulls(t *testing.T) {
	b := NewBuilder("v", Float64)
	b.AppendFloat64(1.5)
	b.AppendNull()
	b.AppendFloat64(2.5)
	c := b.Finish()

	assert.True(t, c.Nullable())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 1, c.NullCount())
	assert.False(t, c.IsNull(0))
	assert.True(t, c.IsNull(1))
	assert.Nil(t, c.Value(1))
	assert.Equal(t, 2.5, c.Value(2))
}

func TestGatherWithNullIndices(t *testing.T) {
	c := intColumn("a", 10, 20, 30)
	g := c.Gather([]int{2, -1, 0})

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, int64(30), g.Int64(0))
	assert.True(t, g.IsNull(1))
	assert.Equal(t, int64(10), g.Int64(2))
	assert.True(t, g.Nullable())
}

func TestSliceSharesData(t *testing.T) {
	tbl, err := New(intColumn("a", 1, 2, 3, 4), strColumn("b", "w", "x", "y", "z"))
	require.NoError(t, err)

	s := tbl.Slice(1, 3)
	assert.Equal(t, 2, s.NumRows())
	assert.Equal(t, []any{int64(2), "x"}, s.Row(0))
	assert.Equal(t, []any{int64(3), "y"}, s.Row(1))
}

func TestConcatPreservesRowOrder(t *testing.T) {
	a, err := New(intColumn("v", 1, 2))
	require.NoError(t, err)
	b, err := New(intColumn("v", 3))
	require.NoError(t, err)
	c, err := New(intColumn("v", 4, 5))
	require.NoError(t, err)

	out, err := a.Concat(b, c)
	require.NoError(t, err)
	require.Equal(t, 5, out.NumRows())
	col, _ := out.Column("v")
	for i, want := range []int64{1, 2, 3, 4, 5} {
		assert.Equal(t, want, col.Int64(i))
	}
}

func TestConcatRejectsSchemaMismatch(t *testing.T) {
	a, _ := New(intColumn("v", 1))
	b, _ := New(strColumn("v", "x"))
	_, err := a.Concat(b)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestWithColumnReplacesInPlace(t *testing.T) {
	tbl, err := New(intColumn("a", 1, 2), intColumn("b", 3, 4))
	require.NoError(t, err)

	out, err := tbl.WithColumn(intColumn("b", 5, 6))
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumColumns())
	col, _ := out.Column("b")
	assert.Equal(t, int64(5), col.Int64(0))

	// The source table is untouched.
	orig, _ := tbl.Column("b")
	assert.Equal(t, int64(3), orig.Int64(0))
}

func TestSelectUnknownColumn(t *testing.T) {
	tbl, _ := New(intColumn("a", 1))
	_, err := tbl.Select([]string{"missing"})
	assert.ErrorIs(t, err, apperrors.ErrColumnNotFound)
}

func TestSchemaOrder(t *testing.T) {
	tbl, _ := New(strColumn("name", "x"), intColumn("age", 1))
	s := tbl.Schema()
	require.Len(t, s, 2)
	assert.Equal(t, "name", s[0].Name)
	assert.Equal(t, "utf8", s[0].TypeName)
	assert.Equal(t, "age", s[1].Name)
	assert.Equal(t, "int64", s[1].TypeName)
	assert.Equal(t, 1, s.FieldIndex("age"))
	assert.Equal(t, -1, s.FieldIndex("nope"))
}
