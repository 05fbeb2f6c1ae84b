package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

func idTable(t *testing.T, idCol string, extra string, rows [][2]any) *table.Table {
	t.Helper()
	id := table.NewBuilder(idCol, table.Int64)
	ex := table.NewBuilder(extra, table.String)
	for _, r := range rows {
		require.NoError(t, id.Append(r[0]))
		require.NoError(t, ex.Append(r[1]))
	}
	tbl, err := table.New(id.Finish(), ex.Finish())
	require.NoError(t, err)
	return tbl
}

func TestInnerJoin(t *testing.T) {
	// Scenario: left ids {1,2} and right ids {2,3} intersect at exactly 2.
	left := idTable(t, "id", "lval", [][2]any{{int64(1), "a"}, {int64(2), "b"}})
	right := idTable(t, "id", "rval", [][2]any{{int64(2), "x"}, {int64(3), "y"}})

	out, err := Join(left, right, query.JoinParams{Type: query.InnerJoin, LeftOn: "id", RightOn: "id"})
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())

	row := out.RowMap(0)
	assert.Equal(t, int64(2), row["id"])
	assert.Equal(t, "b", row["lval"])
	assert.Equal(t, int64(2), row["id_right"]) // collision takes the suffix
	assert.Equal(t, "x", row["rval"])
}

func TestLeftJoinNullFillsUnmatched(t *testing.T) {
	left := idTable(t, "id", "lval", [][2]any{{int64(1), "a"}, {int64(2), "b"}})
	right := idTable(t, "id", "rval", [][2]any{{int64(2), "x"}})

	out, err := Join(left, right, query.JoinParams{Type: query.LeftJoin, LeftOn: "id", RightOn: "id"})
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())

	first := out.RowMap(0)
	assert.Equal(t, int64(1), first["id"])
	assert.Nil(t, first["rval"])
	assert.Nil(t, first["id_right"])

	second := out.RowMap(1)
	assert.Equal(t, "x", second["rval"])
}

func TestRightJoinRunsAsSwappedLeftJoin(t *testing.T) {
	left := idTable(t, "id", "lval", [][2]any{{int64(2), "b"}})
	right := idTable(t, "id", "rval", [][2]any{{int64(2), "x"}, {int64(3), "y"}})

	out, err := Join(left, right, query.JoinParams{Type: query.RightJoin, LeftOn: "id", RightOn: "id"})
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())

	// Operands are swapped, so the right table's columns come first and
	// every right row is preserved.
	assert.Equal(t, "id", out.Schema()[0].Name)
	assert.Equal(t, "rval", out.Schema()[1].Name)

	matched := out.RowMap(0)
	assert.Equal(t, "x", matched["rval"])
	assert.Equal(t, "b", matched["lval"])

	unmatched := out.RowMap(1)
	assert.Equal(t, "y", unmatched["rval"])
	assert.Nil(t, unmatched["lval"])
}

func TestFullJoin(t *testing.T) {
	left := idTable(t, "id", "lval", [][2]any{{int64(1), "a"}, {int64(2), "b"}})
	right := idTable(t, "id", "rval", [][2]any{{int64(2), "x"}, {int64(3), "y"}})

	out, err := Join(left, right, query.JoinParams{Type: query.FullJoin, LeftOn: "id", RightOn: "id"})
	require.NoError(t, err)
	require.Equal(t, 3, out.NumRows())

	rows := out.Rows()
	// Left rows in order, then unmatched right rows.
	assert.Equal(t, int64(1), rows[0][0])
	assert.Nil(t, rows[0][3])
	assert.Equal(t, int64(2), rows[1][0])
	assert.Equal(t, "x", rows[1][3])
	assert.Nil(t, rows[2][0])
	assert.Equal(t, "y", rows[2][3])
}

func TestCrossJoin(t *testing.T) {
	left := idTable(t, "id", "lval", [][2]any{{int64(1), "a"}, {int64(2), "b"}})
	right := idTable(t, "rid", "rval", [][2]any{{int64(7), "x"}, {int64(8), "y"}, {int64(9), "z"}})

	out, err := Join(left, right, query.JoinParams{Type: query.CrossJoin})
	require.NoError(t, err)
	assert.Equal(t, 6, out.NumRows())
	assert.Equal(t, 4, out.NumColumns())
}

func TestJoinDuplicateKeysFanOut(t *testing.T) {
	left := idTable(t, "id", "lval", [][2]any{{int64(1), "a"}, {int64(1), "b"}})
	right := idTable(t, "id", "rval", [][2]any{{int64(1), "x"}, {int64(1), "y"}})

	out, err := Join(left, right, query.JoinParams{Type: query.InnerJoin, LeftOn: "id", RightOn: "id"})
	require.NoError(t, err)
	// 2 left matches x 2 right matches.
	assert.Equal(t, 4, out.NumRows())
}

func TestJoinNullKeysMatchEachOther(t *testing.T) {
	left := idTable(t, "id", "lval", [][2]any{{nil, "a"}, {int64(1), "b"}})
	right := idTable(t, "id", "rval", [][2]any{{nil, "x"}})

	out, err := Join(left, right, query.JoinParams{Type: query.InnerJoin, LeftOn: "id", RightOn: "id"})
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	row := out.RowMap(0)
	assert.Equal(t, "a", row["lval"])
	assert.Equal(t, "x", row["rval"])
}

func TestJoinCustomSuffix(t *testing.T) {
	left := idTable(t, "id", "v", [][2]any{{int64(1), "a"}})
	right := idTable(t, "id", "v", [][2]any{{int64(1), "x"}})

	out, err := Join(left, right, query.JoinParams{
		Type: query.InnerJoin, LeftOn: "id", RightOn: "id", Suffix: "_r",
	})
	require.NoError(t, err)
	s := out.Schema()
	names := []string{s[0].Name, s[1].Name, s[2].Name, s[3].Name}
	assert.Equal(t, []string{"id", "v", "id_r", "v_r"}, names)
}

func TestJoinErrors(t *testing.T) {
	left := idTable(t, "id", "v", [][2]any{{int64(1), "a"}})
	right := idTable(t, "id", "w", [][2]any{{int64(1), "x"}})

	_, err := Join(left, right, query.JoinParams{Type: "semi", LeftOn: "id", RightOn: "id"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownJoinType)

	_, err = Join(left, right, query.JoinParams{Type: query.InnerJoin, LeftOn: "nope", RightOn: "id"})
	assert.ErrorIs(t, err, apperrors.ErrColumnNotFound)
}
