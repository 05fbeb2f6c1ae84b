//go:build sqlite || all_adapters

package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

func TestLoadTable(t *testing.T) {
	loader, err := NewLoader(datasource.Config{Type: datasource.TypeSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	defer loader.Close()

	ctx := context.Background()
	require.NoError(t, loader.Ping(ctx))

	_, err = loader.LoadTable(ctx, `
		WITH t(id, name, score) AS (
			VALUES (1, 'Alice', 1.5), (2, 'Bob', 2.5), (3, NULL, NULL)
		) SELECT * FROM t`)
	require.NoError(t, err)
}

func TestLoadTableTypes(t *testing.T) {
	loader, err := NewLoader(datasource.Config{Type: datasource.TypeSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	defer loader.Close()

	tbl, err := loader.LoadTable(context.Background(),
		`SELECT 1 AS i, 1.5 AS f, 'x' AS s`)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.NumRows())

	i, err := tbl.MustColumn("i")
	require.NoError(t, err)
	assert.Equal(t, table.Int64, i.Type())
	f, err := tbl.MustColumn("f")
	require.NoError(t, err)
	assert.Equal(t, table.Float64, f.Type())
}

func TestLoadTableMaxRows(t *testing.T) {
	loader, err := NewLoader(datasource.Config{Type: datasource.TypeSQLite, DSN: ":memory:", MaxRows: 2})
	require.NoError(t, err)
	defer loader.Close()

	tbl, err := loader.LoadTable(context.Background(), `
		WITH t(n) AS (VALUES (1), (2), (3), (4)) SELECT * FROM t`)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
}
