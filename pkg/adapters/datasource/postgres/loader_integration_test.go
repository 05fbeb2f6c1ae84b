//go:build postgres || all_adapters

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	"github.com/fathom-data/fathom-engine/pkg/table"
	"github.com/fathom-data/fathom-engine/pkg/testhelpers"
)

func TestLoadTableFromPostgres(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	loader, err := NewLoader(datasource.Config{Type: datasource.TypePostgres, DSN: db.ConnStr})
	require.NoError(t, err)
	defer loader.Close()

	require.NoError(t, loader.Ping(ctx))

	tbl, err := loader.LoadTable(ctx, `
		SELECT id, name, score, active, created
		FROM (VALUES
			(1, 'Alice'::text, 91.5::float8, true,  TIMESTAMP '2024-01-01 10:00:00'),
			(2, 'Bob',         NULL::float8, false, TIMESTAMP '2024-01-02 11:30:00'),
			(3, 'Cara',        78.0::float8, true,  TIMESTAMP '2024-01-03 09:15:00')
		) AS t(id, name, score, active, created)
		ORDER BY id`)
	require.NoError(t, err)

	require.Equal(t, 3, tbl.NumRows())
	require.Equal(t, 5, tbl.NumColumns())

	assert.Equal(t, table.Int64, tbl.Schema()[0].Type)
	assert.Equal(t, table.String, tbl.Schema()[1].Type)
	assert.Equal(t, table.Float64, tbl.Schema()[2].Type)
	assert.Equal(t, table.Bool, tbl.Schema()[3].Type)
	assert.Equal(t, table.Timestamp, tbl.Schema()[4].Type)

	row := tbl.RowMap(1)
	assert.Equal(t, "Bob", row["name"])
	assert.Nil(t, row["score"])
}

func TestLoadTableRespectsMaxRows(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	ctx := context.Background()

	loader, err := NewLoader(datasource.Config{
		Type:    datasource.TypePostgres,
		DSN:     db.ConnStr,
		MaxRows: 5,
	})
	require.NoError(t, err)
	defer loader.Close()

	tbl, err := loader.LoadTable(ctx, "SELECT generate_series(1, 100) AS n")
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.NumRows())
}

func TestLoadTableQueryError(t *testing.T) {
	db := testhelpers.GetTestDB(t)

	loader, err := NewLoader(datasource.Config{Type: datasource.TypePostgres, DSN: db.ConnStr})
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.LoadTable(context.Background(), "SELECT * FROM does_not_exist")
	assert.Error(t, err)
}
