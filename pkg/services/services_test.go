package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/engine"
	"github.com/fathom-data/fathom-engine/pkg/optimizer"
	"github.com/fathom-data/fathom-engine/pkg/parsers"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/store"
)

type fixture struct {
	store  *store.Store
	ingest IngestService
	query  QueryService
}

func newFixture() *fixture {
	logger := zap.NewNop()
	st := store.New(logger)
	return &fixture{
		store:  st,
		ingest: NewIngestService(st, datasource.NewRegistry(logger), logger),
		query: NewQueryService(st, optimizer.New(logger),
			engine.New(engine.Config{}, logger), logger),
	}
}

func ingestCSV(t *testing.T, f *fixture, name, csv string) string {
	t.Helper()
	res, err := f.ingest.Ingest(context.Background(), "", name, parsers.DataSource{
		Type: parsers.SourceCSV,
		Data: []byte(csv),
	})
	require.NoError(t, err)
	return res.Metadata.ID
}

func TestIngestRegistersTable(t *testing.T) {
	f := newFixture()
	res, err := f.ingest.Ingest(context.Background(), "", "people", parsers.DataSource{
		Type: parsers.SourceCSV,
		Data: []byte("id,name,age\n1,Alice,30\n2,Bob,25"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Metadata.ID)
	assert.Equal(t, 2, res.Metadata.RowCount)
	assert.Equal(t, 3, res.Metadata.ColumnCount)

	tbl, err := f.store.Get(res.Metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
}

func TestIngestEmptyData(t *testing.T) {
	f := newFixture()
	_, err := f.ingest.Ingest(context.Background(), "", "empty", parsers.DataSource{
		Type: parsers.SourceCSV,
	})
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
}

func TestIngestSurfacesParseErrors(t *testing.T) {
	f := newFixture()
	res, err := f.ingest.Ingest(context.Background(), "", "ragged", parsers.DataSource{
		Type: parsers.SourceCSV,
		Data: []byte("a,b\n1,2\n3\n4,5"),
	})
	require.NoError(t, err)
	assert.Len(t, res.ParseErrors, 1)
	assert.Equal(t, 2, res.Metadata.RowCount)
}

func TestIngestFromDataSourceRejectsWrites(t *testing.T) {
	f := newFixture()
	_, err := f.ingest.IngestFromDataSource(context.Background(), "", "ext",
		datasource.Config{Type: "oracle"}, "DROP TABLE users")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestIngestFromUnknownAdapter(t *testing.T) {
	f := newFixture()
	_, err := f.ingest.IngestFromDataSource(context.Background(), "", "ext",
		datasource.Config{Type: "oracle"}, "SELECT 1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQueryFilterAndSort(t *testing.T) {
	f := newFixture()
	id := ingestCSV(t, f, "people", "id,name,age\n1,Alice,30\n2,Bob,25\n3,Cara,35")

	res, err := f.query.Execute(context.Background(), QueryRequest{
		TableID: id,
		Operations: []query.Operation{
			{Type: query.OpFilter, Filter: &query.FilterParams{
				Column: "age", Operator: query.FilterGt, Value: float64(28),
			}},
			{Type: query.OpSort, Sort: []query.SortKey{{Column: "age", Order: query.Descending}}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Table.NumRows())
	names, err := res.Table.MustColumn("name")
	require.NoError(t, err)
	assert.Equal(t, "Cara", names.Str(0))
	assert.Equal(t, "Alice", names.Str(1))
	assert.Equal(t, 3, res.RowsProcessed)
}

func TestQueryJoinResolvesRightTableID(t *testing.T) {
	f := newFixture()
	left := ingestCSV(t, f, "orders", "id,amount\n1,10\n2,20")
	right := ingestCSV(t, f, "users", "id,name\n2,Bob\n3,Cara")

	res, err := f.query.Execute(context.Background(), QueryRequest{
		TableID: left,
		Operations: []query.Operation{
			{Type: query.OpJoin, Join: &query.JoinParams{
				Type: query.InnerJoin, RightTable: right, LeftOn: "id", RightOn: "id",
			}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.NumRows())
	names, err := res.Table.MustColumn("name")
	require.NoError(t, err)
	assert.Equal(t, "Bob", names.Str(0))
}

func TestQueryJoinMissingRightTable(t *testing.T) {
	f := newFixture()
	id := ingestCSV(t, f, "t", "a\n1")
	_, err := f.query.Execute(context.Background(), QueryRequest{
		TableID: id,
		Operations: []query.Operation{
			{Type: query.OpJoin, Join: &query.JoinParams{Type: query.InnerJoin, LeftOn: "a", RightOn: "a"}},
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrMissingParameter)
}

func TestQueryUnknownTable(t *testing.T) {
	f := newFixture()
	_, err := f.query.Execute(context.Background(), QueryRequest{TableID: "missing"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQuerySaveAs(t *testing.T) {
	f := newFixture()
	id := ingestCSV(t, f, "people", "id,age\n1,30\n2,25")

	res, err := f.query.Execute(context.Background(), QueryRequest{
		TableID: id,
		Operations: []query.Operation{
			{Type: query.OpFilter, Filter: &query.FilterParams{
				Column: "age", Operator: query.FilterGte, Value: float64(30),
			}},
		},
		SaveAs: "adults",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Saved)

	saved, err := f.store.Get(res.Saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.NumRows())
}

func TestExplainReturnsPlanWithoutExecuting(t *testing.T) {
	f := newFixture()
	id := ingestCSV(t, f, "people", "id,age\n1,30\n2,25")

	plan, err := f.query.Explain(context.Background(), QueryRequest{
		TableID: id,
		Operations: []query.Operation{
			{Type: query.OpSort, Sort: []query.SortKey{{Column: "age", Order: query.Ascending}}},
			{Type: query.OpFilter, Filter: &query.FilterParams{
				Column: "age", Operator: query.FilterGt, Value: float64(20),
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, plan.Operations, 2)
	assert.Equal(t, query.OpFilter, plan.Operations[0].Type)
	assert.Greater(t, plan.EstimatedCost, 0.0)
}
