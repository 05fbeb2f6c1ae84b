package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

func numberTable(t *testing.T, n int) *table.Table {
	t.Helper()
	ids := table.NewBuilder("id", table.Int64)
	vals := table.NewBuilder("value", table.Float64)
	ids.Reserve(n)
	vals.Reserve(n)
	for i := 0; i < n; i++ {
		ids.AppendInt64(int64(i))
		vals.AppendFloat64(float64(i % 97))
	}
	tbl, err := table.New(ids.Finish(), vals.Finish())
	require.NoError(t, err)
	return tbl
}

func newTestEngine(threshold int) *Engine {
	return New(Config{ParallelRowThreshold: threshold, MaxWorkers: 4}, zap.NewNop())
}

func TestSerialPipeline(t *testing.T) {
	e := newTestEngine(0)
	tbl := numberTable(t, 100)
	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpFilter, Filter: &query.FilterParams{Column: "value", Operator: query.FilterGte, Value: float64(90)}},
		{Type: query.OpSort, Sort: []query.SortKey{{Column: "id", Order: query.Descending}}},
	}}

	res, err := e.Execute(context.Background(), tbl, plan, Options{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.RowsProcessed)
	require.Greater(t, res.Table.NumRows(), 0)

	col, err := res.Table.MustColumn("id")
	require.NoError(t, err)
	for i := 1; i < col.Len(); i++ {
		assert.GreaterOrEqual(t, col.Int64(i-1), col.Int64(i))
	}
}

func TestSortWithLimitUsesTopK(t *testing.T) {
	e := newTestEngine(0)
	tbl := numberTable(t, 1000)
	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpSort, Sort: []query.SortKey{{Column: "id", Order: query.Descending}}, Limit: 5},
	}}

	res, err := e.Execute(context.Background(), tbl, plan, Options{})
	require.NoError(t, err)
	require.Equal(t, 5, res.Table.NumRows())
	col, err := res.Table.MustColumn("id")
	require.NoError(t, err)
	assert.Equal(t, int64(999), col.Int64(0))
	assert.Equal(t, int64(995), col.Int64(4))
}

func TestMultiKeySortWithLimitTruncates(t *testing.T) {
	e := newTestEngine(0)
	tbl := numberTable(t, 100)
	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpSort, Sort: []query.SortKey{
			{Column: "value", Order: query.Ascending},
			{Column: "id", Order: query.Ascending},
		}, Limit: 10},
	}}

	res, err := e.Execute(context.Background(), tbl, plan, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Table.NumRows())
}

func TestParallelMatchesSerial(t *testing.T) {
	// Low threshold so a small table qualifies for the parallel path.
	e := newTestEngine(10)
	tbl := numberTable(t, 5000)
	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpFilter, Filter: &query.FilterParams{Column: "value", Operator: query.FilterLt, Value: float64(50)}},
		{Type: query.OpCompute, Compute: []query.ComputeParams{{Expression: "value * 2", Alias: "doubled"}}},
		{Type: query.OpSelect, Select: []string{"id", "doubled"}},
	}}

	serial, err := e.Execute(context.Background(), tbl, plan, Options{})
	require.NoError(t, err)
	parallel, err := e.Execute(context.Background(), tbl, plan, Options{UseParallel: true, ChunkSize: 512})
	require.NoError(t, err)

	require.Equal(t, serial.Table.NumRows(), parallel.Table.NumRows())
	require.Equal(t, serial.Table.NumColumns(), parallel.Table.NumColumns())
	assert.Equal(t, serial.Table.Rows(), parallel.Table.Rows())
}

func TestParallelPreservesRowOrder(t *testing.T) {
	e := newTestEngine(10)
	tbl := numberTable(t, 2000)
	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpFilter, Filter: &query.FilterParams{Column: "id", Operator: query.FilterGte, Value: float64(0)}},
	}}

	res, err := e.Execute(context.Background(), tbl, plan, Options{UseParallel: true, ChunkSize: 100})
	require.NoError(t, err)
	col, err := res.Table.MustColumn("id")
	require.NoError(t, err)
	require.Equal(t, 2000, col.Len())
	for i := 0; i < col.Len(); i++ {
		assert.Equal(t, int64(i), col.Int64(i))
	}
}

func TestParallelRecoversChunkPanic(t *testing.T) {
	// A panicking chunk worker must surface as an error inside the
	// parallel path, not crash the process or leave a nil chunk result
	// for Concat. The function panics exactly once, so the serial
	// fallback completes.
	e := newTestEngine(10)
	tbl := numberTable(t, 2000)
	var panicked atomic.Bool
	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpCompute, Compute: []query.ComputeParams{{
			Alias: "tripled",
			Fn: func(row map[string]any, index int) (any, error) {
				if panicked.CompareAndSwap(false, true) {
					panic("transient worker failure")
				}
				return row["value"].(float64) * 3, nil
			},
		}}},
	}}

	res, err := e.Execute(context.Background(), tbl, plan, Options{UseParallel: true, ChunkSize: 100})
	require.NoError(t, err)
	assert.True(t, panicked.Load())
	require.Equal(t, 2000, res.Table.NumRows())

	col, err := res.Table.MustColumn("tripled")
	require.NoError(t, err)
	assert.Equal(t, float64(5%97)*3, col.Float64(5))
}

func TestParallelIneligibleWithBarrier(t *testing.T) {
	// An aggregate needs the whole table; the plan runs serially even
	// when parallelism is requested, and still succeeds.
	e := newTestEngine(10)
	tbl := numberTable(t, 1000)
	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpAggregate, Aggregate: &query.AggregateParams{
			GroupBy:      []string{"value"},
			Aggregations: []query.Aggregation{{Column: "id", Function: query.AggCount, Alias: "n"}},
		}},
	}}

	res, err := e.Execute(context.Background(), tbl, plan, Options{UseParallel: true})
	require.NoError(t, err)
	assert.Equal(t, 97, res.Table.NumRows())
}

func TestErrorCarriesOperationContext(t *testing.T) {
	e := newTestEngine(0)
	tbl := numberTable(t, 10)
	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpFilter, Filter: &query.FilterParams{Column: "missing", Operator: query.FilterEq, Value: float64(1)}},
	}}

	_, err := e.Execute(context.Background(), tbl, plan, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrColumnNotFound)
	assert.Contains(t, err.Error(), "operation 0")
}

func TestUnknownOperationType(t *testing.T) {
	e := newTestEngine(0)
	tbl := numberTable(t, 10)
	plan := &query.Plan{Operations: []query.Operation{{Type: "transmogrify"}}}

	_, err := e.Execute(context.Background(), tbl, plan, Options{})
	assert.ErrorIs(t, err, apperrors.ErrUnknownOperation)
}

func TestCancelledContext(t *testing.T) {
	e := newTestEngine(0)
	tbl := numberTable(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := &query.Plan{Operations: []query.Operation{
		{Type: query.OpSelect, Select: []string{"id"}},
	}}
	_, err := e.Execute(ctx, tbl, plan, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyPlanReturnsInput(t *testing.T) {
	e := newTestEngine(0)
	tbl := numberTable(t, 10)
	res, err := e.Execute(context.Background(), tbl, &query.Plan{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Table.NumRows())
	assert.Equal(t, 2, res.Table.NumColumns())
}
