// Package engine executes optimized plans against tables. The default
// serial path runs each operation in plan order; an opt-in parallel path
// fans row-range chunks out to a bounded worker pool when every operation
// in the plan is row-partitionable.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/operators"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

const (
	// defaultParallelRowThreshold is the minimum input size before the
	// parallel path is considered. Below it the fan-out overhead costs
	// more than it saves.
	defaultParallelRowThreshold = 100_000
)

// Config tunes the engine. Zero values take the defaults.
type Config struct {
	// ParallelRowThreshold is the minimum row count for parallel execution.
	ParallelRowThreshold int
	// MaxWorkers bounds the worker pool. Defaults to runtime.NumCPU().
	MaxWorkers int
	// ChunkSize is the target rows per chunk. Defaults to an even split
	// across the workers.
	ChunkSize int
}

// Options are per-execution knobs supplied by the caller.
type Options struct {
	// UseParallel requests the parallel path. It is honored only when the
	// plan and input qualify; parallelism is a latency optimization and
	// never changes the result.
	UseParallel bool
	// ChunkSize overrides the engine's configured chunk size.
	ChunkSize int
	// Workers overrides the engine's configured worker bound.
	Workers int
}

// Result is the outcome of executing a plan.
type Result struct {
	Table         *table.Table
	ExecutionTime time.Duration
	RowsProcessed int
}

// Engine runs plans produced by the optimizer.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an Engine with the given configuration.
func New(cfg Config, logger *zap.Logger) *Engine {
	if cfg.ParallelRowThreshold <= 0 {
		cfg.ParallelRowThreshold = defaultParallelRowThreshold
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Execute runs the plan against the table and returns the resulting
// table with timing metadata. The input table is never mutated. If the
// parallel path is requested but ineligible, or fails for any reason,
// execution falls back to the serial path.
func (e *Engine) Execute(ctx context.Context, t *table.Table, plan *query.Plan, opts Options) (*Result, error) {
	start := time.Now()
	rowsIn := t.NumRows()

	if e.parallelEligible(t, plan.Operations, opts) {
		out, err := e.executeParallel(ctx, t, plan.Operations, opts)
		if err == nil {
			e.logger.Debug("plan executed in parallel",
				zap.Int("rows_in", rowsIn),
				zap.Int("rows_out", out.NumRows()),
				zap.Duration("elapsed", time.Since(start)))
			return &Result{Table: out, ExecutionTime: time.Since(start), RowsProcessed: rowsIn}, nil
		}
		e.logger.Warn("parallel execution failed, falling back to serial", zap.Error(err))
	}

	out, err := e.executeSerial(ctx, t, plan.Operations)
	if err != nil {
		return nil, err
	}
	return &Result{Table: out, ExecutionTime: time.Since(start), RowsProcessed: rowsIn}, nil
}

func (e *Engine) executeSerial(ctx context.Context, t *table.Table, ops []query.Operation) (*table.Table, error) {
	cur := t
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := applyOperation(cur, op)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Type, err)
		}
		cur = next
	}
	return cur, nil
}

// parallelEligible reports whether the parallel path applies: it must be
// requested, the input must clear the row threshold, and every operation
// must be independently row-partitionable. Sorts, aggregates, and joins
// need the whole table and disqualify the plan.
func (e *Engine) parallelEligible(t *table.Table, ops []query.Operation, opts Options) bool {
	if !opts.UseParallel || len(ops) == 0 {
		return false
	}
	if t.NumRows() <= e.cfg.ParallelRowThreshold {
		return false
	}
	for _, op := range ops {
		if !op.Partitionable() {
			return false
		}
	}
	return true
}

// executeParallel splits the table into contiguous row-range chunks, runs
// the full operation sequence on each chunk through a bounded pool, and
// concatenates the per-chunk results in input order. Chunk i's rows always
// precede chunk i+1's in the output.
func (e *Engine) executeParallel(ctx context.Context, t *table.Table, ops []query.Operation, opts Options) (*table.Table, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = e.cfg.MaxWorkers
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = e.cfg.ChunkSize
	}
	if chunkSize <= 0 {
		chunkSize = (t.NumRows() + workers - 1) / workers
	}

	var chunks []*table.Table
	for lo := 0; lo < t.NumRows(); lo += chunkSize {
		hi := lo + chunkSize
		if hi > t.NumRows() {
			hi = t.NumRows()
		}
		chunks = append(chunks, t.Slice(lo, hi))
	}
	if len(chunks) == 1 {
		return e.executeSerial(ctx, t, ops)
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		e.logger.Error("chunk worker panic", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([]*table.Table, len(chunks))
	errs := make([]error, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		i, chunk := i, chunk
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("chunk %d: panic: %v", i, r)
				}
			}()
			results[i], errs[i] = e.executeSerial(ctx, chunk, ops)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, err
		}
		if results[i] == nil {
			return nil, fmt.Errorf("chunk %d: missing result", i)
		}
	}
	return results[0].Concat(results[1:]...)
}

// applyOperation dispatches one operation to its operator.
func applyOperation(t *table.Table, op query.Operation) (*table.Table, error) {
	switch op.Type {
	case query.OpFilter:
		if len(op.Filters) > 0 {
			return operators.FilterAll(t, op.Filters)
		}
		if op.Filter == nil {
			return nil, fmt.Errorf("filter params: %w", apperrors.ErrMissingParameter)
		}
		return operators.Filter(t, *op.Filter)
	case query.OpSort:
		if op.Limit > 0 && len(op.Sort) == 1 {
			return operators.TopK(t, op.Sort[0], op.Limit)
		}
		sorted, err := operators.Sort(t, op.Sort)
		if err != nil {
			return nil, err
		}
		if op.Limit > 0 && op.Limit < sorted.NumRows() {
			return sorted.Slice(0, op.Limit), nil
		}
		return sorted, nil
	case query.OpAggregate:
		if op.Aggregate == nil {
			return nil, fmt.Errorf("aggregate params: %w", apperrors.ErrMissingParameter)
		}
		return operators.Aggregate(t, *op.Aggregate)
	case query.OpJoin:
		if op.Join == nil || op.Join.Right == nil {
			return nil, fmt.Errorf("join right table: %w", apperrors.ErrMissingParameter)
		}
		return operators.Join(t, op.Join.Right, *op.Join)
	case query.OpCompute:
		return operators.ComputeAll(t, op.Compute)
	case query.OpSelect:
		return t.Select(op.Select)
	default:
		return nil, fmt.Errorf("operation %q: %w", op.Type, apperrors.ErrUnknownOperation)
	}
}
