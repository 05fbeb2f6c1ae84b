// Package optimizer rewrites a logical operation list into an ordered,
// cost-annotated plan: filters move ahead of other work, referenced
// columns are projected early, consecutive filters merge into one pass,
// and operations reorder within the segments delimited by aggregate/join
// barriers. Cost and row estimates are heuristics for diagnostics, not
// admission control.
package optimizer

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/expr"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/store"
)

// Per-row cost weights per operation type.
const (
	filterCostFactor  = 0.1
	aggregateCost     = 2.0
	joinCostFactor    = 10.0
	computeCostFactor = 0.5
	selectCostFactor  = 0.05
)

// Flat row-count heuristics for operations whose true output size depends
// on data the optimizer does not model.
const (
	aggregateRowFactor = 0.1
	joinRowFactor      = 2.0
)

// operation reorder priorities within a barrier segment: lower runs first.
var opPriority = map[query.OperationType]int{
	query.OpSelect:    1,
	query.OpFilter:    2,
	query.OpCompute:   3,
	query.OpAggregate: 4,
	query.OpSort:      5,
	query.OpJoin:      6,
}

// Optimizer turns logical operation lists into plans.
type Optimizer struct {
	logger *zap.Logger
}

// New creates an Optimizer.
func New(logger *zap.Logger) *Optimizer {
	return &Optimizer{logger: logger}
}

// Plan validates and rewrites the operations against the table's
// metadata and annotates the result with cost and row estimates.
func (o *Optimizer) Plan(ops []query.Operation, meta store.Metadata) (*query.Plan, error) {
	for _, op := range ops {
		if _, known := opPriority[op.Type]; !known {
			return nil, fmt.Errorf("operation %q: %w", op.Type, apperrors.ErrUnknownOperation)
		}
	}

	rewritten := pushFiltersFirst(ops)
	rewritten = pushProjection(rewritten, meta)
	rewritten = mergeFilters(rewritten)
	rewritten = reorderSegments(rewritten)

	plan := &query.Plan{Operations: rewritten}
	plan.EstimatedRows, plan.EstimatedCost = o.estimate(rewritten, meta)

	o.logger.Debug("query planned",
		zap.Int("input_operations", len(ops)),
		zap.Int("planned_operations", len(rewritten)),
		zap.Float64("estimated_rows", plan.EstimatedRows),
		zap.Float64("estimated_cost", plan.EstimatedCost))
	return plan, nil
}

// pushFiltersFirst moves filters to the front of their barrier segment,
// keeping their relative order. Aggregates and joins are barriers:
// a filter never crosses one, because the columns and rows it sees on the
// far side are different.
func pushFiltersFirst(ops []query.Operation) []query.Operation {
	out := make([]query.Operation, 0, len(ops))
	var filters, others []query.Operation

	flush := func() {
		out = append(out, filters...)
		out = append(out, others...)
		filters = filters[:0]
		others = others[:0]
	}

	for _, op := range ops {
		if op.IsBarrier() {
			flush()
			out = append(out, op)
			continue
		}
		if op.Type == query.OpFilter {
			filters = append(filters, op)
		} else {
			others = append(others, op)
		}
	}
	flush()
	return out
}

// pushProjection prepends a select restricting the input to the columns
// the pipeline actually references. Pruning is applied only when the
// pipeline already determines its own output columns through an aggregate
// or an explicit select; otherwise the caller expects every input column
// back and pruning would change the result shape.
func pushProjection(ops []query.Operation, meta store.Metadata) []query.Operation {
	shapeDetermined := false
	for _, op := range ops {
		if op.Type == query.OpAggregate || op.Type == query.OpSelect {
			shapeDetermined = true
			break
		}
	}
	if !shapeDetermined {
		return ops
	}

	referenced := make(map[string]bool)
	for _, op := range ops {
		if !collectReferences(op, referenced) {
			// A compute with an opaque callback can touch any column.
			return ops
		}
	}

	// Intersect with real columns: references to computed aliases or
	// join-side names are not input columns.
	names := make([]string, 0, len(referenced))
	for name := range referenced {
		if _, ok := meta.ColumnStats[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if len(names) == 0 || len(names) >= len(meta.ColumnStats) {
		return ops
	}
	out := make([]query.Operation, 0, len(ops)+1)
	out = append(out, query.Operation{Type: query.OpSelect, Select: names})
	return append(out, ops...)
}

// collectReferences records the column names an operation reads. The
// second result is false when the references cannot be known statically.
func collectReferences(op query.Operation, into map[string]bool) bool {
	switch op.Type {
	case query.OpFilter:
		if op.Filter != nil {
			into[op.Filter.Column] = true
		}
		for _, f := range op.Filters {
			into[f.Column] = true
		}
	case query.OpSort:
		for _, k := range op.Sort {
			into[k.Column] = true
		}
	case query.OpAggregate:
		if op.Aggregate != nil {
			for _, g := range op.Aggregate.GroupBy {
				into[g] = true
			}
			for _, a := range op.Aggregate.Aggregations {
				into[a.Column] = true
			}
		}
	case query.OpJoin:
		if op.Join != nil {
			into[op.Join.LeftOn] = true
		}
	case query.OpCompute:
		for _, c := range op.Compute {
			if c.Fn != nil {
				return false
			}
			deps, err := expr.Identifiers(c.Expression)
			if err != nil {
				return false
			}
			for _, d := range deps {
				into[d] = true
			}
		}
	case query.OpSelect:
		for _, name := range op.Select {
			into[name] = true
		}
	}
	return true
}

// mergeFilters collapses consecutive filter operations into a single
// operation carrying a filter list, evaluated as a logical AND in one
// pass over the rows.
func mergeFilters(ops []query.Operation) []query.Operation {
	out := make([]query.Operation, 0, len(ops))
	for _, op := range ops {
		if op.Type == query.OpFilter && len(out) > 0 && out[len(out)-1].Type == query.OpFilter {
			prev := &out[len(out)-1]
			if prev.Filter != nil {
				prev.Filters = append([]query.FilterParams{*prev.Filter}, prev.Filters...)
				prev.Filter = nil
			}
			if op.Filter != nil {
				prev.Filters = append(prev.Filters, *op.Filter)
			}
			prev.Filters = append(prev.Filters, op.Filters...)
			continue
		}
		out = append(out, op)
	}
	return out
}

// reorderSegments stable-sorts each run of non-barrier operations by the
// fixed priority table. Barriers keep their positions; nothing reorders
// across them.
func reorderSegments(ops []query.Operation) []query.Operation {
	out := make([]query.Operation, 0, len(ops))
	var segment []query.Operation

	flush := func() {
		sort.SliceStable(segment, func(a, b int) bool {
			return opPriority[segment[a].Type] < opPriority[segment[b].Type]
		})
		out = append(out, segment...)
		segment = segment[:0]
	}

	for _, op := range ops {
		if op.IsBarrier() {
			flush()
			out = append(out, op)
			continue
		}
		segment = append(segment, op)
	}
	flush()
	return out
}

// estimate walks the plan accumulating the heuristic cost and row count.
func (o *Optimizer) estimate(ops []query.Operation, meta store.Metadata) (rows, cost float64) {
	rows = float64(meta.RowCount)
	for _, op := range ops {
		switch op.Type {
		case query.OpFilter:
			cost += rows * filterCostFactor
			if op.Filter != nil {
				rows *= estimateSelectivity(*op.Filter, meta.ColumnStats, float64(meta.RowCount))
			}
			for _, f := range op.Filters {
				rows *= estimateSelectivity(f, meta.ColumnStats, float64(meta.RowCount))
			}
		case query.OpAggregate:
			cost += rows * aggregateCost
			rows = math.Max(1, rows*aggregateRowFactor)
		case query.OpSort:
			if rows > 1 {
				cost += rows * math.Log2(rows)
			}
		case query.OpJoin:
			cost += rows * joinCostFactor
			rows *= joinRowFactor
		case query.OpCompute:
			cost += rows * computeCostFactor
		case query.OpSelect:
			cost += rows * selectCostFactor
		}
	}
	return rows, cost
}
