package operators

import (
	"fmt"
	"math"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// Aggregate groups the table by the composite key of the group-by columns
// and computes one output column per aggregation. Grouping is hash-based
// over structural keys (one bucket per distinct composite key, O(n)), and
// groups appear in first-encounter order. Null group-by values form their
// own bucket and compare equal to each other.
//
// All functions except count ignore null inputs; a group whose inputs are
// all null yields null, never NaN or an error. An empty input yields an
// empty result, not an error.
func Aggregate(t *table.Table, p query.AggregateParams) (*table.Table, error) {
	if len(p.Aggregations) == 0 {
		return nil, fmt.Errorf("aggregate requires at least one aggregation: %w", apperrors.ErrMissingParameter)
	}

	groupCols := make([]*table.Column, len(p.GroupBy))
	for i, name := range p.GroupBy {
		// A group key named __proto__ is rejected outright: the browser
		// front end round-trips group keys through plain objects, where
		// that name collides with the prototype slot.
		if name == "__proto__" {
			return nil, fmt.Errorf("group-by column %q is not allowed: %w", name, apperrors.ErrInvalidInput)
		}
		col, err := t.MustColumn(name)
		if err != nil {
			return nil, err
		}
		groupCols[i] = col
	}

	aggCols := make([]*table.Column, len(p.Aggregations))
	for i, agg := range p.Aggregations {
		col, err := t.MustColumn(agg.Column)
		if err != nil {
			return nil, err
		}
		if _, ok := newAccumulator(agg.Function, col); !ok {
			return nil, fmt.Errorf("function %q: %w", agg.Function, apperrors.ErrUnknownFunction)
		}
		aggCols[i] = col
	}

	type group struct {
		firstRow int
		accs     []accumulator
	}
	buckets := make(map[string]*group)
	order := make([]*group, 0)

	var keyBuf []byte
	for row := 0; row < t.NumRows(); row++ {
		keyBuf = keyBuf[:0]
		for _, col := range groupCols {
			keyBuf = col.KeyAppend(keyBuf, row)
		}
		g, ok := buckets[string(keyBuf)]
		if !ok {
			g = &group{firstRow: row, accs: make([]accumulator, len(p.Aggregations))}
			for i, agg := range p.Aggregations {
				g.accs[i], _ = newAccumulator(agg.Function, aggCols[i])
			}
			buckets[string(keyBuf)] = g
			order = append(order, g)
		}
		for _, acc := range g.accs {
			acc.add(row)
		}
	}

	// Group-by output columns carry the representative row of each group.
	reps := make([]int, len(order))
	for i, g := range order {
		reps[i] = g.firstRow
	}
	out := make([]*table.Column, 0, len(p.GroupBy)+len(p.Aggregations))
	for _, col := range groupCols {
		out = append(out, col.Gather(reps))
	}
	for i, agg := range p.Aggregations {
		alias := agg.Alias
		if alias == "" {
			alias = fmt.Sprintf("%s_%s", agg.Function, agg.Column)
		}
		b := table.NewBuilder(alias, resultType(agg.Function, aggCols[i]))
		b.Reserve(len(order))
		for _, g := range order {
			if err := b.Append(g.accs[i].result()); err != nil {
				return nil, err
			}
		}
		out = append(out, b.Finish())
	}
	return table.New(out...)
}

// resultType gives the column type an aggregation produces: count is
// always int64, avg and stddev are always float64, sum widens to float64
// unless the source is integral, and the rest keep the source type.
func resultType(fn query.AggFunc, col *table.Column) table.Type {
	switch fn {
	case query.AggCount:
		return table.Int64
	case query.AggAvg, query.AggStdDev:
		return table.Float64
	case query.AggSum:
		if col.Type() == table.Int64 {
			return table.Int64
		}
		return table.Float64
	default:
		return col.Type()
	}
}

type accumulator interface {
	add(row int)
	result() any
}

func newAccumulator(fn query.AggFunc, col *table.Column) (accumulator, bool) {
	switch fn {
	case query.AggCount:
		return &countAcc{}, true
	case query.AggSum:
		return &sumAcc{col: col, integral: col.Type() == table.Int64}, true
	case query.AggAvg:
		return &avgAcc{col: col}, true
	case query.AggStdDev:
		return &stddevAcc{col: col}, true
	case query.AggMin:
		return &bestAcc{col: col, keep: -1}, true
	case query.AggMax:
		return &bestAcc{col: col, keep: 1}, true
	case query.AggFirst:
		return &firstLastAcc{col: col, first: true}, true
	case query.AggLast:
		return &firstLastAcc{col: col}, true
	default:
		return nil, false
	}
}

// countAcc counts every row of the group, nulls included, so group counts
// total the input row count.
type countAcc struct{ n int64 }

func (a *countAcc) add(int)     { a.n++ }
func (a *countAcc) result() any { return a.n }

type sumAcc struct {
	col      *table.Column
	integral bool
	i        int64
	f        float64
	seen     bool
}

func (a *sumAcc) add(row int) {
	if a.col.IsNull(row) {
		return
	}
	a.seen = true
	if a.integral {
		a.i += a.col.Int64(row)
		return
	}
	if v, ok := a.col.Number(row); ok {
		a.f += v
	}
}

func (a *sumAcc) result() any {
	if !a.seen {
		return nil
	}
	if a.integral {
		return a.i
	}
	return a.f
}

type avgAcc struct {
	col *table.Column
	sum float64
	n   int64
}

func (a *avgAcc) add(row int) {
	if v, ok := a.col.Number(row); ok {
		a.sum += v
		a.n++
	}
}

func (a *avgAcc) result() any {
	if a.n == 0 {
		return nil
	}
	return a.sum / float64(a.n)
}

// stddevAcc computes the population standard deviation from running sums.
type stddevAcc struct {
	col        *table.Column
	sum, sumSq float64
	n          int64
}

func (a *stddevAcc) add(row int) {
	if v, ok := a.col.Number(row); ok {
		a.sum += v
		a.sumSq += v * v
		a.n++
	}
}

func (a *stddevAcc) result() any {
	if a.n == 0 {
		return nil
	}
	mean := a.sum / float64(a.n)
	variance := a.sumSq/float64(a.n) - mean*mean
	if variance < 0 { // rounding
		variance = 0
	}
	return math.Sqrt(variance)
}

// bestAcc tracks the row holding the minimum (keep=-1) or maximum
// (keep=1) non-null value, so the result keeps the source type.
type bestAcc struct {
	col  *table.Column
	keep int
	row  int
	seen bool
}

func (a *bestAcc) add(row int) {
	if a.col.IsNull(row) {
		return
	}
	if !a.seen {
		a.row, a.seen = row, true
		return
	}
	if c := compareRows(a.col, row, a.row); (a.keep < 0 && c < 0) || (a.keep > 0 && c > 0) {
		a.row = row
	}
}

func (a *bestAcc) result() any {
	if !a.seen {
		return nil
	}
	return a.col.Value(a.row)
}

type firstLastAcc struct {
	col   *table.Column
	first bool
	row   int
	seen  bool
}

func (a *firstLastAcc) add(row int) {
	if a.col.IsNull(row) {
		return
	}
	if a.first && a.seen {
		return
	}
	a.row, a.seen = row, true
}

func (a *firstLastAcc) result() any {
	if !a.seen {
		return nil
	}
	return a.col.Value(a.row)
}
