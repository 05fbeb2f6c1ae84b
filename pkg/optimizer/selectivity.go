package optimizer

import (
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/store"
)

// Selectivity constants for predicates that statistics cannot refine.
const (
	defaultSelectivity  = 0.5
	fallbackSelectivity = 0.1 // eq/in without a distinct count
	notEqualSelectivity = 0.9
	rangeSelectivity    = 0.33
	betweenSelectivity  = 0.25
)

// estimateSelectivity returns the estimated fraction of rows the filter
// retains, using per-column statistics where they help. The estimate is
// diagnostic: it annotates the plan and never changes operator choice.
func estimateSelectivity(p query.FilterParams, stats map[string]store.ColumnStats, rowCount float64) float64 {
	colStats, hasStats := stats[p.Column]

	switch p.Operator {
	case query.FilterEq:
		if hasStats && colStats.DistinctCount > 0 {
			return 1.0 / float64(colStats.DistinctCount)
		}
		return fallbackSelectivity
	case query.FilterNe:
		return notEqualSelectivity
	case query.FilterGt, query.FilterGte, query.FilterLt, query.FilterLte:
		return rangeSelectivity
	case query.FilterBetween:
		return betweenSelectivity
	case query.FilterIn:
		if hasStats && colStats.DistinctCount > 0 {
			s := float64(len(p.Values)) / float64(colStats.DistinctCount)
			if s > 1 {
				return 1
			}
			return s
		}
		return fallbackSelectivity
	case query.FilterIsNull:
		if hasStats && rowCount > 0 {
			return float64(colStats.NullCount) / rowCount
		}
		return fallbackSelectivity
	case query.FilterNotNull:
		if hasStats && rowCount > 0 {
			return 1.0 - float64(colStats.NullCount)/rowCount
		}
		return 1.0 - fallbackSelectivity
	default:
		return defaultSelectivity
	}
}
