package store

import (
	"math"

	"github.com/fathom-data/fathom-engine/pkg/table"
)

// ColumnStats summarizes one column for the optimizer and for axis
// scaling in downstream consumers. Mean and StdDev are populated for
// numeric columns only.
type ColumnStats struct {
	// Min and Max are true extremes for numeric columns. For non-numeric
	// columns they are the first and last observed non-null value — a
	// documented approximation, not a real ordering.
	Min any `json:"min"`
	Max any `json:"max"`

	NullCount     int `json:"nullCount"`
	DistinctCount int `json:"distinctCount"`

	Mean   *float64 `json:"mean,omitempty"`
	StdDev *float64 `json:"stddev,omitempty"`
}

// computeColumnStats scans the column once for min/max/null/distinct and,
// for numeric columns, makes a second pass for the population standard
// deviation (mean first, then squared deviations).
func computeColumnStats(col *table.Column) ColumnStats {
	var stats ColumnStats
	distinct := make(map[string]struct{})
	var keyBuf []byte

	numeric := col.Type().Numeric()
	var sum float64
	var n int

	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			stats.NullCount++
			continue
		}
		keyBuf = col.KeyAppend(keyBuf[:0], i)
		distinct[string(keyBuf)] = struct{}{}

		if numeric {
			v, _ := col.Number(i)
			sum += v
			n++
			if stats.Min == nil {
				stats.Min, stats.Max = col.Value(i), col.Value(i)
			} else {
				if minV, _ := numericOf(stats.Min); v < minV {
					stats.Min = col.Value(i)
				}
				if maxV, _ := numericOf(stats.Max); v > maxV {
					stats.Max = col.Value(i)
				}
			}
		} else {
			if stats.Min == nil {
				stats.Min = col.Value(i)
			}
			stats.Max = col.Value(i)
		}
	}
	stats.DistinctCount = len(distinct)

	if numeric && n > 0 {
		mean := sum / float64(n)
		var sqSum float64
		for i := 0; i < col.Len(); i++ {
			if v, ok := col.Number(i); ok {
				d := v - mean
				sqSum += d * d
			}
		}
		sd := math.Sqrt(sqSum / float64(n))
		stats.Mean = &mean
		stats.StdDev = &sd
	}
	return stats
}

func numericOf(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
