package operators

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// Sort returns a new table ordered by the given keys. List order is
// priority order: the first key wins ties. Nulls sort after all non-null
// values regardless of direction. Stability beyond the explicit tie-break
// chain is not guaranteed.
func Sort(t *table.Table, keys []query.SortKey) (*table.Table, error) {
	cmp, err := rowComparator(t, keys)
	if err != nil {
		return nil, err
	}
	indices := make([]int, t.NumRows())
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		return cmp(indices[a], indices[b]) < 0
	})
	return t.Gather(indices), nil
}

// TopK returns the first limit rows of the table under the given sort key
// without sorting the whole table: a bounded binary heap keeps the best k
// rows seen, O(n log k). The result is ordered by the key.
func TopK(t *table.Table, key query.SortKey, limit int) (*table.Table, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("topK limit must be positive, got %d: %w", limit, apperrors.ErrInvalidInput)
	}
	cmp, err := rowComparator(t, []query.SortKey{key})
	if err != nil {
		return nil, err
	}
	if limit >= t.NumRows() {
		return Sort(t, []query.SortKey{key})
	}

	// Max-heap under cmp: the root is the worst row currently kept.
	h := &rowHeap{cmp: cmp}
	heap.Init(h)
	for i := 0; i < t.NumRows(); i++ {
		if h.Len() < limit {
			heap.Push(h, i)
		} else if cmp(i, h.indices[0]) < 0 {
			h.indices[0] = i
			heap.Fix(h, 0)
		}
	}

	// Drain from worst to best, then reverse into key order.
	out := make([]int, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(int)
	}
	return t.Gather(out), nil
}

type rowHeap struct {
	indices []int
	cmp     func(a, b int) int
}

func (h *rowHeap) Len() int           { return len(h.indices) }
func (h *rowHeap) Less(i, j int) bool { return h.cmp(h.indices[i], h.indices[j]) > 0 }
func (h *rowHeap) Swap(i, j int)      { h.indices[i], h.indices[j] = h.indices[j], h.indices[i] }
func (h *rowHeap) Push(x any)         { h.indices = append(h.indices, x.(int)) }

func (h *rowHeap) Pop() any {
	n := len(h.indices)
	x := h.indices[n-1]
	h.indices = h.indices[:n-1]
	return x
}

// rowComparator builds a three-way row comparison over the sort keys.
func rowComparator(t *table.Table, keys []query.SortKey) (func(a, b int) int, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("sort requires at least one key: %w", apperrors.ErrMissingParameter)
	}
	cols := make([]*table.Column, len(keys))
	desc := make([]bool, len(keys))
	for i, k := range keys {
		col, err := t.MustColumn(k.Column)
		if err != nil {
			return nil, err
		}
		cols[i] = col
		desc[i] = k.Order == query.Descending
	}
	return func(a, b int) int {
		for i, col := range cols {
			c := compareRows(col, a, b)
			if c == 0 {
				continue
			}
			// Nulls stay last regardless of direction.
			if col.IsNull(a) || col.IsNull(b) {
				return c
			}
			if desc[i] {
				return -c
			}
			return c
		}
		return 0
	}, nil
}

// compareRows three-way compares two rows of one column, ordering nulls
// after every non-null value.
func compareRows(col *table.Column, a, b int) int {
	an, bn := col.IsNull(a), col.IsNull(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	switch col.Type() {
	case table.Int64, table.Timestamp:
		av, bv := col.Int64(a), col.Int64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case table.Float64:
		av, bv := col.Float64(a), col.Float64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case table.String:
		return strings.Compare(col.Str(a), col.Str(b))
	case table.Bool:
		av, bv := col.Bool(a), col.Bool(b)
		switch {
		case !av && bv:
			return -1
		case av && !bv:
			return 1
		}
	}
	return 0
}
