// Package query defines the logical operation model submitted by callers:
// a tagged union of relational transforms plus the cost-annotated plan the
// optimizer produces from it. These types cross the HTTP boundary, so
// every param struct carries JSON tags.
package query

import (
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// OperationType tags the variant of an Operation.
type OperationType string

const (
	OpFilter    OperationType = "filter"
	OpSort      OperationType = "sort"
	OpAggregate OperationType = "aggregate"
	OpJoin      OperationType = "join"
	OpCompute   OperationType = "compute"
	OpSelect    OperationType = "select"
)

// FilterOp is a filter comparison operator.
type FilterOp string

const (
	FilterEq      FilterOp = "eq"
	FilterNe      FilterOp = "ne"
	FilterGt      FilterOp = "gt"
	FilterLt      FilterOp = "lt"
	FilterGte     FilterOp = "gte"
	FilterLte     FilterOp = "lte"
	FilterIn      FilterOp = "in"
	FilterBetween FilterOp = "between"
	FilterLike    FilterOp = "like"
	FilterIsNull  FilterOp = "isNull"
	FilterNotNull FilterOp = "notNull"
)

// SortOrder is a sort direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// JoinType selects join semantics.
type JoinType string

const (
	InnerJoin JoinType = "inner"
	LeftJoin  JoinType = "left"
	RightJoin JoinType = "right"
	FullJoin  JoinType = "full"
	CrossJoin JoinType = "cross"
)

// AggFunc is an aggregation function name.
type AggFunc string

const (
	AggSum    AggFunc = "sum"
	AggAvg    AggFunc = "avg"
	AggCount  AggFunc = "count"
	AggMin    AggFunc = "min"
	AggMax    AggFunc = "max"
	AggStdDev AggFunc = "stddev"
	AggFirst  AggFunc = "first"
	AggLast   AggFunc = "last"
)

// FilterParams describes one predicate. Which value fields are required
// depends on the operator: Value for comparisons, Values for in,
// Min/Max for between, Pattern for like.
type FilterParams struct {
	Column   string   `json:"column"`
	Operator FilterOp `json:"operator"`
	Value    any      `json:"value,omitempty"`
	Values   []any    `json:"values,omitempty"`
	Min      any      `json:"min,omitempty"`
	Max      any      `json:"max,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`
}

// SortKey is one (column, direction) pair. In multi-key sorts, list order
// is priority order: the first key wins ties.
type SortKey struct {
	Column string    `json:"column"`
	Order  SortOrder `json:"order"`
}

// Aggregation is one aggregated output column.
type Aggregation struct {
	Column   string  `json:"column"`
	Function AggFunc `json:"function"`
	Alias    string  `json:"alias"`
}

// AggregateParams describes a group-and-aggregate.
type AggregateParams struct {
	GroupBy      []string      `json:"groupBy"`
	Aggregations []Aggregation `json:"aggregations"`
}

// JoinParams describes a join against a second table. RightTable is a
// table id resolved by the query service; Right carries the resolved
// table through the plan and never crosses the wire.
type JoinParams struct {
	Type       JoinType     `json:"type"`
	RightTable string       `json:"rightTable,omitempty"`
	LeftOn     string       `json:"leftOn"`
	RightOn    string       `json:"rightOn"`
	Suffix     string       `json:"suffix,omitempty"`
	Right      *table.Table `json:"-"`
}

// ComputeFunc is a caller-supplied per-row derivation. It receives a
// name-to-value view of the row plus the row index. Only in-process Go
// callers can set one; the HTTP boundary is expression strings only.
type ComputeFunc func(row map[string]any, index int) (any, error)

// ComputeParams derives one column from an expression evaluated per row.
type ComputeParams struct {
	Expression string      `json:"expression,omitempty"`
	Alias      string      `json:"alias"`
	Fn         ComputeFunc `json:"-"`
}

// Operation is the tagged union of logical operations.
// Exactly the params matching Type are consulted.
type Operation struct {
	Type OperationType `json:"type"`

	Filter *FilterParams `json:"filter,omitempty"`
	// Filters is set by the optimizer when consecutive filter operations
	// are merged; the entries are evaluated as a logical AND in one pass.
	Filters []FilterParams `json:"filters,omitempty"`

	Sort []SortKey `json:"sort,omitempty"`
	// Limit bounds a sort operation to its top rows. When set with a
	// single sort key, execution uses the heap-based top-k path.
	Limit int `json:"limit,omitempty"`

	Aggregate *AggregateParams `json:"aggregate,omitempty"`
	Join      *JoinParams      `json:"join,omitempty"`
	Compute   []ComputeParams  `json:"compute,omitempty"`
	Select    []string         `json:"select,omitempty"`
}

// IsBarrier reports whether the operation is a reordering barrier:
// aggregates and joins consume or produce rows non-positionally, so no
// operation may move across them.
func (o Operation) IsBarrier() bool {
	return o.Type == OpAggregate || o.Type == OpJoin
}

// Partitionable reports whether the operation can run independently on
// contiguous row ranges with results concatenated in order. Sorts,
// aggregates, and joins need global knowledge and are never partitionable.
func (o Operation) Partitionable() bool {
	return o.Type == OpFilter || o.Type == OpCompute || o.Type == OpSelect
}
