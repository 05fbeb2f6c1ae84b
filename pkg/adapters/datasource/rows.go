package datasource

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fathom-data/fathom-engine/pkg/table"
)

// TableFromValues builds a table from row-major driver values. Column
// types are inferred from the values actually seen: integer widths widen
// to int64, floats to float64, byte slices decode as strings, and a
// column mixing incompatible kinds falls back to string.
func TableFromValues(names []string, rows [][]any) (*table.Table, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("result set has no columns")
	}
	cols := make([]*table.Column, len(names))
	for j, name := range names {
		typ := inferValueType(rows, j)
		b := table.NewBuilder(name, typ)
		b.Reserve(len(rows))
		for _, row := range rows {
			appendDriverValue(b, typ, row[j])
		}
		cols[j] = b.Finish()
	}
	return table.New(cols...)
}

// ScanRows drains a database/sql result set into a table, honoring the
// row cap. Shared by the adapters built on database/sql; the pgx adapter
// has its own scan loop.
func ScanRows(rows *sql.Rows, maxRows int) (*table.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var data [][]any
	for rows.Next() {
		if maxRows > 0 && len(data) >= maxRows {
			break
		}
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return TableFromValues(names, data)
}

type valueKind int

const (
	vkNone valueKind = iota
	vkInt
	vkFloat
	vkBool
	vkString
	vkTime
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return vkNone
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return vkInt
	case float32, float64:
		return vkFloat
	case bool:
		return vkBool
	case time.Time:
		return vkTime
	default:
		return vkString
	}
}

func inferValueType(rows [][]any, j int) table.Type {
	kind := vkNone
	for _, row := range rows {
		k := kindOf(row[j])
		switch {
		case k == vkNone || k == kind:
		case kind == vkNone:
			kind = k
		case (kind == vkInt && k == vkFloat) || (kind == vkFloat && k == vkInt):
			kind = vkFloat
		default:
			return table.String
		}
	}
	switch kind {
	case vkInt:
		return table.Int64
	case vkFloat:
		return table.Float64
	case vkBool:
		return table.Bool
	case vkTime:
		return table.Timestamp
	default:
		return table.String
	}
}

func appendDriverValue(b *table.Builder, typ table.Type, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch typ {
	case table.Int64:
		b.AppendInt64(toInt64(v))
	case table.Float64:
		b.AppendFloat64(toFloat64(v))
	case table.Bool:
		b.AppendBool(v.(bool))
	case table.Timestamp:
		b.AppendTimestamp(v.(time.Time))
	default:
		b.AppendString(toString(v))
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return float64(toInt64(v))
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}
