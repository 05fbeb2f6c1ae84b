package operators

import (
	"fmt"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/expr"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// Compute derives one new column by evaluating the params' expression (or
// Go callback) once per row, and returns the input table with the column
// appended. An existing column of the same name is replaced. Expressions
// are compiled against the table schema before any row is touched, so a
// reference to an unknown column fails up front.
func Compute(t *table.Table, p query.ComputeParams) (*table.Table, error) {
	if p.Alias == "" {
		return nil, fmt.Errorf("compute requires an alias: %w", apperrors.ErrMissingParameter)
	}

	values := make([]any, t.NumRows())
	switch {
	case p.Fn != nil:
		for i := 0; i < t.NumRows(); i++ {
			v, err := p.Fn(t.RowMap(i), i)
			if err != nil {
				return nil, fmt.Errorf("compute %q at row %d: %w", p.Alias, i, err)
			}
			values[i] = v
		}
	case p.Expression != "":
		prog, err := expr.Compile(p.Expression, t.Schema())
		if err != nil {
			return nil, err
		}
		row := &rowView{t: t}
		for i := 0; i < t.NumRows(); i++ {
			row.i = i
			v, err := prog.Eval(row)
			if err != nil {
				return nil, fmt.Errorf("compute %q at row %d: %w", p.Alias, i, err)
			}
			values[i] = v
		}
	default:
		return nil, fmt.Errorf("compute %q requires an expression or function: %w", p.Alias, apperrors.ErrMissingParameter)
	}

	col, err := columnFromValues(p.Alias, values)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(col)
}

// ComputeAll applies computations in order. Each computed column is
// visible to the expressions that follow it in the same call.
func ComputeAll(t *table.Table, params []query.ComputeParams) (*table.Table, error) {
	var err error
	for _, p := range params {
		t, err = Compute(t, p)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// rowView adapts one table row to expr.RowReader without building a map.
type rowView struct {
	t *table.Table
	i int
}

func (r *rowView) ColumnValue(name string) (any, bool) {
	c, ok := r.t.Column(name)
	if !ok {
		return nil, false
	}
	return c.Value(r.i), true
}

// columnFromValues builds a column from dynamic values using the same
// widening precedence the parsers use: any string forces utf8, any float
// forces float64, otherwise int64, otherwise bool. All-null yields a
// nullable utf8 column.
func columnFromValues(name string, values []any) (*table.Column, error) {
	var sawString, sawFloat, sawInt, sawBool, sawOther bool
	for _, v := range values {
		switch v.(type) {
		case nil:
		case string:
			sawString = true
		case float64:
			sawFloat = true
		case int64, int:
			sawInt = true
		case bool:
			sawBool = true
		default:
			sawOther = true
		}
	}

	var typ table.Type
	switch {
	case sawOther, sawString, sawBool && (sawInt || sawFloat):
		typ = table.String
	case sawFloat:
		typ = table.Float64
	case sawInt:
		typ = table.Int64
	case sawBool:
		typ = table.Bool
	default:
		typ = table.String
	}

	b := table.NewBuilder(name, typ)
	b.Reserve(len(values))
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		if typ == table.String {
			b.AppendString(expr.Stringify(v))
			continue
		}
		if err := b.Append(v); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}
