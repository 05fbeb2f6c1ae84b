// Package table implements the immutable columnar table that every other
// part of the engine operates on: equal-length typed columns addressed by
// unique names. Transforms never mutate a Table; they build a new one.
package table

import (
	"fmt"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
)

// Table is an immutable snapshot of equal-length named columns.
type Table struct {
	cols   []*Column
	byName map[string]int
	rows   int
}

// New builds a Table from columns, validating that lengths match and names
// are unique.
func New(cols ...*Column) (*Table, error) {
	t := &Table{
		cols:   cols,
		byName: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := t.byName[c.Name()]; dup {
			return nil, fmt.Errorf("table: duplicate column %q: %w", c.Name(), apperrors.ErrInvalidInput)
		}
		t.byName[c.Name()] = i
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("table: column %q has %d rows, want %d: %w",
				c.Name(), c.Len(), t.rows, apperrors.ErrInvalidInput)
		}
	}
	return t, nil
}

// Empty returns a zero-row table with the given schema.
func Empty(schema Schema) *Table {
	cols := make([]*Column, len(schema))
	for i, f := range schema {
		b := NewBuilder(f.Name, f.Type)
		if f.Nullable {
			b.SetNullable()
		}
		cols[i] = b.Finish()
	}
	t, _ := New(cols...)
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.cols) }

// Column returns the named column, or false if absent.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// MustColumn returns the named column or an ErrColumnNotFound error with
// the name attached, for operator parameter validation.
func (t *Table) MustColumn(name string) (*Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, apperrors.ErrColumnNotFound)
	}
	return c, nil
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Columns returns the columns in schema order. The slice must not be
// modified.
func (t *Table) Columns() []*Column { return t.cols }

// Schema returns the table schema in column order.
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.cols))
	for i, c := range t.cols {
		s[i] = c.Field()
	}
	return s
}

// Select returns a new Table restricted to the named columns, in the
// given order.
func (t *Table) Select(names []string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := t.MustColumn(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Gather returns a new Table holding the rows at the given indices, in
// order. Negative indices yield all-null rows.
func (t *Table) Gather(indices []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Gather(indices)
	}
	out, _ := New(cols...)
	return out
}

// Slice returns a new Table of rows [lo, hi). Column data is shared with
// the source, which is safe because columns are immutable.
func (t *Table) Slice(lo, hi int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Slice(lo, hi)
	}
	out, _ := New(cols...)
	return out
}

// WithColumn returns a new Table with the column appended. If a column of
// the same name exists it is replaced in place (copy-on-write at table
// granularity).
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if c.Len() != t.rows && len(t.cols) > 0 {
		return nil, fmt.Errorf("table: column %q has %d rows, want %d: %w",
			c.Name(), c.Len(), t.rows, apperrors.ErrInvalidInput)
	}
	cols := make([]*Column, len(t.cols), len(t.cols)+1)
	copy(cols, t.cols)
	if i, ok := t.byName[c.Name()]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Concat appends the rows of the given tables after t's rows, preserving
// order: all of t's rows precede the first argument's rows, and so on.
// Schemas must match by name, type, and column order.
func (t *Table) Concat(others ...*Table) (*Table, error) {
	for _, o := range others {
		if err := schemaMatches(t, o); err != nil {
			return nil, err
		}
	}
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		b := NewBuilder(c.Name(), c.Type())
		total := t.rows
		for _, o := range others {
			total += o.rows
		}
		b.Reserve(total)
		appendAll(b, c)
		for _, o := range others {
			appendAll(b, o.cols[i])
		}
		cols[i] = b.Finish()
	}
	return New(cols...)
}

func schemaMatches(a, b *Table) error {
	if len(a.cols) != len(b.cols) {
		return fmt.Errorf("table: concat schema mismatch: %d vs %d columns: %w",
			len(a.cols), len(b.cols), apperrors.ErrInvalidInput)
	}
	for i := range a.cols {
		ac, bc := a.cols[i], b.cols[i]
		if ac.Name() != bc.Name() || ac.Type() != bc.Type() {
			return fmt.Errorf("table: concat schema mismatch at column %d (%s %s vs %s %s): %w",
				i, ac.Name(), ac.Type(), bc.Name(), bc.Type(), apperrors.ErrInvalidInput)
		}
	}
	return nil
}

func appendAll(b *Builder, c *Column) {
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			b.AppendNull()
			continue
		}
		switch c.Type() {
		case Int64, Timestamp:
			b.appendInt(c.Int64(i))
		case Float64:
			b.AppendFloat64(c.Float64(i))
		case String:
			b.AppendString(c.Str(i))
		case Bool:
			b.AppendBool(c.Bool(i))
		}
	}
}

// Row returns row i as a slice of values in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.Value(i)
	}
	return row
}

// Rows exports every row, in order. Intended for result delivery and
// round-trip tests, not for hot paths.
func (t *Table) Rows() [][]any {
	rows := make([][]any, t.rows)
	for i := 0; i < t.rows; i++ {
		rows[i] = t.Row(i)
	}
	return rows
}

// RowMap returns row i as a name-to-value map.
func (t *Table) RowMap(i int) map[string]any {
	row := make(map[string]any, len(t.cols))
	for _, c := range t.cols {
		row[c.Name()] = c.Value(i)
	}
	return row
}
