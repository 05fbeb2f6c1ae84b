package table

import (
	"fmt"
	"time"
)

// Column is one named, typed vector of values with an optional validity
// mask. Columns are immutable once built; every transform produces a new
// Column rather than mutating in place.
type Column struct {
	name     string
	typ      Type
	nullable bool
	length   int

	ints   []int64 // Int64 and Timestamp
	floats []float64
	strs   []string
	bools  []bool
	valid  []bool // nil means every value is valid
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the logical type.
func (c *Column) Type() Type { return c.typ }

// Nullable reports whether the column may contain nulls.
func (c *Column) Nullable() bool { return c.nullable }

// Len returns the number of rows.
func (c *Column) Len() int { return c.length }

// Field returns the schema field describing this column.
func (c *Column) Field() Field {
	return Field{Name: c.name, Type: c.typ, TypeName: c.typ.String(), Nullable: c.nullable}
}

// IsNull reports whether row i holds a null.
func (c *Column) IsNull(i int) bool {
	return c.valid != nil && !c.valid[i]
}

// NullCount returns the number of null rows.
func (c *Column) NullCount() int {
	if c.valid == nil {
		return 0
	}
	n := 0
	for _, v := range c.valid {
		if !v {
			n++
		}
	}
	return n
}

// Int64 returns the int64 value at row i. Valid for Int64 and Timestamp
// columns; the caller must check IsNull first.
func (c *Column) Int64(i int) int64 { return c.ints[i] }

// Float64 returns the float64 value at row i.
func (c *Column) Float64(i int) float64 { return c.floats[i] }

// Str returns the string value at row i.
func (c *Column) Str(i int) string { return c.strs[i] }

// Bool returns the bool value at row i.
func (c *Column) Bool(i int) bool { return c.bools[i] }

// Number returns the value at row i coerced to float64. The second result
// is false for nulls and non-numeric columns.
func (c *Column) Number(i int) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	switch c.typ {
	case Int64, Timestamp:
		return float64(c.ints[i]), true
	case Float64:
		return c.floats[i], true
	default:
		return 0, false
	}
}

// Value returns the value at row i as any: int64, float64, string, bool,
// or nil for nulls. Timestamps are returned as int64 milliseconds.
func (c *Column) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.typ {
	case Int64, Timestamp:
		return c.ints[i]
	case Float64:
		return c.floats[i]
	case String:
		return c.strs[i]
	case Bool:
		return c.bools[i]
	default:
		return nil
	}
}

// Gather returns a new Column holding the rows at the given indices, in
// order. A negative index produces a null row, which is how joins
// null-fill the non-preserved side.
func (c *Column) Gather(indices []int) *Column {
	b := NewBuilder(c.name, c.typ)
	b.Reserve(len(indices))
	if c.nullable {
		b.SetNullable()
	}
	for _, idx := range indices {
		if idx < 0 || c.IsNull(idx) {
			b.AppendNull()
			continue
		}
		switch c.typ {
		case Int64, Timestamp:
			b.appendInt(c.ints[idx])
		case Float64:
			b.AppendFloat64(c.floats[idx])
		case String:
			b.AppendString(c.strs[idx])
		case Bool:
			b.AppendBool(c.bools[idx])
		}
	}
	return b.Finish()
}

// Slice returns a new Column holding rows [lo, hi).
func (c *Column) Slice(lo, hi int) *Column {
	out := &Column{
		name:     c.name,
		typ:      c.typ,
		nullable: c.nullable,
		length:   hi - lo,
	}
	switch c.typ {
	case Int64, Timestamp:
		out.ints = c.ints[lo:hi:hi]
	case Float64:
		out.floats = c.floats[lo:hi:hi]
	case String:
		out.strs = c.strs[lo:hi:hi]
	case Bool:
		out.bools = c.bools[lo:hi:hi]
	}
	if c.valid != nil {
		out.valid = c.valid[lo:hi:hi]
	}
	return out
}

// Rename returns a view of the column under a different name. Data is
// shared; columns are immutable so sharing is safe.
func (c *Column) Rename(name string) *Column {
	out := *c
	out.name = name
	return &out
}

// Builder accumulates values for one column.
type Builder struct {
	name     string
	typ      Type
	hasNull  bool
	nullable bool

	ints   []int64
	floats []float64
	strs   []string
	bools  []bool
	valid  []bool
}

// NewBuilder returns a builder for a column of the given name and type.
func NewBuilder(name string, typ Type) *Builder {
	return &Builder{name: name, typ: typ}
}

// Reserve pre-allocates capacity for n values.
func (b *Builder) Reserve(n int) {
	switch b.typ {
	case Int64, Timestamp:
		if cap(b.ints) < n {
			b.ints = append(make([]int64, 0, n), b.ints...)
		}
	case Float64:
		if cap(b.floats) < n {
			b.floats = append(make([]float64, 0, n), b.floats...)
		}
	case String:
		if cap(b.strs) < n {
			b.strs = append(make([]string, 0, n), b.strs...)
		}
	case Bool:
		if cap(b.bools) < n {
			b.bools = append(make([]bool, 0, n), b.bools...)
		}
	}
}

// SetNullable marks the column nullable even if no null is appended.
func (b *Builder) SetNullable() { b.nullable = true }

// Len returns the number of values appended so far.
func (b *Builder) Len() int {
	switch b.typ {
	case Int64, Timestamp:
		return len(b.ints)
	case Float64:
		return len(b.floats)
	case String:
		return len(b.strs)
	default:
		return len(b.bools)
	}
}

func (b *Builder) appendValid() {
	if b.valid != nil {
		b.valid = append(b.valid, true)
	}
}

// materializeValidity backfills the validity mask once the first null shows up.
func (b *Builder) materializeValidity() {
	if b.valid == nil {
		b.valid = make([]bool, b.Len())
		for i := range b.valid {
			b.valid[i] = true
		}
	}
}

// AppendNull appends a null value.
func (b *Builder) AppendNull() {
	b.materializeValidity()
	b.hasNull = true
	b.valid = append(b.valid, false)
	switch b.typ {
	case Int64, Timestamp:
		b.ints = append(b.ints, 0)
	case Float64:
		b.floats = append(b.floats, 0)
	case String:
		b.strs = append(b.strs, "")
	case Bool:
		b.bools = append(b.bools, false)
	}
}

func (b *Builder) appendInt(v int64) {
	b.ints = append(b.ints, v)
	b.appendValid()
}

// AppendInt64 appends an int64 value. Panics if the column is not Int64 or
// Timestamp typed.
func (b *Builder) AppendInt64(v int64) {
	if b.typ != Int64 && b.typ != Timestamp {
		panic(fmt.Sprintf("table: AppendInt64 on %s column %q", b.typ, b.name))
	}
	b.appendInt(v)
}

// AppendTimestamp appends a timestamp as epoch milliseconds.
func (b *Builder) AppendTimestamp(t time.Time) {
	if b.typ != Timestamp {
		panic(fmt.Sprintf("table: AppendTimestamp on %s column %q", b.typ, b.name))
	}
	b.appendInt(t.UnixMilli())
}

// AppendFloat64 appends a float64 value.
func (b *Builder) AppendFloat64(v float64) {
	if b.typ != Float64 {
		panic(fmt.Sprintf("table: AppendFloat64 on %s column %q", b.typ, b.name))
	}
	b.floats = append(b.floats, v)
	b.appendValid()
}

// AppendString appends a string value.
func (b *Builder) AppendString(v string) {
	if b.typ != String {
		panic(fmt.Sprintf("table: AppendString on %s column %q", b.typ, b.name))
	}
	b.strs = append(b.strs, v)
	b.appendValid()
}

// AppendBool appends a bool value.
func (b *Builder) AppendBool(v bool) {
	if b.typ != Bool {
		panic(fmt.Sprintf("table: AppendBool on %s column %q", b.typ, b.name))
	}
	b.bools = append(b.bools, v)
	b.appendValid()
}

// Append appends a dynamically typed value, coercing Go numeric kinds to
// the column type. nil appends a null.
func (b *Builder) Append(v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch b.typ {
	case Int64, Timestamp:
		switch x := v.(type) {
		case int64:
			b.appendInt(x)
		case int:
			b.appendInt(int64(x))
		case int32:
			b.appendInt(int64(x))
		case float64:
			b.appendInt(int64(x))
		case time.Time:
			b.appendInt(x.UnixMilli())
		default:
			return fmt.Errorf("table: cannot append %T to %s column %q", v, b.typ, b.name)
		}
	case Float64:
		switch x := v.(type) {
		case float64:
			b.AppendFloat64(x)
		case float32:
			b.AppendFloat64(float64(x))
		case int64:
			b.AppendFloat64(float64(x))
		case int:
			b.AppendFloat64(float64(x))
		default:
			return fmt.Errorf("table: cannot append %T to float64 column %q", v, b.name)
		}
	case String:
		switch x := v.(type) {
		case string:
			b.AppendString(x)
		case []byte:
			b.AppendString(string(x))
		default:
			b.AppendString(fmt.Sprint(x))
		}
	case Bool:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("table: cannot append %T to bool column %q", v, b.name)
		}
		b.AppendBool(x)
	}
	return nil
}

// Finish returns the built Column. The builder must not be reused.
func (b *Builder) Finish() *Column {
	return &Column{
		name:     b.name,
		typ:      b.typ,
		nullable: b.nullable || b.hasNull,
		length:   b.Len(),
		ints:     b.ints,
		floats:   b.floats,
		strs:     b.strs,
		bools:    b.bools,
		valid:    b.valid,
	}
}
