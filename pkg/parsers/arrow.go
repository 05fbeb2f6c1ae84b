package parsers

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// arrowMagic prefixes every Arrow IPC file. Checked before full decode
// so malformed input fails fast with a typed error.
var arrowMagic = []byte("ARROW1")

// ParseArrow decodes an Arrow IPC file into a single table, concatenating
// all record batches.
func ParseArrow(data []byte) (*ParseResult, error) {
	var batches []*table.Table
	err := ParseArrowBatches(data, func(t *table.Table) error {
		batches = append(batches, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("arrow: no record batches: %w", apperrors.ErrEmptyInput)
	}
	tbl, err := batches[0].Concat(batches[1:]...)
	if err != nil {
		return nil, err
	}
	return &ParseResult{Table: tbl, RowCount: tbl.NumRows(), ColumnCount: tbl.NumColumns()}, nil
}

// ParseArrowBatches decodes an Arrow IPC file invoking fn once per record
// batch, for memory-bounded ingestion of larger inputs. Decoding stops at
// the first error fn returns.
func ParseArrowBatches(data []byte, fn func(*table.Table) error) error {
	if len(data) == 0 {
		return fmt.Errorf("arrow: empty input: %w", apperrors.ErrEmptyInput)
	}
	if !bytes.HasPrefix(data, arrowMagic) {
		return fmt.Errorf("arrow: missing magic header: %w", apperrors.ErrParse)
	}

	r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return fmt.Errorf("arrow: %w: %v", apperrors.ErrParse, err)
	}
	defer r.Close()

	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("arrow: %w: %v", apperrors.ErrParse, err)
		}
		batch, err := recordToTable(rec)
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
}

// EncodeArrow serializes a table as an Arrow IPC file with a single
// record batch.
func EncodeArrow(t *table.Table) ([]byte, error) {
	fields := make([]arrow.Field, t.NumColumns())
	for i, col := range t.Columns() {
		dt, err := arrowType(col.Type())
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: col.Name(), Type: dt, Nullable: col.Nullable()}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	for i, col := range t.Columns() {
		appendArrowColumn(b.Field(i), col)
	}
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func arrowType(t table.Type) (arrow.DataType, error) {
	switch t {
	case table.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case table.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case table.String:
		return arrow.BinaryTypes.String, nil
	case table.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case table.Timestamp:
		return arrow.FixedWidthTypes.Timestamp_ms, nil
	default:
		return nil, fmt.Errorf("arrow: column type %s: %w", t, apperrors.ErrInvalidInput)
	}
}

func appendArrowColumn(b array.Builder, col *table.Column) {
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			b.AppendNull()
			continue
		}
		switch fb := b.(type) {
		case *array.Int64Builder:
			fb.Append(col.Int64(i))
		case *array.Float64Builder:
			fb.Append(col.Float64(i))
		case *array.StringBuilder:
			fb.Append(col.Str(i))
		case *array.BooleanBuilder:
			fb.Append(col.Bool(i))
		case *array.TimestampBuilder:
			fb.Append(arrow.Timestamp(col.Int64(i)))
		}
	}
}

// recordToTable converts one Arrow record batch. Narrow integer and
// float widths are widened to the engine's 64-bit columns; timestamps of
// any unit normalize to milliseconds.
func recordToTable(rec arrow.Record) (*table.Table, error) {
	cols := make([]*table.Column, rec.NumCols())
	for j := 0; j < int(rec.NumCols()); j++ {
		field := rec.Schema().Field(j)
		col, err := arrowColumn(field, rec.Column(j))
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	return table.New(cols...)
}

func arrowColumn(field arrow.Field, data arrow.Array) (*table.Column, error) {
	n := data.Len()
	appendAll := func(b *table.Builder, value func(i int) any) {
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if data.IsNull(i) {
				b.AppendNull()
				continue
			}
			switch v := value(i).(type) {
			case int64:
				b.AppendInt64(v)
			case float64:
				b.AppendFloat64(v)
			case string:
				b.AppendString(v)
			case bool:
				b.AppendBool(v)
			case time.Time:
				b.AppendTimestamp(v)
			}
		}
	}

	switch arr := data.(type) {
	case *array.Int8:
		b := table.NewBuilder(field.Name, table.Int64)
		appendAll(b, func(i int) any { return int64(arr.Value(i)) })
		return b.Finish(), nil
	case *array.Int16:
		b := table.NewBuilder(field.Name, table.Int64)
		appendAll(b, func(i int) any { return int64(arr.Value(i)) })
		return b.Finish(), nil
	case *array.Int32:
		b := table.NewBuilder(field.Name, table.Int64)
		appendAll(b, func(i int) any { return int64(arr.Value(i)) })
		return b.Finish(), nil
	case *array.Int64:
		b := table.NewBuilder(field.Name, table.Int64)
		appendAll(b, func(i int) any { return arr.Value(i) })
		return b.Finish(), nil
	case *array.Float32:
		b := table.NewBuilder(field.Name, table.Float64)
		appendAll(b, func(i int) any { return float64(arr.Value(i)) })
		return b.Finish(), nil
	case *array.Float64:
		b := table.NewBuilder(field.Name, table.Float64)
		appendAll(b, func(i int) any { return arr.Value(i) })
		return b.Finish(), nil
	case *array.String:
		b := table.NewBuilder(field.Name, table.String)
		appendAll(b, func(i int) any { return arr.Value(i) })
		return b.Finish(), nil
	case *array.Boolean:
		b := table.NewBuilder(field.Name, table.Bool)
		appendAll(b, func(i int) any { return arr.Value(i) })
		return b.Finish(), nil
	case *array.Timestamp:
		unit := arrow.Millisecond
		if ts, ok := field.Type.(*arrow.TimestampType); ok {
			unit = ts.Unit
		}
		b := table.NewBuilder(field.Name, table.Timestamp)
		appendAll(b, func(i int) any { return timestampValue(int64(arr.Value(i)), unit) })
		return b.Finish(), nil
	default:
		return nil, fmt.Errorf("arrow: unsupported column type %s for %q: %w",
			field.Type, field.Name, apperrors.ErrInvalidInput)
	}
}

func timestampValue(v int64, unit arrow.TimeUnit) time.Time {
	switch unit {
	case arrow.Second:
		return time.Unix(v, 0).UTC()
	case arrow.Millisecond:
		return time.UnixMilli(v).UTC()
	case arrow.Microsecond:
		return time.UnixMicro(v).UTC()
	default:
		return time.Unix(0, v).UTC()
	}
}
