package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// ParseCSV parses delimiter-separated text. The first row is treated as
// a header unless opts.HasHeader is explicitly false, in which case
// columns are named col0..colN-1 after the first row's width. Rows whose
// field count differs from the header's are recorded in ParseErrors and
// excluded; the parse only fails when no data rows remain.
func ParseCSV(data []byte, opts Options) (*ParseResult, error) {
	r := csv.NewReader(bytes.NewReader(data))
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}
	// Width is validated manually so a bad row skips instead of aborting.
	r.FieldsPerRecord = -1

	hasHeader := opts.HasHeader == nil || *opts.HasHeader

	var names []string
	var records [][]string
	var parseErrors []RowError
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line++
			parseErrors = append(parseErrors, RowError{Row: line, Message: err.Error()})
			continue
		}
		line++
		if names == nil {
			if hasHeader {
				names = append(names, rec...)
				continue
			}
			names = make([]string, len(rec))
			for i := range rec {
				names[i] = "col" + strconv.Itoa(i)
			}
		}
		if len(rec) != len(names) {
			parseErrors = append(parseErrors, RowError{
				Row:     line,
				Message: fmt.Sprintf("expected %d fields, got %d", len(names), len(rec)),
			})
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: no data rows: %w", apperrors.ErrEmptyInput)
	}

	nulls := opts.nullTokenSet()
	types := inferCSVTypes(records, names, nulls, opts.sampleSize())

	cols := make([]*table.Column, len(names))
	for j, name := range names {
		col, err := buildCSVColumn(name, j, types[j], records, nulls)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}

	tbl, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	return &ParseResult{
		Table:       tbl,
		RowCount:    tbl.NumRows(),
		ColumnCount: tbl.NumColumns(),
		ParseErrors: parseErrors,
	}, nil
}

func inferCSVTypes(records [][]string, names []string, nulls map[string]bool, sample int) []columnType {
	if sample > len(records) {
		sample = len(records)
	}
	kinds := make([]columnKinds, len(names))
	for i := 0; i < sample; i++ {
		for j, field := range records[i] {
			if nulls[field] {
				continue
			}
			kinds[j].observe(field)
		}
	}
	types := make([]columnType, len(names))
	for j := range kinds {
		types[j] = kinds[j].resolve()
	}
	return types
}

func buildCSVColumn(name string, j int, typ columnType, records [][]string, nulls map[string]bool) (*table.Column, error) {
	b := table.NewBuilder(name, tableType(typ))
	b.Reserve(len(records))
	for _, rec := range records {
		field := rec[j]
		if nulls[field] {
			b.AppendNull()
			continue
		}
		appendToken(b, typ, field)
	}
	return b.Finish(), nil
}

func tableType(typ columnType) table.Type {
	switch typ {
	case colFloat:
		return table.Float64
	case colInt:
		return table.Int64
	case colBool:
		return table.Bool
	case colTimestamp:
		return table.Timestamp
	default:
		return table.String
	}
}

// appendToken coerces one text token into the builder's type. A token
// outside the sampled shape (for example a stray word past the sample
// window in a numeric column) appends null rather than failing the parse.
func appendToken(b *table.Builder, typ columnType, field string) {
	switch typ {
	case colFloat:
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			b.AppendNull()
			return
		}
		b.AppendFloat64(v)
	case colInt:
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			b.AppendNull()
			return
		}
		b.AppendInt64(v)
	case colBool:
		if !isBoolToken(field) {
			b.AppendNull()
			return
		}
		b.AppendBool(strings.EqualFold(field, "true"))
	default:
		b.AppendString(field)
	}
}
