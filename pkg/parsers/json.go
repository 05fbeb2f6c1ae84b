package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// ParseJSON parses a JSON array of records. The schema is the union of
// keys across a sample of rows; a row missing a key yields null for that
// column. Nested objects and arrays are stored as their JSON text.
// Strings that parse as dates become timestamp columns unless a
// non-date string appears in the same column.
func ParseJSON(data []byte, opts Options) (*ParseResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("json: %w: %v", apperrors.ErrParse, err)
	}
	rows, ok := top.([]any)
	if !ok {
		return nil, fmt.Errorf("json: top-level value is not an array: %w", apperrors.ErrNotArray)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("json: empty array: %w", apperrors.ErrEmptyInput)
	}

	records := make([]map[string]any, 0, len(rows))
	var parseErrors []RowError
	for i, row := range rows {
		rec, ok := row.(map[string]any)
		if !ok {
			parseErrors = append(parseErrors, RowError{
				Row:     i,
				Message: fmt.Sprintf("element is %T, not an object", row),
			})
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("json: no object rows: %w", apperrors.ErrEmptyInput)
	}

	names, types := inferJSONSchema(records, opts.sampleSize())

	cols := make([]*table.Column, len(names))
	for j, name := range names {
		cols[j] = buildJSONColumn(name, types[j], records)
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

// jsonKinds extends the text-token kinds with date-string detection:
// a string column where every sampled value parses as a date becomes a
// timestamp column.
type jsonKinds struct {
	columnKinds
	sawNested  bool
	sawDate    bool
	sawRawText bool
}

func (k *jsonKinds) observeValue(v any) {
	switch val := v.(type) {
	case nil:
		return
	case string:
		k.sawValue = true
		if _, ok := parseDate(val); ok {
			k.sawDate = true
		} else {
			k.sawRawText = true
		}
	case bool:
		k.sawValue = true
		k.sawBool = true
	case json.Number:
		k.sawValue = true
		if isIntegerNumber(val) {
			k.sawInt = true
		} else {
			k.sawFloat = true
		}
	default:
		// Objects and arrays serialize to string.
		k.sawValue = true
		k.sawNested = true
	}
}

func (k *jsonKinds) resolveJSON() columnType {
	if k.sawNested || k.sawRawText {
		return colString
	}
	if k.sawDate {
		if k.sawInt || k.sawFloat || k.sawBool {
			return colString
		}
		return colTimestamp
	}
	return k.resolve()
}

func isIntegerNumber(n json.Number) bool {
	s := n.String()
	return !strings.ContainsAny(s, ".eE")
}

// inferJSONSchema returns column names in first-seen order with their
// resolved types. Keys appearing only past the sample window are not
// part of the schema.
func inferJSONSchema(records []map[string]any, sample int) ([]string, []columnType) {
	if sample > len(records) {
		sample = len(records)
	}
	var names []string
	kinds := make(map[string]*jsonKinds)
	for i := 0; i < sample; i++ {
		for key, v := range records[i] {
			k, seen := kinds[key]
			if !seen {
				k = &jsonKinds{}
				kinds[key] = k
				names = append(names, key)
			}
			k.observeValue(v)
		}
	}
	// Map iteration scrambled the discovery order across rows; restore a
	// deterministic order by sorting keys first seen in the same row.
	sortNamesByFirstRow(names, records, sample)

	types := make([]columnType, len(names))
	for j, name := range names {
		types[j] = kinds[name].resolveJSON()
	}
	return names, types
}

// sortNamesByFirstRow orders names by the index of the first sampled row
// containing the key, breaking ties alphabetically. Go's map iteration
// order would otherwise make the column order random.
func sortNamesByFirstRow(names []string, records []map[string]any, sample int) {
	firstRow := make(map[string]int, len(names))
	for _, name := range names {
		firstRow[name] = sample
	}
	for i := 0; i < sample; i++ {
		for key := range records[i] {
			if i < firstRow[key] {
				firstRow[key] = i
			}
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := names[i], names[j]
		if firstRow[a] != firstRow[b] {
			return firstRow[a] < firstRow[b]
		}
		return a < b
	})
}

func buildJSONColumn(name string, typ columnType, records []map[string]any) *table.Column {
	b := table.NewBuilder(name, tableType(typ))
	b.Reserve(len(records))
	for _, rec := range records {
		v, present := rec[name]
		if !present || v == nil {
			b.AppendNull()
			continue
		}
		appendJSONValue(b, typ, v)
	}
	return b.Finish()
}

func appendJSONValue(b *table.Builder, typ columnType, v any) {
	switch typ {
	case colInt:
		n, ok := v.(json.Number)
		if !ok {
			b.AppendNull()
			return
		}
		i, err := n.Int64()
		if err != nil {
			b.AppendNull()
			return
		}
		b.AppendInt64(i)
	case colFloat:
		n, ok := v.(json.Number)
		if !ok {
			b.AppendNull()
			return
		}
		f, err := n.Float64()
		if err != nil {
			b.AppendNull()
			return
		}
		b.AppendFloat64(f)
	case colBool:
		val, ok := v.(bool)
		if !ok {
			b.AppendNull()
			return
		}
		b.AppendBool(val)
	case colTimestamp:
		s, ok := v.(string)
		if !ok {
			b.AppendNull()
			return
		}
		t, ok := parseDate(s)
		if !ok {
			b.AppendNull()
			return
		}
		b.AppendTimestamp(t)
	default:
		b.AppendString(stringifyJSON(v))
	}
}

// stringifyJSON renders a value for a string column. Scalars keep their
// literal text; nested structures keep their JSON encoding.
func stringifyJSON(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	}
}
