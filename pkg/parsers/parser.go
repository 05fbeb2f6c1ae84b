// Package parsers turns raw ingested bytes into tables. Three formats
// are supported: CSV, JSON record arrays, and Arrow IPC files. Field
// content is never evaluated: formula-like or SQL-like strings are
// stored verbatim.
package parsers

import (
	"fmt"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// SourceType identifies an input format.
type SourceType string

const (
	SourceCSV   SourceType = "csv"
	SourceJSON  SourceType = "json"
	SourceArrow SourceType = "arrow"
)

// Options tunes parsing. Zero values take the defaults.
type Options struct {
	// Delimiter is the CSV field separator. Defaults to ','.
	Delimiter rune `json:"delimiter,omitempty"`
	// HasHeader reports whether the first CSV row is a header.
	// Defaults to true; columns are named col0..colN-1 when false.
	HasHeader *bool `json:"hasHeader,omitempty"`
	// NullTokens are the strings read as null. Defaults to
	// "", "null", "NULL", "N/A", "NA".
	NullTokens []string `json:"nullTokens,omitempty"`
	// SampleSize is the number of rows examined for type inference.
	// Defaults to 1000.
	SampleSize int `json:"sampleSize,omitempty"`
}

// DataSource describes one input to parse.
type DataSource struct {
	Type    SourceType `json:"type"`
	Data    []byte     `json:"data"`
	Options Options    `json:"options"`
}

// RowError records a non-fatal per-row anomaly. The row is excluded from
// the table instead of failing the parse.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParseResult is a parsed table plus any per-row anomalies.
type ParseResult struct {
	Table       *table.Table `json:"-"`
	RowCount    int          `json:"rowCount"`
	ColumnCount int          `json:"columnCount"`
	ParseErrors []RowError   `json:"parseErrors,omitempty"`
}

// Parse dispatches the data source to the parser for its type.
func Parse(src DataSource) (*ParseResult, error) {
	switch src.Type {
	case SourceCSV:
		return ParseCSV(src.Data, src.Options)
	case SourceJSON:
		return ParseJSON(src.Data, src.Options)
	case SourceArrow:
		return ParseArrow(src.Data)
	default:
		return nil, fmt.Errorf("source type %q: %w", src.Type, apperrors.ErrInvalidInput)
	}
}

func defaultNullTokens() []string {
	return []string{"", "null", "NULL", "N/A", "NA"}
}

const defaultSampleSize = 1000

func (o Options) nullTokenSet() map[string]bool {
	tokens := o.NullTokens
	if tokens == nil {
		tokens = defaultNullTokens()
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func (o Options) sampleSize() int {
	if o.SampleSize > 0 {
		return o.SampleSize
	}
	return defaultSampleSize
}
