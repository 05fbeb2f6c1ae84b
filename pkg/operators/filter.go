// Package operators implements the five relational operators of the
// engine: filter, sort, aggregate, join, and compute. Every operator is a
// pure function from an input Table and typed params to a new Table; the
// input is never mutated.
package operators

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// Filter returns a new table holding the rows that satisfy the predicate.
//
// Null handling: every ordering or equality comparison against a null row
// value yields false; only isNull and notNull match nulls. An `in` list
// matches a null row value only through an explicit null element.
func Filter(t *table.Table, p query.FilterParams) (*table.Table, error) {
	pred, err := compilePredicate(t, p)
	if err != nil {
		return nil, err
	}
	indices := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if pred(i) {
			indices = append(indices, i)
		}
	}
	return t.Gather(indices), nil
}

// FilterAll applies filters in sequence, composing them as a logical AND.
func FilterAll(t *table.Table, filters []query.FilterParams) (*table.Table, error) {
	// One pass: rows must satisfy every predicate.
	preds := make([]func(int) bool, len(filters))
	for i, p := range filters {
		pred, err := compilePredicate(t, p)
		if err != nil {
			return nil, err
		}
		preds[i] = pred
	}
	indices := make([]int, 0, t.NumRows())
rows:
	for i := 0; i < t.NumRows(); i++ {
		for _, pred := range preds {
			if !pred(i) {
				continue rows
			}
		}
		indices = append(indices, i)
	}
	return t.Gather(indices), nil
}

func compilePredicate(t *table.Table, p query.FilterParams) (func(int) bool, error) {
	col, err := t.MustColumn(p.Column)
	if err != nil {
		return nil, err
	}

	switch p.Operator {
	case query.FilterIsNull:
		return col.IsNull, nil
	case query.FilterNotNull:
		return func(i int) bool { return !col.IsNull(i) }, nil

	case query.FilterEq:
		return comparePredicate(col, p.Value, func(c int) bool { return c == 0 }), nil
	case query.FilterNe:
		return comparePredicate(col, p.Value, func(c int) bool { return c != 0 }), nil
	case query.FilterGt:
		return comparePredicate(col, p.Value, func(c int) bool { return c > 0 }), nil
	case query.FilterGte:
		return comparePredicate(col, p.Value, func(c int) bool { return c >= 0 }), nil
	case query.FilterLt:
		return comparePredicate(col, p.Value, func(c int) bool { return c < 0 }), nil
	case query.FilterLte:
		return comparePredicate(col, p.Value, func(c int) bool { return c <= 0 }), nil

	case query.FilterBetween:
		if p.Min == nil || p.Max == nil {
			return nil, fmt.Errorf("between filter on %q requires min and max: %w", p.Column, apperrors.ErrMissingParameter)
		}
		lower := comparePredicate(col, p.Min, func(c int) bool { return c >= 0 })
		upper := comparePredicate(col, p.Max, func(c int) bool { return c <= 0 })
		return func(i int) bool { return lower(i) && upper(i) }, nil

	case query.FilterIn:
		if p.Values == nil {
			return nil, fmt.Errorf("in filter on %q requires values: %w", p.Column, apperrors.ErrMissingParameter)
		}
		set := make(map[string]struct{}, len(p.Values))
		for _, v := range p.Values {
			set[table.KeyOf(v)] = struct{}{}
		}
		var buf []byte
		return func(i int) bool {
			buf = col.KeyAppend(buf[:0], i)
			_, ok := set[string(buf)]
			return ok
		}, nil

	case query.FilterLike:
		if p.Pattern == "" {
			return nil, fmt.Errorf("like filter on %q requires a pattern: %w", p.Column, apperrors.ErrMissingParameter)
		}
		re, err := likeToRegexp(p.Pattern)
		if err != nil {
			return nil, err
		}
		if col.Type() != table.String {
			return func(int) bool { return false }, nil
		}
		return func(i int) bool {
			return !col.IsNull(i) && re.MatchString(col.Str(i))
		}, nil
	}

	return nil, fmt.Errorf("operator %q: %w", p.Operator, apperrors.ErrUnknownOperator)
}

// comparePredicate builds a row predicate from a three-way comparison of
// the row value against v. Nulls and incomparable values yield false.
func comparePredicate(col *table.Column, v any, accept func(int) bool) func(int) bool {
	return func(i int) bool {
		cmp, ok := compareAt(col, i, v)
		return ok && accept(cmp)
	}
}

// compareAt three-way compares col[i] with v. ok is false when the row is
// null, v is nil, or the two values are not comparable.
func compareAt(col *table.Column, i int, v any) (int, bool) {
	if v == nil || col.IsNull(i) {
		return 0, false
	}
	switch col.Type() {
	case table.Int64, table.Float64, table.Timestamp:
		rv, rok := col.Number(i)
		vv, vok := numericValue(v)
		if !rok || !vok {
			return 0, false
		}
		switch {
		case rv < vv:
			return -1, true
		case rv > vv:
			return 1, true
		default:
			return 0, true
		}
	case table.String:
		s, ok := v.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(col.Str(i), s), true
	case table.Bool:
		b, ok := v.(bool)
		if !ok {
			return 0, false
		}
		rb := col.Bool(i)
		switch {
		case rb == b:
			return 0, true
		case rb: // true sorts after false
			return 1, true
		default:
			return -1, true
		}
	}
	return 0, false
}

func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}

// likeToRegexp translates a SQL LIKE pattern into an anchored
// case-insensitive regexp: % matches any run, _ matches one character,
// everything else is literal.
func likeToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("bad like pattern %q: %w", pattern, apperrors.ErrInvalidInput)
	}
	return re, nil
}
