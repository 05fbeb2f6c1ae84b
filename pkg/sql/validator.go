// Package sql validates queries sent to external data sources. Loads are
// read-only: a query must be a single SELECT (or WITH) statement.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed")

	// ErrNotReadOnly indicates the query is not a SELECT statement.
	ErrNotReadOnly = errors.New("only SELECT statements are allowed")

	// ErrEmptyQuery indicates a blank query string.
	ErrEmptyQuery = errors.New("query is empty")
)

// ValidateReadOnly normalizes a load query and rejects anything that is not
// a single SELECT statement. Returns the query with trailing semicolon and
// surrounding whitespace stripped.
//
// The validation order is:
// 1. Strip trailing semicolon and whitespace (normalize)
// 2. Check for multiple statements (any remaining semicolons outside string literals)
// 3. Check the leading keyword is SELECT or WITH
func ValidateReadOnly(query string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(query))
	if normalized == "" {
		return "", ErrEmptyQuery
	}

	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}

	keyword := leadingKeyword(normalized)
	if keyword != "SELECT" && keyword != "WITH" {
		return "", ErrNotReadOnly
	}

	return normalized, nil
}

// leadingKeyword returns the first word of the query, uppercased, with any
// leading SQL comments skipped.
func leadingKeyword(query string) string {
	for {
		query = strings.TrimSpace(query)
		switch {
		case strings.HasPrefix(query, "--"):
			idx := strings.IndexByte(query, '\n')
			if idx < 0 {
				return ""
			}
			query = query[idx+1:]
		case strings.HasPrefix(query, "/*"):
			idx := strings.Index(query, "*/")
			if idx < 0 {
				return ""
			}
			query = query[idx+2:]
		default:
			fields := strings.Fields(query)
			if len(fields) == 0 {
				return ""
			}
			return strings.ToUpper(strings.TrimLeft(fields[0], "("))
		}
	}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(query string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range query {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('').
			// A doubled quote exits and immediately re-enters on the next
			// quote, which correctly keeps us inside the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace
// around it.
func stripTrailingSemicolon(query string) string {
	query = strings.TrimRight(query, " \t\n\r")
	if strings.HasSuffix(query, ";") {
		query = strings.TrimRight(strings.TrimSuffix(query, ";"), " \t\n\r")
	}
	return query
}
