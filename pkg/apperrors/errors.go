package apperrors

import "errors"

var (
	// ErrNotFound indicates a requested table id is not registered in the store.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a table id is already registered.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates nil or structurally unusable input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyInput indicates a parser received input with zero data rows.
	ErrEmptyInput = errors.New("empty input")
	// ErrNotArray indicates the JSON parser received a top-level value that is
	// not an array of records.
	ErrNotArray = errors.New("input is not an array")
	// ErrParse indicates input that is malformed beyond per-row recovery.
	ErrParse = errors.New("parse error")

	ErrColumnNotFound   = errors.New("column not found")
	ErrUnknownOperator  = errors.New("unknown filter operator")
	ErrUnknownFunction  = errors.New("unknown aggregation function")
	ErrUnknownJoinType  = errors.New("unknown join type")
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrExpression       = errors.New("invalid expression")
)
