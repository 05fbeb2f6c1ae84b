package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps a service error to its HTTP status and writes it.
func WriteError(w http.ResponseWriter, err error) error {
	return ErrorResponse(w, statusForError(err), codeForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrEmptyInput),
		errors.Is(err, apperrors.ErrNotArray),
		errors.Is(err, apperrors.ErrParse),
		errors.Is(err, apperrors.ErrColumnNotFound),
		errors.Is(err, apperrors.ErrUnknownOperator),
		errors.Is(err, apperrors.ErrUnknownFunction),
		errors.Is(err, apperrors.ErrUnknownJoinType),
		errors.Is(err, apperrors.ErrUnknownOperation),
		errors.Is(err, apperrors.ErrMissingParameter),
		errors.Is(err, apperrors.ErrExpression):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func codeForError(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrColumnNotFound):
		return "column_not_found"
	case errors.Is(err, apperrors.ErrParse):
		return "parse_error"
	case errors.Is(err, apperrors.ErrMissingParameter):
		return "missing_parameter"
	case statusForError(err) == http.StatusBadRequest:
		return "invalid_request"
	default:
		return "internal_error"
	}
}
