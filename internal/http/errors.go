// internal/http/errors.go
package httpserver

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"worktrack/internal/models"
)

// ErrorStatus maps a domain error to an HTTP status and a safe message.
// Unknown errors return 500 with the provided fallback message.
func ErrorStatus(err error, fallback string) (int, string) {
	var (
		invalid    *models.InvalidTransitionError
		conflict   *models.ConflictingActivityError
		validation *models.ValidationError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusConflict, invalid.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Error()
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.Is(err, models.ErrWorkItemNotFound),
		errors.Is(err, models.ErrAssetNotFound),
		errors.Is(err, models.ErrPersonNotFound):
		return http.StatusNotFound, err.Error()
	}
	return pgErrorStatus(err, fallback)
}

// pgErrorStatus maps common Postgres errors to user-friendly status + message.
func pgErrorStatus(err error, fallback string) (int, string) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		// Unknown error type; hide details
		return http.StatusInternalServerError, fallback
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "Duplicate value violates a unique constraint."
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "Referenced record not found."
	case "23514": // check_violation
		if pgErr.Detail != "" {
			return http.StatusBadRequest, pgErr.Detail
		}
		return http.StatusBadRequest, "Value violates a check constraint."
	case "23502": // not_null_violation
		return http.StatusBadRequest, "Missing required field."
	case "22P02": // invalid_text_representation (e.g., UUID/date)
		return http.StatusBadRequest, "Invalid value format."
	case "22007": // invalid_datetime_format
		return http.StatusBadRequest, "Invalid date/time format."
	case "40001": // serialization_failure
		return http.StatusConflict, "Concurrent update, please retry."
	default:
		return http.StatusBadRequest, fallback
	}
}
