package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Business errors
	ErrNoSeatsAvailable  = errors.New("no seats available")
	ErrDuplicateBooking  = errors.New("passenger already has an active booking on this ride")
	ErrIllegalTransition = errors.New("illegal booking transition")
	ErrRideNotBookable   = errors.New("ride is not bookable")

	// ErrLedgerInvariant signals corrupted seat accounting. It is never a
	// user error: the enclosing transaction must roll back and the
	// operation must not be retried.
	ErrLedgerInvariant = errors.New("seat ledger invariant violated")
)

// APIError represents a structured API error
type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Common API errors
func NotFound(resource string) *APIError {
	return NewAPIError("not_found", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func BadRequest(message string) *APIError {
	return NewAPIError("bad_request", message, http.StatusBadRequest)
}

func Conflict(message string) *APIError {
	return NewAPIError("conflict", message, http.StatusConflict)
}

func InternalError(message string) *APIError {
	return NewAPIError("internal_error", message, http.StatusInternalServerError)
}

func Unauthorized(message string) *APIError {
	return NewAPIError("unauthorized", message, http.StatusUnauthorized)
}

func NoSeatsAvailable() *APIError {
	return NewAPIError("no_seats_available", "no seats available on this ride", http.StatusConflict)
}

func DuplicateBooking() *APIError {
	return NewAPIError("duplicate_booking", "you already have an active booking on this ride", http.StatusConflict)
}

func IllegalTransition(from, action string) *APIError {
	return NewAPIError("illegal_transition", fmt.Sprintf("cannot %s a booking in status %s", action, from), http.StatusConflict)
}

func RideNotBookable(reason string) *APIError {
	return NewAPIError("ride_not_bookable", reason, http.StatusConflict)
}
