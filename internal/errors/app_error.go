package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes used across the ingestion pipeline.
const (
	CodeValidation  = "validation_error"
	CodePersistence = "persistence_error"
)

// AppError represents a structured application error.
type AppError struct {
	// HTTPStatusCode is the HTTP status code to return.
	HTTPStatusCode int `json:"-"`
	// Code is an internal error code string.
	Code string `json:"code"`
	// Message is the user-facing error message.
	Message string `json:"message"`
	// Details provides additional error context (optional).
	Details map[string]interface{} `json:"details,omitempty"`
	// Err is the underlying error (not marshaled to JSON).
	Err error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ToJSON returns the JSON byte representation of the error.
func (e *AppError) ToJSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// New creates a new AppError.
func New(statusCode int, code, message string, err error) *AppError {
	return &AppError{
		HTTPStatusCode: statusCode,
		Code:           code,
		Message:        message,
		Err:            err,
	}
}

// Validation builds the error returned for a malformed submission. The
// missing field names are carried in Details so clients can report them.
func Validation(missing []string) *AppError {
	return &AppError{
		HTTPStatusCode: 400,
		Code:           CodeValidation,
		Message:        "missing required fields",
		Details:        map[string]interface{}{"missing_fields": missing},
	}
}

// Persistence wraps a store write failure. The submission must not be
// reported as accepted when this is returned.
func Persistence(err error) *AppError {
	return &AppError{
		HTTPStatusCode: 500,
		Code:           CodePersistence,
		Message:        "failed to persist event",
		Err:            err,
	}
}

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeValidation
}

// IsPersistence reports whether err is (or wraps) a persistence error.
func IsPersistence(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodePersistence
}
