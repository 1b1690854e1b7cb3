// Package errors defines the application error type rendered by the HTTP
// error middleware and the error kinds of the feedback pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ValidationError           ErrorType = "VALIDATION_ERROR"
	NotFoundError             ErrorType = "NOT_FOUND"
	ServerError               ErrorType = "SERVER_ERROR"
	SubmissionInProgressError ErrorType = "SUBMISSION_IN_PROGRESS"
	PersistenceError          ErrorType = "PERSISTENCE_FAILED"
	ProjectionError           ErrorType = "PROJECTION_FETCH_FAILED"
)

// Validation codes, one per rule of the feedback rule set.
const (
	CodeMissingName     = "missing_name"
	CodeInvalidEmail    = "invalid_email"
	CodeMissingRating   = "missing_rating"
	CodeInvalidRating   = "invalid_rating"
	CodeMissingCategory = "missing_category"
	CodeInvalidCategory = "invalid_category"
	CodeInvalidPayload  = "invalid_request_payload"
)

// AppError represents a structured application error.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// Is matches two AppErrors of the same type and code, so package-level
// sentinels can be compared against errors built at runtime.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// GetHTTPStatus returns the status to render, deriving it from the type when unset.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// ValidationFailed builds a 400 error carrying one of the validation codes.
func ValidationFailed(code string, message string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// SubmissionInProgress reports that the form already has a submission in flight.
func SubmissionInProgress() *AppError {
	return &AppError{
		Type:       SubmissionInProgressError,
		Message:    "A submission from this form is already in progress",
		HTTPStatus: http.StatusConflict,
	}
}

// PersistenceFailed wraps a provider write failure. The submitter may retry
// the same draft unchanged.
func PersistenceFailed(err error) *AppError {
	return &AppError{
		Type:       PersistenceError,
		Message:    "Failed to submit feedback",
		Detail:     "Please try again",
		HTTPStatus: http.StatusServiceUnavailable,
		Raw:        err,
	}
}

// ProjectionFetchFailed wraps a provider read failure.
func ProjectionFetchFailed(err error) *AppError {
	return &AppError{
		Type:       ProjectionError,
		Message:    "Unable to load feedback",
		HTTPStatus: http.StatusServiceUnavailable,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// IsType reports whether err is, or wraps, an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case SubmissionInProgressError:
		return http.StatusConflict
	case PersistenceError, ProjectionError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
