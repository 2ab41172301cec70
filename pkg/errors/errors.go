package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrSnapshotNotFound   = errors.New("simulation snapshot not found")
	ErrDraftNotFound      = errors.New("intake draft not found")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrNotOnFinalStep     = errors.New("submit is only allowed from the final step")
	ErrCircuitOpen        = errors.New("service temporarily unavailable, please retry later")
	ErrRequestTimeout     = errors.New("request timed out")
	ErrRequestNotFound    = errors.New("consulting request not found")
	ErrMissingContact     = errors.New("Nome, cognome e email sono obbligatori")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrInvalidFileType    = errors.New("file type not allowed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeSnapshotNotFound   = "SNAPSHOT_NOT_FOUND"
	ErrCodeDraftNotFound      = "DRAFT_NOT_FOUND"
	ErrCodeSubmissionInFlight = "SUBMISSION_IN_FLIGHT"
	ErrCodeNotOnFinalStep     = "NOT_ON_FINAL_STEP"
	ErrCodeCircuitOpen        = "CIRCUIT_OPEN"
	ErrCodeRequestTimeout     = "REQUEST_TIMEOUT"
	ErrCodeRequestNotFound    = "REQUEST_NOT_FOUND"
	ErrCodeMissingContact     = "MISSING_CONTACT_FIELDS"
	ErrCodeFileTooLarge       = "FILE_TOO_LARGE"
	ErrCodeInvalidFileType    = "INVALID_FILE_TYPE"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeBackendError       = "BACKEND_ERROR"
	ErrCodeStorageError       = "STORAGE_ERROR"
)

// Wrap common errors with business context

func WrapValidationFailed(step int) *BusinessError {
	return NewBusinessError(
		ErrCodeValidationFailed,
		fmt.Sprintf("Step %d has missing or invalid fields", step),
		ErrValidationFailed,
	)
}

func WrapSnapshotNotFound(sessionID string) *BusinessError {
	return NewBusinessError(
		ErrCodeSnapshotNotFound,
		fmt.Sprintf("No simulation snapshot for session %s", sessionID),
		ErrSnapshotNotFound,
	)
}

func WrapDraftNotFound(sessionID string) *BusinessError {
	return NewBusinessError(
		ErrCodeDraftNotFound,
		fmt.Sprintf("No intake draft for session %s", sessionID),
		ErrDraftNotFound,
	)
}

func WrapSubmissionInFlight(sessionID string) *BusinessError {
	return NewBusinessError(
		ErrCodeSubmissionInFlight,
		fmt.Sprintf("Session %s already has a submission in flight", sessionID),
		ErrSubmissionInFlight,
	)
}

func WrapNotOnFinalStep(step int) *BusinessError {
	return NewBusinessError(
		ErrCodeNotOnFinalStep,
		fmt.Sprintf("Cannot submit from step %d", step),
		ErrNotOnFinalStep,
	)
}

func WrapCircuitOpen() *BusinessError {
	return NewBusinessError(
		ErrCodeCircuitOpen,
		"Backend unreachable, circuit breaker is open",
		ErrCircuitOpen,
	)
}

func WrapRequestTimeout(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeRequestTimeout,
		"Backend call timed out",
		errors.Join(ErrRequestTimeout, err),
	)
}

func WrapRequestNotFound(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeRequestNotFound,
		fmt.Sprintf("Consulting request %s not found", id),
		ErrRequestNotFound,
	)
}

func WrapFileTooLarge(maxBytes int64) *BusinessError {
	return NewBusinessError(
		ErrCodeFileTooLarge,
		fmt.Sprintf("File exceeds the maximum size of %d bytes", maxBytes),
		ErrFileTooLarge,
	)
}

func WrapInvalidFileType(mimeType string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidFileType,
		fmt.Sprintf("File type %s is not allowed, only PDF is accepted", mimeType),
		ErrInvalidFileType,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapBackendError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeBackendError,
		"backend call failed",
		err,
	)
}

func WrapStorageError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStorageError,
		"session storage operation failed",
		err,
	)
}
