package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeBusiness     ErrorType = "business"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeCrypto       ErrorType = "crypto"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		Retryable:  false,
		StatusCode: 403,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewCryptoError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeCrypto,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    message,
		Retryable:  true,
		StatusCode: 429,
	}
}

// Protocol error kinds. Messages deliberately carry no amounts or key
// material; COMMITMENT_MISMATCH and INVALID_KEY in particular must not
// let a caller probe another bidder's plaintext.
func NewInvalidScheduleError(message string) *AppError {
	return NewValidationError("INVALID_SCHEDULE", message)
}

func NewInvalidBidError(message string) *AppError {
	return NewValidationError("INVALID_BID", message)
}

func NewWrongPhaseError(operation, phase string) *AppError {
	return NewBusinessError("WRONG_PHASE",
		fmt.Sprintf("%s is not allowed in the %s phase", operation, phase))
}

func NewDuplicateBidError() *AppError {
	return NewConflictError("DUPLICATE_BID", "bidder already has a commitment for this tender")
}

func NewDuplicateRevealError() *AppError {
	return NewConflictError("DUPLICATE_REVEAL", "bid has already been revealed")
}

func NewNoSuchCommitmentError() *AppError {
	return NewBusinessError("NO_SUCH_COMMITMENT", "no commitment exists for this bidder")
}

func NewCommitmentMismatchError() *AppError {
	return NewBusinessError("COMMITMENT_MISMATCH", "revealed amount does not match the sealed commitment")
}

func NewBelowMinimumError() *AppError {
	return NewBusinessError("BELOW_MINIMUM", "revealed amount is below the tender minimum")
}

func NewAlreadyClosedError() *AppError {
	return NewConflictError("ALREADY_CLOSED", "tender is already closed")
}

func NewInvalidKeyError() *AppError {
	return NewCryptoError("INVALID_KEY", "key does not open this ciphertext")
}

func NewMalformedCiphertextError() *AppError {
	return NewCryptoError("MALFORMED_CIPHERTEXT", "ciphertext cannot be parsed")
}

func NewParseError(message string) *AppError {
	return NewValidationError("PARSE_ERROR", message)
}

// Predefined common errors
var (
	ErrTenderNotFound = NewNotFoundError("tender")
	ErrBidNotFound    = NewNotFoundError("bid")
	ErrWinnerNotFound = NewNotFoundError("winner")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsCode checks if an error carries a specific protocol error code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
