package errors

import "fmt"

// Application error types organized by category for better error handling

type ErrorType string

// Authorization and precondition errors - detectable locally, before any network call
const (
	UnauthorizedError ErrorType = "UNAUTHORIZED"
	ExpiredError      ErrorType = "EXPIRED"
	ValidationError   ErrorType = "VALIDATION_ERROR"
)

// Domain/Business Logic Errors - errors related to business rules and signed data
const (
	NotFoundError         ErrorType = "NOT_FOUND"
	InvalidSignatureError ErrorType = "INVALID_SIGNATURE"
)

// Infrastructure Errors - errors related to external systems and services
const (
	RateLimitError     ErrorType = "RATE_LIMIT"
	ServerError        ErrorType = "SERVER_ERROR"
	RequestFailedError ErrorType = "REQUEST_FAILED"
	NetworkError       ErrorType = "NETWORK"
	DatabaseError      ErrorType = "DATABASE_ERROR"
)

// System/Configuration Errors - errors related to system setup and configuration
const (
	ConfigurationError ErrorType = "CONFIGURATION_ERROR"
)

type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

func Wrap(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// Authorization/Precondition Error Constructors
func NewUnauthorizedError(message string) *AppError {
	return New(UnauthorizedError, message)
}

func NewExpiredError(message string) *AppError {
	return New(ExpiredError, message)
}

func NewValidationError(message string) *AppError {
	return New(ValidationError, message)
}

// Domain/Business Logic Error Constructors
func NewNotFoundError(message string) *AppError {
	return New(NotFoundError, message)
}

func NewInvalidSignatureError(message string) *AppError {
	return New(InvalidSignatureError, message)
}

// Infrastructure Error Constructors
func NewRateLimitError(message string, cause error) *AppError {
	return Wrap(RateLimitError, message, cause)
}

func NewServerError(message string, cause error) *AppError {
	return Wrap(ServerError, message, cause)
}

func NewRequestFailedError(message string, cause error) *AppError {
	return Wrap(RequestFailedError, message, cause)
}

func NewNetworkError(message string, cause error) *AppError {
	return Wrap(NetworkError, message, cause)
}

func NewDatabaseError(message string, cause error) *AppError {
	return Wrap(DatabaseError, message, cause)
}

// System/Configuration Error Constructors
func NewConfigurationError(message string, cause error) *AppError {
	return Wrap(ConfigurationError, message, cause)
}

// TypeOf extracts the normalized cause from any error. Errors that did not
// originate in this package report RequestFailedError.
func TypeOf(err error) ErrorType {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type
	}
	return RequestFailedError
}

// UserMessage returns the fixed, user-safe message for a failure cause.
// Raw backend error text must never reach the UI layer.
func UserMessage(errorType ErrorType) string {
	switch errorType {
	case UnauthorizedError:
		return "Please sign in to continue"
	case ExpiredError:
		return "This search result has expired - please search again"
	case InvalidSignatureError:
		return "This search result could not be verified - please search again"
	case NotFoundError:
		return "The requested item could not be found"
	case RateLimitError:
		return "The restaurant directory is busy - please try again shortly"
	case ServerError:
		return "Something went wrong on our side - please try again"
	case NetworkError:
		return "Connection failed - please check your network"
	default:
		return "The request could not be completed"
	}
}

// Helper functions for error type checking
func IsUnauthorizedError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == UnauthorizedError
	}
	return false
}

func IsExpiredError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ExpiredError
	}
	return false
}

func IsNotFoundError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == NotFoundError
	}
	return false
}

func IsInvalidSignatureError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == InvalidSignatureError
	}
	return false
}

func IsRateLimitError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == RateLimitError
	}
	return false
}

func IsValidationError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ValidationError
	}
	return false
}

func IsDatabaseError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == DatabaseError
	}
	return false
}

func IsNetworkError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == NetworkError
	}
	return false
}

func IsServerError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ServerError
	}
	return false
}

func IsRequestFailedError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == RequestFailedError
	}
	return false
}
