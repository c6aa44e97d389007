package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Configuration errors
	ErrConfigParse   ErrorType = "CONFIG_PARSE_ERROR"
	ErrConfigInvalid ErrorType = "CONFIG_INVALID_ERROR"

	// AWS errors
	ErrAWSClient ErrorType = "AWS_CLIENT_ERROR"
	ErrAuthorize ErrorType = "AUTHORIZE_ERROR"

	// Instance resolution errors. NotFound and Ambiguous are distinct so a
	// caller can never mistake a bad name for a missing IP.
	ErrInstanceNotFound  ErrorType = "INSTANCE_NOT_FOUND"
	ErrInstanceAmbiguous ErrorType = "INSTANCE_AMBIGUOUS"

	// Lifecycle errors
	ErrPublicIP ErrorType = "PUBLIC_IP_ERROR"
	ErrIPLookup ErrorType = "IP_LOOKUP_ERROR"
)

// CustomError represents a custom error with additional context
type CustomError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	WrappedErr error
}

// New creates a new custom error
func New(errorType ErrorType, message string, context map[string]interface{}, wrappedErr error) *CustomError {
	return &CustomError{
		Type:       errorType,
		Message:    message,
		Context:    context,
		WrappedErr: wrappedErr,
	}
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.WrappedErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.WrappedErr)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *CustomError) Unwrap() error {
	return e.WrappedErr
}

// Is checks if the error is of a specific type, unwrapping as it goes.
func Is(err error, errType ErrorType) bool {
	for err != nil {
		if customErr, ok := err.(*CustomError); ok && customErr.Type == errType {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsResolution reports whether err is an instance resolution failure,
// either not-found or ambiguous.
func IsResolution(err error) bool {
	return Is(err, ErrInstanceNotFound) || Is(err, ErrInstanceAmbiguous)
}
