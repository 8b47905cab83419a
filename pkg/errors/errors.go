package errors

import (
	"errors"
	"fmt"
)

const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidArgument      = "INVALID_ARGUMENT"
	CodeConfiguration        = "CONFIGURATION_ERROR"
	CodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	CodeDirectoryUnavailable = "DIRECTORY_UNAVAILABLE"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeToolNotFound         = "TOOL_NOT_FOUND"
	CodeLLMUnavailable       = "LLM_UNAVAILABLE"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_ERROR"
)

var (
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrUnauthorized            = errors.New("unauthorized access")
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	ErrInvalidInput = errors.New("invalid input data")
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
