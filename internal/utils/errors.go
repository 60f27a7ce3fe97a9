package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "ValidationError"
	KindNotFound    ErrorKind = "NotFoundError"
	KindStorage     ErrorKind = "StorageError"
	KindPersistence ErrorKind = "PersistenceError"
	KindLLM         ErrorKind = "LLMError"
)

// AppError is what services hand back to the route layer. StatusCode and
// Message are safe to show to clients; Err keeps the underlying cause.
type AppError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, StatusCode: http.StatusBadRequest, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, StatusCode: http.StatusNotFound, Message: message}
}

func NewStorageError(message string, err error) *AppError {
	return &AppError{Kind: KindStorage, StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

func NewPersistenceError(message string, err error) *AppError {
	return &AppError{Kind: KindPersistence, StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// NewLLMError is a provider failure (502).
func NewLLMError(message string, err error) *AppError {
	return &AppError{Kind: KindLLM, StatusCode: http.StatusBadGateway, Message: message, Err: err}
}

// NewLLMUnavailableError is used when retries ran out on transient failures
// or the provider is not configured (503).
func NewLLMUnavailableError(message string, err error) *AppError {
	return &AppError{Kind: KindLLM, StatusCode: http.StatusServiceUnavailable, Message: message, Err: err}
}

// KindOf reports the AppError kind in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
