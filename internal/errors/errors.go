package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeInternal          = "E000"
	CodeValidation        = "E100"
	CodeStore             = "E200"
	CodeTransport         = "E300"
	CodeState             = "E400"
	CodeRateLimit         = "E500"
	CodeNotFound          = "E600"
	CodePermission        = "E700"
	CodeInsufficientFunds = "E800"
	CodeConfig            = "E900"
)

// Sentinels for errors.Is checks. Any AppError with the same code matches.
var (
	ErrNotFound          = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrPermissionDenied  = &AppError{Code: CodePermission, Message: "permission denied"}
	ErrInsufficientFunds = &AppError{Code: CodeInsufficientFunds, Message: "insufficient funds"}
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}

	var t *AppError
	if !errors.As(target, &t) || t == nil {
		return false
	}

	return t.Code != "" && t.Code == e.Code
}

// CodeOf returns the AppError code found in err's chain, or an empty string.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}

	return ""
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid input. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeStore,
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewConflictError marks a retryable store conflict such as a unique violation.
func NewConflictError(cause error) *AppError {
	appErr := NewDatabaseError(cause)
	appErr.Severity = SeverityMedium
	return appErr
}

func NewTransportError(op string, cause error) *AppError {
	return &AppError{
		Code:        CodeTransport,
		Message:     fmt.Sprintf("Transport error: %s", op),
		UserMessage: "Service is temporarily unavailable",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "This action is not possible right now",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewNotFoundError(what string) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     fmt.Sprintf("%s not found", what),
		UserMessage: "Nothing found",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewPermissionError(action string) *AppError {
	return &AppError{
		Code:        CodePermission,
		Message:     fmt.Sprintf("permission denied: %s", action),
		UserMessage: "You are not allowed to do this",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewInsufficientFundsError(required, available int64) *AppError {
	return &AppError{
		Code:        CodeInsufficientFunds,
		Message:     fmt.Sprintf("insufficient funds: required %d, available %d", required, available),
		UserMessage: "Not enough funds on your balance",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewConfigError(msg string, cause error) *AppError {
	return &AppError{
		Code:        CodeConfig,
		Message:     fmt.Sprintf("config error: %s", msg),
		UserMessage: "Service is misconfigured",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}
