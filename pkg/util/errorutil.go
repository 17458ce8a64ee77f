package util

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error codes surfaced to callers. Each maps to a distinct message and HTTP status.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeTicketNotFound     = "TICKET_NOT_FOUND"
	CodeAnalystNotFound    = "ANALYST_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUnknownCategory    = "UNKNOWN_CATEGORY"
	CodeSchemaViolation    = "SCHEMA_VIOLATION"
	CodeEmptyMessage       = "EMPTY_MESSAGE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks; DomainError matches them by Code.
var (
	ErrUnauthorized       = &DomainError{Code: CodeUnauthorized}
	ErrForbidden          = &DomainError{Code: CodeForbidden}
	ErrTicketNotFound     = &DomainError{Code: CodeTicketNotFound}
	ErrAnalystNotFound    = &DomainError{Code: CodeAnalystNotFound}
	ErrUserNotFound       = &DomainError{Code: CodeUserNotFound}
	ErrUnknownCategory    = &DomainError{Code: CodeUnknownCategory}
	ErrSchemaViolation    = &DomainError{Code: CodeSchemaViolation}
	ErrEmptyMessage       = &DomainError{Code: CodeEmptyMessage}
	ErrInvalidCredentials = &DomainError{Code: CodeInvalidCredentials}
	ErrValidation         = &DomainError{Code: CodeValidationFailed}
	ErrConflict           = &DomainError{Code: CodeConflict}
	ErrInternal           = &DomainError{Code: CodeInternal}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewTicketNotFound(ticketID string) error {
	return NewDomainError(CodeTicketNotFound, "ticket not found", http.StatusNotFound,
		map[string]any{"ticket_id": ticketID})
}

func NewAnalystNotFound(analystID string) error {
	return NewDomainError(CodeAnalystNotFound, "analyst not found", http.StatusNotFound,
		map[string]any{"analyst_id": analystID})
}

func NewUserNotFound(userID string) error {
	return NewDomainError(CodeUserNotFound, "user not found", http.StatusNotFound,
		map[string]any{"user_id": userID})
}

func NewUnknownCategory(category string) error {
	return NewDomainError(CodeUnknownCategory, "unknown ticket category", http.StatusBadRequest,
		map[string]any{"category": category})
}

// NewSchemaViolation reports missing required fields and fields the schema does not declare.
func NewSchemaViolation(category string, missing, unknown []string) error {
	details := map[string]any{"category": category}
	parts := make([]string, 0, 2)
	if len(missing) > 0 {
		sort.Strings(missing)
		details["missing"] = missing
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		details["unknown"] = unknown
		parts = append(parts, "unknown fields: "+strings.Join(unknown, ", "))
	}
	return NewDomainError(CodeSchemaViolation, strings.Join(parts, "; "), http.StatusUnprocessableEntity, details)
}

func NewEmptyMessage() error {
	return NewDomainError(CodeEmptyMessage, "message must not be blank", http.StatusBadRequest, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid credentials", http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError is ToDomainError for error-typed call sites; nil stays nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
