package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes rendered to clients. They are stable and safe to branch on.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodeRoleMismatch       = "ROLE_MISMATCH"
	CodePendingApproval    = "PENDING_APPROVAL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeStaleTicket        = "STALE_TICKET"
	CodeInternal           = "INTERNAL_ERROR"
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewDuplicateIdentity(details map[string]any) error {
	return NewDomainError(CodeDuplicateIdentity, "an account with this identity already exists", http.StatusUnprocessableEntity, details)
}

func NewIllegalTransition(message string, details map[string]any) error {
	return NewDomainError(CodeIllegalTransition, message, http.StatusUnprocessableEntity, details)
}

func NewRoleMismatch(details map[string]any) error {
	return NewDomainError(CodeRoleMismatch, "tickets can only be assigned to agents", http.StatusUnprocessableEntity, details)
}

// NewPendingApproval is returned on login for accounts still waiting in the admission queue.
// Its message must stay distinct from the not-found message.
func NewPendingApproval() error {
	return NewDomainError(CodePendingApproval, "your registration is pending admin approval", http.StatusForbidden, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid credentials", http.StatusUnauthorized, nil)
}

func NewStaleTicket(ticketID int64) error {
	return NewDomainError(CodeStaleTicket, "ticket was modified concurrently, reload and try again", http.StatusConflict, map[string]any{"ticket_id": ticketID})
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

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
