package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API callers.
const (
	CodeFieldRequired        = "FIELD_REQUIRED"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeInvalidRole          = "INVALID_ROLE"
	CodeEmailExists          = "EMAIL_EXISTS"
	CodeAuthError            = "AUTH_ERROR"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeVerificationPending  = "VERIFICATION_PENDING"
	CodeVerificationRequired = "VERIFICATION_REQUIRED"
	CodeNotFound             = "NOT_FOUND"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeInvalidIndex         = "INVALID_INDEX"
	CodeMissingIndex         = "MISSING_INDEX"
	CodeInvalidStatus        = "INVALID_STATUS"
	CodeInvalidRating        = "INVALID_RATING"
	CodeNoAdmin              = "NO_ADMIN"
	CodeMissingTarget        = "MISSING_TARGET"
	CodeTargetNotFound       = "TARGET_NOT_FOUND"
	CodeUpdateError          = "UPDATE_ERROR"
	CodeCreateError          = "CREATE_ERROR"
	CodeTransferError        = "TRANSFER_ERROR"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeInternal             = "INTERNAL_ERROR"
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

func NewFieldRequired(field, message string) error {
	return NewDomainError(CodeFieldRequired, message, http.StatusBadRequest, map[string]any{"field": field})
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewInvalidRole(message string) error {
	return NewDomainError(CodeInvalidRole, message, http.StatusBadRequest, nil)
}

func NewInvalidStatus(message string) error {
	return NewDomainError(CodeInvalidStatus, message, http.StatusBadRequest, nil)
}

func NewInvalidIndex(message string) error {
	return NewDomainError(CodeInvalidIndex, message, http.StatusBadRequest, nil)
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
	return NewDomainError(CodeAuthError, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewVerificationRequired(role string) error {
	return NewDomainError(CodeVerificationRequired,
		fmt.Sprintf("Your %s account is pending verification. Please contact an administrator to verify your account.", role),
		http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewEmailExists() error {
	return NewDomainError(CodeEmailExists, "An account with this email already exists", http.StatusBadRequest, nil)
}

func NewUserNotFound() error {
	return NewDomainError(CodeUserNotFound, "User profile not found", http.StatusNotFound, nil)
}

func NewVerificationPending() error {
	return NewDomainError(CodeVerificationPending,
		"Your account is pending verification. Please wait for an administrator to approve it.",
		http.StatusForbidden, nil)
}

func NewInvalidRating() error {
	return NewDomainError(CodeInvalidRating, "Rating must be an integer between 1 and 5", http.StatusBadRequest, nil)
}

func NewMissingIndex() error {
	return NewDomainError(CodeMissingIndex, "comment_index is required", http.StatusBadRequest, nil)
}

func NewNoAdmin() error {
	return NewDomainError(CodeNoAdmin, "No verified admin is available", http.StatusNotFound, nil)
}

func NewMissingTarget() error {
	return NewDomainError(CodeMissingTarget, "target_uid is required", http.StatusBadRequest, nil)
}

func NewTargetNotFound() error {
	return NewDomainError(CodeTargetNotFound, "Target user not found", http.StatusNotFound, nil)
}

func NewRateLimited(retryAfterSeconds int) error {
	return NewDomainError(CodeRateLimitExceeded, "Too many requests", http.StatusTooManyRequests,
		map[string]any{"retry_after": retryAfterSeconds})
}

// NewStoreError wraps an unexpected persistence failure under one of the
// generic store codes (UPDATE_ERROR, CREATE_ERROR, TRANSFER_ERROR).
func NewStoreError(code string, err error) error {
	return &DomainError{
		Code:       code,
		Message:    "storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
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

// HasCode reports whether err carries the given DomainError code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
