// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindAuth               Kind = "UNAUTHORIZED"
	KindAccessDenied       Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidState       Kind = "INVALID_STATE"
	KindAlreadyReviewed    Kind = "ALREADY_REVIEWED"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Domain errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrActiveLoanExists   = errors.New("already have an active loan")
	ErrInvalidTransition  = errors.New("invalid loan status transition")
	ErrNoOutstandingDue   = errors.New("no outstanding installment")
	ErrProductNotFound    = errors.New("product not found")
	ErrReviewNotFound     = errors.New("review not found")
	ErrAlreadyReviewed    = errors.New("product already reviewed")
	ErrOwnProductReview   = errors.New("sellers cannot review their own product")
	ErrNotOwner           = errors.New("not authorized to access this resource")
	ErrLocationNotFound   = errors.New("location not found")
	ErrUpstreamQuota      = errors.New("upstream quota exceeded")
	ErrNotConfigured      = errors.New("service not configured")
)

// AppError carries a Kind plus a client-safe message.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf returns KindInternal for anything that is not an *AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the *AppError from a chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func Validation(message string) *AppError {
	return New(KindValidation, "VALIDATION_ERROR", message, ErrInvalidInput)
}

func WrapValidation(err error) *AppError {
	return New(KindValidation, "VALIDATION_ERROR", "validation failed", err)
}

func InvalidCredentials() *AppError {
	return New(KindAuth, "INVALID_CREDENTIALS", "Invalid credentials", ErrInvalidCredentials)
}

func AccountInactive() *AppError {
	return New(KindAuth, "ACCOUNT_INACTIVE", "Account is deactivated", ErrAccountInactive)
}

func Unauthorized(message string, err error) *AppError {
	return New(KindAuth, "UNAUTHORIZED", message, err)
}

func UserExists() *AppError {
	return New(KindValidation, "USER_EXISTS", "User already exists", ErrUserExists)
}

func UserNotFound(id string) *AppError {
	return New(KindNotFound, "USER_NOT_FOUND", fmt.Sprintf("User %s not found", id), ErrUserNotFound)
}

func LoanNotFound(id string) *AppError {
	return New(KindNotFound, "LOAN_NOT_FOUND", fmt.Sprintf("Loan %s not found", id), ErrLoanNotFound)
}

func ActiveLoanExists() *AppError {
	return New(KindInvalidState, "ACTIVE_LOAN_EXISTS", "You already have an active loan application", ErrActiveLoanExists)
}

func InvalidTransition(from, to string) *AppError {
	return New(KindInvalidState, "INVALID_STATE",
		fmt.Sprintf("Loan cannot move from %s to %s", from, to), ErrInvalidTransition)
}

func InvalidState(message string) *AppError {
	return New(KindInvalidState, "INVALID_STATE", message, ErrInvalidTransition)
}

func NoOutstandingInstallment(id string) *AppError {
	return New(KindInvalidState, "NO_OUTSTANDING_INSTALLMENT",
		fmt.Sprintf("Loan %s has no outstanding installment", id), ErrNoOutstandingDue)
}

func ProductNotFound(id string) *AppError {
	return New(KindNotFound, "PRODUCT_NOT_FOUND", fmt.Sprintf("Product %s not found", id), ErrProductNotFound)
}

func ReviewNotFound(id string) *AppError {
	return New(KindNotFound, "REVIEW_NOT_FOUND", fmt.Sprintf("Review %s not found", id), ErrReviewNotFound)
}

func AlreadyReviewed() *AppError {
	return New(KindAlreadyReviewed, "ALREADY_REVIEWED", "Product already reviewed", ErrAlreadyReviewed)
}

func OwnProductReview() *AppError {
	return New(KindAccessDenied, "OWN_PRODUCT_REVIEW", "You cannot review your own product", ErrOwnProductReview)
}

func AccessDenied(resource string) *AppError {
	return New(KindAccessDenied, "ACCESS_DENIED",
		fmt.Sprintf("Not authorized to access this %s", resource), ErrNotOwner)
}

func LocationNotFound(location string) *AppError {
	return New(KindNotFound, "LOCATION_NOT_FOUND", fmt.Sprintf("Location %s not found", location), ErrLocationNotFound)
}

func ServiceUnavailable(service string, err error) *AppError {
	return New(KindServiceUnavailable, "SERVICE_UNAVAILABLE",
		fmt.Sprintf("%s service is temporarily unavailable", service), err)
}

func Internal(err error) *AppError {
	return New(KindInternal, "INTERNAL_ERROR", "Internal server error", err)
}
