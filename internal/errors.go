package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeForbidden  ErrorType = "FORBIDDEN"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency  ErrorCode = "INVALID_CURRENCY"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"
	ErrCodeReasonRequired   ErrorCode = "REJECTION_REASON_REQUIRED"

	ErrCodeExpenseNotFound     ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeCategoryNotFound    ErrorCode = "CATEGORY_NOT_FOUND"
	ErrCodeTransactionNotFound ErrorCode = "CASH_TRANSACTION_NOT_FOUND"
	ErrCodeUserNotFound        ErrorCode = "USER_NOT_FOUND"

	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_EXPENSE_STATUS"
	ErrCodeInsufficientCash ErrorCode = "INSUFFICIENT_FUNDS"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// InsufficientFundsDetails reports the computed balance alongside the amount the
// approval would have withdrawn, so callers can display both.
type InsufficientFundsDetails struct {
	Balance  decimal.Decimal `json:"balance"`
	Required decimal.Decimal `json:"required"`
	Currency string          `json:"currency"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewInsufficientFundsError is the domain-specific conflict raised when approving a
// vessel-paid expense would drive the cash balance negative.
func NewInsufficientFundsError(balance, required decimal.Decimal, currency string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       ErrCodeInsufficientCash,
		Message:    fmt.Sprintf("insufficient cash balance: have %s, need %s %s", balance.String(), required.String(), currency),
		StatusCode: http.StatusConflict,
		Details: InsufficientFundsDetails{
			Balance:  balance,
			Required: required,
			Currency: currency,
		},
	}
}

var (
	ErrExpenseNotFound     = NewNotFoundError("expense not found", ErrCodeExpenseNotFound)
	ErrCategoryNotFound    = NewNotFoundError("category not found", ErrCodeCategoryNotFound)
	ErrTransactionNotFound = NewNotFoundError("cash transaction not found", ErrCodeTransactionNotFound)
	ErrUserNotFound        = NewNotFoundError("user not found", ErrCodeUserNotFound)

	ErrPermissionDenied = NewForbiddenError("insufficient permissions for this operation", ErrCodePermissionDenied)
	ErrNotSubmitted     = NewConflictError("can only approve or reject submitted expenses", ErrCodeInvalidStatus)
	ErrReasonRequired   = NewValidationError("a rejection reason is required", ErrCodeReasonRequired)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
