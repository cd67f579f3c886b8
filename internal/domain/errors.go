package domain

import (
	"errors"
	"fmt"
	"slices"
)

// ErrorCode is the stable identifier returned to webhook and API callers
type ErrorCode string

const (
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrorCodeValidationUnknownStatus ErrorCode = "VALIDATION_UNKNOWN_STATUS"
	ErrorCodeLedgerEntryNotFound     ErrorCode = "LEDGER_ENTRY_NOT_FOUND"
	ErrorCodeUpstream                ErrorCode = "UPSTREAM_ERROR"
	ErrorCodeStorage                 ErrorCode = "STORAGE_ERROR"
	ErrorCodeDeliveryInFlight        ErrorCode = "DELIVERY_IN_FLIGHT"
	ErrorCodeInternalError           ErrorCode = "INTERNAL_ERROR"
)

var validationCodes = []ErrorCode{
	ErrorCodeValidationFailed,
	ErrorCodeValidationMissingField,
	ErrorCodeValidationUnknownStatus,
}

// DomainError carries a code, a caller-safe message and optional details.
// Two DomainErrors match under errors.Is when their codes are equal.
type DomainError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *DomainError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithDetail sets a detail key and returns e for chaining
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

func NewDomainError(code ErrorCode, message string) *DomainError {
	return WrapError(code, message, nil)
}

// WrapError attaches a code and message to cause
func WrapError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, Details: map[string]interface{}{}, Err: cause}
}

// GetErrorCode returns the code of the first DomainError in err's chain, or ""
func GetErrorCode(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func IsValidationError(err error) bool {
	return slices.Contains(validationCodes, GetErrorCode(err))
}

func IsNotFoundError(err error) bool { return GetErrorCode(err) == ErrorCodeLedgerEntryNotFound }

func IsUpstreamError(err error) bool { return GetErrorCode(err) == ErrorCodeUpstream }

func IsStorageError(err error) bool { return GetErrorCode(err) == ErrorCodeStorage }

func IsDeliveryInFlight(err error) bool { return GetErrorCode(err) == ErrorCodeDeliveryInFlight }

// Sentinels for errors.Is. Build fresh values with NewDomainError before
// adding details so the sentinels stay unchanged.
var (
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")
	ErrValidationUnknownStatus = NewDomainError(ErrorCodeValidationUnknownStatus, "unknown event status")
	ErrLedgerEntryNotFound     = NewDomainError(ErrorCodeLedgerEntryNotFound, "ledger entry not found")
	ErrUpstream                = NewDomainError(ErrorCodeUpstream, "payment provider request failed")
	ErrStorage                 = NewDomainError(ErrorCodeStorage, "ledger storage failed")
	ErrDeliveryInFlight        = NewDomainError(ErrorCodeDeliveryInFlight, "delivery is already being processed")
)

// ErrNoRows is returned, possibly wrapped, by ledger reads that match nothing
var ErrNoRows = errors.New("no ledger rows")
