package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrOfferNotFound           = errors.New("offer not found")
	ErrDuplicateKey            = errors.New("offer key already exists with a different payload")
	ErrInvalidOfferPayload     = errors.New("invalid offer payload")
	ErrValuationUnavailable    = errors.New("valuation unavailable")
	ErrIDAllocationUnavailable = errors.New("offer id allocation unavailable")
	ErrLiveStateUnavailable    = errors.New("live offer state unavailable")
	ErrUnhealthyPosition       = errors.New("health factor below threshold")
	ErrInsufficientSupply      = errors.New("insufficient usable offer supply")
	ErrTransactionNotConfirmed = errors.New("transaction not confirmed")
	ErrSettlementUnavailable   = errors.New("settlement layer unavailable")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeOfferNotFound           = "OFFER_NOT_FOUND"
	ErrCodeDuplicateKey            = "DUPLICATE_KEY"
	ErrCodeInvalidOfferPayload     = "INVALID_OFFER_PAYLOAD"
	ErrCodeValuationUnavailable    = "VALUATION_UNAVAILABLE"
	ErrCodeIDAllocationUnavailable = "ID_ALLOCATION_UNAVAILABLE"
	ErrCodeLiveStateUnavailable    = "LIVE_STATE_UNAVAILABLE"
	ErrCodeUnhealthyPosition       = "UNHEALTHY_POSITION"
	ErrCodeInsufficientSupply      = "INSUFFICIENT_SUPPLY"
	ErrCodeTransactionNotConfirmed = "TRANSACTION_NOT_CONFIRMED"
	ErrCodeSettlementUnavailable   = "SETTLEMENT_UNAVAILABLE"
	ErrCodeDatabaseError           = "DATABASE_ERROR"
	ErrCodeCacheError              = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapOfferNotFound(key string) *BusinessError {
	return NewBusinessError(
		ErrCodeOfferNotFound,
		fmt.Sprintf("Offer with key %s not found", key),
		ErrOfferNotFound,
	)
}

func WrapDuplicateKey(key string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicateKey,
		fmt.Sprintf("Offer key %s is already taken by a different payload", key),
		ErrDuplicateKey,
	)
}

func WrapInvalidOfferPayload(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidOfferPayload,
		reason,
		ErrInvalidOfferPayload,
	)
}

func WrapValuationUnavailable(account string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeValuationUnavailable,
		fmt.Sprintf("Health of account %s cannot be assessed", account),
		errors.Join(ErrValuationUnavailable, err),
	)
}

func WrapIDAllocationUnavailable(owner string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeIDAllocationUnavailable,
		fmt.Sprintf("Next offer id for %s cannot be derived", owner),
		errors.Join(ErrIDAllocationUnavailable, err),
	)
}

func WrapLiveStateUnavailable(key string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeLiveStateUnavailable,
		fmt.Sprintf("Live state for offer %s could not be read", key),
		errors.Join(ErrLiveStateUnavailable, err),
	)
}

func WrapUnhealthyPosition(account, ratio, threshold string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnhealthyPosition,
		fmt.Sprintf("Health factor %s of account %s is below %s", ratio, account, threshold),
		ErrUnhealthyPosition,
	)
}

func WrapInsufficientSupply(requested, filled string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientSupply,
		fmt.Sprintf("Only %s of requested %s could be allocated", filled, requested),
		ErrInsufficientSupply,
	)
}

func WrapTransactionNotConfirmed(txHash string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeTransactionNotConfirmed,
		fmt.Sprintf("Transaction %s is not confirmed", txHash),
		errors.Join(ErrTransactionNotConfirmed, err),
	)
}

func WrapSettlementUnavailable(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeSettlementUnavailable,
		"Settlement layer read failed",
		errors.Join(ErrSettlementUnavailable, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// HTTPStatus maps an error to the status code the API answers with
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidOfferPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, ErrUnhealthyPosition),
		errors.Is(err, ErrInsufficientSupply),
		errors.Is(err, ErrTransactionNotConfirmed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValuationUnavailable),
		errors.Is(err, ErrIDAllocationUnavailable),
		errors.Is(err, ErrLiveStateUnavailable),
		errors.Is(err, ErrSettlementUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code extracts the business error code, or an empty string
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
