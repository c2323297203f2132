package bargain

import (
	"errors"
	"fmt"
)

// Error codes for bargain session failures.
const (
	CodeInvalidRequest         = "invalidRequest"
	CodeInvalidOffer           = "invalidOffer"
	CodeSessionNotFound        = "sessionNotFound"
	CodePricingFetchFailed     = "pricingFetchFailed"
	CodePricingInconsistency   = "pricingInconsistency"
	CodeCounterProcessingError = "counterOfferProcessingFailed"
	CodeCounterOfferExpired    = "counterOfferExpired"
	CodeStateViolation         = "sessionStateViolation"
)

type BargainError struct {
	Code    string
	Message string
}

func (e *BargainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewBargainError(code, format string, args ...any) error {
	return &BargainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the bargain error code, or "" for foreign errors.
func ErrorCode(err error) string {
	var be *BargainError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
