package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken            = errors.New("INVALID_TOKEN")
	ErrMerchantMismatch        = errors.New("MERCHANT_MISMATCH")
	ErrInvalidCard             = errors.New("INVALID_CARD")
	ErrInvalidAmount           = errors.New("INVALID_AMOUNT")
	ErrInvalidCurrency         = errors.New("INVALID_CURRENCY")
	ErrDuplicateTransactionID  = errors.New("DUPLICATE_TRANSACTION_ID")
	ErrTransactionNotFound     = errors.New("TRANSACTION_NOT_FOUND")
	ErrDuplicatePaymentID      = errors.New("DUPLICATE_PAYMENT_ID")
	ErrPaymentNotFound         = errors.New("PAYMENT_NOT_FOUND")
	ErrInfrastructure          = errors.New("INFRASTRUCTURE_FAILURE")
	ErrUnexpectedCaptureResult = errors.New("UNEXPECTED_CAPTURE_RESULT")
)
