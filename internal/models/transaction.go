package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string
type TransactionStatus string
type NetworkResponseKind string

const (
	TrxTypeAuthorization TransactionType = "AUTHORIZATION"
	TrxTypeCapture       TransactionType = "CAPTURE"
	TrxTypeReversal      TransactionType = "REVERSAL"
	TrxTypeVoid          TransactionType = "VOID"
)

const (
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusApproved   TransactionStatus = "APPROVED"
	StatusRejected   TransactionStatus = "REJECTED"
)

const (
	ResponseKindNone     NetworkResponseKind = "NONE"
	ResponseKindApproved NetworkResponseKind = "APPROVED"
	ResponseKindRejected NetworkResponseKind = "REJECTED"
)

// PendingResponseCode marks a result that has no network answer yet.
const PendingResponseCode = "F99"

// ErrTransactionFinalized is returned when a transition is applied to a
// transaction that already reached a terminal outcome.
var ErrTransactionFinalized = errors.New("TRANSACTION_FINALIZED")

// NetworkResponse is the last answer recorded for a transaction. Kind selects
// the variant: ApprovalCode is only set on APPROVED, WasRetryable only on REJECTED.
type NetworkResponse struct {
	Kind            NetworkResponseKind `json:"kind"`
	Network         AcquiringNetwork    `json:"network"`
	ResponseCode    string              `json:"responseCode"`
	ResponseMessage string              `json:"responseMessage"`
	ApprovalCode    string              `json:"approvalCode,omitempty"`
	Attempt         int                 `json:"attempt"`
	WasRetryable    bool                `json:"wasRetryable,omitempty"`
}

// NoNetworkResponse is the placeholder stored while a transaction is processing.
func NoNetworkResponse() NetworkResponse {
	return NetworkResponse{
		Kind:            ResponseKindNone,
		Network:         NetworkNone,
		ResponseCode:    PendingResponseCode,
		ResponseMessage: "Processing Transaction",
	}
}

func ApprovedNetworkResponse(network AcquiringNetwork, code, message string, attempt int, approvalCode string) NetworkResponse {
	return NetworkResponse{
		Kind:            ResponseKindApproved,
		Network:         network,
		ResponseCode:    code,
		ResponseMessage: message,
		ApprovalCode:    approvalCode,
		Attempt:         attempt,
	}
}

func RejectNetworkResponse(network AcquiringNetwork, code, message string, attempt int, wasRetryable bool) NetworkResponse {
	return NetworkResponse{
		Kind:            ResponseKindRejected,
		Network:         network,
		ResponseCode:    code,
		ResponseMessage: message,
		Attempt:         attempt,
		WasRetryable:    wasRetryable,
	}
}

// CardNotPresentTransaction is the persisted record of one sale routed to
// the acquiring processors. TransactionID never changes once assigned.
type CardNotPresentTransaction struct {
	TransactionID     string            `json:"transactionId"`
	ClientID          string            `json:"clientId"`
	ClientReferenceID string            `json:"clientReferenceId"`
	MerchantID        string            `json:"merchantId"`
	TransactionType   TransactionType   `json:"transactionType"`
	Currency          Currency          `json:"currency"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	Tip               decimal.Decimal   `json:"tip"`
	VAT               decimal.Decimal   `json:"vat"`
	CardData          PCIComplianceCard `json:"cardData"`
	Status            TransactionStatus `json:"status"`
	NetworkResponse   NetworkResponse   `json:"networkResponse"`
	TransactionDate   int64             `json:"transactionDate"`
}

// CaptureTransactionParams carries the fields of a new capture transaction.
type CaptureTransactionParams struct {
	TransactionID     string
	ClientID          string
	ClientReferenceID string
	MerchantID        string
	Currency          Currency
	TotalAmount       decimal.Decimal
	Tip               decimal.Decimal
	VAT               decimal.Decimal
	Card              PCIComplianceCard
}

// NewCaptureTransaction builds a transaction in PROCESSING state with the
// placeholder network response.
func NewCaptureTransaction(p CaptureTransactionParams) *CardNotPresentTransaction {
	return &CardNotPresentTransaction{
		TransactionID:     p.TransactionID,
		ClientID:          p.ClientID,
		ClientReferenceID: p.ClientReferenceID,
		MerchantID:        p.MerchantID,
		TransactionType:   TrxTypeCapture,
		Currency:          p.Currency,
		TotalAmount:       p.TotalAmount,
		Tip:               p.Tip,
		VAT:               p.VAT,
		CardData:          p.Card,
		Status:            StatusProcessing,
		NetworkResponse:   NoNetworkResponse(),
		TransactionDate:   time.Now().UnixNano(),
	}
}

// IsFinal reports whether no further transition may be applied. A retryable
// rejection is interim: another processor may still answer.
func (t *CardNotPresentTransaction) IsFinal() bool {
	switch t.Status {
	case StatusApproved:
		return true
	case StatusRejected:
		return !t.NetworkResponse.WasRetryable
	default:
		return false
	}
}

// Approve records an approval from network.
func (t *CardNotPresentTransaction) Approve(network AcquiringNetwork, code, message string, attempt int, approvalCode string) error {
	if t.IsFinal() {
		return ErrTransactionFinalized
	}
	t.Status = StatusApproved
	t.NetworkResponse = ApprovedNetworkResponse(network, code, message, attempt, approvalCode)
	return nil
}

// Reject records a rejection from network.
func (t *CardNotPresentTransaction) Reject(network AcquiringNetwork, code, message string, attempt int, wasRetryable bool) error {
	if t.IsFinal() {
		return ErrTransactionFinalized
	}
	t.Status = StatusRejected
	t.NetworkResponse = RejectNetworkResponse(network, code, message, attempt, wasRetryable)
	return nil
}
