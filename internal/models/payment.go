package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentRejected PaymentStatus = "REJECTED"
	PaymentVoided   PaymentStatus = "VOIDED"
)

// ErrPaymentFinalized is returned when approve/reject hits a payment that is
// no longer pending.
var ErrPaymentFinalized = errors.New("PAYMENT_FINALIZED")

// Receipt is what the merchant sees as the outcome of a payment.
type Receipt struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
	ApprovalCode    string `json:"approvalCode,omitempty"`
}

// PendingReceipt is attached to a payment until the card processing answers.
func PendingReceipt() Receipt {
	return Receipt{
		ResponseCode:    PendingResponseCode,
		ResponseMessage: "Pending Payment",
	}
}

// NotPresentCard is the card as stored on a payment.
type NotPresentCard struct {
	MaskedPAN   string `json:"maskedPan"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// CardNotPresentPayment is the merchant facing aggregate. Its PaymentID is
// independent from the ids of the transactions that back it.
type CardNotPresentPayment struct {
	MerchantID  string          `json:"merchantId"`
	PaymentID   string          `json:"paymentId"`
	Currency    Currency        `json:"currency"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Tip         decimal.Decimal `json:"tip"`
	VAT         decimal.Decimal `json:"vat"`
	Receipt     Receipt         `json:"receipt"`
	Status      PaymentStatus   `json:"status"`
	Card        NotPresentCard  `json:"card"`
	PaymentDate int64           `json:"paymentDate"`
}

// CreatePaymentParams carries the fields of a new payment.
type CreatePaymentParams struct {
	MerchantID      string
	PaymentID       string
	Currency        Currency
	TotalAmount     decimal.Decimal
	Tip             decimal.Decimal
	VAT             decimal.Decimal
	CardMaskedPAN   string
	CardFingerprint string
}

// NewPayment builds a PENDING payment carrying the pending receipt.
func NewPayment(p CreatePaymentParams) *CardNotPresentPayment {
	return &CardNotPresentPayment{
		MerchantID:  p.MerchantID,
		PaymentID:   p.PaymentID,
		Currency:    p.Currency,
		TotalAmount: p.TotalAmount,
		Tip:         p.Tip,
		VAT:         p.VAT,
		Receipt:     PendingReceipt(),
		Status:      PaymentPending,
		Card: NotPresentCard{
			MaskedPAN:   p.CardMaskedPAN,
			Fingerprint: p.CardFingerprint,
		},
		PaymentDate: time.Now().UnixNano(),
	}
}

func (p *CardNotPresentPayment) Approve(code, message, approvalCode string) error {
	if p.Status != PaymentPending {
		return ErrPaymentFinalized
	}
	p.Status = PaymentApproved
	p.Receipt = Receipt{
		ResponseCode:    code,
		ResponseMessage: message,
		ApprovalCode:    approvalCode,
	}
	return nil
}

func (p *CardNotPresentPayment) Reject(code, message string) error {
	if p.Status != PaymentPending {
		return ErrPaymentFinalized
	}
	p.Status = PaymentRejected
	p.Receipt = Receipt{
		ResponseCode:    code,
		ResponseMessage: message,
	}
	return nil
}
