package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/models"
)

// AcquiringProcessor sends a capture to one acquiring network. Declines are
// results; an error means the network could not be reached or answered
// garbage.
type AcquiringProcessor interface {
	Network() models.AcquiringNetwork
	Capture(ctx context.Context, msg CaptureMessage) (FinancialMessageResult, error)
}

// CaptureMessage is built for each attempt and never persisted. PAN and CVV
// stay wrapped until a processor puts them on the wire.
type CaptureMessage struct {
	MerchantID      string
	Currency        models.Currency
	TotalAmount     decimal.Decimal
	Tip             decimal.Decimal
	Taxes           []models.Tax
	CardholderName  string
	ExpirationMonth int
	ExpirationYear  int
	PAN             models.Secret
	CVV             models.Secret
}

// FinancialMessageResult is either ApprovedCapture or RejectedCapture.
type FinancialMessageResult interface {
	Result() CaptureResult
	financialMessageResult()
}

// CaptureResult holds the fields common to every capture outcome.
type CaptureResult struct {
	Network         models.AcquiringNetwork
	ResponseCode    string
	ResponseMessage string
	InterchangeRate decimal.Decimal
}

func (r CaptureResult) Result() CaptureResult { return r }

type ApprovedCapture struct {
	CaptureResult
	ApprovalCode string
}

type RejectedCapture struct {
	CaptureResult
	IsRetryable bool
}

func (ApprovedCapture) financialMessageResult() {}
func (RejectedCapture) financialMessageResult() {}

const (
	noProcessorCode    = models.PendingResponseCode
	noProcessorMessage = "No Acquiring Processor Available"
)

// NoProcessorAvailable answers once routing has no candidate left. It always
// rejects without retry. Network and interchange rate carry over from the
// last real result when there is one.
type NoProcessorAvailable struct {
	Last FinancialMessageResult
}

func (p NoProcessorAvailable) Network() models.AcquiringNetwork {
	if p.Last != nil {
		return p.Last.Result().Network
	}
	return models.NetworkCKO
}

func (p NoProcessorAvailable) Capture(_ context.Context, _ CaptureMessage) (FinancialMessageResult, error) {
	rate := decimal.Zero
	if p.Last != nil {
		rate = p.Last.Result().InterchangeRate
	}
	return RejectedCapture{
		CaptureResult: CaptureResult{
			Network:         p.Network(),
			ResponseCode:    noProcessorCode,
			ResponseMessage: noProcessorMessage,
			InterchangeRate: rate,
		},
		IsRetryable: false,
	}, nil
}
