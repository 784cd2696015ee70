package cko

import "github.com/shopspring/decimal"

// CaptureRequest is the body of POST /captures.
type CaptureRequest struct {
	MerchantID string          `json:"merchant_id"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Tip        decimal.Decimal `json:"tip"`
	Taxes      []Tax           `json:"taxes"`
	Card       Card            `json:"card"`
}

type Tax struct {
	Type  string          `json:"type"`
	Base  decimal.Decimal `json:"base"`
	Value decimal.Decimal `json:"value"`
}

// Card carries the clear card data. It must never be logged.
type Card struct {
	Number      string `json:"number"`
	CVV         string `json:"cvv"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	Name        string `json:"name"`
}

// CaptureResponse is returned for both approvals and declines.
type CaptureResponse struct {
	ResponseCode    string          `json:"response_code"`
	ResponseMessage string          `json:"response_message"`
	ApprovalCode    string          `json:"approval_code,omitempty"`
	InterchangeRate decimal.Decimal `json:"interchange_rate"`
}
