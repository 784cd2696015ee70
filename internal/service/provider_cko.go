package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/pkg/cko"
)

// CKOProviderClient wraps the CKO HTTP client as an AcquiringProcessor.
type CKOProviderClient struct {
	client *cko.Client
}

func NewCKOProviderClient(client *cko.Client) *CKOProviderClient {
	return &CKOProviderClient{client: client}
}

func (c *CKOProviderClient) Network() models.AcquiringNetwork {
	return models.NetworkCKO
}

// Capture sends msg to CKO and classifies the RC.
func (c *CKOProviderClient) Capture(ctx context.Context, msg CaptureMessage) (FinancialMessageResult, error) {
	req := &cko.CaptureRequest{
		MerchantID: msg.MerchantID,
		Currency:   string(msg.Currency),
		Amount:     msg.TotalAmount,
		Tip:        msg.Tip,
		Taxes:      make([]cko.Tax, 0, len(msg.Taxes)),
		Card: cko.Card{
			Number:      msg.PAN.Reveal(),
			CVV:         msg.CVV.Reveal(),
			ExpiryMonth: msg.ExpirationMonth,
			ExpiryYear:  msg.ExpirationYear,
			Name:        msg.CardholderName,
		},
	}
	for _, t := range msg.Taxes {
		req.Taxes = append(req.Taxes, cko.Tax{Type: string(t.Type), Base: t.Base, Value: t.Value})
	}

	start := time.Now()
	resp, err := c.client.Capture(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cko capture: %w", err)
	}

	log.Debug().
		Str("rc", resp.ResponseCode).
		Dur("response_time", time.Since(start)).
		Msg("CKO capture answered")

	return c.convertResponse(resp), nil
}

func (c *CKOProviderClient) convertResponse(resp *cko.CaptureResponse) FinancialMessageResult {
	result := CaptureResult{
		Network:         models.NetworkCKO,
		ResponseCode:    resp.ResponseCode,
		ResponseMessage: resp.ResponseMessage,
		InterchangeRate: resp.InterchangeRate,
	}
	if cko.IsApproved(resp.ResponseCode) {
		return ApprovedCapture{CaptureResult: result, ApprovalCode: resp.ApprovalCode}
	}
	return RejectedCapture{CaptureResult: result, IsRetryable: cko.IsRetryable(resp.ResponseCode)}
}
