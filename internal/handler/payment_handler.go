package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/middleware"
	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/service"
	"github.com/GTDGit/checkout_gateway/internal/utils"
)

type paymentService interface {
	ProcessPayment(ctx context.Context, req service.PaymentRequest) (*service.PaymentResponse, error)
	GetPayment(ctx context.Context, merchantID, paymentID string) (*models.CardNotPresentPayment, error)
}

// PaymentHandler handles merchant payment endpoints.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type cardPayload struct {
	CardholderName  string        `json:"cardholderName" binding:"required,max=128"`
	ExpirationMonth int           `json:"expirationMonth" binding:"required,min=1,max=12"`
	ExpirationYear  int           `json:"expirationYear" binding:"required,min=2000"`
	PAN             models.Secret `json:"pan"`
	CVV             models.Secret `json:"cvv"`
}

type createPaymentRequest struct {
	MerchantID  string          `json:"merchantId" binding:"required,max=64"`
	Currency    models.Currency `json:"currency" binding:"required,oneof=EUR USD"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Tip         decimal.Decimal `json:"tip"`
	VAT         decimal.Decimal `json:"vat"`
	Card        cardPayload     `json:"card"`
}

// paymentView is the merchant view of a stored payment.
type paymentView struct {
	PaymentID       string               `json:"paymentId"`
	MerchantID      string               `json:"merchantId"`
	Status          models.PaymentStatus `json:"status"`
	Currency        models.Currency      `json:"currency"`
	TotalAmount     decimal.Decimal      `json:"totalAmount"`
	Tip             decimal.Decimal      `json:"tip"`
	VAT             decimal.Decimal      `json:"vat"`
	ResponseCode    string               `json:"responseCode"`
	ResponseMessage string               `json:"responseMessage"`
	ApprovalCode    string               `json:"approvalCode,omitempty"`
	MaskedPAN       string               `json:"maskedPan"`
	PaymentDate     int64                `json:"paymentDate"`
}

// CreatePayment handles POST /v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.MerchantID != middleware.GetMerchantID(c) {
		utils.Error(c, 403, "MERCHANT_MISMATCH", "Token does not belong to merchantId")
		return
	}

	resp, err := h.payments.ProcessPayment(c.Request.Context(), service.PaymentRequest{
		MerchantID:  req.MerchantID,
		Currency:    req.Currency,
		TotalAmount: req.TotalAmount,
		Tip:         req.Tip,
		VAT:         req.VAT,
		Card: service.CardRequest{
			CardholderName:  req.Card.CardholderName,
			ExpirationMonth: req.Card.ExpirationMonth,
			ExpirationYear:  req.Card.ExpirationYear,
			PAN:             req.Card.PAN,
			CVV:             req.Card.CVV,
		},
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	message := "Payment approved"
	if resp.Status != models.PaymentApproved {
		message = "Payment rejected"
	}
	utils.Success(c, 201, message, resp)
}

// GetPayment handles GET /v1/payments/:paymentId
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	p, err := h.payments.GetPayment(c.Request.Context(), middleware.GetMerchantID(c), c.Param("paymentId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.Success(c, 200, "Payment found", paymentView{
		PaymentID:       p.PaymentID,
		MerchantID:      p.MerchantID,
		Status:          p.Status,
		Currency:        p.Currency,
		TotalAmount:     p.TotalAmount,
		Tip:             p.Tip,
		VAT:             p.VAT,
		ResponseCode:    p.Receipt.ResponseCode,
		ResponseMessage: p.Receipt.ResponseMessage,
		ApprovalCode:    p.Receipt.ApprovalCode,
		MaskedPAN:       p.Card.MaskedPAN,
		PaymentDate:     p.PaymentDate,
	})
}

// handleError maps service errors to HTTP responses. Internal error text is
// logged, never returned.
func (h *PaymentHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidCard):
		utils.Error(c, 400, "INVALID_CARD", "Card data is invalid")
	case errors.Is(err, utils.ErrInvalidAmount):
		utils.Error(c, 400, "INVALID_AMOUNT", "Amounts are invalid")
	case errors.Is(err, utils.ErrInvalidCurrency):
		utils.Error(c, 400, "INVALID_CURRENCY", "Currency is not supported")
	case errors.Is(err, utils.ErrPaymentNotFound):
		utils.Error(c, 404, "PAYMENT_NOT_FOUND", "Payment not found")
	case errors.Is(err, utils.ErrInfrastructure):
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Payment processing failed")
		utils.Error(c, 502, "PROCESSING_ERROR", "Payment could not be processed, please retry later")
	default:
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Unexpected payment error")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}
