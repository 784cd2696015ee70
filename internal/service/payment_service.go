package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/metrics"
	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/repository"
	"github.com/GTDGit/checkout_gateway/internal/utils"
)

// PaymentRequest is a merchant's request to charge a card.
type PaymentRequest struct {
	MerchantID  string
	Currency    models.Currency
	TotalAmount decimal.Decimal
	Tip         decimal.Decimal
	VAT         decimal.Decimal
	Card        CardRequest
}

// PaymentResponse is what the merchant receives. It never carries
// transaction ids.
type PaymentResponse struct {
	PaymentID       string               `json:"paymentId"`
	Status          models.PaymentStatus `json:"status"`
	ResponseCode    string               `json:"responseCode"`
	ResponseMessage string               `json:"responseMessage"`
	ApprovalCode    string               `json:"approvalCode,omitempty"`
}

// CardNotPresentProvider runs sales on behalf of payments.
type CardNotPresentProvider interface {
	Sale(ctx context.Context, clientReferenceID string, req PaymentRequest) (*TransactionResult, error)
	// FindSale returns the latest transaction for a payment, or nil if none was registered.
	FindSale(ctx context.Context, clientReferenceID string) (*models.CardNotPresentTransaction, error)
}

// DefaultCardNotPresentProvider runs sales through the card processing
// service under a fixed client id.
type DefaultCardNotPresentProvider struct {
	clientID     string
	processing   *CardProcessingService
	transactions repository.CardNotPresentTransactionRepository
}

func NewDefaultCardNotPresentProvider(clientID string, processing *CardProcessingService, transactions repository.CardNotPresentTransactionRepository) *DefaultCardNotPresentProvider {
	return &DefaultCardNotPresentProvider{
		clientID:     clientID,
		processing:   processing,
		transactions: transactions,
	}
}

func (p *DefaultCardNotPresentProvider) Sale(ctx context.Context, clientReferenceID string, req PaymentRequest) (*TransactionResult, error) {
	return p.processing.ProcessSale(ctx, TransactionRequest{
		ClientID:          p.clientID,
		ClientReferenceID: clientReferenceID,
		MerchantID:        req.MerchantID,
		Currency:          req.Currency,
		TotalAmount:       req.TotalAmount,
		Tip:               req.Tip,
		VAT:               req.VAT,
		Card:              req.Card,
	})
}

func (p *DefaultCardNotPresentProvider) FindSale(ctx context.Context, clientReferenceID string) (*models.CardNotPresentTransaction, error) {
	return p.transactions.FindByClientReference(ctx, p.clientID, clientReferenceID)
}

// PaymentService is the merchant facing entry point.
type PaymentService struct {
	payments          repository.CardNotPresentPaymentRepository
	provider          CardNotPresentProvider
	fingerprints      *CardFingerprinter
	repositoryTimeout time.Duration
	abandonAfter      time.Duration
	now               func() time.Time
}

// DefaultAbandonAfter is how long a sale may stay unfinished before its
// payment is rejected by reconciliation.
const DefaultAbandonAfter = 10 * time.Minute

func NewPaymentService(
	payments repository.CardNotPresentPaymentRepository,
	provider CardNotPresentProvider,
	fingerprints *CardFingerprinter,
	repositoryTimeout time.Duration,
) *PaymentService {
	return &PaymentService{
		payments:          payments,
		provider:          provider,
		fingerprints:      fingerprints,
		repositoryTimeout: repositoryTimeout,
		abandonAfter:      DefaultAbandonAfter,
		now:               time.Now,
	}
}

// WithAbandonAfter sets how old an unfinished sale must be before
// ReconcilePayment gives up on it. d <= 0 never gives up.
func (s *PaymentService) WithAbandonAfter(d time.Duration) *PaymentService {
	s.abandonAfter = d
	return s
}

// ProcessPayment creates a pending payment, runs the sale and records the
// outcome. Declines are returned as REJECTED payments; an error means the
// payment could not be completed and stays PENDING.
func (s *PaymentService) ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	payment := models.NewPayment(models.CreatePaymentParams{
		MerchantID:      req.MerchantID,
		PaymentID:       s.payments.GenerateID(),
		Currency:        req.Currency,
		TotalAmount:     req.TotalAmount,
		Tip:             req.Tip,
		VAT:             req.VAT,
		CardMaskedPAN:   models.MaskPAN(req.Card.PAN.Reveal()),
		CardFingerprint: s.fingerprints.Fingerprint(req.Card.PAN),
	})

	if err := s.store(ctx, "create payment", func(ctx context.Context) error {
		_, err := s.payments.Create(ctx, payment)
		return err
	}); err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", payment.PaymentID).
		Str("merchant_id", payment.MerchantID).
		Str("masked_pan", payment.Card.MaskedPAN).
		Msg("Payment created")

	result, err := s.provider.Sale(ctx, payment.PaymentID, req)
	if err != nil {
		log.Error().Err(err).Str("payment_id", payment.PaymentID).Msg("Sale failed, payment left pending")
		return nil, err
	}

	if result.Status == models.StatusApproved {
		err = payment.Approve(result.ResponseCode, result.ResponseMessage, result.ApprovalCode)
	} else {
		err = payment.Reject(result.ResponseCode, result.ResponseMessage)
	}
	if err != nil {
		return nil, err
	}

	err = s.store(ctx, "update payment", func(ctx context.Context) error {
		_, err := s.payments.Update(ctx, payment)
		return err
	})
	if errors.Is(err, models.ErrPaymentFinalized) {
		log.Warn().Str("payment_id", payment.PaymentID).Msg("Payment settled by reconciliation first")
		return s.settledResponse(ctx, payment.PaymentID)
	}
	if err != nil {
		return nil, err
	}

	metrics.ObservePayment(string(payment.Status))
	log.Info().
		Str("payment_id", payment.PaymentID).
		Str("status", string(payment.Status)).
		Str("rc", payment.Receipt.ResponseCode).
		Msg("Payment completed")

	return newPaymentResponse(payment), nil
}

// GetPayment returns a payment owned by merchantID.
func (s *PaymentService) GetPayment(ctx context.Context, merchantID, paymentID string) (*models.CardNotPresentPayment, error) {
	var payment *models.CardNotPresentPayment
	if err := s.store(ctx, "find payment", func(ctx context.Context) error {
		var err error
		payment, err = s.payments.FindByID(ctx, paymentID)
		return err
	}); err != nil {
		return nil, err
	}
	if payment == nil || payment.MerchantID != merchantID {
		return nil, utils.ErrPaymentNotFound
	}
	return payment, nil
}

const notProcessedMessage = "Transaction Not Processed"

// ReconcilePayment finishes a PENDING payment left behind by an interrupted
// request. It applies the final transaction found for the payment, or rejects
// the payment when no transaction was ever registered or the sale has been
// unfinished for longer than the abandon threshold. It reports whether the
// payment changed.
func (s *PaymentService) ReconcilePayment(ctx context.Context, payment *models.CardNotPresentPayment) (bool, error) {
	if payment.Status != models.PaymentPending {
		return false, nil
	}

	var trx *models.CardNotPresentTransaction
	if err := s.store(ctx, "find sale", func(ctx context.Context) error {
		var err error
		trx, err = s.provider.FindSale(ctx, payment.PaymentID)
		return err
	}); err != nil {
		return false, err
	}

	var err error
	switch {
	case trx == nil:
		err = payment.Reject(models.PendingResponseCode, notProcessedMessage)
	case !trx.IsFinal():
		if !s.abandoned(trx) {
			log.Debug().Str("payment_id", payment.PaymentID).Msg("Sale still in progress, skipping")
			return false, nil
		}
		log.Warn().
			Str("payment_id", payment.PaymentID).
			Str("status", string(trx.Status)).
			Msg("Sale never finished, rejecting payment")
		err = payment.Reject(models.PendingResponseCode, notProcessedMessage)
	case trx.Status == models.StatusApproved:
		nr := trx.NetworkResponse
		err = payment.Approve(nr.ResponseCode, nr.ResponseMessage, nr.ApprovalCode)
	default:
		nr := trx.NetworkResponse
		err = payment.Reject(nr.ResponseCode, nr.ResponseMessage)
	}
	if err != nil {
		return false, err
	}

	err = s.store(ctx, "update payment", func(ctx context.Context) error {
		_, err := s.payments.Update(ctx, payment)
		return err
	})
	if errors.Is(err, models.ErrPaymentFinalized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	metrics.ObservePayment(string(payment.Status))
	log.Info().
		Str("payment_id", payment.PaymentID).
		Str("status", string(payment.Status)).
		Msg("Payment reconciled")
	return true, nil
}

func (s *PaymentService) abandoned(trx *models.CardNotPresentTransaction) bool {
	if s.abandonAfter <= 0 {
		return false
	}
	return s.now().Sub(time.Unix(0, trx.TransactionDate)) > s.abandonAfter
}

// settledResponse reads back a payment another writer already settled.
func (s *PaymentService) settledResponse(ctx context.Context, paymentID string) (*PaymentResponse, error) {
	var stored *models.CardNotPresentPayment
	if err := s.store(ctx, "find payment", func(ctx context.Context) error {
		var err error
		stored, err = s.payments.FindByID(ctx, paymentID)
		return err
	}); err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, &InfrastructureError{Op: "find payment", Err: utils.ErrPaymentNotFound}
	}
	return newPaymentResponse(stored), nil
}

// PendingPayments lists payments that stayed PENDING for longer than staleAfter.
func (s *PaymentService) PendingPayments(ctx context.Context, staleAfter time.Duration, limit int) ([]models.CardNotPresentPayment, error) {
	var pending []models.CardNotPresentPayment
	err := s.store(ctx, "list pending payments", func(ctx context.Context) error {
		var err error
		pending, err = s.payments.ListPending(ctx, s.now().Add(-staleAfter), limit)
		return err
	})
	return pending, err
}

var cvvLengths = map[int]bool{3: true, 4: true}

func (s *PaymentService) validate(req PaymentRequest) error {
	if !req.Currency.IsSupported() {
		return utils.ErrInvalidCurrency
	}
	if !req.TotalAmount.IsPositive() || req.Tip.IsNegative() || req.VAT.IsNegative() {
		return utils.ErrInvalidAmount
	}
	if req.Tip.Add(req.VAT).GreaterThan(req.TotalAmount) {
		return utils.ErrInvalidAmount
	}

	card := req.Card
	if !models.IsValidPAN(card.PAN.Reveal()) {
		return utils.ErrInvalidCard
	}
	cvv := card.CVV.Reveal()
	if !cvvLengths[len(cvv)] || !isDigits(cvv) {
		return utils.ErrInvalidCard
	}
	if card.ExpirationMonth < 1 || card.ExpirationMonth > 12 {
		return utils.ErrInvalidCard
	}
	now := s.now()
	if card.ExpirationYear < now.Year() || (card.ExpirationYear == now.Year() && card.ExpirationMonth < int(now.Month())) {
		return utils.ErrInvalidCard
	}
	return nil
}

func (s *PaymentService) store(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := withTimeout(ctx, s.repositoryTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		if errors.Is(err, models.ErrPaymentFinalized) {
			return err
		}
		log.Error().Err(err).Str("op", op).Msg("Payment store failed")
		var infra *InfrastructureError
		if errors.As(err, &infra) {
			return err
		}
		return &InfrastructureError{Op: op, Err: err}
	}
	return nil
}

func newPaymentResponse(p *models.CardNotPresentPayment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:       p.PaymentID,
		Status:          p.Status,
		ResponseCode:    p.Receipt.ResponseCode,
		ResponseMessage: p.Receipt.ResponseMessage,
		ApprovalCode:    p.Receipt.ApprovalCode,
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
