package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/metrics"
	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/repository"
	"github.com/GTDGit/checkout_gateway/internal/utils"
)

// InfrastructureError reports that a sale could not be completed because an
// acquirer or the transaction store failed. It matches utils.ErrInfrastructure.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() []error {
	return []error{utils.ErrInfrastructure, e.Err}
}

// CardRequest is the card as received from the merchant.
type CardRequest struct {
	CardholderName  string
	ExpirationMonth int
	ExpirationYear  int
	PAN             models.Secret
	CVV             models.Secret
}

// TransactionRequest asks for one capture sale.
type TransactionRequest struct {
	ClientID          string
	ClientReferenceID string
	MerchantID        string
	Currency          models.Currency
	TotalAmount       decimal.Decimal
	Tip               decimal.Decimal
	VAT               decimal.Decimal
	Card              CardRequest
}

// TransactionResult is the final outcome of a sale. Attempts counts the
// retryable rejections that preceded the final answer.
type TransactionResult struct {
	TransactionID   string
	Network         models.AcquiringNetwork
	ResponseCode    string
	ResponseMessage string
	ApprovalCode    string
	Status          models.TransactionStatus
	Attempts        int
}

// CardProcessingConfig bounds the retry loop. Zero values disable the bound.
type CardProcessingConfig struct {
	MaxAttempts       int
	CaptureTimeout    time.Duration
	RepositoryTimeout time.Duration
}

// CardProcessingService drives a sale across the routed acquiring processors.
type CardProcessingService struct {
	accountRanges AccountRangeProvider
	router        TransactionRouter
	repo          repository.CardNotPresentTransactionRepository
	cfg           CardProcessingConfig
}

func NewCardProcessingService(
	accountRanges AccountRangeProvider,
	router TransactionRouter,
	repo repository.CardNotPresentTransactionRepository,
	cfg CardProcessingConfig,
) *CardProcessingService {
	return &CardProcessingService{
		accountRanges: accountRanges,
		router:        router,
		repo:          repo,
		cfg:           cfg,
	}
}

// ProcessSale registers a transaction and captures it on the first router
// candidate. Retryable rejections move on to the next candidate; approvals and
// final rejections end the sale. When candidates run out the sale is rejected
// with the no-processor response. Acquirer or store failures abort the sale
// and leave the transaction in its last persisted state.
func (s *CardProcessingService) ProcessSale(ctx context.Context, req TransactionRequest) (*TransactionResult, error) {
	pan := req.Card.PAN.Reveal()
	info := s.accountRanges.GetPANInfo(ctx, req.Card.PAN)

	next, stop := iter.Pull(s.router.Candidates(TransactionPackage{Franchise: info.Franchise}))
	defer stop()

	trx := models.NewCaptureTransaction(models.CaptureTransactionParams{
		TransactionID:     s.repo.GenerateID(),
		ClientID:          req.ClientID,
		ClientReferenceID: req.ClientReferenceID,
		MerchantID:        req.MerchantID,
		Currency:          req.Currency,
		TotalAmount:       req.TotalAmount,
		Tip:               req.Tip,
		VAT:               req.VAT,
		Card: models.PCIComplianceCard{
			CardholderName:  req.Card.CardholderName,
			Franchise:       info.Franchise,
			Category:        info.Category,
			Country:         info.Country,
			MaskedPAN:       models.MaskPAN(pan),
			ExpirationMonth: req.Card.ExpirationMonth,
			ExpirationYear:  req.Card.ExpirationYear,
		},
	})

	if err := s.store(ctx, "register transaction", func(ctx context.Context) error {
		_, err := s.repo.Register(ctx, trx)
		return err
	}); err != nil {
		return nil, err
	}

	logger := log.With().
		Str("transaction_id", trx.TransactionID).
		Str("client_reference_id", trx.ClientReferenceID).
		Str("franchise", string(info.Franchise)).
		Str("masked_pan", trx.CardData.MaskedPAN).
		Logger()

	msg := CaptureMessage{
		MerchantID:      req.MerchantID,
		Currency:        req.Currency,
		TotalAmount:     req.TotalAmount,
		Tip:             req.Tip,
		Taxes:           models.VATBreakdown(req.TotalAmount, req.Tip, req.VAT),
		CardholderName:  req.Card.CardholderName,
		ExpirationMonth: req.Card.ExpirationMonth,
		ExpirationYear:  req.Card.ExpirationYear,
		PAN:             req.Card.PAN,
		CVV:             req.Card.CVV,
	}

	var previous FinancialMessageResult
	attempt := 0
	for {
		processor := s.nextProcessor(next, attempt, previous)
		_, exhausted := processor.(NoProcessorAvailable)

		logger.Info().
			Str("network", string(processor.Network())).
			Int("attempt", attempt).
			Bool("exhausted", exhausted).
			Msg("Trying acquiring processor")

		result, err := s.capture(ctx, processor, msg)
		if err != nil {
			if !exhausted {
				metrics.ObserveCapture(string(processor.Network()), metrics.OutcomeError)
			}
			logger.Error().Err(err).
				Str("network", string(processor.Network())).
				Int("attempt", attempt).
				Msg("Capture failed")
			return nil, &InfrastructureError{Op: "capture", Err: err}
		}

		switch r := result.(type) {
		case ApprovedCapture:
			if !exhausted {
				metrics.ObserveCapture(string(r.Network), metrics.OutcomeApproved)
			}
			if err := trx.Approve(r.Network, r.ResponseCode, r.ResponseMessage, attempt, r.ApprovalCode); err != nil {
				return nil, fmt.Errorf("apply approval: %w", err)
			}
			if err := s.update(ctx, trx); err != nil {
				return nil, err
			}
			logger.Info().
				Str("network", string(r.Network)).
				Int("attempt", attempt).
				Msg("Transaction approved")
			return newTransactionResult(trx), nil

		case RejectedCapture:
			if !exhausted {
				outcome := metrics.OutcomeRejected
				if r.IsRetryable {
					outcome = metrics.OutcomeRetryable
				}
				metrics.ObserveCapture(string(r.Network), outcome)
			}
			if err := trx.Reject(r.Network, r.ResponseCode, r.ResponseMessage, attempt, r.IsRetryable); err != nil {
				return nil, fmt.Errorf("apply rejection: %w", err)
			}
			if err := s.update(ctx, trx); err != nil {
				return nil, err
			}
			if r.IsRetryable {
				logger.Warn().
					Str("network", string(r.Network)).
					Str("rc", r.ResponseCode).
					Int("attempt", attempt).
					Msg("Retryable rejection, trying next processor")
				previous = r
				attempt++
				continue
			}
			logger.Info().
				Str("network", string(r.Network)).
				Str("rc", r.ResponseCode).
				Int("attempt", attempt).
				Msg("Transaction rejected")
			return newTransactionResult(trx), nil

		default:
			return nil, &InfrastructureError{Op: "capture", Err: utils.ErrUnexpectedCaptureResult}
		}
	}
}

// nextProcessor pulls the next routed candidate, or the no-processor sentinel
// when the router is exhausted or the attempt cap is reached.
func (s *CardProcessingService) nextProcessor(next func() (AcquiringProcessor, bool), attempt int, previous FinancialMessageResult) AcquiringProcessor {
	if s.cfg.MaxAttempts > 0 && attempt >= s.cfg.MaxAttempts {
		return NoProcessorAvailable{Last: previous}
	}
	if p, ok := next(); ok {
		return p
	}
	return NoProcessorAvailable{Last: previous}
}

func (s *CardProcessingService) capture(ctx context.Context, processor AcquiringProcessor, msg CaptureMessage) (FinancialMessageResult, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.CaptureTimeout)
	defer cancel()

	result, err := processor.Capture(ctx, msg)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, utils.ErrUnexpectedCaptureResult
	}
	return result, nil
}

func (s *CardProcessingService) update(ctx context.Context, trx *models.CardNotPresentTransaction) error {
	return s.store(ctx, "update transaction", func(ctx context.Context) error {
		_, err := s.repo.Update(ctx, trx)
		return err
	})
}

// store runs a repository call under the repository timeout.
func (s *CardProcessingService) store(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := withTimeout(ctx, s.cfg.RepositoryTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("op", op).Msg("Transaction store failed")
		return &InfrastructureError{Op: op, Err: err}
	}
	return nil
}

func newTransactionResult(trx *models.CardNotPresentTransaction) *TransactionResult {
	nr := trx.NetworkResponse
	return &TransactionResult{
		TransactionID:   trx.TransactionID,
		Network:         nr.Network,
		ResponseCode:    nr.ResponseCode,
		ResponseMessage: nr.ResponseMessage,
		ApprovalCode:    nr.ApprovalCode,
		Status:          trx.Status,
		Attempts:        nr.Attempt,
	}
}

// withTimeout derives a context bounded by d; d <= 0 means no bound.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
