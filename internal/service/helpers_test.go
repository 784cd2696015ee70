package service

import (
	"context"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/repository"
)

// funcProcessor is an AcquiringProcessor backed by a function.
type funcProcessor struct {
	network models.AcquiringNetwork
	fn      func(ctx context.Context, msg CaptureMessage) (FinancialMessageResult, error)
	calls   int
}

func (p *funcProcessor) Network() models.AcquiringNetwork { return p.network }

func (p *funcProcessor) Capture(ctx context.Context, msg CaptureMessage) (FinancialMessageResult, error) {
	p.calls++
	return p.fn(ctx, msg)
}

var rate010 = decimal.RequireFromString("0.10")

func approving(network models.AcquiringNetwork) *funcProcessor {
	return &funcProcessor{network: network, fn: func(context.Context, CaptureMessage) (FinancialMessageResult, error) {
		return ApprovedCapture{
			CaptureResult: CaptureResult{Network: network, ResponseCode: "00", ResponseMessage: "Approved or completed successfully", InterchangeRate: rate010},
			ApprovalCode:  "ABCDEFG1234",
		}, nil
	}}
}

func rejecting(network models.AcquiringNetwork, code string, retryable bool) *funcProcessor {
	return &funcProcessor{network: network, fn: func(context.Context, CaptureMessage) (FinancialMessageResult, error) {
		return RejectedCapture{
			CaptureResult: CaptureResult{Network: network, ResponseCode: code, ResponseMessage: "declined " + code, InterchangeRate: rate010},
			IsRetryable:   retryable,
		}, nil
	}}
}

func failing(network models.AcquiringNetwork, err error) *funcProcessor {
	return &funcProcessor{network: network, fn: func(context.Context, CaptureMessage) (FinancialMessageResult, error) {
		return nil, err
	}}
}

// sliceRouter yields a fixed list of processors and counts how many were pulled.
type sliceRouter struct {
	processors []AcquiringProcessor
	pulled     int
}

func (r *sliceRouter) Candidates(TransactionPackage) iter.Seq[AcquiringProcessor] {
	return func(yield func(AcquiringProcessor) bool) {
		for _, p := range r.processors {
			r.pulled++
			if !yield(p) {
				return
			}
		}
	}
}

func routerOf(processors ...*funcProcessor) *sliceRouter {
	r := &sliceRouter{}
	for _, p := range processors {
		r.processors = append(r.processors, p)
	}
	return r
}

// faultyTransactionRepo injects storage faults over the memory repository.
type faultyTransactionRepo struct {
	*repository.MemoryTransactionRepository
	registerErr error
	updateErr   error
}

func (r *faultyTransactionRepo) Register(ctx context.Context, trx *models.CardNotPresentTransaction) (*models.CardNotPresentTransaction, error) {
	if r.registerErr != nil {
		return nil, r.registerErr
	}
	return r.MemoryTransactionRepository.Register(ctx, trx)
}

func (r *faultyTransactionRepo) Update(ctx context.Context, trx *models.CardNotPresentTransaction) (*models.CardNotPresentTransaction, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	return r.MemoryTransactionRepository.Update(ctx, trx)
}

func fixedIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func futureYear() int {
	return time.Now().Year() + 3
}

func saleRequest(pan string) TransactionRequest {
	return TransactionRequest{
		ClientID:          "CHECKOUT_GW",
		ClientReferenceID: "pay-1",
		MerchantID:        "merchant-1",
		Currency:          models.CurrencyEUR,
		TotalAmount:       decimal.RequireFromString("25.00"),
		Tip:               decimal.RequireFromString("1.00"),
		VAT:               decimal.RequireFromString("4.00"),
		Card: CardRequest{
			CardholderName:  "Jane Doe",
			ExpirationMonth: 12,
			ExpirationYear:  futureYear(),
			PAN:             models.NewSecret(pan),
			CVV:             models.NewSecret("123"),
		},
	}
}

func defaultAccountRanges() AccountRangeProvider {
	return NewStaticAccountRangeProvider(DefaultAccountRanges())
}
