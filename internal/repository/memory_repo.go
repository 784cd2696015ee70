package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/utils"
)

// MemoryTransactionRepository keeps transactions in a map. It stores copies so
// callers mutating their value never alter the stored record.
type MemoryTransactionRepository struct {
	mu    sync.RWMutex
	items map[string]models.CardNotPresentTransaction
	newID func() string
}

func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{
		items: make(map[string]models.CardNotPresentTransaction),
		newID: hexUUID,
	}
}

// WithIDGenerator replaces the id source, mostly for deterministic tests.
func (r *MemoryTransactionRepository) WithIDGenerator(fn func() string) *MemoryTransactionRepository {
	r.newID = fn
	return r
}

func (r *MemoryTransactionRepository) GenerateID() string {
	return r.newID()
}

func (r *MemoryTransactionRepository) FindByID(ctx context.Context, transactionID string) (*models.CardNotPresentTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	trx, ok := r.items[transactionID]
	if !ok {
		return nil, nil
	}
	return &trx, nil
}

func (r *MemoryTransactionRepository) FindByClientReference(ctx context.Context, clientID, clientReferenceID string) (*models.CardNotPresentTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.CardNotPresentTransaction
	for _, trx := range r.items {
		if trx.ClientID != clientID || trx.ClientReferenceID != clientReferenceID {
			continue
		}
		if latest == nil || trx.TransactionDate > latest.TransactionDate {
			found := trx
			latest = &found
		}
	}
	return latest, nil
}

func (r *MemoryTransactionRepository) Register(ctx context.Context, trx *models.CardNotPresentTransaction) (*models.CardNotPresentTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[trx.TransactionID]; exists {
		return nil, utils.ErrDuplicateTransactionID
	}
	r.items[trx.TransactionID] = *trx
	return trx, nil
}

func (r *MemoryTransactionRepository) Update(ctx context.Context, trx *models.CardNotPresentTransaction) (*models.CardNotPresentTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[trx.TransactionID]
	if !ok || stored.ClientID != trx.ClientID {
		return nil, utils.ErrTransactionNotFound
	}
	stored.Status = trx.Status
	stored.NetworkResponse = trx.NetworkResponse
	r.items[trx.TransactionID] = stored
	return trx, nil
}

// MemoryPaymentRepository is the in-process payment store.
type MemoryPaymentRepository struct {
	mu    sync.RWMutex
	items map[string]models.CardNotPresentPayment
	newID func() string
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		items: make(map[string]models.CardNotPresentPayment),
		newID: hexUUID,
	}
}

// WithIDGenerator replaces the id source, mostly for deterministic tests.
func (r *MemoryPaymentRepository) WithIDGenerator(fn func() string) *MemoryPaymentRepository {
	r.newID = fn
	return r
}

func (r *MemoryPaymentRepository) GenerateID() string {
	return r.newID()
}

func (r *MemoryPaymentRepository) FindByID(ctx context.Context, paymentID string) (*models.CardNotPresentPayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[paymentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *models.CardNotPresentPayment) (*models.CardNotPresentPayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[payment.PaymentID]; exists {
		return nil, utils.ErrDuplicatePaymentID
	}
	r.items[payment.PaymentID] = *payment
	return payment, nil
}

func (r *MemoryPaymentRepository) Update(ctx context.Context, payment *models.CardNotPresentPayment) (*models.CardNotPresentPayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[payment.PaymentID]
	if !ok {
		return nil, utils.ErrPaymentNotFound
	}
	if stored.Status != models.PaymentPending {
		return nil, models.ErrPaymentFinalized
	}
	stored.Status = payment.Status
	stored.Receipt = payment.Receipt
	r.items[payment.PaymentID] = stored
	return payment, nil
}

func (r *MemoryPaymentRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.CardNotPresentPayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	cutoff := olderThan.UnixNano()
	pending := make([]models.CardNotPresentPayment, 0)
	for _, p := range r.items {
		if p.Status == models.PaymentPending && p.PaymentDate < cutoff {
			pending = append(pending, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].PaymentDate < pending[j].PaymentDate
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}
