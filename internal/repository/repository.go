package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GTDGit/checkout_gateway/internal/models"
)

// CardNotPresentTransactionRepository stores the transactions driven by the
// card processing service. Implementations must be safe for concurrent use.
type CardNotPresentTransactionRepository interface {
	// GenerateID returns a new globally unique transaction id.
	GenerateID() string
	// FindByID returns nil without error when no transaction matches.
	FindByID(ctx context.Context, transactionID string) (*models.CardNotPresentTransaction, error)
	// FindByClientReference returns the latest transaction registered for a
	// client reference, or nil if there is none.
	FindByClientReference(ctx context.Context, clientID, clientReferenceID string) (*models.CardNotPresentTransaction, error)
	// Register inserts a new transaction; it fails with utils.ErrDuplicateTransactionID on id collision.
	Register(ctx context.Context, trx *models.CardNotPresentTransaction) (*models.CardNotPresentTransaction, error)
	// Update overwrites status and network response of the row keyed by
	// (client_id, transaction_id); it fails with utils.ErrTransactionNotFound if missing.
	Update(ctx context.Context, trx *models.CardNotPresentTransaction) (*models.CardNotPresentTransaction, error)
}

// CardNotPresentPaymentRepository stores merchant payments.
type CardNotPresentPaymentRepository interface {
	GenerateID() string
	// FindByID returns nil without error when no payment matches.
	FindByID(ctx context.Context, paymentID string) (*models.CardNotPresentPayment, error)
	Create(ctx context.Context, payment *models.CardNotPresentPayment) (*models.CardNotPresentPayment, error)
	Update(ctx context.Context, payment *models.CardNotPresentPayment) (*models.CardNotPresentPayment, error)
	// ListPending returns up to limit PENDING payments created before olderThan, oldest first.
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.CardNotPresentPayment, error)
}

// hexUUID returns a random 128-bit identifier as 32 hex characters.
func hexUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
