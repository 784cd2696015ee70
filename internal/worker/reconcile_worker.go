package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/checkout_gateway/internal/models"
)

type paymentReconciler interface {
	PendingPayments(ctx context.Context, staleAfter time.Duration, limit int) ([]models.CardNotPresentPayment, error)
	ReconcilePayment(ctx context.Context, payment *models.CardNotPresentPayment) (bool, error)
}

// ReconcileWorker finishes payments left PENDING by requests that died
// between the sale and the payment update.
type ReconcileWorker struct {
	payments   paymentReconciler
	interval   time.Duration
	staleAfter time.Duration // how long a payment may stay pending before it is reconciled
	batchSize  int
}

// NewReconcileWorker constructs a ReconcileWorker.
func NewReconcileWorker(payments paymentReconciler, interval, staleAfter time.Duration, batchSize int) *ReconcileWorker {
	return &ReconcileWorker{
		payments:   payments,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  batchSize,
	}
}

// Start runs the reconciliation loop until context is canceled.
func (w *ReconcileWorker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.interval).
		Dur("stale_after", w.staleAfter).
		Int("batch_size", w.batchSize).
		Msg("Starting payment reconcile worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Payment reconcile worker stopped")
			return
		}
	}
}

// run reconciles one batch and returns how many payments changed.
func (w *ReconcileWorker) run(ctx context.Context) int {
	pending, err := w.payments.PendingPayments(ctx, w.staleAfter, w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list pending payments")
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	log.Info().Int("count", len(pending)).Msg("Reconciling stale pending payments")

	changed := 0
	for i := range pending {
		select {
		case <-ctx.Done():
			return changed
		default:
		}

		ok, err := w.payments.ReconcilePayment(ctx, &pending[i])
		if err != nil {
			log.Error().Err(err).Str("payment_id", pending[i].PaymentID).Msg("Failed to reconcile payment")
			continue
		}
		if ok {
			changed++
		}
	}
	return changed
}
