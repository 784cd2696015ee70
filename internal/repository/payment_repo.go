package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/utils"
)

const paymentColumns = `
    payment_id, merchant_id, currency, total_amount, tip, vat,
    status, response_code, response_message, approval_code,
    card_masked_pan, card_fingerprint, payment_date`

type paymentRow struct {
	PaymentID       string          `db:"payment_id"`
	MerchantID      string          `db:"merchant_id"`
	Currency        string          `db:"currency"`
	TotalAmount     decimal.Decimal `db:"total_amount"`
	Tip             decimal.Decimal `db:"tip"`
	VAT             decimal.Decimal `db:"vat"`
	Status          string          `db:"status"`
	ResponseCode    string          `db:"response_code"`
	ResponseMessage string          `db:"response_message"`
	ApprovalCode    string          `db:"approval_code"`
	CardMaskedPAN   string          `db:"card_masked_pan"`
	CardFingerprint string          `db:"card_fingerprint"`
	PaymentDate     int64           `db:"payment_date"`
}

func newPaymentRow(p *models.CardNotPresentPayment) paymentRow {
	return paymentRow{
		PaymentID:       p.PaymentID,
		MerchantID:      p.MerchantID,
		Currency:        string(p.Currency),
		TotalAmount:     p.TotalAmount,
		Tip:             p.Tip,
		VAT:             p.VAT,
		Status:          string(p.Status),
		ResponseCode:    p.Receipt.ResponseCode,
		ResponseMessage: p.Receipt.ResponseMessage,
		ApprovalCode:    p.Receipt.ApprovalCode,
		CardMaskedPAN:   p.Card.MaskedPAN,
		CardFingerprint: p.Card.Fingerprint,
		PaymentDate:     p.PaymentDate,
	}
}

func (r paymentRow) toModel() *models.CardNotPresentPayment {
	return &models.CardNotPresentPayment{
		MerchantID:  r.MerchantID,
		PaymentID:   r.PaymentID,
		Currency:    models.Currency(r.Currency),
		TotalAmount: r.TotalAmount,
		Tip:         r.Tip,
		VAT:         r.VAT,
		Receipt: models.Receipt{
			ResponseCode:    r.ResponseCode,
			ResponseMessage: r.ResponseMessage,
			ApprovalCode:    r.ApprovalCode,
		},
		Status: models.PaymentStatus(r.Status),
		Card: models.NotPresentCard{
			MaskedPAN:   r.CardMaskedPAN,
			Fingerprint: r.CardFingerprint,
		},
		PaymentDate: r.PaymentDate,
	}
}

// PaymentRepository handles data access for merchant payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GenerateID() string {
	return hexUUID()
}

// FindByID returns the payment with paymentID, or nil if none exists.
func (r *PaymentRepository) FindByID(ctx context.Context, paymentID string) (*models.CardNotPresentPayment, error) {
	const q = `SELECT` + paymentColumns + ` FROM payments WHERE payment_id = $1`

	var row paymentRow
	if err := r.db.GetContext(ctx, &row, q, paymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

// Create inserts a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.CardNotPresentPayment) (*models.CardNotPresentPayment, error) {
	const q = `
        INSERT INTO payments (` + paymentColumns + `
        ) VALUES (
            :payment_id, :merchant_id, :currency, :total_amount, :tip, :vat,
            :status, :response_code, :response_message, :approval_code,
            :card_masked_pan, :card_fingerprint, :payment_date
        )`

	if _, err := r.db.NamedExecContext(ctx, q, newPaymentRow(payment)); err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ErrDuplicatePaymentID
		}
		return nil, err
	}
	return payment, nil
}

// Update settles a PENDING payment with its status and receipt. A payment
// that is no longer pending is left untouched and ErrPaymentFinalized is
// returned.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.CardNotPresentPayment) (*models.CardNotPresentPayment, error) {
	const q = `
        UPDATE payments SET
            status = $2,
            response_code = $3,
            response_message = $4,
            approval_code = $5,
            updated_at = NOW()
        WHERE payment_id = $1 AND status = $6`

	res, err := r.db.ExecContext(ctx, q,
		payment.PaymentID,
		payment.Status,
		payment.Receipt.ResponseCode,
		payment.Receipt.ResponseMessage,
		payment.Receipt.ApprovalCode,
		models.PaymentPending,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return payment, nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM payments WHERE payment_id = $1)`, payment.PaymentID); err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrPaymentFinalized
	}
	return nil, utils.ErrPaymentNotFound
}

// ListPending returns pending payments created before olderThan, oldest first.
func (r *PaymentRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.CardNotPresentPayment, error) {
	const q = `SELECT` + paymentColumns + `
        FROM payments
        WHERE status = $1 AND payment_date < $2
        ORDER BY payment_date ASC
        LIMIT $3`

	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, q, models.PaymentPending, olderThan.UnixNano(), limit); err != nil {
		return nil, err
	}

	payments := make([]models.CardNotPresentPayment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, *row.toModel())
	}
	return payments, nil
}
