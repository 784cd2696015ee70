package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/utils"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const transactionColumns = `
    transaction_id, client_id, client_reference_id, merchant_id, transaction_type,
    currency, total_amount, tip, vat,
    cardholder_name, card_franchise, card_category, card_country, card_masked_pan,
    card_expiration_month, card_expiration_year,
    status, response_kind, network, response_code, response_message,
    approval_code, attempt, was_retryable, transaction_date`

// transactionRow is the flattened card_transactions row.
type transactionRow struct {
	TransactionID       string          `db:"transaction_id"`
	ClientID            string          `db:"client_id"`
	ClientReferenceID   string          `db:"client_reference_id"`
	MerchantID          string          `db:"merchant_id"`
	TransactionType     string          `db:"transaction_type"`
	Currency            string          `db:"currency"`
	TotalAmount         decimal.Decimal `db:"total_amount"`
	Tip                 decimal.Decimal `db:"tip"`
	VAT                 decimal.Decimal `db:"vat"`
	CardholderName      string          `db:"cardholder_name"`
	CardFranchise       string          `db:"card_franchise"`
	CardCategory        string          `db:"card_category"`
	CardCountry         string          `db:"card_country"`
	CardMaskedPAN       string          `db:"card_masked_pan"`
	CardExpirationMonth int             `db:"card_expiration_month"`
	CardExpirationYear  int             `db:"card_expiration_year"`
	Status              string          `db:"status"`
	ResponseKind        string          `db:"response_kind"`
	Network             string          `db:"network"`
	ResponseCode        string          `db:"response_code"`
	ResponseMessage     string          `db:"response_message"`
	ApprovalCode        string          `db:"approval_code"`
	Attempt             int             `db:"attempt"`
	WasRetryable        bool            `db:"was_retryable"`
	TransactionDate     int64           `db:"transaction_date"`
}

func newTransactionRow(t *models.CardNotPresentTransaction) transactionRow {
	return transactionRow{
		TransactionID:       t.TransactionID,
		ClientID:            t.ClientID,
		ClientReferenceID:   t.ClientReferenceID,
		MerchantID:          t.MerchantID,
		TransactionType:     string(t.TransactionType),
		Currency:            string(t.Currency),
		TotalAmount:         t.TotalAmount,
		Tip:                 t.Tip,
		VAT:                 t.VAT,
		CardholderName:      t.CardData.CardholderName,
		CardFranchise:       string(t.CardData.Franchise),
		CardCategory:        t.CardData.Category,
		CardCountry:         t.CardData.Country,
		CardMaskedPAN:       t.CardData.MaskedPAN,
		CardExpirationMonth: t.CardData.ExpirationMonth,
		CardExpirationYear:  t.CardData.ExpirationYear,
		Status:              string(t.Status),
		ResponseKind:        string(t.NetworkResponse.Kind),
		Network:             string(t.NetworkResponse.Network),
		ResponseCode:        t.NetworkResponse.ResponseCode,
		ResponseMessage:     t.NetworkResponse.ResponseMessage,
		ApprovalCode:        t.NetworkResponse.ApprovalCode,
		Attempt:             t.NetworkResponse.Attempt,
		WasRetryable:        t.NetworkResponse.WasRetryable,
		TransactionDate:     t.TransactionDate,
	}
}

func (r transactionRow) toModel() *models.CardNotPresentTransaction {
	return &models.CardNotPresentTransaction{
		TransactionID:     r.TransactionID,
		ClientID:          r.ClientID,
		ClientReferenceID: r.ClientReferenceID,
		MerchantID:        r.MerchantID,
		TransactionType:   models.TransactionType(r.TransactionType),
		Currency:          models.Currency(r.Currency),
		TotalAmount:       r.TotalAmount,
		Tip:               r.Tip,
		VAT:               r.VAT,
		CardData: models.PCIComplianceCard{
			CardholderName:  r.CardholderName,
			Franchise:       models.Franchise(r.CardFranchise),
			Category:        r.CardCategory,
			Country:         r.CardCountry,
			MaskedPAN:       r.CardMaskedPAN,
			ExpirationMonth: r.CardExpirationMonth,
			ExpirationYear:  r.CardExpirationYear,
		},
		Status: models.TransactionStatus(r.Status),
		NetworkResponse: models.NetworkResponse{
			Kind:            models.NetworkResponseKind(r.ResponseKind),
			Network:         models.AcquiringNetwork(r.Network),
			ResponseCode:    r.ResponseCode,
			ResponseMessage: r.ResponseMessage,
			ApprovalCode:    r.ApprovalCode,
			Attempt:         r.Attempt,
			WasRetryable:    r.WasRetryable,
		},
		TransactionDate: r.TransactionDate,
	}
}

// TransactionRepository handles data access for card transactions in PostgreSQL.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GenerateID returns a random 128-bit hex id.
func (r *TransactionRepository) GenerateID() string {
	return hexUUID()
}

// FindByID returns the transaction with transactionID, or nil if none exists.
func (r *TransactionRepository) FindByID(ctx context.Context, transactionID string) (*models.CardNotPresentTransaction, error) {
	const q = `SELECT` + transactionColumns + `
        FROM card_transactions WHERE transaction_id = $1 LIMIT 1`

	var row transactionRow
	if err := r.db.GetContext(ctx, &row, q, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

// FindByClientReference returns the most recent transaction registered for a client reference.
func (r *TransactionRepository) FindByClientReference(ctx context.Context, clientID, clientReferenceID string) (*models.CardNotPresentTransaction, error) {
	const q = `SELECT` + transactionColumns + `
        FROM card_transactions
        WHERE client_id = $1 AND client_reference_id = $2
        ORDER BY transaction_date DESC
        LIMIT 1`

	var row transactionRow
	if err := r.db.GetContext(ctx, &row, q, clientID, clientReferenceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

// Register inserts a new transaction row.
func (r *TransactionRepository) Register(ctx context.Context, trx *models.CardNotPresentTransaction) (*models.CardNotPresentTransaction, error) {
	const q = `
        INSERT INTO card_transactions (` + transactionColumns + `
        ) VALUES (
            :transaction_id, :client_id, :client_reference_id, :merchant_id, :transaction_type,
            :currency, :total_amount, :tip, :vat,
            :cardholder_name, :card_franchise, :card_category, :card_country, :card_masked_pan,
            :card_expiration_month, :card_expiration_year,
            :status, :response_kind, :network, :response_code, :response_message,
            :approval_code, :attempt, :was_retryable, :transaction_date
        )`

	if _, err := r.db.NamedExecContext(ctx, q, newTransactionRow(trx)); err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ErrDuplicateTransactionID
		}
		return nil, err
	}
	return trx, nil
}

// Update overwrites the outcome columns of an existing transaction.
func (r *TransactionRepository) Update(ctx context.Context, trx *models.CardNotPresentTransaction) (*models.CardNotPresentTransaction, error) {
	const q = `
        UPDATE card_transactions SET
            status = $3,
            response_kind = $4,
            network = $5,
            response_code = $6,
            response_message = $7,
            approval_code = $8,
            attempt = $9,
            was_retryable = $10,
            updated_at = NOW()
        WHERE client_id = $1 AND transaction_id = $2`

	nr := trx.NetworkResponse
	res, err := r.db.ExecContext(ctx, q,
		trx.ClientID,
		trx.TransactionID,
		trx.Status,
		nr.Kind,
		nr.Network,
		nr.ResponseCode,
		nr.ResponseMessage,
		nr.ApprovalCode,
		nr.Attempt,
		nr.WasRetryable,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, utils.ErrTransactionNotFound
	}
	return trx, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
