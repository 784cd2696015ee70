package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/checkout_gateway/internal/models"
)

type accountRangeRow struct {
	AccountRange string `db:"account_range"`
	Country      string `db:"country"`
	Category     string `db:"category"`
	Franchise    string `db:"franchise"`
	Issuer       string `db:"issuer"`
}

// AccountRangeRepository reads issuing metadata from the account_ranges table.
type AccountRangeRepository struct {
	db *sqlx.DB
}

func NewAccountRangeRepository(db *sqlx.DB) *AccountRangeRepository {
	return &AccountRangeRepository{db: db}
}

// GetByRange returns the metadata for a 10 digit account range, or nil if unknown.
func (r *AccountRangeRepository) GetByRange(ctx context.Context, accountRange string) (*models.PANInfo, error) {
	const q = `
        SELECT account_range, country, category, franchise, issuer
        FROM account_ranges
        WHERE account_range = $1`

	var row accountRangeRow
	if err := r.db.GetContext(ctx, &row, q, accountRange); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &models.PANInfo{
		Country:   row.Country,
		Category:  row.Category,
		Franchise: models.Franchise(row.Franchise),
		Issuer:    row.Issuer,
	}, nil
}
