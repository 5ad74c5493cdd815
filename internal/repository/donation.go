package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"snakepill/internal/model"
)

// DonationRepository handles SOL donation records.
type DonationRepository struct {
	pool *pgxpool.Pool
}

// NewDonationRepository creates a new DonationRepository instance.
func NewDonationRepository(pool *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{pool: pool}
}

// Record stores a donation. A signature already recorded is ignored and
// the bool result is false.
func (r *DonationRepository) Record(ctx context.Context, wallet string, amount decimal.Decimal, signature string, message *string) (bool, error) {
	const query = `
		INSERT INTO donates (wallet_address, amount_sol, tx_signature, message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tx_signature) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, wallet, amount.String(), signature, message)
	if err != nil {
		return false, fmt.Errorf("failed to record donation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns donations, largest first.
func (r *DonationRepository) List(ctx context.Context, limit int) ([]*model.Donation, error) {
	const query = `
		SELECT id, wallet_address, amount_sol::text, tx_signature, message, created_at
		FROM donates
		ORDER BY amount_sol DESC, created_at
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get donations: %w", err)
	}
	defer rows.Close()

	donations := []*model.Donation{}
	for rows.Next() {
		var (
			d      model.Donation
			amount string
		)
		if err := rows.Scan(&d.ID, &d.WalletAddress, &amount, &d.TxSignature, &d.Message, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		if d.AmountSOL, err = parseNumeric(amount); err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donations: %w", err)
	}
	return donations, nil
}
