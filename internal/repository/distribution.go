package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"snakepill/internal/model"
)

// DistributionRepository stores the append-only tax distribution audit log.
type DistributionRepository struct {
	pool *pgxpool.Pool
}

// NewDistributionRepository creates a new DistributionRepository instance.
func NewDistributionRepository(pool *pgxpool.Pool) *DistributionRepository {
	return &DistributionRepository{pool: pool}
}

// LogTaxDistribution writes one audit row and adds the amount actually paid
// out (perRecipient × successCount) to the global distributed counter.
func (r *DistributionRepository) LogTaxDistribution(ctx context.Context, totalTax, pool decimal.Decimal, successCount int, perRecipient decimal.Decimal, signatures []string) (*model.DistributionLog, error) {
	if signatures == nil {
		signatures = []string{}
	}
	paid := perRecipient.Mul(decimal.NewFromInt(int64(successCount)))

	var entry *model.DistributionLog
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
			INSERT INTO tax_distributions (total_tax_sol, distribution_amount, recipients_count, amount_per_recipient, tx_signatures)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, total_tax_sol::text, distribution_amount::text, recipients_count,
				amount_per_recipient::text, tx_signatures, created_at
		`
		var err error
		entry, err = scanDistribution(tx.QueryRow(ctx, insert,
			totalTax.String(), pool.String(), successCount, perRecipient.String(), signatures))
		if err != nil {
			return fmt.Errorf("failed to insert distribution: %w", err)
		}

		const bump = `
			UPDATE system_status
			SET total_distributed_sol = total_distributed_sol + $1, updated_at = NOW()
			WHERE id = 1
		`
		if _, err := tx.Exec(ctx, bump, paid.String()); err != nil {
			return fmt.Errorf("failed to update distributed total: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to log tax distribution: %w", err)
	}
	return entry, nil
}

// GetRecent returns the latest distributions, newest first.
func (r *DistributionRepository) GetRecent(ctx context.Context, limit int) ([]*model.DistributionLog, error) {
	const query = `
		SELECT id, total_tax_sol::text, distribution_amount::text, recipients_count,
			amount_per_recipient::text, tx_signatures, created_at
		FROM tax_distributions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get distributions: %w", err)
	}
	defer rows.Close()

	var out []*model.DistributionLog
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distributions: %w", err)
	}
	return out, nil
}

func scanDistribution(row pgx.Row) (*model.DistributionLog, error) {
	var (
		d                         model.DistributionLog
		total, pool, perRecipient string
	)
	if err := row.Scan(&d.ID, &total, &pool, &d.RecipientsCount, &perRecipient, &d.TxSignatures, &d.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if d.TotalTaxSOL, err = parseNumeric(total); err != nil {
		return nil, err
	}
	if d.DistributionAmount, err = parseNumeric(pool); err != nil {
		return nil, err
	}
	if d.AmountPerRecipient, err = parseNumeric(perRecipient); err != nil {
		return nil, err
	}
	return &d, nil
}
