package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"snakepill/internal/model"
)

// ErrEligibilityNotFound is returned when a wallet has no eligibility record.
var ErrEligibilityNotFound = errors.New("eligibility record not found")

const eligibilityColumns = `
	e.id, e.player_id, e.wallet_address, e.holding_usd::text, e.total_playtime_seconds,
	e.is_active, e.last_verified_at
`

// EligibilityRepository stores the reconciler's verdicts, one row per wallet.
type EligibilityRepository struct {
	pool *pgxpool.Pool
}

// NewEligibilityRepository creates a new EligibilityRepository instance.
func NewEligibilityRepository(pool *pgxpool.Pool) *EligibilityRepository {
	return &EligibilityRepository{pool: pool}
}

func scanEligibility(row pgx.Row, extra ...any) (*model.EligibilityRecord, error) {
	var (
		rec     model.EligibilityRecord
		holding string
	)
	dest := append([]any{
		&rec.ID,
		&rec.PlayerID,
		&rec.WalletAddress,
		&holding,
		&rec.TotalPlaytimeSeconds,
		&rec.IsActive,
		&rec.LastVerifiedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	h, err := parseNumeric(holding)
	if err != nil {
		return nil, err
	}
	rec.HoldingUSD = h
	return &rec, nil
}

// SetPlayerEligible upserts an active record for wallet with a fresh holding
// and playtime snapshot.
func (r *EligibilityRepository) SetPlayerEligible(ctx context.Context, playerID uuid.UUID, wallet string, holdingUSD decimal.Decimal, playtimeSeconds int64) (*model.EligibilityRecord, error) {
	query := `
		INSERT INTO eligible_players AS e (player_id, wallet_address, holding_usd, total_playtime_seconds, is_active, last_verified_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (wallet_address) DO UPDATE
		SET player_id = EXCLUDED.player_id,
			holding_usd = EXCLUDED.holding_usd,
			total_playtime_seconds = EXCLUDED.total_playtime_seconds,
			is_active = TRUE,
			last_verified_at = NOW()
		RETURNING ` + eligibilityColumns

	rec, err := scanEligibility(r.pool.QueryRow(ctx, query, playerID, wallet, holdingUSD.String(), playtimeSeconds))
	if err != nil {
		return nil, fmt.Errorf("failed to set player eligible: %w", err)
	}
	return rec, nil
}

// RemovePlayerEligibility deactivates the wallet's record. The row is kept.
func (r *EligibilityRepository) RemovePlayerEligibility(ctx context.Context, wallet string) error {
	const query = `
		UPDATE eligible_players
		SET is_active = FALSE
		WHERE wallet_address = $1
	`

	if _, err := r.pool.Exec(ctx, query, wallet); err != nil {
		return fmt.Errorf("failed to remove player eligibility: %w", err)
	}
	return nil
}

// GetByWallet returns the wallet's record, active or not.
func (r *EligibilityRepository) GetByWallet(ctx context.Context, wallet string) (*model.EligibilityRecord, error) {
	query := `SELECT ` + eligibilityColumns + ` FROM eligible_players e WHERE e.wallet_address = $1`

	rec, err := scanEligibility(r.pool.QueryRow(ctx, query, wallet))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEligibilityNotFound
		}
		return nil, fmt.Errorf("failed to get eligibility: %w", err)
	}
	return rec, nil
}

// GetEligiblePlayers returns all active records joined with their players,
// in record id order.
func (r *EligibilityRepository) GetEligiblePlayers(ctx context.Context) ([]*model.EligiblePlayer, error) {
	query := `
		SELECT ` + eligibilityColumns + `, ` + prefixedPlayerColumns("p") + `
		FROM eligible_players e
		JOIN players p ON p.id = e.player_id
		WHERE e.is_active
		ORDER BY e.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get eligible players: %w", err)
	}
	defer rows.Close()

	var out []*model.EligiblePlayer
	for rows.Next() {
		var p model.Player
		rec, err := scanEligibility(rows,
			&p.ID,
			&p.WalletAddress,
			&p.Username,
			&p.TotalPoints,
			&p.TotalPlaytimeSeconds,
			&p.GamesPlayed,
			&p.HighestScore,
			&p.CurrentSkin,
			&p.OwnedSkins,
			&p.IsEligible,
			&p.EligibleSince,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan eligible player: %w", err)
		}
		out = append(out, &model.EligiblePlayer{EligibilityRecord: *rec, Player: &p})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eligible players: %w", err)
	}

	return out, nil
}

// CountActive returns the number of active records.
func (r *EligibilityRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM eligible_players WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count eligible players: %w", err)
	}
	return n, nil
}

func prefixedPlayerColumns(alias string) string {
	cols := []string{
		"id", "wallet_address", "username", "total_points", "total_playtime_seconds", "games_played",
		"highest_score", "current_skin", "owned_skins", "is_eligible", "eligible_since", "created_at", "updated_at",
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}
