package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"snakepill/internal/model"
)

// StatusRepository maintains the single system_status row.
type StatusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository creates a new StatusRepository instance.
func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{pool: pool}
}

// Refresh recomputes the player, game and eligible counters from their tables.
// The distributed total is maintained by LogTaxDistribution.
func (r *StatusRepository) Refresh(ctx context.Context) error {
	const query = `
		UPDATE system_status
		SET total_players = (SELECT COUNT(*) FROM players),
			total_games = (SELECT COUNT(*) FROM game_sessions WHERE ended_at IS NOT NULL),
			total_eligible = (SELECT COUNT(*) FROM eligible_players WHERE is_active),
			updated_at = NOW()
		WHERE id = 1
	`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to refresh system status: %w", err)
	}
	return nil
}

// Get returns the current counters.
func (r *StatusRepository) Get(ctx context.Context) (*model.SystemStatus, error) {
	const query = `
		SELECT total_players, total_games, total_eligible, total_distributed_sol::text, updated_at
		FROM system_status
		WHERE id = 1
	`

	var (
		s           model.SystemStatus
		distributed string
	)
	err := r.pool.QueryRow(ctx, query).Scan(&s.TotalPlayers, &s.TotalGames, &s.TotalEligible, &distributed, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get system status: %w", err)
	}
	if s.TotalDistributedSOL, err = parseNumeric(distributed); err != nil {
		return nil, fmt.Errorf("failed to get system status: %w", err)
	}
	return &s, nil
}
