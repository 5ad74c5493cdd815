package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"snakepill/internal/model"
)

// LeaderboardRepository records finished wallet sessions by score.
type LeaderboardRepository struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository instance.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// Record adds an entry for a finished session.
func (r *LeaderboardRepository) Record(ctx context.Context, player *model.Player, score, playtimeSeconds int64) (*model.LeaderboardEntry, error) {
	const query = `
		INSERT INTO leaderboard (player_id, wallet_address, username, score, playtime_seconds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, player_id, wallet_address, username, score, playtime_seconds, recorded_at
	`

	var e model.LeaderboardEntry
	err := r.pool.QueryRow(ctx, query, player.ID, player.WalletAddress, player.Username, score, playtimeSeconds).Scan(
		&e.ID,
		&e.PlayerID,
		&e.WalletAddress,
		&e.Username,
		&e.Score,
		&e.PlaytimeSeconds,
		&e.RecordedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record leaderboard entry: %w", err)
	}
	return &e, nil
}

// Top returns the highest scores.
func (r *LeaderboardRepository) Top(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT id, player_id, wallet_address, username, score, playtime_seconds, recorded_at
		FROM leaderboard
		ORDER BY score DESC, recorded_at
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []*model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		err := rows.Scan(
			&e.ID,
			&e.PlayerID,
			&e.WalletAddress,
			&e.Username,
			&e.Score,
			&e.PlaytimeSeconds,
			&e.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}
	return entries, nil
}
