package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OnlineRepository tracks browser sessions by their last heartbeat.
type OnlineRepository struct {
	pool *pgxpool.Pool
}

// NewOnlineRepository creates a new OnlineRepository instance.
func NewOnlineRepository(pool *pgxpool.Pool) *OnlineRepository {
	return &OnlineRepository{pool: pool}
}

// Touch upserts the session's row with the given last-seen time.
func (r *OnlineRepository) Touch(ctx context.Context, sessionID string, wallet *string, isPlaying bool, seenAt time.Time) error {
	const query = `
		INSERT INTO online_players (session_id, wallet_address, is_playing, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET wallet_address = EXCLUDED.wallet_address,
			is_playing = EXCLUDED.is_playing,
			last_seen = EXCLUDED.last_seen
	`

	if _, err := r.pool.Exec(ctx, query, sessionID, wallet, isPlaying, seenAt); err != nil {
		return fmt.Errorf("failed to update online player: %w", err)
	}
	return nil
}

// Remove deletes the session's row.
func (r *OnlineRepository) Remove(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM online_players WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to remove online player: %w", err)
	}
	return nil
}

// CountSince counts sessions seen at or after since.
func (r *OnlineRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM online_players WHERE last_seen >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count online players: %w", err)
	}
	return n, nil
}

// RemoveSeenBefore deletes sessions last seen before the cutoff.
func (r *OnlineRepository) RemoveSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM online_players WHERE last_seen < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up online players: %w", err)
	}
	return tag.RowsAffected(), nil
}
