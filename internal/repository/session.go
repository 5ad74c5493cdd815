package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snakepill/internal/model"
)

const sessionColumns = `
	id, player_id, wallet_address, started_at, ended_at, score, playtime_seconds,
	pills_eaten, game_over_reason
`

// SessionRepository handles game session persistence.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.GameSession, error) {
	var s model.GameSession
	err := row.Scan(
		&s.ID,
		&s.PlayerID,
		&s.WalletAddress,
		&s.StartedAt,
		&s.EndedAt,
		&s.Score,
		&s.PlaytimeSeconds,
		&s.PillsEaten,
		&s.GameOverReason,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create opens a session. playerID and wallet are nil for anonymous play.
func (r *SessionRepository) Create(ctx context.Context, playerID *uuid.UUID, wallet *string) (*model.GameSession, error) {
	query := `
		INSERT INTO game_sessions (player_id, wallet_address)
		VALUES ($1, $2)
		RETURNING ` + sessionColumns

	s, err := scanSession(r.pool.QueryRow(ctx, query, playerID, wallet))
	if err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}
	return s, nil
}

// End closes an open session with its final result. A session can only be
// ended once; later calls return ErrSessionNotFound.
func (r *SessionRepository) End(ctx context.Context, id uuid.UUID, score, playtimeSeconds, pillsEaten int64, reason string) (*model.GameSession, error) {
	query := `
		UPDATE game_sessions
		SET score = $2, playtime_seconds = $3, pills_eaten = $4,
			game_over_reason = NULLIF($5, ''), ended_at = NOW()
		WHERE id = $1 AND ended_at IS NULL
		RETURNING ` + sessionColumns

	s, err := scanSession(r.pool.QueryRow(ctx, query, id, score, playtimeSeconds, pillsEaten, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to end game session: %w", err)
	}
	return s, nil
}

// GetByID retrieves a session.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}
	return s, nil
}
