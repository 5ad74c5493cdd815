// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snakepill/internal/model"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrSkinNotFound      = errors.New("skin not found")
	ErrSessionNotFound   = errors.New("game session not found or already ended")
	ErrPurchaseRejected  = errors.New("skin purchase rejected")
	ErrEmptyPlayerUpdate = errors.New("player update has no fields")
)

const playerColumns = `
	id, wallet_address, username, total_points, total_playtime_seconds, games_played,
	highest_score, current_skin, owned_skins, is_eligible, eligible_since, created_at, updated_at
`

// PlayerRepository handles player persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
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
		return nil, err
	}
	return &p, nil
}

// Create inserts a new player owning only the default skin.
func (r *PlayerRepository) Create(ctx context.Context, wallet string, username *string) (*model.Player, error) {
	query := `
		INSERT INTO players (wallet_address, username)
		VALUES ($1, $2)
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, wallet, username))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return p, nil
}

// GetByWallet retrieves a player by wallet address.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByWallet(ctx context.Context, wallet string) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE wallet_address = $1`

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, wallet))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// GetOrCreate retrieves a player by wallet, creating one if it doesn't exist.
// The bool result reports whether the player was created.
func (r *PlayerRepository) GetOrCreate(ctx context.Context, wallet string) (*model.Player, bool, error) {
	p, err := r.GetByWallet(ctx, wallet)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrPlayerNotFound) {
		return nil, false, err
	}

	p, err = r.Create(ctx, wallet, nil)
	if err != nil {
		// Another request may have created the player first.
		p, err = r.GetByWallet(ctx, wallet)
		if err != nil {
			return nil, false, err
		}
		return p, false, nil
	}
	return p, true, nil
}

// UpdatePlayer applies a partial update; nil fields are left unchanged.
func (r *PlayerRepository) UpdatePlayer(ctx context.Context, wallet string, upd model.PlayerUpdate) (*model.Player, error) {
	if upd.IsEmpty() {
		return nil, ErrEmptyPlayerUpdate
	}

	sets := make([]string, 0, 10)
	args := []any{wallet}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.TotalPoints != nil {
		add("total_points", *upd.TotalPoints)
	}
	if upd.TotalPlaytimeSeconds != nil {
		add("total_playtime_seconds", *upd.TotalPlaytimeSeconds)
	}
	if upd.GamesPlayed != nil {
		add("games_played", *upd.GamesPlayed)
	}
	if upd.HighestScore != nil {
		add("highest_score", *upd.HighestScore)
	}
	if upd.CurrentSkin != nil {
		add("current_skin", *upd.CurrentSkin)
	}
	if upd.OwnedSkins != nil {
		add("owned_skins", upd.OwnedSkins)
	}
	if upd.IsEligible != nil {
		add("is_eligible", *upd.IsEligible)
	}
	if upd.EligibleSince != nil {
		add("eligible_since", *upd.EligibleSince)
	} else if upd.ClearEligibleSince {
		sets = append(sets, "eligible_since = NULL")
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE players SET ` + strings.Join(sets, ", ") +
		` WHERE wallet_address = $1 RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	return p, nil
}

// GetPlayersWithMinPlaytime returns every player with at least the given playtime.
func (r *PlayerRepository) GetPlayersWithMinPlaytime(ctx context.Context, seconds int64) ([]*model.Player, error) {
	query := `
		SELECT ` + playerColumns + `
		FROM players
		WHERE total_playtime_seconds >= $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, seconds)
	if err != nil {
		return nil, fmt.Errorf("failed to get players with min playtime: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// AddSessionResult credits a finished session to the player in one statement.
func (r *PlayerRepository) AddSessionResult(ctx context.Context, wallet string, points, playtimeSeconds, score int64) (*model.Player, error) {
	query := `
		UPDATE players
		SET total_points = total_points + $2,
			total_playtime_seconds = total_playtime_seconds + $3,
			games_played = games_played + 1,
			highest_score = GREATEST(highest_score, $4),
			updated_at = NOW()
		WHERE wallet_address = $1
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, wallet, points, playtimeSeconds, score))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to add session result: %w", err)
	}
	return p, nil
}

// PurchaseSkin deducts cost and adds the skin to the owned list. The update
// is conditional, so a concurrent purchase cannot overdraw points or add the
// skin twice; in that case ErrPurchaseRejected is returned.
func (r *PlayerRepository) PurchaseSkin(ctx context.Context, wallet, skinID string, cost int64) (*model.Player, error) {
	query := `
		UPDATE players
		SET total_points = total_points - $3,
			owned_skins = array_append(owned_skins, $2::text),
			updated_at = NOW()
		WHERE wallet_address = $1
			AND total_points >= $3
			AND NOT ($2::text = ANY(owned_skins))
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, wallet, skinID, cost))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPurchaseRejected
		}
		return nil, fmt.Errorf("failed to purchase skin: %w", err)
	}
	return p, nil
}
