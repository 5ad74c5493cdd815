package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"snakepill/internal/shop"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "players table",
		sql: `
		CREATE TABLE IF NOT EXISTS players (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			wallet_address VARCHAR(64) NOT NULL UNIQUE,
			username VARCHAR(255),
			total_points BIGINT NOT NULL DEFAULT 0,
			total_playtime_seconds BIGINT NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			highest_score BIGINT NOT NULL DEFAULT 0,
			current_skin VARCHAR(64) NOT NULL DEFAULT 'classic',
			owned_skins TEXT[] NOT NULL DEFAULT ARRAY['classic'],
			is_eligible BOOLEAN NOT NULL DEFAULT FALSE,
			eligible_since TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_playtime ON players(total_playtime_seconds);
		CREATE INDEX IF NOT EXISTS idx_players_points ON players(total_points DESC);
		`,
	},
	{
		name: "game_sessions table",
		sql: `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			player_id UUID REFERENCES players(id),
			wallet_address VARCHAR(64),
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ended_at TIMESTAMPTZ,
			score BIGINT NOT NULL DEFAULT 0,
			playtime_seconds BIGINT NOT NULL DEFAULT 0,
			pills_eaten BIGINT NOT NULL DEFAULT 0,
			game_over_reason VARCHAR(64)
		);
		CREATE INDEX IF NOT EXISTS idx_game_sessions_player ON game_sessions(player_id, started_at DESC);
		`,
	},
	{
		name: "leaderboard table",
		sql: `
		CREATE TABLE IF NOT EXISTS leaderboard (
			id BIGSERIAL PRIMARY KEY,
			player_id UUID NOT NULL REFERENCES players(id),
			wallet_address VARCHAR(64) NOT NULL,
			username VARCHAR(255),
			score BIGINT NOT NULL,
			playtime_seconds BIGINT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_leaderboard_score ON leaderboard(score DESC);
		`,
	},
	{
		name: "eligible_players table",
		sql: `
		CREATE TABLE IF NOT EXISTS eligible_players (
			id BIGSERIAL PRIMARY KEY,
			player_id UUID NOT NULL REFERENCES players(id),
			wallet_address VARCHAR(64) NOT NULL UNIQUE,
			holding_usd NUMERIC(24, 6) NOT NULL DEFAULT 0,
			total_playtime_seconds BIGINT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_verified_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_eligible_players_active ON eligible_players(is_active);
		`,
	},
	{
		name: "tax_distributions table",
		sql: `
		CREATE TABLE IF NOT EXISTS tax_distributions (
			id BIGSERIAL PRIMARY KEY,
			total_tax_sol NUMERIC(30, 9) NOT NULL,
			distribution_amount NUMERIC(30, 9) NOT NULL,
			recipients_count INT NOT NULL,
			amount_per_recipient NUMERIC(30, 9) NOT NULL,
			tx_signatures TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		`,
	},
	{
		name: "skins table",
		sql: `
		CREATE TABLE IF NOT EXISTS skins (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			cost_points BIGINT NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			color_primary VARCHAR(16) NOT NULL,
			color_secondary VARCHAR(16) NOT NULL,
			is_animated BOOLEAN NOT NULL DEFAULT FALSE
		);
		`,
	},
	{
		name: "donates table",
		sql: `
		CREATE TABLE IF NOT EXISTS donates (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			wallet_address VARCHAR(64) NOT NULL,
			amount_sol NUMERIC(30, 9) NOT NULL,
			tx_signature VARCHAR(128) NOT NULL UNIQUE,
			message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_donates_amount ON donates(amount_sol DESC);
		`,
	},
	{
		name: "online_players table",
		sql: `
		CREATE TABLE IF NOT EXISTS online_players (
			session_id VARCHAR(64) PRIMARY KEY,
			wallet_address VARCHAR(64),
			is_playing BOOLEAN NOT NULL DEFAULT FALSE,
			last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_online_players_last_seen ON online_players(last_seen);
		`,
	},
	{
		name: "system_status table",
		sql: `
		CREATE TABLE IF NOT EXISTS system_status (
			id INT PRIMARY KEY CHECK (id = 1),
			total_players BIGINT NOT NULL DEFAULT 0,
			total_games BIGINT NOT NULL DEFAULT 0,
			total_eligible BIGINT NOT NULL DEFAULT 0,
			total_distributed_sol NUMERIC(30, 9) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		INSERT INTO system_status (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
		`,
	},
}

// Migrate creates the schema and seeds the skin catalog. Every step is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	const seedSkin = `
		INSERT INTO skins (id, name, cost_points, description, color_primary, color_secondary, is_animated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	for _, s := range shop.DefaultSkins {
		_, err := db.Exec(ctx, seedSkin, s.ID, s.Name, s.CostPoints, s.Description, s.ColorPrimary, s.ColorSecondary, s.IsAnimated)
		if err != nil {
			return fmt.Errorf("failed to seed skin %s: %w", s.ID, err)
		}
	}

	log.Info().Int("skins", len(shop.DefaultSkins)).Msg("All migrations completed successfully")
	return nil
}
