// Package db provides PostgreSQL database connection management.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"snakepill/internal/config"
	"snakepill/internal/metrics"
)

const pingTimeout = 2 * time.Second

// Pool wraps pgxpool.Pool with additional functionality.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = int32(cfg.PoolSize)
	poolConfig.MinConns = int32(cfg.PoolSize / 4) // 25% of max as minimum
	if poolConfig.MinConns < 1 {
		poolConfig.MinConns = 1
	}

	// Connection timeouts
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second
	}

	// Connection lifetime settings
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	} else {
		poolConfig.MaxConnLifetime = time.Hour
	}

	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	} else {
		poolConfig.MaxConnIdleTime = 30 * time.Minute
	}

	// Health check settings
	poolConfig.HealthCheckPeriod = 30 * time.Second

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("pool_size", cfg.PoolSize).
		Msg("Connecting to PostgreSQL")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("PostgreSQL connection pool closed")
	}
}

// HealthCheck pings the database within pingTimeout and refreshes the pool
// gauges. A failed ping is logged with the pool's current usage.
func (p *Pool) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	stat := p.RecordStats()
	if err := p.Pool.Ping(ctx); err != nil {
		log.Warn().Err(err).
			Int32("acquired", stat.AcquiredConns()).
			Int32("idle", stat.IdleConns()).
			Int32("total", stat.TotalConns()).
			Int32("max", stat.MaxConns()).
			Msg("Database health check failed")
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// RecordStats publishes connection counts to the pool gauges and returns the
// snapshot it used.
func (p *Pool) RecordStats() *pgxpool.Stat {
	stat := p.Pool.Stat()
	metrics.DBConnections.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
	metrics.DBConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	metrics.DBConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
	metrics.DBConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
	return stat
}
