package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
)

const connectTimeout = 5 * time.Second

// NewPostgresPool opens the pool that backs accounts, the question bank,
// attempts and the worker tables, and fails fast when the database is down.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	applyPoolLimits(poolCfg, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Int32("max_conns", poolCfg.MaxConns).
		Int32("min_conns", poolCfg.MinConns).
		Dur("conn_lifetime", poolCfg.MaxConnLifetime).
		Str("database", poolCfg.ConnConfig.Database).
		Msg("PostgreSQL connected")

	return pool, nil
}

// applyPoolLimits copies the configured limits onto poolCfg. Submission
// bursts at the end of a quiz are served from MinConns warm connections.
func applyPoolLimits(poolCfg *pgxpool.Config, cfg *config.Config) {
	if cfg.MaxDBConns > 0 {
		poolCfg.MaxConns = cfg.MaxDBConns
	}
	if cfg.MinDBConns > 0 {
		poolCfg.MinConns = min(cfg.MinDBConns, poolCfg.MaxConns)
	}
	if cfg.DBConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.DBConnLifetime
		poolCfg.MaxConnLifetimeJitter = cfg.DBConnLifetime / 10
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout
}
