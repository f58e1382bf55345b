// Package database persists match results, player stats and the action
// history in PostgreSQL.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Config holds the connection settings read from POSTGRES_* and PG_* variables.
type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// DSN renders the postgres:// connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

// ConnectDB opens a pool and pings it.
func ConnectDB(ctx context.Context, cfg Config, logger *logrus.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("connected to database")
	return pool, nil
}

// Schema creates every table the server writes to. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS matches (
	id          UUID PRIMARY KEY,
	room_id     UUID NOT NULL,
	game_type   TEXT NOT NULL,
	hisht       INTEGER NOT NULL,
	status      TEXT NOT NULL DEFAULT 'in_progress',
	start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS match_results (
	match_id  UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	user_id   UUID NOT NULL,
	place     INTEGER NOT NULL,
	score     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (match_id, user_id)
);

CREATE TABLE IF NOT EXISTS user_stats (
	user_id        UUID PRIMARY KEY,
	games_played   INTEGER NOT NULL DEFAULT 0,
	finished_first INTEGER NOT NULL DEFAULT 0,
	finished_second INTEGER NOT NULL DEFAULT 0,
	finished_third INTEGER NOT NULL DEFAULT 0,
	finished_fourth INTEGER NOT NULL DEFAULT 0,
	games_left     INTEGER NOT NULL DEFAULT 0,
	rating         DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS game_actions (
	match_id       UUID NOT NULL,
	room_id        UUID NOT NULL,
	action_index   INTEGER NOT NULL,
	actor_user_id  UUID,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (match_id, action_index)
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
