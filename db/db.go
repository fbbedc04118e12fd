// Package db provides the Postgres pool, scoped session helpers and the
// migration runner shared by DCWiz services.
package db

import (
	"context"
	"fmt"
	"os"

	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/multitracer"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog/log"

	"github.com/dcwiz/appkit/config"
)

const (
	defaultServer   = "localhost"
	defaultUser     = "postgres"
	defaultPassword = "postgres"
	defaultDatabase = "dcwiz_auth"
)

// URL builds the connection string from explicit parts.
func URL(user, password, server, database string) string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s", user, password, server, database)
}

// URLFromConfig reads postgres.* settings, falling back to the POSTGRES_*
// environment variables and then the documented defaults.
func URLFromConfig(cfg *config.Config) string {
	return URL(
		cfg.String("postgres.user", envOr("POSTGRES_USER", defaultUser)),
		cfg.String("postgres.password", envOr("POSTGRES_PASSWORD", defaultPassword)),
		cfg.String("postgres.server", envOr("POSTGRES_SERVER", defaultServer)),
		cfg.String("postgres.db", envOr("POSTGRES_DB", defaultDatabase)),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewPool creates a pgx pool with zerolog query logging and the newrelic
// tracer attached. The pool is lazy; connections are established on first
// acquire.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.ConnConfig.Tracer = multitracer.New(
		&tracelog.TraceLog{
			Logger:   zerologadapter.NewLogger(log.Logger),
			LogLevel: tracelog.LogLevelWarn,
		},
		nrpgx5.NewTracer(),
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	return pool, nil
}

// NewPoolFromConfig is NewPool with the URL read from configuration.
func NewPoolFromConfig(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return NewPool(ctx, URLFromConfig(cfg))
}

// WithConn acquires a connection, runs fn and releases the connection on
// every exit path.
func WithConn(ctx context.Context, pool *pgxpool.Pool, fn func(conn *pgxpool.Conn) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

// WithTx runs fn inside a transaction: commit on success, rollback on
// error or panic.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
