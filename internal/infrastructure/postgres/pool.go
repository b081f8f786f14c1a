package postgres

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/scanner-agent/pkg/config"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool opens the journal pool. NUMERIC columns map to shopspring/decimal
// on every connection.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS scan_journal (
	id          UUID PRIMARY KEY,
	company_id  BIGINT NOT NULL,
	barcode     TEXT NOT NULL DEFAULT '',
	raw         TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	mode        TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	item_name   TEXT NOT NULL DEFAULT '',
	qty         INTEGER NOT NULL DEFAULT 0,
	price       NUMERIC(12,2) NOT NULL DEFAULT 0,
	created     BOOLEAN NOT NULL DEFAULT FALSE,
	scanned_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS scan_journal_company_scanned_idx
	ON scan_journal (company_id, scanned_at DESC);
`

// Migrate creates the journal table when missing.
func Migrate(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate scan_journal: %w", err)
	}
	return nil
}
