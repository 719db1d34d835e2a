package storage

// sqlite.go: gateway del store relacional (SQLite o Postgres).
//
// Estrategia:
//   - Un único *sql.DB compartido por todos los workers.
//   - SQLite (modernc, sin CGo) por defecto; `postgres://` usa pgx vía database/sql.
//   - Las queries se escriben con `?` y se reescriben a `$n` para Postgres.
//   - Cada operación es una sentencia o una transacción corta.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound se devuelve cuando la fila pedida no existe.
var ErrNotFound = errors.New("storage: not found")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS wallets (
    id            TEXT PRIMARY KEY,
    proxy_address TEXT     NOT NULL UNIQUE,
    display_name  TEXT     NOT NULL DEFAULT '',
    last_checked  DATETIME,
    paused        INTEGER  NOT NULL DEFAULT 0,
    losing_streak INTEGER  NOT NULL DEFAULT 0,
    win_rate      REAL     NOT NULL DEFAULT 0,
    live_picks    INTEGER  NOT NULL DEFAULT 0,
    force_fetch   INTEGER  NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
    id               TEXT PRIMARY KEY,
    wallet_id        TEXT     NOT NULL REFERENCES wallets(id),
    market_slug      TEXT     NOT NULL,
    event_slug       TEXT     NOT NULL DEFAULT '',
    market_name      TEXT     NOT NULL DEFAULT '',
    picked_outcome   TEXT     NOT NULL DEFAULT '',
    opposite_outcome TEXT     NOT NULL DEFAULT '',
    side             TEXT     NOT NULL DEFAULT 'BUY',
    asset            TEXT     NOT NULL,
    pnl              REAL,
    outcome          TEXT     NOT NULL DEFAULT 'Pending',
    resolved_outcome TEXT,
    outcome_at       DATETIME,
    win_rate         REAL     NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL,
    signal_sent_at   DATETIME,
    UNIQUE (wallet_id, market_slug, asset)
);

CREATE TABLE IF NOT EXISTS wallet_live_picks (
    wallet_id        TEXT     NOT NULL,
    market_slug      TEXT     NOT NULL,
    event_slug       TEXT     NOT NULL DEFAULT '',
    market_name      TEXT     NOT NULL DEFAULT '',
    picked_outcome   TEXT     NOT NULL,
    side             TEXT     NOT NULL DEFAULT 'BUY',
    pnl              REAL,
    outcome          TEXT     NOT NULL DEFAULT 'Pending',
    resolved_outcome TEXT,
    fetched_at       DATETIME NOT NULL,
    vote_count       INTEGER  NOT NULL DEFAULT 0,
    win_rate         REAL     NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS notes (
    slug       TEXT PRIMARY KEY,
    content    TEXT     NOT NULL DEFAULT '',
    is_public  INTEGER  NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_wallet  ON signals(wallet_id, created_at);
CREATE INDEX IF NOT EXISTS idx_signals_market  ON signals(market_slug, picked_outcome);
CREATE INDEX IF NOT EXISTS idx_signals_outcome ON signals(outcome);
CREATE INDEX IF NOT EXISTS idx_live_market     ON wallet_live_picks(market_slug, picked_outcome);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS wallets (
    id            TEXT PRIMARY KEY,
    proxy_address TEXT             NOT NULL UNIQUE,
    display_name  TEXT             NOT NULL DEFAULT '',
    last_checked  TIMESTAMPTZ,
    paused        BOOLEAN          NOT NULL DEFAULT FALSE,
    losing_streak INTEGER          NOT NULL DEFAULT 0,
    win_rate      DOUBLE PRECISION NOT NULL DEFAULT 0,
    live_picks    INTEGER          NOT NULL DEFAULT 0,
    force_fetch   BOOLEAN          NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
    id               TEXT PRIMARY KEY,
    wallet_id        TEXT             NOT NULL REFERENCES wallets(id),
    market_slug      TEXT             NOT NULL,
    event_slug       TEXT             NOT NULL DEFAULT '',
    market_name      TEXT             NOT NULL DEFAULT '',
    picked_outcome   TEXT             NOT NULL DEFAULT '',
    opposite_outcome TEXT             NOT NULL DEFAULT '',
    side             TEXT             NOT NULL DEFAULT 'BUY',
    asset            TEXT             NOT NULL,
    pnl              DOUBLE PRECISION,
    outcome          TEXT             NOT NULL DEFAULT 'Pending',
    resolved_outcome TEXT,
    outcome_at       TIMESTAMPTZ,
    win_rate         DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ      NOT NULL,
    signal_sent_at   TIMESTAMPTZ,
    UNIQUE (wallet_id, market_slug, asset)
);

CREATE TABLE IF NOT EXISTS wallet_live_picks (
    wallet_id        TEXT             NOT NULL,
    market_slug      TEXT             NOT NULL,
    event_slug       TEXT             NOT NULL DEFAULT '',
    market_name      TEXT             NOT NULL DEFAULT '',
    picked_outcome   TEXT             NOT NULL,
    side             TEXT             NOT NULL DEFAULT 'BUY',
    pnl              DOUBLE PRECISION,
    outcome          TEXT             NOT NULL DEFAULT 'Pending',
    resolved_outcome TEXT,
    fetched_at       TIMESTAMPTZ      NOT NULL,
    vote_count       INTEGER          NOT NULL DEFAULT 0,
    win_rate         DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS notes (
    slug       TEXT PRIMARY KEY,
    content    TEXT        NOT NULL DEFAULT '',
    is_public  BOOLEAN     NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_wallet  ON signals(wallet_id, created_at);
CREATE INDEX IF NOT EXISTS idx_signals_market  ON signals(market_slug, picked_outcome);
CREATE INDEX IF NOT EXISTS idx_signals_outcome ON signals(outcome);
CREATE INDEX IF NOT EXISTS idx_live_market     ON wallet_live_picks(market_slug, picked_outcome);
`

// SQLStorage implementa ports.Storage sobre database/sql.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

// Open abre el store indicado por la URL. `postgres://` y `postgresql://` usan pgx;
// cualquier otra cosa es un DSN de SQLite (ruta, `file:` URI o ":memory:").
// Aplica el schema y verifica la conexión.
func Open(ctx context.Context, databaseURL string) (*SQLStorage, error) {
	d, driver, dsn := resolveDriver(databaseURL)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %s: %w", driver, err)
	}

	schema := schemaSQLite
	if d == dialectSQLite {
		db.SetMaxOpenConns(1) // SQLite es single-writer
		db.SetMaxIdleConns(1)
	} else {
		schema = schemaPostgres
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(4)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
	}

	return &SQLStorage{db: db, dialect: d}, nil
}

func resolveDriver(databaseURL string) (dialect, string, string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return dialectPostgres, "pgx", databaseURL
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return dialectSQLite, "sqlite", strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return dialectSQLite, "sqlite", databaseURL
	}
}

// Ping verifica que el store responde.
func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close cierra el pool de conexiones.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// q adapta los placeholders `?` al dialecto.
func (s *SQLStorage) q(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// placeholders devuelve "?, ?, ?" con n elementos.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// --- helpers de conversión ---

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}
