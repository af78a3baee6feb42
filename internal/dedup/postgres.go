package dedup

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS seen_jobs (
	id      TEXT PRIMARY KEY,
	title   TEXT NOT NULL DEFAULT '',
	link    TEXT NOT NULL DEFAULT '',
	source  TEXT NOT NULL DEFAULT '',
	seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps seen jobs in a shared Postgres table, for watchers that
// run on more than one host.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *zap.SugaredLogger
}

func ConnectPostgres(ctx context.Context, connString string, log *zap.SugaredLogger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse database url")
	}

	cfg.MaxConns = 2
	cfg.MaxConnLifetime = time.Hour

	// PgBouncer in transaction mode cannot keep prepared statements.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "database unreachable")
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create seen_jobs table")
	}

	return &PostgresStore{db: pool, log: log}, nil
}

func (p *PostgresStore) IsSeen(ctx context.Context, id string) bool {
	var one int
	err := p.db.QueryRow(ctx, "SELECT 1 FROM seen_jobs WHERE id = $1", id).Scan(&one)
	if err == nil {
		return true
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		p.log.Warnw("seen lookup failed", "id", id, "error", err)
	}
	return false
}

func (p *PostgresStore) MarkSeen(ctx context.Context, rec Record) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO seen_jobs (id, title, link, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Title, rec.Link, rec.Source)
	if err != nil {
		return errors.Wrap(err, "failed to save seen job")
	}
	return nil
}

func (p *PostgresStore) Close() error {
	if p.db != nil {
		p.db.Close()
	}
	return nil
}
