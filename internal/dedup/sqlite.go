package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS seen_jobs (
	id      TEXT PRIMARY KEY,
	title   TEXT NOT NULL DEFAULT '',
	link    TEXT NOT NULL DEFAULT '',
	source  TEXT NOT NULL DEFAULT '',
	seen_at TEXT NOT NULL
);`

// SQLiteStore keeps seen jobs in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

func OpenSQLite(ctx context.Context, path string, log *zap.SugaredLogger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create sqlite directory")
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create seen_jobs table")
	}

	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) IsSeen(ctx context.Context, id string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM seen_jobs WHERE id = ? LIMIT 1;`, id).Scan(&one)
	if err == nil {
		return true
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.log.Warnw("seen lookup failed", "id", id, "error", err)
	}
	return false
}

func (s *SQLiteStore) MarkSeen(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO seen_jobs (id, title, link, source, seen_at)
VALUES (?, ?, ?, ?, ?);`,
		rec.ID, rec.Title, rec.Link, rec.Source, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "insert seen job")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
