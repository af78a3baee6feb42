package dedup

import (
	"context"
	"path/filepath"

	"go-job-watcher/internal/config"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Record is what a store keeps for each job it has seen.
type Record struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

// Store remembers which jobs were already reported. Implementations never fail a
// lookup: a store that cannot answer reports the job as not seen.
type Store interface {
	IsSeen(ctx context.Context, id string) bool
	MarkSeen(ctx context.Context, rec Record) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.SeenStore, log *zap.SugaredLogger) (Store, error) {
	switch cfg.Driver {
	case config.DriverNone, "":
		return NopStore{}, nil
	case config.DriverFile:
		return NewFileStore(cfg.Path, log), nil
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, filepath.Join(cfg.Path, "seen_jobs.db"), log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := ConnectPostgres(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Newf("unknown seen store driver %q", cfg.Driver)
	}
}

// NopStore never remembers anything: every job is new on every run.
type NopStore struct{}

func (NopStore) IsSeen(context.Context, string) bool     { return false }
func (NopStore) MarkSeen(context.Context, Record) error { return nil }
func (NopStore) Close() error                           { return nil }
