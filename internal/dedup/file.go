package dedup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const retention = 30 * 24 * time.Hour

type seenEntry struct {
	Record
	Timestamp int64 `json:"timestamp"`
}

// FileStore keeps seen jobs in a JSON file and forgets entries after 30 days.
type FileStore struct {
	mu       sync.Mutex
	filePath string
	seen     map[string]seenEntry
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewFileStore creates or loads seen_jobs.json under dir.
func NewFileStore(dir string, log *zap.SugaredLogger) *FileStore {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warnw("failed to create cache directory", "dir", dir, "error", err)
	}
	fs := &FileStore{
		filePath: filepath.Join(dir, "seen_jobs.json"),
		seen:     make(map[string]seenEntry),
		log:      log,
		now:      time.Now,
	}
	fs.load()
	return fs
}

func (fs *FileStore) IsSeen(_ context.Context, id string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.seen[id]
	return ok
}

func (fs *FileStore) MarkSeen(_ context.Context, rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.seen[rec.ID]; ok {
		return nil
	}
	fs.seen[rec.ID] = seenEntry{Record: rec, Timestamp: fs.now().UnixMilli()}
	return fs.save()
}

func (fs *FileStore) Close() error { return nil }

// load reads the file into memory, dropping expired entries.
func (fs *FileStore) load() {
	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			fs.log.Warnw("failed to read seen jobs", "file", fs.filePath, "error", err)
		}
		return
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		fs.log.Warnw("failed to parse seen jobs", "file", fs.filePath, "error", err)
		return
	}

	cutoff := fs.now().Add(-retention).UnixMilli()
	for _, e := range entries {
		if e.Timestamp > cutoff {
			fs.seen[e.ID] = e
		}
	}
	fs.log.Infow("loaded seen jobs", "count", len(fs.seen), "expired", len(entries)-len(fs.seen))
}

// save writes the whole map back. Caller holds mu.
func (fs *FileStore) save() error {
	entries := make([]seenEntry, 0, len(fs.seen))
	for _, e := range fs.seen {
		entries = append(entries, e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fs.filePath, data, 0644)
}
