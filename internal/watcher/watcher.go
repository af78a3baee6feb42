package watcher

import (
	"context"

	"go-job-watcher/internal/config"
	"go-job-watcher/internal/dedup"
	"go-job-watcher/internal/reporter"
	"go-job-watcher/internal/scraper"
	"go-job-watcher/internal/scraper/feed"
	"go-job-watcher/internal/scraper/remoteok"

	"go.uber.org/zap"
)

// Summary describes one completed pass.
type Summary struct {
	Fetched  int
	New      int
	Sources  []scraper.Result
	Notified string
}

// Watcher runs one fetch, filter and notify pass.
type Watcher struct {
	keywords  []string
	scrapers  []scraper.Scraper
	store     dedup.Store
	notifiers []reporter.Notifier
	log       *zap.SugaredLogger
}

// New wires the enabled sources and both notifiers from cfg.
func New(cfg config.Config, store dedup.Store, log *zap.SugaredLogger) *Watcher {
	return &Watcher{
		keywords: cfg.Keywords,
		scrapers: Scrapers(cfg, log),
		store:    store,
		notifiers: []reporter.Notifier{
			reporter.NewTelegramNotifier(cfg),
			reporter.NewEmailNotifier(cfg),
		},
		log: log,
	}
}

// NewWith builds a Watcher from explicit parts.
func NewWith(keywords []string, scrapers []scraper.Scraper, store dedup.Store, notifiers []reporter.Notifier, log *zap.SugaredLogger) *Watcher {
	if store == nil {
		store = dedup.NopStore{}
	}
	return &Watcher{keywords: keywords, scrapers: scrapers, store: store, notifiers: notifiers, log: log}
}

// Scrapers returns the enabled sources in run order: RemoteOK, Indeed, custom feeds.
func Scrapers(cfg config.Config, log *zap.SugaredLogger) []scraper.Scraper {
	var out []scraper.Scraper
	if cfg.Sources.RemoteOK {
		out = append(out, remoteok.New(cfg, log.Named("remoteok")))
	}
	if cfg.Sources.IndeedRSS {
		out = append(out, feed.NewNamed("indeed", cfg.Sources.IndeedURL, cfg, log.Named("feed")))
	}
	if cfg.Sources.CustomFeeds && len(cfg.Feeds) > 0 {
		out = append(out, feed.NewAggregator(cfg, log.Named("feed")))
	}
	return out
}

// Run never fails: source and notifier errors are logged and reflected in the
// Summary.
func (w *Watcher) Run(ctx context.Context) Summary {
	var sum Summary

	batch := w.fetchAll(ctx, &sum)
	sum.New = len(batch)

	if len(batch) == 0 {
		w.log.Info("no new matching jobs found")
		return sum
	}

	w.log.Infow("📊 found new matching jobs", "count", len(batch))
	out := reporter.Dispatch(ctx, w.log.Named("reporter"), w.notifiers, batch)
	if out.Sent {
		sum.Notified = out.Notifier
	}
	return sum
}

func (w *Watcher) fetchAll(ctx context.Context, sum *Summary) reporter.Batch {
	var batch reporter.Batch

	for _, s := range w.scrapers {
		w.log.Debugw("▶️ fetching", "source", s.Name())
		res := s.Fetch(ctx, w.keywords)
		sum.Sources = append(sum.Sources, res)

		if !res.OK() {
			w.log.Errorw("❌ source failed", "source", s.Name(), "error", res.Err)
			continue
		}
		w.log.Infow("✅ source checked", "source", s.Name(), "count", len(res.Jobs))
		sum.Fetched += len(res.Jobs)

		for _, job := range res.Jobs {
			if w.store.IsSeen(ctx, job.ID) {
				continue
			}
			rec := dedup.Record{ID: job.ID, Title: job.Title, Link: job.Link, Source: job.Source}
			if err := w.store.MarkSeen(ctx, rec); err != nil {
				w.log.Warnw("failed to mark job seen", "id", job.ID, "error", err)
			}
			batch = append(batch, job)
		}
	}

	w.log.Infow("🔍 deduplication", "total", sum.Fetched, "new", len(batch))
	return batch
}
