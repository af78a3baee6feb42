package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-job-watcher/internal/config"
	"go-job-watcher/internal/dedup"
	"go-job-watcher/internal/logger"
	"go-job-watcher/internal/selftest"
	"go-job-watcher/internal/watcher"
)

const runTimeout = 10 * time.Minute

func main() {
	//load config
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogJSON); err != nil {
		log.Fatalf("❌ Failed to init logger: %v", err)
	}
	defer logger.Sync()
	lg := logger.Named("watcher")
	lg.Infow("🔧 config loaded", "keywords", cfg.Keywords, "min_match", cfg.MinKeywordMatch)

	//setup context with timeout = 10 mins, cancelled on ctrl-c / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if selftest.Enabled(os.Getenv) {
		if err := selftest.Run(ctx); err != nil {
			lg.Errorw("❌ self-test failed", "error", err)
			logger.Sync()
			os.Exit(1)
		}
		lg.Info("✅ basic tests passed")
	}

	//open seen-store; a broken store degrades to "everything is new"
	store, err := dedup.Open(ctx, cfg.SeenStore, logger.Named("dedup"))
	if err != nil {
		lg.Warnw("⚠️ seen-store unavailable, continuing without it", "driver", cfg.SeenStore.Driver, "error", err)
		store = dedup.NopStore{}
	}
	defer store.Close()

	lg.Info("🚀 starting job watcher pass")
	sum := watcher.New(cfg, store, lg).Run(ctx)
	lg.Infow("🏁 execution finished", "fetched", sum.Fetched, "new", sum.New, "notified", sum.Notified)
}
