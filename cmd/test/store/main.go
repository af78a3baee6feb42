package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-job-watcher/internal/config"
	"go-job-watcher/internal/dedup"
	"go-job-watcher/internal/logger"
	"go-job-watcher/internal/scraper"
)

// Round-trips one record through the configured seen-store.
func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := logger.Initialize(false); err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Printf("Attempting to open %q seen-store...\n", cfg.SeenStore.Driver)
	store, err := dedup.Open(ctx, cfg.SeenStore, logger.Named("dedup"))
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer store.Close()

	link := fmt.Sprintf("https://example.com/store-check/%d", time.Now().Unix())
	rec := dedup.Record{ID: scraper.MakeID(link), Title: "Store check", Link: link, Source: "store_check"}

	if store.IsSeen(ctx, rec.ID) {
		log.Fatalf("❌ fresh id %s reported as seen", rec.ID)
	}
	if err := store.MarkSeen(ctx, rec); err != nil {
		log.Fatalf("❌ MarkSeen failed: %v", err)
	}

	if cfg.SeenStore.Driver == config.DriverNone {
		fmt.Println("✅ no-op store behaves (nothing is remembered)")
		return
	}
	if !store.IsSeen(ctx, rec.ID) {
		log.Fatalf("❌ id %s not remembered after MarkSeen", rec.ID)
	}
	fmt.Println("✅ Seen-store round trip OK:", rec.ID)
}
