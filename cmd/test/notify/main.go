package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-job-watcher/internal/config"
	"go-job-watcher/internal/logger"
	"go-job-watcher/internal/reporter"
	"go-job-watcher/internal/scraper"
)

// Sends a fake batch through the real notifiers to check credentials.
func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := logger.Initialize(false); err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer logger.Sync()

	if !cfg.TelegramEnabled() && !cfg.EmailEnabled() {
		log.Fatal("Missing TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID or SMTP_USER/SMTP_PASS")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	batch := reporter.Batch{
		scraper.NewJob(
			"Senior Backend Engineer (Python/Django) [test]",
			fmt.Sprintf("https://example.com/jobs/notify-check-%d", time.Now().Unix()),
			"<p>Build <b>Django</b> services and FastAPI microservices.</p>",
			"notify_check",
			[]string{"python", "django"},
		),
	}

	out := reporter.Dispatch(ctx, logger.Named("reporter"), []reporter.Notifier{
		reporter.NewTelegramNotifier(cfg),
		reporter.NewEmailNotifier(cfg),
	}, batch)
	if !out.Sent {
		log.Fatal("❌ No notifier delivered the test batch")
	}
	log.Printf("✅ Test batch delivered via %s", out.Notifier)
}
