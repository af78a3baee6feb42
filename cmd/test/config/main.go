package main

import (
	"fmt"
	"log"

	"go-job-watcher/internal/config"
)

func main() {
	fmt.Println("🔧 Testing config loading...")
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	source := cfg.Path
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Printf("✅ Config loaded from %s\n", source)
	fmt.Printf("   Keywords: %v (min match %d)\n", cfg.Keywords, cfg.MinKeywordMatch)
	fmt.Printf("   RemoteOK: %t  Indeed: %t  Custom feeds: %t (%d urls)\n",
		cfg.Sources.RemoteOK, cfg.Sources.IndeedRSS, cfg.Sources.CustomFeeds, len(cfg.Feeds))
	fmt.Printf("   Telegram: %s (chat %q)\n", mask(cfg.Telegram.BotToken), cfg.Telegram.ChatID)
	fmt.Printf("   SMTP: %s:%d user=%q pass=%s to=%q\n",
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, mask(cfg.SMTP.Password), cfg.SMTP.To)
	fmt.Printf("   Seen store: %s\n", cfg.SeenStore.Driver)
}

func mask(secret string) string {
	switch {
	case secret == "":
		return "<unset>"
	case len(secret) <= 6:
		return "***"
	default:
		return secret[:4] + "..."
	}
}
