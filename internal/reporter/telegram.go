package reporter

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go-job-watcher/internal/config"

	"github.com/cockroachdb/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramTimeout = 10 * time.Second

// TelegramNotifier posts the batch as a single bot message.
type TelegramNotifier struct {
	token    string
	chatID   string
	endpoint string
	hc       *http.Client
}

func NewTelegramNotifier(cfg config.Config) *TelegramNotifier {
	return &TelegramNotifier{
		token:    cfg.Telegram.BotToken,
		chatID:   cfg.Telegram.ChatID,
		endpoint: cfg.Telegram.APIEndpoint,
		hc:       &http.Client{Timeout: telegramTimeout},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Configured() bool {
	return t.token != "" && t.chatID != ""
}

func (t *TelegramNotifier) Send(ctx context.Context, batch Batch) Outcome {
	if !t.Configured() {
		return failed(t.Name(), ErrNotConfigured)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, ctxClient{ctx: ctx, hc: t.hc})
	if err != nil {
		return failed(t.Name(), errors.Wrap(err, "failed to init telegram bot"))
	}

	msg := t.newMessage(TelegramText(batch))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := bot.Send(msg); err != nil {
		return failed(t.Name(), errors.Wrap(err, "telegram send"))
	}
	return sent(t.Name())
}

// newMessage addresses numeric chat ids directly and anything else as a
// channel username (@name).
func (t *TelegramNotifier) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(t.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(t.chatID, text)
}

// ctxClient binds the bot's requests to the run context.
type ctxClient struct {
	ctx context.Context
	hc  *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.hc.Do(req.WithContext(c.ctx))
}
