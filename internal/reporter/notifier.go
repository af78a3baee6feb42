package reporter

import (
	"context"

	"go-job-watcher/internal/scraper"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by a notifier asked to send without credentials.
var ErrNotConfigured = errors.New("notifier not configured")

// Log messages for a batch that reached nobody.
const (
	MsgNotConfigured = "notifications not sent: configure TELEGRAM or SMTP settings"
	MsgAllFailed     = "notifications not sent: every configured notifier failed"
)

// Batch is every new matching job of one run; it becomes one message.
type Batch []scraper.Job

// Outcome is the result of one send attempt.
type Outcome struct {
	Notifier string
	Sent     bool
	Err      error
}

func failed(name string, err error) Outcome {
	return Outcome{Notifier: name, Err: err}
}

func sent(name string) Outcome {
	return Outcome{Notifier: name, Sent: true}
}

// Notifier delivers a Batch over one channel. Send never panics on transport
// errors; they are returned in the Outcome.
type Notifier interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, batch Batch) Outcome
}

// Dispatch tries notifiers in order, skipping unconfigured ones, and stops at
// the first that succeeds. The zero Outcome means nothing was sent.
func Dispatch(ctx context.Context, log *zap.SugaredLogger, notifiers []Notifier, batch Batch) Outcome {
	attempted := 0
	for _, n := range notifiers {
		if !n.Configured() {
			log.Debugw("notifier not configured, skipping", "notifier", n.Name())
			continue
		}

		attempted++
		out := n.Send(ctx, batch)
		if out.Sent {
			log.Infow("✅ notified", "notifier", n.Name(), "count", len(batch))
			return out
		}
		log.Warnw("notify failed", "notifier", n.Name(), "error", out.Err)
	}

	if attempted == 0 {
		log.Warn(MsgNotConfigured)
	} else {
		log.Warnw(MsgAllFailed, "attempted", attempted)
	}
	return Outcome{}
}
