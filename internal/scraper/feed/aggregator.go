package feed

import (
	"context"
	"net/url"

	"go-job-watcher/internal/config"
	"go-job-watcher/internal/scraper"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const aggregatorName = "feeds"

// Aggregator runs one Scraper per configured feed, in order, and concatenates
// their jobs. It does not deduplicate across feeds: a posting syndicated by two
// feeds is reported twice.
type Aggregator struct {
	feeds []*Scraper
	log   *zap.SugaredLogger
}

// NewAggregator skips feed URLs that are not absolute http(s) URLs, logging each.
func NewAggregator(cfg config.Config, log *zap.SugaredLogger) *Aggregator {
	feeds := make([]*Scraper, 0, len(cfg.Feeds))
	for _, u := range cfg.Feeds {
		if !validFeedURL(u) {
			log.Warnw("skipping malformed feed url", "url", u)
			continue
		}
		feeds = append(feeds, New(u, cfg, log))
	}
	return &Aggregator{feeds: feeds, log: log}
}

func validFeedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (a *Aggregator) Name() string { return aggregatorName }

// Fetch fails only when every feed failed; otherwise failed feeds just contribute
// nothing.
func (a *Aggregator) Fetch(ctx context.Context, keywords []string) scraper.Result {
	var (
		jobs    []scraper.Job
		failed  int
		lastErr error
	)

	for _, f := range a.feeds {
		res := f.Fetch(ctx, keywords)
		if !res.OK() {
			failed++
			lastErr = res.Err
			continue
		}
		a.log.Debugw("feed checked", "url", f.url, "count", len(res.Jobs))
		jobs = append(jobs, res.Jobs...)
	}

	if len(a.feeds) > 0 && failed == len(a.feeds) {
		return scraper.Failed(aggregatorName, errors.Wrapf(lastErr, "all %d feeds failed", failed))
	}
	if failed > 0 {
		a.log.Infow("some feeds failed", "failed", failed, "total", len(a.feeds))
	}
	return scraper.Result{Source: aggregatorName, Jobs: jobs}
}
