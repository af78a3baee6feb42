package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go-job-watcher/internal/config"
	"go-job-watcher/internal/filter"
	"go-job-watcher/internal/scraper"

	"github.com/cockroachdb/errors"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const clientTimeout = 15 * time.Second

// Scraper reads one RSS, Atom or JSON feed.
type Scraper struct {
	name      string
	url       string
	userAgent string
	minMatch  int
	hc        *http.Client
	parser    *gofeed.Parser
	log       *zap.SugaredLogger
}

// New returns a Scraper whose source name is the feed URL itself.
func New(url string, cfg config.Config, log *zap.SugaredLogger) *Scraper {
	return NewNamed(url, url, cfg, log)
}

// NewNamed returns a Scraper reporting jobs under the given source name.
func NewNamed(name, url string, cfg config.Config, log *zap.SugaredLogger) *Scraper {
	return &Scraper{
		name:      name,
		url:       url,
		userAgent: cfg.UserAgent,
		minMatch:  cfg.MinKeywordMatch,
		hc:        &http.Client{Timeout: clientTimeout},
		parser:    gofeed.NewParser(),
		log:       log,
	}
}

func (s *Scraper) Name() string { return s.name }

func (s *Scraper) Fetch(ctx context.Context, keywords []string) scraper.Result {
	jobs, err := s.fetch(ctx, keywords)
	if err != nil {
		s.log.Warnw("RSS fetch failed", "url", s.url, "error", err)
		return scraper.Failed(s.name, err)
	}
	return scraper.Result{Source: s.name, Jobs: jobs}
}

func (s *Scraper) fetch(ctx context.Context, keywords []string) ([]scraper.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "feed %s: build request", s.url)
	}
	req.Header.Set("User-Agent", s.userAgent)

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "feed %s: get", s.url)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return nil, errors.Newf("feed %s: status %d", s.url, res.StatusCode)
	}

	parsed, err := s.parser.Parse(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "feed %s: parse", s.url)
	}

	var out []scraper.Job
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		title := item.Title
		link := item.Link
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		combined := fmt.Sprintf("%s %s", title, summary)
		matches := filter.MatchKeywords(combined, keywords, s.minMatch)
		if len(matches) == 0 {
			continue
		}
		out = append(out, scraper.NewJob(title, link, summary, s.name, matches))
	}
	return out, nil
}
