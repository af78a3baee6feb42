package remoteok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-job-watcher/internal/config"
	"go-job-watcher/internal/filter"
	"go-job-watcher/internal/scraper"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	sourceName      = "remoteok"
	clientTimeout   = 15 * time.Second
	maxResponseSize = 16 << 20
)

// Scraper reads the RemoteOK public JSON API. The response is a JSON array whose
// first element is usually a legal/metadata object without a position.
type Scraper struct {
	url       string
	userAgent string
	minMatch  int
	hc        *http.Client
	log       *zap.SugaredLogger
}

func New(cfg config.Config, log *zap.SugaredLogger) *Scraper {
	return &Scraper{
		url:       cfg.Sources.RemoteOKURL,
		userAgent: cfg.UserAgent,
		minMatch:  cfg.MinKeywordMatch,
		hc:        &http.Client{Timeout: clientTimeout},
		log:       log,
	}
}

func (s *Scraper) Name() string { return sourceName }

func (s *Scraper) Fetch(ctx context.Context, keywords []string) scraper.Result {
	jobs, err := s.fetch(ctx, keywords)
	if err != nil {
		s.log.Warnw("RemoteOK fetch failed", "url", s.url, "error", err)
		return scraper.Failed(sourceName, err)
	}
	return scraper.Result{Source: sourceName, Jobs: jobs}
}

func (s *Scraper) fetch(ctx context.Context, keywords []string) ([]scraper.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "remoteok: build request")
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "remoteok: get")
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return nil, errors.Newf("remoteok: status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "remoteok: read body")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errors.Wrap(err, "remoteok: decode")
	}

	var out []scraper.Job
	for _, raw := range items {
		var item map[string]any
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			continue
		}
		_, hasPosition := item["position"]
		_, hasTitle := item["title"]
		if !hasPosition && !hasTitle {
			continue
		}

		title := firstString(item, "position", "title")
		company := firstString(item, "company")
		description := firstString(item, "description")
		link := firstString(item, "url", "apply_url")

		combined := fmt.Sprintf("%s %s %s", title, company, description)
		matches := filter.MatchKeywords(combined, keywords, s.minMatch)
		if len(matches) == 0 {
			continue
		}
		out = append(out, scraper.NewJob(title, link, description, sourceName, matches))
	}
	return out, nil
}

// firstString returns the first non-empty string value among keys.
func firstString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := item[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
