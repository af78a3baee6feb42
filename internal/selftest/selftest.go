// Package selftest holds the offline sanity checks run before a pass when
// RUN_JOB_WATCHER_TESTS=1.
package selftest

import (
	"context"

	"go-job-watcher/internal/dedup"
	"go-job-watcher/internal/filter"
	"go-job-watcher/internal/scraper"

	"github.com/cockroachdb/errors"
)

// EnvToggle is the environment variable that enables the checks.
// LegacyEnvToggle is its older name and is still honoured.
const (
	EnvToggle       = "RUN_JOB_WATCHER_TESTS"
	LegacyEnvToggle = "RUN_JOB_AGENT_TESTS"
)

// Enabled reports whether either toggle is set to "1".
func Enabled(getenv func(string) string) bool {
	return getenv(EnvToggle) == "1" || getenv(LegacyEnvToggle) == "1"
}

type check struct {
	name string
	run  func(ctx context.Context) error
}

var checks = []check{
	{"keyword match", func(context.Context) error {
		if len(filter.MatchKeywords("Senior Python Django developer", []string{"python", "django"}, 1)) == 0 {
			return errors.New("expected a match")
		}
		if m := filter.MatchKeywords("No match here", []string{"python"}, 1); len(m) != 0 {
			return errors.Newf("expected no match, got %v", m)
		}
		return nil
	}},
	{"id determinism", func(context.Context) error {
		a := scraper.MakeID("https://example.com/job/1")
		b := scraper.MakeID("https://example.com/job/1")
		if a != b {
			return errors.Newf("ids differ: %s != %s", a, b)
		}
		return nil
	}},
	{"disabled seen-store", func(ctx context.Context) error {
		var s dedup.Store = dedup.NopStore{}
		if s.IsSeen(ctx, "someid") {
			return errors.New("nop store reported a job as seen")
		}
		return s.MarkSeen(ctx, dedup.Record{ID: "someid", Title: "title", Link: "link", Source: "src"})
	}},
}

// Run executes every check and returns the first failure.
func Run(ctx context.Context) error {
	for _, c := range checks {
		if err := c.run(ctx); err != nil {
			return errors.Wrapf(err, "self-test %q", c.name)
		}
	}
	return nil
}
