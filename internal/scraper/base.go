// Define the job record shared by all sources
// Define the interface every source fetcher implements

package scraper

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
)

// Job is one matching posting from one source. Jobs are built once by a fetcher
// and never modified afterwards.
type Job struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Matches     []string `json:"matches"`
}

// NewJob builds a Job whose ID is derived from the link, or from the title when
// the link is empty.
func NewJob(title, link, description, source string, matches []string) Job {
	key := link
	if key == "" {
		key = title
	}
	return Job{
		ID:          MakeID(key),
		Title:       title,
		Link:        link,
		Description: description,
		Source:      source,
		Matches:     matches,
	}
}

// MakeID returns the lowercase hex SHA-1 of s. It is a stable dedup key, not a
// security primitive.
func MakeID(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Result is the outcome of one fetch: either jobs, or the reason there are none.
type Result struct {
	Source string
	Jobs   []Job
	Err    error
}

func (r Result) OK() bool { return r.Err == nil }

// Failed builds an error Result for source.
func Failed(source string, err error) Result {
	return Result{Source: source, Err: err}
}

// Scraper is implemented by every job source.
type Scraper interface {
	// Fetch performs the network call for this source and returns only the
	// jobs matching keywords. Failures are reported in Result.Err.
	Fetch(ctx context.Context, keywords []string) Result

	// Name is the source name used in logs (remoteok, indeed, feeds, ...)
	Name() string
}
