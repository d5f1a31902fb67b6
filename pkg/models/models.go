package models

import (
	"net/http"
	"time"
)

// ContactRecord is one row of the results file
type ContactRecord struct {
	URL    string   `json:"url"`
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
}

// HasContacts reports whether the record carries at least one email or phone
func (r ContactRecord) HasContacts() bool {
	return len(r.Emails) > 0 || len(r.Phones) > 0
}

// FetchResult is the outcome of a single GET that reached the server.
// Transport failures are reported as errors, never as a FetchResult.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
}

// OK is true only for HTTP 200
func (r *FetchResult) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// UsableBody returns the body when the response was a 200, nil otherwise
func (r *FetchResult) UsableBody() []byte {
	if !r.OK() {
		return nil
	}
	return r.Body
}

// PageOutcome describes what scraping a single page produced
type PageOutcome struct {
	URL        string
	Fetched    bool           // A fetch was attempted (and counts toward pacing)
	StatusCode int            // 0 on transport failure
	Record     *ContactRecord // nil when no contacts were found
	Body       []byte         // 200 body, used for link discovery
	Err        error          // Fetch error, absorbed by the strategies
}

// VisitedEntry is the persisted state of a URL in the visited store
type VisitedEntry struct {
	Status      PageStatus `json:"status"`
	ErrorType   string     `json:"error_type,omitempty"`   // Error category when the fetch failed
	LastAttempt time.Time  `json:"last_attempt"`           // Timestamp the URL was marked visiting
	CompletedAt time.Time  `json:"completed_at,omitempty"` // Timestamp the fetch finished
}

// RunMode identifies the traversal strategy used by a run
type RunMode string

const (
	RunModeSitemap RunMode = "sitemap"
	RunModeCrawl   RunMode = "crawl"
)

// RunSummary holds the totals of one orchestrated run
type RunSummary struct {
	RunID          string        `json:"run_id"`
	Mode           RunMode       `json:"mode"`
	SeedURL        string        `json:"seed_url"`
	TargetDomain   string        `json:"target_domain"`
	OutputFile     string        `json:"output_file"`
	PagesFetched   int           `json:"pages_fetched"`
	RecordsWritten int           `json:"records_written"`
	Skipped        int           `json:"skipped"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration"`
}
