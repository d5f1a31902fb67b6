// Package storage tracks which URLs a crawl has visited.
package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/contact-scraper/pkg/models"
)

// VisitedStore is the crawl's visited set plus the pending frontier it may need to restore
type VisitedStore interface {
	// MarkVisited atomically moves url to the visiting state.
	// Returns true if the URL had not been visited before (absent or pending), false otherwise.
	MarkVisited(url string) (bool, error)

	// MarkDone records that the fetch for url finished; errorType is the failure category or ""
	MarkDone(url string, errorType string) error

	// MarkPending records url as discovered but not yet fetched. Visited URLs are left untouched.
	MarkPending(url string) error

	// Status returns the state of url and its entry if one exists
	Status(url string) (models.PageStatus, *models.VisitedEntry, error)

	// IsVisited reports whether url is visiting or visited
	IsVisited(url string) (bool, error)

	// RequeueIncomplete returns every pending URL plus every URL left in the visiting state
	// by an interrupted run; the latter are reset to pending.
	RequeueIncomplete(ctx context.Context) ([]string, error)

	// Count returns the number of visited URLs
	Count() int

	// Close releases resources held by the store
	Close() error
}

func newVisitingEntry() models.VisitedEntry {
	return models.VisitedEntry{Status: models.PageStatusVisiting, LastAttempt: time.Now()}
}
