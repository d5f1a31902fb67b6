package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Sriram-PR/contact-scraper/pkg/models"
)

// MemoryStore is an in-process VisitedStore; nothing survives the run
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]models.VisitedEntry
	visited int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.VisitedEntry)}
}

// MarkVisited implements VisitedStore
func (s *MemoryStore) MarkVisited(url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[url]; ok && e.Status.IsVisited() {
		return false, nil
	}
	s.entries[url] = newVisitingEntry()
	s.visited++
	return true, nil
}

// MarkDone implements VisitedStore
func (s *MemoryStore) MarkDone(url string, errorType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[url]
	if !ok || !e.Status.IsVisited() {
		e = newVisitingEntry()
		s.visited++
	}
	e.Status = models.PageStatusVisited
	e.ErrorType = errorType
	e.CompletedAt = time.Now()
	s.entries[url] = e
	return nil
}

// MarkPending implements VisitedStore
func (s *MemoryStore) MarkPending(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[url]; !ok {
		s.entries[url] = models.VisitedEntry{Status: models.PageStatusPending}
	}
	return nil
}

// Status implements VisitedStore
func (s *MemoryStore) Status(url string) (models.PageStatus, *models.VisitedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[url]
	if !ok {
		return models.PageStatusNotFound, nil, nil
	}
	return e.Status, &e, nil
}

// IsVisited implements VisitedStore
func (s *MemoryStore) IsVisited(url string) (bool, error) {
	status, _, err := s.Status(url)
	return status.IsVisited(), err
}

// RequeueIncomplete implements VisitedStore
func (s *MemoryStore) RequeueIncomplete(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var urls []string
	for url, e := range s.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch e.Status {
		case models.PageStatusPending:
			urls = append(urls, url)
		case models.PageStatusVisiting:
			s.entries[url] = models.VisitedEntry{Status: models.PageStatusPending}
			s.visited--
			urls = append(urls, url)
		}
	}
	sort.Strings(urls)
	return urls, nil
}

// Count implements VisitedStore
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visited
}

// Close implements VisitedStore
func (s *MemoryStore) Close() error { return nil }
