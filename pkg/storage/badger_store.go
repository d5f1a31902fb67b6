package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/contact-scraper/pkg/log"
	"github.com/Sriram-PR/contact-scraper/pkg/models"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

const (
	pageKeyPrefix = "page:"      // Prefix for page URL keys in DB
	visitedDBDir  = "visited_db" // Suffix of the per-domain directory within stateDir
)

// BadgerStore implements VisitedStore on BadgerDB so a crawl can resume after interruption
type BadgerStore struct {
	db      *badger.DB
	path    string
	log     *logrus.Entry
	visited atomic.Int64 // Cached visited count for O(1) Count
}

// DBPath returns the directory a BadgerStore for domain uses under stateDir
func DBPath(stateDir, domain string) string {
	name := strings.NewReplacer(".", "_", ":", "_", "/", "_", "\\", "_").Replace(domain)
	return filepath.Join(stateDir, name+"_"+visitedDBDir)
}

// NewBadgerStore opens the store for domain under stateDir.
// Without resume any existing state for the domain is removed first.
func NewBadgerStore(stateDir, domain string, resume bool, logger *logrus.Entry) (*BadgerStore, error) {
	dbPath := DBPath(stateDir, domain)
	store := &BadgerStore{path: dbPath, log: logger.WithField("state_db", dbPath)}

	if !resume {
		if _, err := os.Stat(dbPath); err == nil {
			store.log.Warn("Resume disabled. Removing existing crawl state.")
		}
		if err := os.RemoveAll(dbPath); err != nil {
			store.log.Errorf("Failed to remove existing state directory: %v", err)
		}
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogger(logger.WithField("component", "badgerdb"))).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}
	store.db = db

	if resume {
		count, err := store.countVisited()
		if err != nil {
			store.log.Warnf("Failed to count visited URLs on resume: %v", err)
		} else {
			store.visited.Store(int64(count))
			store.log.Infof("Resuming with %d visited URLs", count)
		}
	}
	return store, nil
}

// Path returns the database directory
func (s *BadgerStore) Path() string {
	return s.path
}

func pageKey(url string) []byte {
	return []byte(pageKeyPrefix + url)
}

// getEntry reads and decodes the entry for key inside txn; nil when absent
func getEntry(txn *badger.Txn, key []byte) (*models.VisitedEntry, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry models.VisitedEntry
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: decoding entry '%s': %w", utils.ErrParsing, string(key), err)
	}
	return &entry, nil
}

func setEntry(txn *badger.Txn, key []byte, entry models.VisitedEntry) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encoding entry '%s': %w", utils.ErrParsing, string(key), err)
	}
	return txn.SetEntry(badger.NewEntry(key, val))
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// MarkVisited implements VisitedStore
func (s *BadgerStore) MarkVisited(url string) (bool, error) {
	key := pageKey(url)
	added := false

	err := s.dbUpdate(func(txn *badger.Txn) error {
		added = false
		existing, err := getEntry(txn, key)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status.IsVisited() {
			return nil
		}
		added = true
		return setEntry(txn, key, newVisitingEntry())
	})
	if err != nil {
		return false, fmt.Errorf("%w: marking '%s' visited: %w", utils.ErrDatabase, url, err)
	}
	if added {
		s.visited.Add(1)
	}
	return added, nil
}

// MarkDone implements VisitedStore
func (s *BadgerStore) MarkDone(url string, errorType string) error {
	key := pageKey(url)
	newlyVisited := false

	err := s.dbUpdate(func(txn *badger.Txn) error {
		newlyVisited = false
		existing, err := getEntry(txn, key)
		if err != nil {
			return err
		}
		entry := newVisitingEntry()
		if existing != nil && existing.Status.IsVisited() {
			entry = *existing
		} else {
			newlyVisited = true
		}
		entry.Status = models.PageStatusVisited
		entry.ErrorType = errorType
		entry.CompletedAt = time.Now()
		return setEntry(txn, key, entry)
	})
	if err != nil {
		return fmt.Errorf("%w: marking '%s' done: %w", utils.ErrDatabase, url, err)
	}
	if newlyVisited {
		s.visited.Add(1)
	}
	return nil
}

// MarkPending implements VisitedStore
func (s *BadgerStore) MarkPending(url string) error {
	key := pageKey(url)
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil // already known in some state
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setEntry(txn, key, models.VisitedEntry{Status: models.PageStatusPending})
	})
	if err != nil {
		return fmt.Errorf("%w: marking '%s' pending: %w", utils.ErrDatabase, url, err)
	}
	return nil
}

// Status implements VisitedStore
func (s *BadgerStore) Status(url string) (models.PageStatus, *models.VisitedEntry, error) {
	var entry *models.VisitedEntry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = getEntry(txn, pageKey(url))
		return err
	})
	if err != nil {
		s.log.WithField("url", url).Errorf("DB View error in Status: %v", err)
		return models.PageStatusDBError, nil, fmt.Errorf("%w: reading '%s': %w", utils.ErrDatabase, url, err)
	}
	if entry == nil {
		return models.PageStatusNotFound, nil, nil
	}
	return entry.Status, entry, nil
}

// IsVisited implements VisitedStore
func (s *BadgerStore) IsVisited(url string) (bool, error) {
	status, _, err := s.Status(url)
	if err != nil {
		return false, err
	}
	return status.IsVisited(), nil
}

// RequeueIncomplete implements VisitedStore
func (s *BadgerStore) RequeueIncomplete(ctx context.Context) ([]string, error) {
	var pending, interrupted []string
	prefix := []byte(pageKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			url := string(item.Key()[len(prefix):])

			var entry models.VisitedEntry
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &entry) }); err != nil {
				s.log.Warnf("Resume scan: skipping undecodable entry for '%s': %v", url, err)
				continue
			}
			switch entry.Status {
			case models.PageStatusPending:
				pending = append(pending, url)
			case models.PageStatusVisiting:
				interrupted = append(interrupted, url)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: resume scan: %w", utils.ErrDatabase, err)
	}

	for _, url := range interrupted {
		err := s.dbUpdate(func(txn *badger.Txn) error {
			return setEntry(txn, pageKey(url), models.VisitedEntry{Status: models.PageStatusPending})
		})
		if err != nil {
			return nil, fmt.Errorf("%w: resetting '%s' to pending: %w", utils.ErrDatabase, url, err)
		}
		s.visited.Add(-1)
	}

	urls := append(pending, interrupted...)
	sort.Strings(urls)
	s.log.WithFields(logrus.Fields{
		"pending":     len(pending),
		"interrupted": len(interrupted),
	}).Info("Resume scan complete")
	return urls, nil
}

// countVisited performs a one-time full scan (used only when resuming)
func (s *BadgerStore) countVisited() (int, error) {
	count := 0
	prefix := []byte(pageKeyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry models.VisitedEntry
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &entry) }); err != nil {
				continue
			}
			if entry.Status.IsVisited() {
				count++
			}
		}
		return nil
	})
	return count, err
}

// Count implements VisitedStore
func (s *BadgerStore) Count() int {
	return int(s.visited.Load())
}

// RunGC runs BadgerDB's value log garbage collection periodically until ctx is done
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}
			var err error
			for err == nil {
				err = s.db.RunValueLogGC(0.5)
			}
			if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close implements VisitedStore
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing visited DB: %v", err)
		return fmt.Errorf("%w: closing: %w", utils.ErrDatabase, err)
	}
	return nil
}
