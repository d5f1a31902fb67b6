// Package output persists contact records.
package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/contact-scraper/pkg/models"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// Header is the first row of every results file
var Header = []string{"url", "emails", "phones"}

// MultiValueSeparator joins multiple emails or phones inside one CSV field
const MultiValueSeparator = ", "

// Sink accepts contact records for persistence
type Sink interface {
	Append(record models.ContactRecord) error
}

// CSVSink appends contact records to a CSV file.
// Each Append opens the file, writes one row (plus the header if the file is new or empty), flushes and closes.
// Safe for concurrent use.
type CSVSink struct {
	path    string
	log     *logrus.Entry
	mu      sync.Mutex
	written int
}

// NewCSVSink creates a sink for path without touching the filesystem
func NewCSVSink(path string, log *logrus.Entry) *CSVSink {
	return &CSVSink{
		path: path,
		log:  log.WithField("output_file", path),
	}
}

// Path returns the output file path
func (s *CSVSink) Path() string {
	return s.path
}

// Prepare creates the parent directory and verifies the file can be opened for appending.
// Lets a run fail before any fetch when the output path is unusable.
func (s *CSVSink) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.open()
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: closing '%s': %w", utils.ErrFilesystem, s.path, err)
	}
	return nil
}

// Append writes record as one CSV row
func (s *CSVSink) Append(record models.ContactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.open()
	if err != nil {
		return err
	}

	writeErr := s.writeRow(file, record)
	closeErr := file.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return fmt.Errorf("%w: closing '%s': %w", utils.ErrFilesystem, s.path, closeErr)
	}

	s.written++
	s.log.WithFields(logrus.Fields{
		"url":    record.URL,
		"emails": len(record.Emails),
		"phones": len(record.Phones),
	}).Debug("Appended contact record")
	return nil
}

// Written returns the number of rows appended by this sink instance (header excluded)
func (s *CSVSink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// open must be called with s.mu held
func (s *CSVSink) open() (*os.File, error) {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: creating directory '%s': %w", utils.ErrFilesystem, dir, err)
		}
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening '%s': %w", utils.ErrFilesystem, s.path, err)
	}
	return file, nil
}

func (s *CSVSink) writeRow(file *os.File, record models.ContactRecord) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat '%s': %w", utils.ErrFilesystem, s.path, err)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("%w: writing header to '%s': %w", utils.ErrFilesystem, s.path, err)
		}
		s.log.Info("Created results file with header")
	}

	row := []string{
		record.URL,
		strings.Join(record.Emails, MultiValueSeparator),
		strings.Join(record.Phones, MultiValueSeparator),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("%w: writing row to '%s': %w", utils.ErrFilesystem, s.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flushing '%s': %w", utils.ErrFilesystem, s.path, err)
	}
	return nil
}

// IsFilesystemError reports whether err came from the sink's file handling
func IsFilesystemError(err error) bool {
	return errors.Is(err, utils.ErrFilesystem)
}
