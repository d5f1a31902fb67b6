// Package scrape implements the fetch, extract and persist step shared by both traversal strategies.
package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/contact-scraper/pkg/fetch"
	"github.com/Sriram-PR/contact-scraper/pkg/models"
	"github.com/Sriram-PR/contact-scraper/pkg/output"
	"github.com/Sriram-PR/contact-scraper/pkg/process"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// Scraper fetches a page, extracts its contacts and appends a record when any were found
type Scraper struct {
	fetcher fetch.HTTPFetcher
	sink    output.Sink
	log     *logrus.Entry
}

// New creates a Scraper; sink may be nil for extraction-only use
func New(fetcher fetch.HTTPFetcher, sink output.Sink, log *logrus.Entry) *Scraper {
	return &Scraper{fetcher: fetcher, sink: sink, log: log}
}

// Inspect fetches pageURL and extracts contacts without writing anything.
// Fetch failures and non-200 responses are recorded in the outcome, not returned.
// The returned error is non-nil only when ctx was cancelled.
func (s *Scraper) Inspect(ctx context.Context, pageURL string) (models.PageOutcome, error) {
	outcome := models.PageOutcome{URL: pageURL}
	pageLog := s.log.WithField("url", pageURL)

	result, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
		}
		// Request-creation failures never reach the network
		outcome.Fetched = !errors.Is(err, utils.ErrRequestCreation)
		outcome.Err = err
		pageLog.WithField("category", utils.CategorizeError(err)).Warnf("Failed to scrape %s: %v", pageURL, err)
		return outcome, nil
	}

	outcome.Fetched = true
	outcome.StatusCode = result.StatusCode
	if !result.OK() {
		outcome.Err = fetch.StatusError(result)
		pageLog.WithField("status_code", result.StatusCode).Warn("Non-200 response, treating as empty page")
		return outcome, nil
	}

	outcome.Body = result.Body
	// Scan raw markup so mailto: hrefs count and tags keep adjacent values apart
	emails, phones := process.ExtractContacts(string(result.Body))
	record := models.ContactRecord{URL: pageURL, Emails: emails, Phones: phones}
	if record.HasContacts() {
		outcome.Record = &record
	}
	return outcome, nil
}

// ScrapePage is Inspect followed by appending the record to the sink.
// A sink failure is returned as an error wrapping utils.ErrFilesystem and must end the run.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) (models.PageOutcome, error) {
	s.log.WithField("url", pageURL).Infof("Scraping: %s", pageURL)

	outcome, err := s.Inspect(ctx, pageURL)
	if err != nil {
		return outcome, err
	}
	if outcome.Record == nil || s.sink == nil {
		return outcome, nil
	}

	if err := s.sink.Append(*outcome.Record); err != nil {
		return outcome, fmt.Errorf("saving contacts for '%s': %w", pageURL, err)
	}
	s.log.WithFields(logrus.Fields{
		"url":    pageURL,
		"emails": len(outcome.Record.Emails),
		"phones": len(outcome.Record.Phones),
	}).Info("Saved contacts")
	return outcome, nil
}
