// Package sitemap implements the sitemap-driven traversal strategy.
package sitemap

import (
	"context"
	"errors"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/contact-scraper/pkg/config"
	"github.com/Sriram-PR/contact-scraper/pkg/fetch"
	"github.com/Sriram-PR/contact-scraper/pkg/parse"
	"github.com/Sriram-PR/contact-scraper/pkg/scope"
	"github.com/Sriram-PR/contact-scraper/pkg/scrape"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// Stats holds per-run counters for the sitemap strategy
type Stats struct {
	Candidates int // <loc> entries in the document
	Skipped    int // Rejected by the admission filter
	Fetched    int // Fetch attempts made
	Records    int // Records appended to the sink
}

// Strategy fetches /sitemap.xml and scrapes every admitted entry in document order
type Strategy struct {
	fetcher     fetch.HTTPFetcher
	scraper     *scrape.Scraper
	filter      *scope.Filter
	pacer       *fetch.Pacer
	sitemapPath string
	log         *logrus.Entry
}

// NewStrategy creates a sitemap Strategy; an empty sitemapPath uses /sitemap.xml
func NewStrategy(fetcher fetch.HTTPFetcher, scraper *scrape.Scraper, filter *scope.Filter, pacer *fetch.Pacer, sitemapPath string, log *logrus.Entry) *Strategy {
	if sitemapPath == "" {
		sitemapPath = config.DefaultSitemapPath
	}
	return &Strategy{
		fetcher:     fetcher,
		scraper:     scraper,
		filter:      filter,
		pacer:       pacer,
		sitemapPath: sitemapPath,
		log:         log.WithField("mode", "sitemap"),
	}
}

// FetchSitemap requests {scheme}://{host}/sitemap.xml for baseURL.
// Returns the document and true on HTTP 200 with a non-empty body. Any other status,
// an empty body, a transport failure or an unusable baseURL means "absent" and returns nil, false.
func (s *Strategy) FetchSitemap(ctx context.Context, baseURL string) ([]byte, bool) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		s.log.Warnf("Cannot derive sitemap URL from '%s'", baseURL)
		return nil, false
	}
	sitemapURL := parse.WellKnownURL(base, s.sitemapPath)
	smLog := s.log.WithField("sitemap_url", sitemapURL)

	result, err := s.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		smLog.WithField("category", utils.CategorizeError(err)).Warnf("Sitemap fetch failed: %v", err)
		return nil, false
	}
	if !result.OK() {
		smLog.WithField("status_code", result.StatusCode).Info("Sitemap not found")
		return nil, false
	}
	if len(result.Body) == 0 {
		smLog.Info("Sitemap is empty, treating as absent")
		return nil, false
	}
	smLog.WithField("bytes", len(result.Body)).Info("Sitemap found")
	return result.Body, true
}

// Run scrapes every admitted <loc> in doc, pausing after each fetch attempt.
// Entries are not deduplicated. Returns early only on a sink failure or context cancellation.
func (s *Strategy) Run(ctx context.Context, doc []byte) (Stats, error) {
	var stats Stats
	locs := parse.ParseSitemap(doc)
	stats.Candidates = len(locs)
	s.log.Infof("Parsed sitemap, found %d URLs.", len(locs))

	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			s.log.Warnf("Context cancelled, stopping sitemap processing: %v", err)
			return stats, err
		}

		if !s.filter.Allowed(loc) {
			stats.Skipped++
			s.log.WithField("url", loc).Debug("Skipping URL rejected by admission filter")
			continue
		}

		outcome, err := s.scraper.ScrapePage(ctx, loc)
		if outcome.Fetched {
			stats.Fetched++
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			s.log.WithField("category", utils.CategorizeError(err)).Errorf("Stopping sitemap run: %v", err)
			return stats, err
		}
		if outcome.Record != nil {
			stats.Records++
		}

		if err := s.pacer.Pause(ctx); err != nil {
			return stats, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"candidates": stats.Candidates,
		"skipped":    stats.Skipped,
		"fetched":    stats.Fetched,
		"records":    stats.Records,
	}).Info("Finished sitemap run")
	return stats, nil
}
