// Package crawler implements the link-following traversal strategy.
package crawler

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/contact-scraper/pkg/fetch"
	"github.com/Sriram-PR/contact-scraper/pkg/process"
	"github.com/Sriram-PR/contact-scraper/pkg/queue"
	"github.com/Sriram-PR/contact-scraper/pkg/scope"
	"github.com/Sriram-PR/contact-scraper/pkg/scrape"
	"github.com/Sriram-PR/contact-scraper/pkg/storage"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// Stats holds per-run counters for the crawl strategy
type Stats struct {
	Visited    int // URLs marked visited; equals the number of fetch calls
	Skipped    int // Frontier pops discarded as visited or not allowed
	Records    int // Records appended to the sink
	Discovered int // Links newly added to the frontier
	Requeued   int // URLs restored from the store on resume
}

// Options tunes a Crawler
type Options struct {
	MaxPages int  // Stop after this many visits; 0 = until the frontier is empty
	Resume   bool // Restore pending URLs from the store before starting
}

// Crawler runs the frontier loop for one target domain
type Crawler struct {
	scraper *scrape.Scraper
	filter  *scope.Filter
	store   storage.VisitedStore
	pacer   *fetch.Pacer
	opts    Options
	log     *logrus.Entry

	// Progress, readable while Run is in flight
	visited atomic.Int64
	records atomic.Int64
	queued  atomic.Int64
}

// Progress is a point-in-time view of a running crawl
type Progress struct {
	Visited int
	Records int
	Queued  int
}

// NewCrawler creates a Crawler; store owns the visited set and may be persistent
func NewCrawler(scraper *scrape.Scraper, filter *scope.Filter, store storage.VisitedStore, pacer *fetch.Pacer, opts Options, log *logrus.Entry) *Crawler {
	return &Crawler{
		scraper: scraper,
		filter:  filter,
		store:   store,
		pacer:   pacer,
		opts:    opts,
		log:     log.WithField("mode", "crawl"),
	}
}

// GetProgress returns the current progress of the crawler
func (c *Crawler) GetProgress() Progress {
	return Progress{
		Visited: int(c.visited.Load()),
		Records: int(c.records.Load()),
		Queued:  int(c.queued.Load()),
	}
}

// Run crawls from seed until the frontier is empty, MaxPages is reached or ctx is cancelled.
// Fetch failures are absorbed; sink and store failures end the run with an error.
func (c *Crawler) Run(ctx context.Context, seed string) (Stats, error) {
	var stats Stats
	frontier := queue.NewFrontier(seed)

	if c.opts.Resume {
		urls, err := c.store.RequeueIncomplete(ctx)
		if err != nil {
			return stats, err
		}
		for _, u := range urls {
			if frontier.Add(u) {
				stats.Requeued++
			}
		}
		c.log.Infof("Requeued %d URLs from previous run", stats.Requeued)
	}
	c.queued.Store(int64(frontier.Len()))
	c.log.WithField("url", seed).Info("Crawl starting")

	for {
		if err := ctx.Err(); err != nil {
			c.log.Warnf("Context cancelled, stopping crawl: %v", err)
			return stats, err
		}
		if c.opts.MaxPages > 0 && stats.Visited >= c.opts.MaxPages {
			c.log.Infof("Reached max_pages (%d) with %d URLs left in the frontier", c.opts.MaxPages, frontier.Len())
			break
		}

		current, ok := frontier.Pop()
		if !ok {
			break
		}
		c.queued.Store(int64(frontier.Len()))
		taskLog := c.log.WithField("url", current)

		visited, err := c.store.IsVisited(current)
		if err != nil {
			return stats, err
		}
		if visited || !c.filter.Allowed(current) {
			stats.Skipped++
			taskLog.Debug("Discarding URL (visited or not allowed)")
			continue
		}

		added, err := c.store.MarkVisited(current)
		if err != nil {
			return stats, err
		}
		if !added {
			stats.Skipped++
			continue
		}
		stats.Visited++
		c.visited.Add(1)

		outcome, err := c.scraper.ScrapePage(ctx, current)
		if err != nil {
			return stats, err
		}
		if outcome.Record != nil {
			stats.Records++
			c.records.Add(1)
		}
		if err := c.store.MarkDone(current, categoryOf(outcome.Err)); err != nil {
			return stats, err
		}

		newLinks, err := c.enqueueLinks(frontier, current, outcome.Body, taskLog)
		if err != nil {
			return stats, err
		}
		stats.Discovered += newLinks
		c.queued.Store(int64(frontier.Len()))

		if err := c.pacer.Pause(ctx); err != nil {
			return stats, err
		}
	}

	c.log.WithFields(logrus.Fields{
		"visited":    stats.Visited,
		"skipped":    stats.Skipped,
		"records":    stats.Records,
		"discovered": stats.Discovered,
	}).Info("Crawl finished")
	return stats, nil
}

// enqueueLinks adds every link on the page that has not been visited to the frontier
func (c *Crawler) enqueueLinks(frontier *queue.Frontier, pageURL string, body []byte, taskLog *logrus.Entry) (int, error) {
	links := process.DiscoverLinks(pageURL, body)
	added := 0
	for _, link := range links {
		visited, err := c.store.IsVisited(link)
		if err != nil {
			return added, err
		}
		if visited || !frontier.Add(link) {
			continue
		}
		if err := c.store.MarkPending(link); err != nil {
			return added, err
		}
		added++
	}
	if len(links) > 0 {
		taskLog.Debugf("Discovered %d links, %d new", len(links), added)
	}
	return added, nil
}

func categoryOf(err error) string {
	if err == nil {
		return ""
	}
	return utils.CategorizeError(err)
}
