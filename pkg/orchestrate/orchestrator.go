// Package orchestrate picks a traversal strategy for a seed URL and runs it to completion.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/contact-scraper/pkg/config"
	"github.com/Sriram-PR/contact-scraper/pkg/crawler"
	"github.com/Sriram-PR/contact-scraper/pkg/fetch"
	"github.com/Sriram-PR/contact-scraper/pkg/models"
	"github.com/Sriram-PR/contact-scraper/pkg/output"
	"github.com/Sriram-PR/contact-scraper/pkg/parse"
	"github.com/Sriram-PR/contact-scraper/pkg/scope"
	"github.com/Sriram-PR/contact-scraper/pkg/scrape"
	"github.com/Sriram-PR/contact-scraper/pkg/sitemap"
	"github.com/Sriram-PR/contact-scraper/pkg/storage"
)

const badgerGCInterval = 5 * time.Minute

// Deps are the shared collaborators of a run. Nil fields are built from the AppConfig.
type Deps struct {
	Fetcher fetch.HTTPFetcher
	Sink    output.Sink
	Pacer   *fetch.Pacer
}

// Progress is a point-in-time view of a run, safe to read while Run is in flight
type Progress struct {
	Mode    models.RunMode
	Fetches int
	Records int
	Queued  int
}

// Orchestrator runs one seed URL through the sitemap strategy, falling back to crawling
type Orchestrator struct {
	appCfg *config.AppConfig
	deps   Deps
	log    *logrus.Entry

	fetches atomic.Int64
	records atomic.Int64

	mu      sync.Mutex
	mode    models.RunMode
	crawler *crawler.Crawler
}

// New creates an Orchestrator. appCfg must already be validated.
func New(appCfg *config.AppConfig, deps Deps, log *logrus.Entry) *Orchestrator {
	if deps.Fetcher == nil {
		httpClient := fetch.NewClient(appCfg.HTTPClientSettings, log)
		f := fetch.NewFetcher(httpClient, appCfg.UserAgent, log)
		f.SetMaxBodyBytes(appCfg.MaxBodyBytes)
		deps.Fetcher = f
	}
	if deps.Pacer == nil {
		deps.Pacer = fetch.NewPacer(appCfg.FetchDelay, log)
	}
	return &Orchestrator{appCfg: appCfg, deps: deps, log: log}
}

// GetProgress returns the current progress of the run
func (o *Orchestrator) GetProgress() Progress {
	o.mu.Lock()
	mode, c := o.mode, o.crawler
	o.mu.Unlock()

	p := Progress{
		Mode:    mode,
		Fetches: int(o.fetches.Load()),
		Records: int(o.records.Load()),
	}
	if c != nil {
		p.Queued = c.GetProgress().Queued
	}
	return p
}

// Run scrapes the domain of seedURL. The returned summary is non-nil whenever the seed was valid,
// including when the run stopped early with an error.
func (o *Orchestrator) Run(ctx context.Context, seedURL string) (*models.RunSummary, error) {
	runID := uuid.New().String()
	runLog := o.log.WithField("run_id", runID)

	seed, domain, err := parse.ParseSeed(seedURL)
	if err != nil {
		runLog.Errorf("Invalid seed URL '%s': %v", seedURL, err)
		return nil, err
	}
	runLog = runLog.WithField("domain", domain)

	sink, err := o.sink(runLog)
	if err != nil {
		runLog.Errorf("Cannot prepare output: %v", err)
		return nil, err
	}

	summary := &models.RunSummary{
		RunID:        runID,
		SeedURL:      seed.String(),
		TargetDomain: domain,
		OutputFile:   o.appCfg.OutputFile,
		StartTime:    time.Now(),
	}

	fetcher := &countingFetcher{inner: o.deps.Fetcher, n: &o.fetches}
	sink = &countingSink{inner: sink, n: &o.records}
	filter := scope.NewFilter(domain, scope.Config{
		MaxPathLength:   o.appCfg.MaxPathLength,
		ExcludePatterns: o.appCfg.ExcludePatterns,
	})
	scraper := scrape.New(fetcher, sink, runLog)

	sm := sitemap.NewStrategy(fetcher, scraper, filter, o.deps.Pacer, o.appCfg.SitemapPath, runLog)
	doc, found := sm.FetchSitemap(ctx, summary.SeedURL)
	if err := ctx.Err(); err != nil {
		return o.finish(summary, 0, 0, err, runLog)
	}

	if found {
		o.setMode(models.RunModeSitemap, nil)
		summary.Mode = models.RunModeSitemap
		stats, runErr := sm.Run(ctx, doc)
		return o.finish(summary, stats.Records, stats.Skipped, runErr, runLog)
	}

	runLog.Info("No sitemap, falling back to crawling")
	summary.Mode = models.RunModeCrawl
	store, err := o.openStore(domain, runLog)
	if err != nil {
		return o.finish(summary, 0, 0, err, runLog)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			runLog.Warnf("Closing visited store: %v", closeErr)
		}
	}()

	c := crawler.NewCrawler(scraper, filter, store, o.deps.Pacer, crawler.Options{
		MaxPages: o.appCfg.MaxPages,
		Resume:   o.appCfg.Resume,
	}, runLog)
	o.setMode(models.RunModeCrawl, c)
	stats, runErr := c.Run(ctx, summary.SeedURL)
	return o.finish(summary, stats.Records, stats.Skipped, runErr, runLog)
}

func (o *Orchestrator) setMode(mode models.RunMode, c *crawler.Crawler) {
	o.mu.Lock()
	o.mode = mode
	o.crawler = c
	o.mu.Unlock()
}

// sink returns the injected sink or a CSV sink at the configured output path
func (o *Orchestrator) sink(log *logrus.Entry) (output.Sink, error) {
	if o.deps.Sink != nil {
		return o.deps.Sink, nil
	}
	csvSink := output.NewCSVSink(o.appCfg.OutputFile, log)
	if err := csvSink.Prepare(); err != nil {
		return nil, err
	}
	o.deps.Sink = csvSink
	return csvSink, nil
}

// openStore returns a persistent badger store when resuming, otherwise an in-memory one
func (o *Orchestrator) openStore(domain string, log *logrus.Entry) (storage.VisitedStore, error) {
	if !o.appCfg.Resume {
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewBadgerStore(o.appCfg.StateDir, domain, true, log)
	if err != nil {
		return nil, fmt.Errorf("opening visited store for '%s': %w", domain, err)
	}
	gcCtx, stopGC := context.WithCancel(context.Background())
	go store.RunGC(gcCtx, badgerGCInterval)
	return &gcStoppingStore{BadgerStore: store, stop: stopGC}, nil
}

func (o *Orchestrator) finish(summary *models.RunSummary, records, skipped int, runErr error, log *logrus.Entry) (*models.RunSummary, error) {
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	summary.PagesFetched = int(o.fetches.Load())
	summary.RecordsWritten = records
	summary.Skipped = skipped
	logSummary(log, summary, runErr)
	return summary, runErr
}

// logSummary logs the end-of-run block
func logSummary(log *logrus.Entry, s *models.RunSummary, runErr error) {
	status := "COMPLETED"
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = "CANCELLED"
	default:
		status = "FAILED"
	}

	log.Info("============================================")
	log.Infof("SCRAPE %s: %s", status, s.TargetDomain)
	log.Infof("Mode: %s", s.Mode)
	log.Infof("Duration: %v", s.Duration.Round(time.Millisecond))
	log.Infof("Pages fetched: %d", s.PagesFetched)
	log.Infof("Records written: %d -> %s", s.RecordsWritten, s.OutputFile)
	log.Infof("URLs skipped: %d", s.Skipped)
	if runErr != nil {
		log.Infof("Error: %v", runErr)
	}
	log.Info("============================================")
}

// countingFetcher counts fetch attempts, the sitemap request included
type countingFetcher struct {
	inner fetch.HTTPFetcher
	n     *atomic.Int64
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	f.n.Add(1)
	return f.inner.Fetch(ctx, url)
}

type countingSink struct {
	inner output.Sink
	n     *atomic.Int64
}

func (s *countingSink) Append(record models.ContactRecord) error {
	if err := s.inner.Append(record); err != nil {
		return err
	}
	s.n.Add(1)
	return nil
}

// gcStoppingStore stops the value-log GC loop when the store is closed
type gcStoppingStore struct {
	*storage.BadgerStore
	stop context.CancelFunc
}

func (s *gcStoppingStore) Close() error {
	s.stop()
	return s.BadgerStore.Close()
}
