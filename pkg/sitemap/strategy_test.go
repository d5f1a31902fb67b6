package sitemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/contact-scraper/pkg/fetch"
	"github.com/Sriram-PR/contact-scraper/pkg/models"
	"github.com/Sriram-PR/contact-scraper/pkg/scope"
	"github.com/Sriram-PR/contact-scraper/pkg/scrape"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// --- Mock types ---

// mockFetcher implements fetch.HTTPFetcher with canned bodies keyed by URL
type mockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	body, ok := m.pages[url]
	if !ok {
		return &models.FetchResult{URL: url, StatusCode: http.StatusNotFound}, nil
	}
	return &models.FetchResult{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

// memorySink implements output.Sink
type memorySink struct {
	records []models.ContactRecord
	err     error
}

func (s *memorySink) Append(r models.ContactRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestStrategy(f *mockFetcher, sink *memorySink) (*Strategy, *fetch.Pacer) {
	log := testLogger()
	filter := scope.NewFilter("example.com", scope.Config{
		MaxPathLength:   15,
		ExcludePatterns: []string{"blog", "article", "news", ".pdf", "how-to", "top-10"},
	})
	pacer := fetch.NewPacer(0, log)
	return NewStrategy(f, scrape.New(f, sink, log), filter, pacer, "", log), pacer
}

const testSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/contact</loc></url>
  <url><loc>https://example.com/blog/post</loc></url>
</urlset>`

func TestFetchSitemap_Found(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{"https://example.com/sitemap.xml": testSitemap}}
	s, _ := newTestStrategy(f, &memorySink{})

	doc, ok := s.FetchSitemap(context.Background(), "https://example.com/some/page?x=1")
	require.True(t, ok)
	assert.Equal(t, testSitemap, string(doc))
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, f.calls)
}

func TestFetchSitemap_NotFound(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{}}
	s, _ := newTestStrategy(f, &memorySink{})

	doc, ok := s.FetchSitemap(context.Background(), "https://example.com")
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestFetchSitemap_EmptyBodyIsAbsent(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{"https://example.com/sitemap.xml": ""}}
	s, _ := newTestStrategy(f, &memorySink{})

	doc, ok := s.FetchSitemap(context.Background(), "https://example.com")
	assert.False(t, ok)
	assert.Nil(t, doc)
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, f.calls)
}

func TestFetchSitemap_TransportFailure(t *testing.T) {
	f := &mockFetcher{errs: map[string]error{
		"https://example.com/sitemap.xml": fmt.Errorf("%w: no such host", utils.ErrTransport),
	}}
	s, _ := newTestStrategy(f, &memorySink{})

	doc, ok := s.FetchSitemap(context.Background(), "https://example.com")
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestFetchSitemap_BadBase(t *testing.T) {
	f := &mockFetcher{}
	s, _ := newTestStrategy(f, &memorySink{})

	_, ok := s.FetchSitemap(context.Background(), "not a url")
	assert.False(t, ok)
	assert.Empty(t, f.calls)
}

func TestFetchSitemap_CustomPath(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{"https://example.com/sitemap_index.xml": testSitemap}}
	log := testLogger()
	s := NewStrategy(f, scrape.New(f, nil, log), scope.NewFilter("example.com", scope.Config{MaxPathLength: 15}), fetch.NewPacer(0, log), "/sitemap_index.xml", log)

	_, ok := s.FetchSitemap(context.Background(), "https://example.com")
	assert.True(t, ok)
}

func TestRun_OnlyAdmittedURLsFetched(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{
		"https://example.com/contact":   "<p>Write to hello@example.com</p>",
		"https://example.com/blog/post": "<p>blog@example.com</p>",
	}}
	sink := &memorySink{}
	s, pacer := newTestStrategy(f, sink)

	stats, err := s.Run(context.Background(), []byte(testSitemap))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/contact"}, f.calls)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "https://example.com/contact", sink.records[0].URL)
	assert.Equal(t, []string{"hello@example.com"}, sink.records[0].Emails)
	assert.Equal(t, Stats{Candidates: 2, Skipped: 1, Fetched: 1, Records: 1}, stats)
	assert.Equal(t, 1, pacer.Pauses(), "one pause per fetch attempt")
}

func TestRun_FiltersDomainsAndPaths(t *testing.T) {
	doc := `<urlset>
<url><loc>https://other.com/contact</loc></url>
<url><loc>https://www.example.com/about</loc></url>
<url><loc>https://example.com/a-very-long-path-name</loc></url>
<url><loc>https://example.com/News</loc></url>
</urlset>`
	f := &mockFetcher{pages: map[string]string{}}
	sink := &memorySink{}
	s, _ := newTestStrategy(f, sink)

	stats, err := s.Run(context.Background(), []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.example.com/about"}, f.calls)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 0, stats.Records)
	assert.Empty(t, sink.records)
}

func TestRun_DuplicateEntriesProcessedEachTime(t *testing.T) {
	doc := `<urlset><url><loc>https://example.com/contact</loc></url><url><loc>https://example.com/contact</loc></url></urlset>`
	f := &mockFetcher{pages: map[string]string{"https://example.com/contact": "a@example.com"}}
	sink := &memorySink{}
	s, _ := newTestStrategy(f, sink)

	stats, err := s.Run(context.Background(), []byte(doc))
	require.NoError(t, err)
	assert.Len(t, f.calls, 2)
	assert.Len(t, sink.records, 2)
	assert.Equal(t, 2, stats.Fetched)
}

func TestRun_FetchFailuresAbsorbed(t *testing.T) {
	doc := `<urlset><url><loc>https://example.com/down</loc></url><url><loc>https://example.com/missing</loc></url><url><loc>https://example.com/contact</loc></url></urlset>`
	f := &mockFetcher{
		pages: map[string]string{"https://example.com/contact": "a@example.com"},
		errs:  map[string]error{"https://example.com/down": fmt.Errorf("%w: connection refused", utils.ErrTransport)},
	}
	sink := &memorySink{}
	s, pacer := newTestStrategy(f, sink)

	stats, err := s.Run(context.Background(), []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 3, pacer.Pauses())
}

func TestRun_SinkFailureStops(t *testing.T) {
	doc := `<urlset><url><loc>https://example.com/a</loc></url><url><loc>https://example.com/b</loc></url></urlset>`
	f := &mockFetcher{pages: map[string]string{
		"https://example.com/a": "a@example.com",
		"https://example.com/b": "b@example.com",
	}}
	sink := &memorySink{err: fmt.Errorf("%w: read-only", utils.ErrFilesystem)}
	s, _ := newTestStrategy(f, sink)

	_, err := s.Run(context.Background(), []byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrFilesystem))
	assert.Equal(t, []string{"https://example.com/a"}, f.calls)
}

func TestRun_ContextCancelled(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{}}
	s, _ := newTestStrategy(f, &memorySink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, []byte(testSitemap))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, f.calls)
}

func TestRun_EmptyDocument(t *testing.T) {
	f := &mockFetcher{}
	s, _ := newTestStrategy(f, &memorySink{})

	stats, err := s.Run(context.Background(), []byte("not xml"))
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}
