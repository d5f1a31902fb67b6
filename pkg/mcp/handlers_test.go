package mcp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/contact-scraper/pkg/config"
	"github.com/Sriram-PR/contact-scraper/pkg/models"
)

// gateFetcher serves canned pages; when gate is non-nil every fetch blocks until it is closed.
// With ignoreCancel a blocked fetch also ignores ctx, like a request already on the wire.
type gateFetcher struct {
	mu           sync.Mutex
	pages        map[string]string
	gate         chan struct{}
	ignoreCancel bool
	calls        []string
}

func (f *gateFetcher) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.gate != nil && f.ignoreCancel {
		<-f.gate
	} else if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	body, ok := f.pages[url]
	if !ok {
		return &models.FetchResult{URL: url, StatusCode: http.StatusNotFound}, nil
	}
	return &models.FetchResult{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func newTestServer(t *testing.T, f *gateFetcher, maxJobs int) *Server {
	t.Helper()
	appCfg := config.Default()
	appCfg.OutputFile = filepath.Join(t.TempDir(), "results.csv")
	appCfg.FetchDelay = 0
	appCfg.MaxConcurrentJobs = maxJobs

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := NewServer(&ServerConfig{
		AppConfig: appCfg,
		Transport: "stdio",
		Logger:    logger,
		Fetcher:   f,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func callTool(t *testing.T, h toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func jobStatus(t *testing.T, s *Server, id string) JobStatus {
	t.Helper()
	job, ok := s.jobManager.GetJob(id)
	require.True(t, ok)
	return job.Status
}

const contactSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/contact</loc></url>
</urlset>`

func TestNewServer_RequiresAppConfig(t *testing.T) {
	_, err := NewServer(&ServerConfig{})
	assert.Error(t, err)
}

func TestHandleExtractContacts(t *testing.T) {
	s := newTestServer(t, &gateFetcher{}, 1)

	t.Run("finds contacts", func(t *testing.T) {
		res := callTool(t, s.handleExtractContacts, map[string]any{
			"text": "Mail sales@acme.io or call 555-123-4567.",
		})
		out := resultJSON(t, res)
		assert.Equal(t, []any{"sales@acme.io"}, out["emails"])
		assert.Equal(t, []any{"555-123-4567"}, out["phones"])
		assert.EqualValues(t, 1, out["email_count"])
	})

	t.Run("nothing found gives empty arrays", func(t *testing.T) {
		out := resultJSON(t, callTool(t, s.handleExtractContacts, map[string]any{"text": "hello"}))
		assert.Equal(t, []any{}, out["emails"])
		assert.Equal(t, []any{}, out["phones"])
	})

	t.Run("missing text", func(t *testing.T) {
		res := callTool(t, s.handleExtractContacts, map[string]any{})
		assert.True(t, res.IsError)
	})
}

func TestHandleScrapePage(t *testing.T) {
	f := &gateFetcher{pages: map[string]string{
		"https://example.com/contact": `<html><body><p>hi@example.com</p>
			<a href="/about">About</a></body></html>`,
	}}
	s := newTestServer(t, f, 1)

	t.Run("returns contacts without writing output", func(t *testing.T) {
		out := resultJSON(t, callTool(t, s.handleScrapePage, map[string]any{"url": "https://example.com/contact"}))
		assert.Equal(t, []any{"hi@example.com"}, out["emails"])
		assert.EqualValues(t, 200, out["status_code"])
		assert.EqualValues(t, 1, out["links_found"])

		_, err := os.Stat(s.cfg.AppConfig.OutputFile)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("non-200 is a tool error", func(t *testing.T) {
		res := callTool(t, s.handleScrapePage, map[string]any{"url": "https://example.com/missing"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "HTTP_404")
	})

	t.Run("invalid url", func(t *testing.T) {
		res := callTool(t, s.handleScrapePage, map[string]any{"url": "ftp://example.com/"})
		assert.True(t, res.IsError)
	})
}

func TestHandleScrapeSite_Completes(t *testing.T) {
	f := &gateFetcher{pages: map[string]string{
		"https://example.com/sitemap.xml": contactSitemap,
		"https://example.com/contact":     `<html><body>team@example.com</body></html>`,
	}}
	s := newTestServer(t, f, 1)

	out := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://example.com/"}))
	assert.Equal(t, "started", out["status"])
	assert.Equal(t, "example.com", out["domain"])
	jobID, _ := out["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		return jobStatus(t, s, jobID) == JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	status := resultJSON(t, callTool(t, s.handleGetJobStatus, map[string]any{"job_id": jobID}))
	assert.Equal(t, "completed", status["status"])
	assert.Equal(t, "sitemap", status["mode"])
	assert.EqualValues(t, 1, status["records_written"])

	file, err := os.Open(s.cfg.AppConfig.OutputFile)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"url", "emails", "phones"},
		{"https://example.com/contact", "team@example.com", ""},
	}, rows)
}

func TestHandleScrapeSite_AlreadyRunningAndCancel(t *testing.T) {
	f := &gateFetcher{gate: make(chan struct{})}
	defer close(f.gate)
	s := newTestServer(t, f, 1)

	first := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://example.com/"}))
	jobID := first["job_id"].(string)

	second := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://www.example.com/contact"}))
	assert.Equal(t, "already_running", second["status"])
	assert.Equal(t, jobID, second["job_id"])

	cancelled := resultJSON(t, callTool(t, s.handleCancelJob, map[string]any{"job_id": jobID}))
	assert.Equal(t, true, cancelled["cancelled"])
	assert.Equal(t, "cancelled", cancelled["status"])

	again := resultJSON(t, callTool(t, s.handleCancelJob, map[string]any{"job_id": jobID}))
	assert.Equal(t, false, again["cancelled"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, JobStatusCancelled, jobStatus(t, s, jobID))
}

func TestHandleScrapeSite_CancelledJobHoldsDomainUntilRunReturns(t *testing.T) {
	f := &gateFetcher{gate: make(chan struct{}), ignoreCancel: true}
	s := newTestServer(t, f, 2)

	first := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://example.com/"}))
	jobID := first["job_id"].(string)
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.calls) > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.True(t, s.jobManager.CancelJob(jobID))

	second := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://example.com/"}))
	assert.Equal(t, "already_running", second["status"])
	assert.Equal(t, jobID, second["job_id"])
	assert.Equal(t, "cancelled", second["job_status"])

	close(f.gate)
	require.Eventually(t, func() bool {
		return !s.jobManager.IsRunning("example.com")
	}, 5*time.Second, 10*time.Millisecond)

	third := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://example.com/"}))
	assert.Equal(t, "started", third["status"])
	assert.NotEqual(t, jobID, third["job_id"])
}

func TestHandleScrapeSite_ConcurrencyCap(t *testing.T) {
	gate := make(chan struct{})
	f := &gateFetcher{gate: gate, pages: map[string]string{}}
	s := newTestServer(t, f, 1)

	a := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://a.example.com/"}))
	idA := a["job_id"].(string)
	require.Eventually(t, func() bool {
		return jobStatus(t, s, idA) == JobStatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	b := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://b.example.org/"}))
	c := resultJSON(t, callTool(t, s.handleScrapeSite, map[string]any{"url": "https://c.example.net/"}))
	idB, idC := b["job_id"].(string), c["job_id"].(string)

	assert.Equal(t, JobStatusPending, jobStatus(t, s, idB))
	assert.Equal(t, JobStatusPending, jobStatus(t, s, idC))

	// A pending job can be cancelled before it gets a slot
	require.True(t, s.jobManager.CancelJob(idC))

	close(gate)
	require.Eventually(t, func() bool {
		return jobStatus(t, s, idA) == JobStatusCompleted && jobStatus(t, s, idB) == JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, JobStatusCancelled, jobStatus(t, s, idC))

	list := resultJSON(t, callTool(t, s.handleListJobs, nil))
	assert.EqualValues(t, 3, list["total_jobs"])
}

func TestHandleScrapeSite_InvalidURL(t *testing.T) {
	s := newTestServer(t, &gateFetcher{}, 1)
	res := callTool(t, s.handleScrapeSite, map[string]any{"url": "not a url"})
	assert.True(t, res.IsError)
	assert.Empty(t, s.jobManager.ListJobs())
}

func TestHandleGetJobStatus_Unknown(t *testing.T) {
	s := newTestServer(t, &gateFetcher{}, 1)
	assert.True(t, callTool(t, s.handleGetJobStatus, map[string]any{"job_id": "nope"}).IsError)
	assert.True(t, callTool(t, s.handleGetJobStatus, map[string]any{}).IsError)
	assert.True(t, callTool(t, s.handleCancelJob, map[string]any{"job_id": "nope"}).IsError)
}
