package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/contact-scraper/pkg/orchestrate"
	"github.com/Sriram-PR/contact-scraper/pkg/parse"
	"github.com/Sriram-PR/contact-scraper/pkg/process"
	"github.com/Sriram-PR/contact-scraper/pkg/scrape"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

const progressInterval = time.Second

// handleExtractContacts handles the extract_contacts tool
func (s *Server) handleExtractContacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text parameter is required"), nil
	}

	emails, phones := process.ExtractContacts(text)
	result := map[string]interface{}{
		"emails":      nonNil(emails),
		"phones":      nonNil(phones),
		"email_count": len(emails),
		"phone_count": len(phones),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleScrapePage handles the scrape_page tool
func (s *Server) handleScrapePage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if urlStr == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	parsedURL, _, err := parse.ParseSeed(urlStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid URL: %v", err)), nil
	}

	startTime := time.Now()
	outcome, err := scrape.New(s.fetcher, nil, s.log).Inspect(ctx, parsedURL.String())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("request cancelled: %v", err)), nil
	}
	if outcome.Err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch URL (%s): %v", utils.CategorizeError(outcome.Err), outcome.Err)), nil
	}

	var emails, phones []string
	if outcome.Record != nil {
		emails, phones = outcome.Record.Emails, outcome.Record.Phones
	}
	result := map[string]interface{}{
		"url":           outcome.URL,
		"status_code":   outcome.StatusCode,
		"emails":        nonNil(emails),
		"phones":        nonNil(phones),
		"links_found":   len(process.DiscoverLinks(outcome.URL, outcome.Body)),
		"fetch_time_ms": time.Since(startTime).Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleScrapeSite handles the scrape_site tool
func (s *Server) handleScrapeSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if urlStr == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	seed, domain, err := parse.ParseSeed(urlStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid URL: %v", err)), nil
	}

	if err := s.sink.Prepare(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("output file unusable: %v", err)), nil
	}

	job, created := s.jobManager.CreateJob(domain, seed.String())
	if !created {
		result := map[string]interface{}{
			"status":     "already_running",
			"message":    "A scrape is already in progress for this domain",
			"job_id":     job.ID,
			"job_status": job.Status,
			"domain":     domain,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	s.jobsWG.Add(1)
	go s.runScrapeJob(job)

	result := map[string]interface{}{
		"status":      "started",
		"message":     "Scrape started successfully",
		"job_id":      job.ID,
		"domain":      domain,
		"output_file": s.sink.Path(),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}
	return mcp.NewToolResultText(formatJSON(jobView(job))), nil
}

// handleCancelJob handles the cancel_job tool
func (s *Server) handleCancelJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	if _, ok := s.jobManager.GetJob(jobID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}
	cancelled := s.jobManager.CancelJob(jobID)
	job, _ := s.jobManager.GetJob(jobID)

	result := map[string]interface{}{
		"job_id":    jobID,
		"cancelled": cancelled,
		"status":    job.Status,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleListJobs handles the list_jobs tool
func (s *Server) handleListJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs := s.jobManager.ListJobs()
	views := make([]map[string]interface{}, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, jobView(job))
	}
	result := map[string]interface{}{
		"jobs":       views,
		"total_jobs": len(views),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runScrapeJob runs an orchestrated scrape in the background once a job slot is free
func (s *Server) runScrapeJob(job Job) {
	defer s.jobsWG.Done()
	defer s.jobManager.Finish(job.ID)

	jobCtx := s.jobManager.GetContext(job.ID)
	jobLog := s.log.WithFields(logrus.Fields{"job_id": job.ID, "domain": job.Domain})

	if err := s.slots.Acquire(jobCtx, 1); err != nil {
		jobLog.Info("Job cancelled before it started")
		return
	}
	defer s.slots.Release(1)
	s.jobManager.UpdateStatus(job.ID, JobStatusRunning, "")

	// MCP jobs always start from a fresh visited set
	appCfg := *s.cfg.AppConfig
	appCfg.Resume = false
	orch := orchestrate.New(&appCfg, orchestrate.Deps{Fetcher: s.fetcher, Sink: s.sink}, jobLog)

	done := make(chan struct{})
	go s.trackProgress(job.ID, orch, done)

	_, err := orch.Run(jobCtx, job.SeedURL)
	close(done)
	s.publishProgress(job.ID, orch)

	switch {
	case err == nil:
		s.jobManager.UpdateStatus(job.ID, JobStatusCompleted, "")
	case errors.Is(err, context.Canceled):
		s.jobManager.UpdateStatus(job.ID, JobStatusCancelled, "")
	default:
		jobLog.Errorf("Scrape job failed: %v", err)
		s.jobManager.UpdateStatus(job.ID, JobStatusFailed, err.Error())
	}
}

// trackProgress copies orchestrator progress into the job until done is closed
func (s *Server) trackProgress(jobID string, orch *orchestrate.Orchestrator, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.publishProgress(jobID, orch)
		}
	}
}

func (s *Server) publishProgress(jobID string, orch *orchestrate.Orchestrator) {
	p := orch.GetProgress()
	s.jobManager.UpdateProgress(jobID, p.Mode, p.Fetches, p.Records, p.Queued)
}

func jobView(job Job) map[string]interface{} {
	result := map[string]interface{}{
		"job_id":          job.ID,
		"domain":          job.Domain,
		"seed_url":        job.SeedURL,
		"status":          job.Status,
		"started_at":      job.StartedAt.Format(time.RFC3339),
		"pages_fetched":   job.PagesFetched,
		"records_written": job.RecordsWritten,
		"pages_queued":    job.PagesQueued,
	}
	if job.Mode != "" {
		result["mode"] = job.Mode
	}
	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}
	return result
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
