// Package mcp exposes contact extraction and background site scrapes as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/contact-scraper/pkg/config"
	"github.com/Sriram-PR/contact-scraper/pkg/fetch"
	"github.com/Sriram-PR/contact-scraper/pkg/output"
)

const (
	serverName    = "contact-scraper"
	serverVersion = "1.0.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig
	ConfigPath string
	Transport  string // "stdio" or "sse"
	Port       int
	Logger     *logrus.Logger
	Fetcher    fetch.HTTPFetcher // nil builds one from AppConfig.HTTPClientSettings
}

// Server wraps the MCP server with contact-scraper tools
type Server struct {
	mcpServer  *server.MCPServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager

	// Shared by every job
	fetcher fetch.HTTPFetcher
	sink    *output.CSVSink
	slots   *semaphore.Weighted
	jobsWG  sync.WaitGroup
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	log := cfg.Logger.WithField("component", "mcp")

	fetcher := cfg.Fetcher
	if fetcher == nil {
		f := fetch.NewFetcher(fetch.NewClient(cfg.AppConfig.HTTPClientSettings, log), cfg.AppConfig.UserAgent, log)
		f.SetMaxBodyBytes(cfg.AppConfig.MaxBodyBytes)
		fetcher = f
	}

	maxJobs := cfg.AppConfig.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = config.DefaultMaxConcurrentJobs
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		log:        log,
		jobManager: NewJobManager(),
		fetcher:    fetcher,
		sink:       output.NewCSVSink(cfg.AppConfig.OutputFile, log),
		slots:      semaphore.NewWeighted(int64(maxJobs)),
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractTool := mcp.NewTool("extract_contacts",
		mcp.WithDescription("Extract email addresses and phone numbers from a block of text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text to scan"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtractContacts)

	scrapePageTool := mcp.NewTool("scrape_page",
		mcp.WithDescription("Fetch a single URL and return the contacts found on it. Nothing is written to the results file."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The http(s) URL to fetch"),
		),
	)
	s.mcpServer.AddTool(scrapePageTool, s.handleScrapePage)

	scrapeSiteTool := mcp.NewTool("scrape_site",
		mcp.WithDescription("Start a background scrape of the URL's domain (sitemap first, crawl fallback). Returns immediately with a job ID."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Seed URL; its registrable domain bounds the scrape"),
		),
	)
	s.mcpServer.AddTool(scrapeSiteTool, s.handleScrapeSite)

	getJobStatusTool := mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status of a scrape job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by scrape_site"),
		),
	)
	s.mcpServer.AddTool(getJobStatusTool, s.handleGetJobStatus)

	cancelJobTool := mcp.NewTool("cancel_job",
		mcp.WithDescription("Cancel a pending or running scrape job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by scrape_site"),
		),
	)
	s.mcpServer.AddTool(cancelJobTool, s.handleCancelJob)

	listJobsTool := mcp.NewTool("list_jobs",
		mcp.WithDescription("List all scrape jobs started by this server"),
	)
	s.mcpServer.AddTool(listJobsTool, s.handleListJobs)

	s.log.Infof("Registered %d MCP tools", 6)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)
		return sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels every job and waits for them to stop, or for ctx to expire
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()

	done := make(chan struct{})
	go func() {
		s.jobsWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
