package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/contact-scraper/pkg/config"
	applog "github.com/Sriram-PR/contact-scraper/pkg/log"
	"github.com/Sriram-PR/contact-scraper/pkg/orchestrate"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

const version = "1.0.0"

const urlPrompt = "enter your url : "

func main() {
	if len(os.Args) < 2 {
		ctx, stop := signalContext()
		code := doScrape(ctx, scrapeOptions{LogLevel: "info"}, os.Stdin, os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	}

	switch os.Args[1] {
	case "scrape":
		runScrape(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "version":
		fmt.Printf("contact-scraper %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `contact-scraper - Collect emails and phone numbers from one website

Usage:
  contact-scraper                      Prompt for a URL and scrape it
  contact-scraper <command> [options]

Commands:
  scrape      Scrape a site (sitemap first, crawl fallback)
  validate    Validate configuration file
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Results are appended to results.csv (url,emails,phones).
Run 'contact-scraper <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// loadAndValidateConfig returns the validated config at path, or the defaults when path is empty.
func loadAndValidateConfig(path string) (*config.AppConfig, []string, error) {
	if path == "" {
		return config.Default(), nil, nil
	}
	appCfg, err := loadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := appCfg.Validate()
	if err != nil {
		return nil, warnings, err
	}
	return appCfg, warnings, nil
}

type scrapeOptions struct {
	URL        string
	ConfigPath string
	OutputFile string
	StateDir   string
	LogLevel   string
	PprofAddr  string
	Resume     bool
}

// runScrape handles the scrape subcommand
func runScrape(args []string) {
	var opts scrapeOptions
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	fs.StringVar(&opts.URL, "url", "", "Seed URL (prompted for when empty)")
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file (built-in defaults when empty)")
	fs.StringVar(&opts.OutputFile, "output", "", "Override output CSV path")
	fs.StringVar(&opts.StateDir, "state-dir", "", "Override state directory for -resume")
	fs.StringVar(&opts.LogLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.PprofAddr, "pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")
	fs.BoolVar(&opts.Resume, "resume", false, "Keep visited URLs in a persistent store and skip them on the next run")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: contact-scraper scrape [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  contact-scraper scrape -url https://example.com\n")
		fmt.Fprintf(os.Stderr, "  contact-scraper scrape -url https://example.com -resume -state-dir ./state\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signalContext()
	code := doScrape(ctx, opts, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// doScrape runs one scrape and returns the exit code (0 = success or cancelled, 1 = error).
func doScrape(ctx context.Context, opts scrapeOptions, stdin io.Reader, stdout, stderr io.Writer) int {
	log, err := applog.New(opts.LogLevel, stderr)
	if err != nil {
		log.Warnf("%v, using 'info'", err)
	}

	appCfg, warnings, err := loadAndValidateConfig(opts.ConfigPath)
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Errorf("Config error: %v", err)
		return 1
	}
	applyOverrides(appCfg, opts, log)

	seedURL := opts.URL
	if seedURL == "" {
		seedURL, err = promptURL(stdin, stdout)
		if err != nil {
			log.Errorf("Reading URL: %v", err)
			return 1
		}
	}

	logAppConfig(appCfg, log)
	startPprof(opts.PprofAddr, log)

	orch := orchestrate.New(appCfg, orchestrate.Deps{}, log.WithField("component", "scrape"))
	_, err = orch.Run(ctx, seedURL)

	switch {
	case err == nil:
		log.Info("Scrape completed successfully.")
		return 0
	case errors.Is(err, context.Canceled):
		log.Warn("Scrape cancelled gracefully.")
		return 0
	case errors.Is(err, utils.ErrInvalidSeed):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	default:
		log.Errorf("Scrape finished with error: %v", err)
		return 1
	}
}

// applyOverrides applies CLI flag overrides on top of the loaded config.
func applyOverrides(appCfg *config.AppConfig, opts scrapeOptions, log *logrus.Logger) {
	if opts.OutputFile != "" {
		appCfg.OutputFile = opts.OutputFile
	}
	if opts.StateDir != "" {
		appCfg.StateDir = opts.StateDir
	}
	if opts.Resume {
		appCfg.Resume = true
		log.Info("Resume enabled via CLI flag")
	}
}

// promptURL writes the prompt to stdout and reads one line from stdin
func promptURL(stdin io.Reader, stdout io.Writer) (string, error) {
	fmt.Fprint(stdout, urlPrompt)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// signalContext returns a context cancelled on the first SIGINT/SIGTERM.
// A second signal, or 30s without the run stopping, forces exit.
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "Received signal: %v. Initiating graceful shutdown...\n", sig)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "Received second signal: %v. Forcing exit.\n", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			fmt.Fprintln(os.Stderr, "Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: contact-scraper validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: output=%s fetch_delay=%v max_path_length=%d exclude_patterns=%d\n",
		appCfg.OutputFile, appCfg.FetchDelay, appCfg.MaxPathLength, len(appCfg.ExcludePatterns))
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr != "" {
		go func() {
			log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Errorf("pprof server error: %v", err)
			}
		}()
	}
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: Output:%s, FetchDelay:%v, MaxPathLength:%d, SitemapPath:%s",
		appCfg.OutputFile, appCfg.FetchDelay, appCfg.MaxPathLength, appCfg.SitemapPath)
	log.Infof("Config: ExcludePatterns:%v, MaxPages:%d, MaxBodyBytes:%d",
		appCfg.ExcludePatterns, appCfg.MaxPages, appCfg.MaxBodyBytes)
	log.Infof("Config: Resume:%t, StateDir:%s", appCfg.Resume, appCfg.StateDir)
	log.Infof("Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, IdleTimeout:%v, TLSTimeout:%v, DialerTimeout:%v",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns, appCfg.HTTPClientSettings.MaxIdleConnsPerHost,
		appCfg.HTTPClientSettings.IdleConnTimeout, appCfg.HTTPClientSettings.TLSHandshakeTimeout, appCfg.HTTPClientSettings.DialerTimeout)
}
