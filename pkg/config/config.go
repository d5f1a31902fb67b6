package config

import "time"

// AppConfig holds the configuration for a contact scrape run
type AppConfig struct {
	OutputFile         string           `yaml:"output_file"`
	UserAgent          string           `yaml:"user_agent,omitempty"`
	FetchDelay         time.Duration    `yaml:"fetch_delay,omitempty"`      // Fixed pause after every fetch attempt
	MaxPathLength      int              `yaml:"max_path_length,omitempty"`  // Joined path must be strictly shorter than this
	ExcludePatterns    []string         `yaml:"exclude_patterns,omitempty"` // nil = defaults, empty list = no exclusions
	SitemapPath        string           `yaml:"sitemap_path,omitempty"`
	MaxBodyBytes       int64            `yaml:"max_body_bytes,omitempty"`
	MaxPages           int              `yaml:"max_pages,omitempty"` // Crawl mode only, 0 = unlimited
	StateDir           string           `yaml:"state_dir,omitempty"`
	Resume             bool             `yaml:"resume,omitempty"` // Persist visited URLs in badger and reuse them
	MaxConcurrentJobs  int              `yaml:"max_concurrent_jobs,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

const (
	DefaultOutputFile        = "results.csv"
	DefaultUserAgent         = "contact-scraper/1.0"
	DefaultFetchDelay        = 1 * time.Second
	DefaultMaxPathLength     = 15
	DefaultSitemapPath       = "/sitemap.xml"
	DefaultMaxBodyBytes      = 10 * 1024 * 1024
	DefaultStateDir          = "./contact_state"
	DefaultRequestTimeout    = 10 * time.Second
	DefaultMaxConcurrentJobs = 2
)

// DefaultExcludePatterns returns a fresh copy of the built-in keyword exclusion list
func DefaultExcludePatterns() []string {
	return []string{"blog", "article", "news", ".pdf", "how-to", "top-10"}
}

// Default returns a validated configuration with every default applied
func Default() *AppConfig {
	cfg := &AppConfig{}
	_, _ = cfg.Validate() // zero value never fails validation
	return cfg
}
