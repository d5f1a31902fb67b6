package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.MaxPathLength < 0 {
		return nil, fmt.Errorf("%w: max_path_length cannot be negative (%d)", utils.ErrConfigValidation, c.MaxPathLength)
	}
	if c.MaxPages < 0 {
		return nil, fmt.Errorf("%w: max_pages cannot be negative (%d)", utils.ErrConfigValidation, c.MaxPages)
	}

	if c.OutputFile == "" {
		c.OutputFile = DefaultOutputFile
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	// FetchDelay
	if c.FetchDelay < 0 {
		warnings = append(warnings, "fetch_delay is negative, disabling the post-fetch pause")
		c.FetchDelay = 0
	} else if c.FetchDelay == 0 {
		c.FetchDelay = DefaultFetchDelay
	}

	if c.MaxPathLength == 0 {
		c.MaxPathLength = DefaultMaxPathLength
	}

	// ExcludePatterns: nil means "use defaults", blanks are dropped
	if c.ExcludePatterns == nil {
		c.ExcludePatterns = DefaultExcludePatterns()
	} else {
		kept := make([]string, 0, len(c.ExcludePatterns))
		for i, p := range c.ExcludePatterns {
			if strings.TrimSpace(p) == "" {
				warnings = append(warnings, fmt.Sprintf("exclude_patterns entry #%d is blank, ignoring it", i+1))
				continue
			}
			kept = append(kept, p)
		}
		c.ExcludePatterns = kept
	}

	// SitemapPath
	if c.SitemapPath == "" {
		c.SitemapPath = DefaultSitemapPath
	} else if !strings.HasPrefix(c.SitemapPath, "/") {
		c.SitemapPath = "/" + c.SitemapPath
	}

	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if c.StateDir == "" {
		if c.Resume {
			warnings = append(warnings, "resume is enabled but state_dir is empty, defaulting to '"+DefaultStateDir+"'")
		}
		c.StateDir = DefaultStateDir
	}

	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}

	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = DefaultRequestTimeout
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 10
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 10 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
