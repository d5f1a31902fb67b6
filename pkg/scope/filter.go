// Package scope decides which candidate URLs a run is allowed to fetch.
package scope

import (
	"net/url"
	"strings"

	"github.com/Sriram-PR/contact-scraper/pkg/parse"
)

// Config holds the admission policy passed to NewFilter
type Config struct {
	MaxPathLength   int      // Joined path must be strictly shorter than this
	ExcludePatterns []string // Literal substrings, matched case-insensitively against the full URL
}

// Filter applies domain, path-length and keyword rules for one target domain
type Filter struct {
	targetDomain  string
	maxPathLength int
	patterns      []string // lowercased
}

// NewFilter creates a Filter for targetDomain.
// cfg.ExcludePatterns is used as given: pass config.DefaultExcludePatterns() for the stock list.
func NewFilter(targetDomain string, cfg Config) *Filter {
	patterns := make([]string, 0, len(cfg.ExcludePatterns))
	for _, p := range cfg.ExcludePatterns {
		if p == "" {
			continue // an empty pattern would match every URL
		}
		patterns = append(patterns, strings.ToLower(p))
	}
	return &Filter{
		targetDomain:  targetDomain,
		maxPathLength: cfg.MaxPathLength,
		patterns:      patterns,
	}
}

// TargetDomain returns the registrable domain this filter admits
func (f *Filter) TargetDomain() string {
	return f.targetDomain
}

// Admit reports whether rawURL belongs to the target domain and has a short enough path.
// Unparseable URLs and hosts without a registrable domain are rejected.
func (f *Filter) Admit(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	domain, err := parse.HostRegistrableDomain(u.Hostname())
	if err != nil || domain != f.targetDomain {
		return false
	}
	return parse.JoinedPathLength(u.EscapedPath()) < f.maxPathLength
}

// Excluded reports whether the lowercased URL contains any exclusion pattern
func (f *Filter) Excluded(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, p := range f.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Allowed is the combined check used by both traversal strategies
func (f *Filter) Allowed(rawURL string) bool {
	return !f.Excluded(rawURL) && f.Admit(rawURL)
}
