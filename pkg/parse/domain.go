package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"

	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// RegistrableDomain returns the registrable domain (eTLD+1) of rawURL, e.g. "example.com" for "https://www.example.com/x".
// Only ICANN suffixes count; private entries such as "github.io" are ordinary domains.
// IP literals and single-label hosts such as "localhost" are their own registrable domain.
// Returns an error wrapping utils.ErrParsing when the URL has no usable host.
func RegistrableDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: URL '%s': %w", utils.ErrParsing, rawURL, err)
	}
	return HostRegistrableDomain(u.Hostname())
}

// HostRegistrableDomain is RegistrableDomain for a bare hostname
func HostRegistrableDomain(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", fmt.Errorf("%w: URL has no host", utils.ErrParsing)
	}
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host, nil
	}

	suffix := icannSuffix(host)
	prefixLen := len(host) - len(suffix) - 1
	if prefixLen <= 0 || host[prefixLen] != '.' || strings.HasSuffix(host[:prefixLen], ".") {
		return "", fmt.Errorf("%w: URL host '%s' has no registrable domain", utils.ErrParsing, host)
	}
	return host[strings.LastIndex(host[:prefixLen], ".")+1:], nil
}

// icannSuffix walks past private suffix-list entries to the ICANN suffix of host
func icannSuffix(host string) string {
	suffix, icann := publicsuffix.PublicSuffix(host)
	for !icann {
		dot := strings.IndexByte(suffix, '.')
		if dot < 0 {
			break
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[dot+1:])
	}
	return suffix
}

// JoinedPathLength returns the character length of path after dropping empty segments
// and joining the rest with a single "/". "/a//b/" -> "a/b" -> 3.
func JoinedPathLength(path string) int {
	segments := strings.Split(path, "/")
	kept := segments[:0]
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return utf8.RuneCountInString(strings.Join(kept, "/"))
}
