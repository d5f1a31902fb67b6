package parse

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// ParseSeed parses the operator-supplied starting URL.
// The URL must be absolute with an http(s) scheme and a host that has a registrable domain.
// Returns the parsed URL and its registrable domain, or an error wrapping utils.ErrInvalidSeed.
func ParseSeed(raw string) (*url.URL, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", fmt.Errorf("%w: empty URL", utils.ErrInvalidSeed)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: '%s': %w", utils.ErrInvalidSeed, raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, "", fmt.Errorf("%w: '%s' must start with http:// or https://", utils.ErrInvalidSeed, raw)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("%w: '%s' has no host", utils.ErrInvalidSeed, raw)
	}

	domain, err := HostRegistrableDomain(u.Hostname())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", utils.ErrInvalidSeed, err)
	}
	return u, domain, nil
}

// WellKnownURL builds scheme://host<path> for base, dropping base's own path, query and fragment.
// The scheme and host are lowercased.
func WellKnownURL(base *url.URL, path string) string {
	if base == nil {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme: strings.ToLower(base.Scheme),
		Host:   strings.ToLower(base.Host),
		Path:   path,
	}
	return u.String()
}
