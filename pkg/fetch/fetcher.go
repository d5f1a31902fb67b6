package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/contact-scraper/pkg/config"
	"github.com/Sriram-PR/contact-scraper/pkg/models"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

// HTTPFetcher is the page-fetching dependency of the traversal strategies
type HTTPFetcher interface {
	Fetch(ctx context.Context, url string) (*models.FetchResult, error)
}

// Fetcher performs single-attempt GET requests using an underlying http.Client
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	log          *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, userAgent string, log *logrus.Entry) *Fetcher {
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	return &Fetcher{
		client:       client,
		userAgent:    userAgent,
		maxBodyBytes: config.DefaultMaxBodyBytes,
		log:          log,
	}
}

// SetMaxBodyBytes caps how much of a response body is read; n <= 0 keeps the current cap
func (f *Fetcher) SetMaxBodyBytes(n int64) {
	if n > 0 {
		f.maxBodyBytes = n
	}
}

// Fetch performs one GET for rawURL. There are no retries.
// Any HTTP status yields a non-nil result and a nil error; callers check result.OK().
// A transport failure returns an error wrapping utils.ErrTransport; cancellation returns the context error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*models.FetchResult, error) {
	reqLog := f.log.WithField("url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", utils.ErrRequestCreation, rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			reqLog.Debugf("Request aborted: %v", ctxErr)
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", utils.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", utils.ErrResponseBodyRead, rawURL, err)
	}

	reqLog.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"bytes":       len(body),
	}).Debug("Fetched")

	return &models.FetchResult{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// StatusError describes a non-200 result as an error wrapping utils.ErrNonOKStatus, for logging and categorization
func StatusError(result *models.FetchResult) error {
	if result == nil || result.OK() {
		return nil
	}
	return fmt.Errorf("%w: status %d", utils.ErrNonOKStatus, result.StatusCode)
}
