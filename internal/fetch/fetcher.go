// Package fetch provides the HTTP side of a crawl: fetching pages, checking
// robots.txt compliance, and evaluating field selectors against fetched HTML.
package fetch

import (
	"context"
	"errors"
	"time"
)

// ErrHTTPStatus wraps fetches that completed with a non-success status code.
var ErrHTTPStatus = errors.New("http error status")

// Page is one fetched document.
type Page struct {
	// URL is the final URL after redirects.
	URL string
	// Body is the raw response body.
	Body []byte
	// StatusCode is the HTTP status of the final response.
	StatusCode int
	// Links are the absolute URLs of anchors discovered on the page,
	// restricted to the configured link selectors, in document order.
	Links []string
	// FetchedAt is when the response arrived.
	FetchedAt time.Time
}

// Fetcher retrieves a single page. One attempt per call; retry policy lives
// with the caller.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// SelectorEvaluator resolves a field selector against a fetched page,
// returning every match in document order. Zero matches is not an error.
type SelectorEvaluator interface {
	Evaluate(page *Page, selector string) ([]string, error)
}
