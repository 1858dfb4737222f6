package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// resultKey stores the per-request result holder in the colly context.
const resultKey = "fetch_result"

// defaultLinkSelector discovers every anchor when no css_selectors are
// configured.
const defaultLinkSelector = "a[href]"

// CollyOptions configures a CollyFetcher for one crawl.
type CollyOptions struct {
	// UserAgent is sent with every request.
	UserAgent string
	// Timeout bounds a single fetch attempt.
	Timeout time.Duration
	// LinkSelectors restricts anchor discovery; empty means all anchors.
	LinkSelectors []string
}

// CollyFetcher fetches pages with a shared colly collector. Requests are
// synchronous: Fetch returns once the page's callbacks have run. Revisits
// are allowed because the caller retries failed fetches, and robots.txt
// handling is disabled here because the crawler consults its own checker
// before a URL is ever fetched.
type CollyFetcher struct {
	collector *colly.Collector
}

// fetchResult accumulates callback output for one request.
type fetchResult struct {
	page *Page
	err  error
}

// NewCollyFetcher builds a fetcher for one crawl.
func NewCollyFetcher(opts CollyOptions) *CollyFetcher {
	collector := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(opts.Timeout)

	collector.OnResponse(func(resp *colly.Response) {
		result := resultFrom(resp.Ctx)
		if result == nil {
			return
		}
		result.page = &Page{
			URL:        resp.Request.URL.String(),
			Body:       resp.Body,
			StatusCode: resp.StatusCode,
			FetchedAt:  time.Now(),
		}
	})

	selectors := opts.LinkSelectors
	if len(selectors) == 0 {
		selectors = []string{defaultLinkSelector}
	}
	for _, selector := range selectors {
		collector.OnHTML(selector, func(el *colly.HTMLElement) {
			result := resultFrom(el.Response.Ctx)
			if result == nil || result.page == nil {
				return
			}
			href := el.Attr("href")
			if href == "" {
				return
			}
			if absolute := el.Request.AbsoluteURL(href); absolute != "" {
				result.page.Links = append(result.page.Links, absolute)
			}
		})
	}

	collector.OnError(func(resp *colly.Response, err error) {
		result := resultFrom(resp.Ctx)
		if result == nil {
			return
		}
		if resp.StatusCode > 0 {
			result.err = fmt.Errorf("%w: %d: %s", ErrHTTPStatus, resp.StatusCode, err)
			return
		}
		result.err = err
	})

	return &CollyFetcher{collector: collector}
}

// Fetch retrieves rawURL, returning the page with its discovered links.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &fetchResult{}
	requestCtx := colly.NewContext()
	requestCtx.Put(resultKey, result)

	if err := f.collector.Request(http.MethodGet, rawURL, nil, requestCtx, nil); err != nil {
		// OnError saw the same failure and may have wrapped it with the
		// HTTP status sentinel; prefer that version.
		if result.err == nil {
			result.err = err
		}
	}

	if result.err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, result.err)
	}
	if result.page == nil {
		return nil, fmt.Errorf("fetch %s: no response", rawURL)
	}

	return result.page, nil
}

// resultFrom recovers the result holder stored on the request context.
func resultFrom(ctx *colly.Context) *fetchResult {
	holder, ok := ctx.GetAny(resultKey).(*fetchResult)
	if !ok {
		return nil
	}

	return holder
}
