package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Maybol283/EthoScraper/internal/fetch"
)

// testCacheTTL is the cache duration used in tests.
const testCacheTTL = time.Hour

// newTestChecker creates a RobotsChecker for testing.
func newTestChecker(t *testing.T) *fetch.RobotsChecker {
	t.Helper()

	return fetch.NewRobotsChecker(
		&http.Client{Timeout: 5 * time.Second},
		"EthoScraperTest/1.0",
		testCacheTTL,
	)
}

func robotsServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	}))
}

func TestIsAllowed_URLAllowed(t *testing.T) {
	t.Parallel()

	server := robotsServer("User-agent: *\nDisallow: /private/\n")
	defer server.Close()

	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/staff/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !allowed {
		t.Error("expected /staff/page to be allowed, got disallowed")
	}
}

func TestIsAllowed_URLDisallowed(t *testing.T) {
	t.Parallel()

	server := robotsServer("User-agent: *\nDisallow: /private/\n")
	defer server.Close()

	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/private/secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if allowed {
		t.Error("expected /private/secret to be disallowed, got allowed")
	}
}

func TestIsAllowed_Missing404AllowsAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/any/path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !allowed {
		t.Error("expected missing robots.txt to allow all")
	}
}

func TestIsAllowed_CachesPerHost(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer server.Close()

	checker := newTestChecker(t)

	for _, path := range []string{"/a", "/b", "/private/c"} {
		if _, err := checker.IsAllowed(context.Background(), server.URL+path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := fetches.Load(); got != 1 {
		t.Errorf("expected 1 robots.txt fetch, got %d", got)
	}
}

func TestCrawlDelay(t *testing.T) {
	t.Parallel()

	server := robotsServer("User-agent: *\nCrawl-delay: 2\n")
	defer server.Close()

	checker := newTestChecker(t)

	if _, err := checker.IsAllowed(context.Background(), server.URL+"/page"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	host := req.URL.Host

	if got := checker.CrawlDelay(host); got != 2*time.Second {
		t.Errorf("expected crawl-delay of 2s, got %s", got)
	}
}
