package frontier

import (
	"path"
	"strings"
	"sync"

	"github.com/Maybol283/EthoScraper/internal/config"
)

// Rejection reasons reported by Enqueue, used for debug logging.
const (
	ReasonAccepted    = "accepted"
	ReasonInvalid     = "invalid_url"
	ReasonDuplicate   = "duplicate"
	ReasonTooDeep     = "too_deep"
	ReasonOffDomain   = "off_domain"
	ReasonExtension   = "ignored_extension"
	ReasonIgnoredPath = "ignored_path"
	ReasonNotFollowed = "not_followed"
	ReasonClosed      = "closed"
)

// Entry is one unit of crawl work: a normalized URL and its link depth from
// the nearest start URL.
type Entry struct {
	URL   string
	Depth int
}

// Frontier is a concurrency-safe FIFO queue of URLs pending fetch. URLs are
// normalized on entry and deduplicated for the lifetime of the crawl. The
// queue drains in breadth-first order because links discovered at depth n are
// enqueued behind all remaining depth-n work.
//
// Next blocks while the queue is empty but workers are still active, since an
// active worker may yet enqueue more links. The crawl is over when the queue
// is empty and no worker holds an entry, or when MaxPages entries have been
// handed out.
type Frontier struct {
	crawl config.CrawlSettings
	links config.LinkExtraction

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Entry
	visited  map[string]struct{}
	active   int
	dequeued int
	closed   bool
}

// New builds an empty frontier bounded by the job's crawl settings.
func New(crawl config.CrawlSettings, links config.LinkExtraction) *Frontier {
	f := &Frontier{
		crawl:   crawl,
		links:   links,
		visited: make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)

	return f
}

// Seed enqueues the start URLs at depth 0. Seeds bypass the link filters:
// an operator who lists a URL explicitly wants it fetched. Duplicates among
// the seeds are still collapsed.
func (f *Frontier) Seed(startURLs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, raw := range startURLs {
		normalized, err := NormalizeURL(raw)
		if err != nil {
			continue
		}
		if _, seen := f.visited[normalized]; seen {
			continue
		}
		f.visited[normalized] = struct{}{}
		f.queue = append(f.queue, Entry{URL: normalized, Depth: 0})
	}

	f.cond.Broadcast()
}

// Enqueue offers a discovered link at the given depth. It reports whether the
// link was accepted and, if not, why. Filters run in a fixed order: depth,
// domain, extension, ignore_paths, follow_paths, then deduplication.
// ignore_paths wins over follow_paths.
func (f *Frontier) Enqueue(rawURL string, depth int) (bool, string) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false, ReasonInvalid
	}

	if depth > f.crawl.MaxDepth {
		return false, ReasonTooDeep
	}

	host, err := ExtractHost(normalized)
	if err != nil || !f.allowedDomain(host) {
		return false, ReasonOffDomain
	}

	if reason, ok := f.allowedPath(normalized); !ok {
		return false, reason
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, ReasonClosed
	}
	if _, seen := f.visited[normalized]; seen {
		return false, ReasonDuplicate
	}

	f.visited[normalized] = struct{}{}
	f.queue = append(f.queue, Entry{URL: normalized, Depth: depth})
	f.cond.Signal()

	return true, ReasonAccepted
}

// Next hands out the next entry, blocking while the queue is empty but other
// workers may still produce links. It returns false when the crawl is over:
// the page budget is spent, the frontier was closed, or the queue drained
// with no worker active. Every successful Next must be paired with Done.
func (f *Frontier) Next() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed || f.dequeued >= f.crawl.MaxPages {
			f.cond.Broadcast()
			return Entry{}, false
		}

		if len(f.queue) > 0 {
			entry := f.queue[0]
			f.queue = f.queue[1:]
			f.dequeued++
			f.active++

			if f.dequeued >= f.crawl.MaxPages {
				f.cond.Broadcast()
			}

			return entry, true
		}

		if f.active == 0 {
			f.cond.Broadcast()
			return Entry{}, false
		}

		f.cond.Wait()
	}
}

// Done marks an entry handed out by Next as processed.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.active--
	if f.active == 0 {
		f.cond.Broadcast()
	}
}

// Close aborts the crawl. Blocked Next calls return false.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Dequeued returns how many entries Next has handed out.
func (f *Frontier) Dequeued() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.dequeued
}

// allowedDomain reports whether host matches the allowed domain list. A URL
// on sub.example.com is allowed when example.com is listed.
func (f *Frontier) allowedDomain(host string) bool {
	for _, domain := range f.crawl.AllowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	return false
}

// allowedPath applies the extension and path filters to a normalized URL.
func (f *Frontier) allowedPath(normalized string) (string, bool) {
	urlPath := pathOf(normalized)

	if ext := extensionOf(urlPath); ext != "" {
		for _, ignored := range f.links.IgnoreExtensions {
			if ext == ignored {
				return ReasonExtension, false
			}
		}
	}

	for _, fragment := range f.links.IgnorePaths {
		if strings.Contains(urlPath, fragment) {
			return ReasonIgnoredPath, false
		}
	}

	if len(f.links.FollowPaths) > 0 {
		followed := false
		for _, fragment := range f.links.FollowPaths {
			if strings.Contains(urlPath, fragment) {
				followed = true
				break
			}
		}
		if !followed {
			return ReasonNotFollowed, false
		}
	}

	return ReasonAccepted, true
}

// pathOf extracts the path component of a normalized URL without reparsing.
func pathOf(normalized string) string {
	rest := normalized
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[idx:]
	}

	return "/"
}

// extensionOf returns the lowercased path extension without the dot, or ""
// when the path has none.
func extensionOf(urlPath string) string {
	ext := path.Ext(urlPath)
	if ext == "" {
		return ""
	}

	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
