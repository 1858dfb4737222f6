// Package crawler owns one crawl run: it drives the frontier with a worker
// pool, paces and retries fetches, checks robots.txt, hands pages to the
// record pipeline, and flushes the buffered records once the frontier drains.
package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Maybol283/EthoScraper/internal/config"
	"github.com/Maybol283/EthoScraper/internal/fetch"
	"github.com/Maybol283/EthoScraper/internal/frontier"
	"github.com/Maybol283/EthoScraper/internal/logger"
	"github.com/Maybol283/EthoScraper/internal/output"
	"github.com/Maybol283/EthoScraper/internal/pipeline"
)

// DropExtractionError counts pages whose selectors could not be evaluated.
const DropExtractionError = "ExtractionError"

// RobotsPolicy answers whether a URL may be fetched and how long to wait
// between requests to a host.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
	CrawlDelay(host string) time.Duration
}

// Stats summarizes one crawl run.
type Stats struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	PagesVisited    int
	RecordsAccepted int
	RecordsDropped  map[string]int
	FetchFailures   int
	RobotsSkipped   int
	OutputPath      string
}

// DroppedTotal sums the per-reason drop counts.
func (s *Stats) DroppedTotal() int {
	total := 0
	for _, n := range s.RecordsDropped {
		total += n
	}

	return total
}

// Options wires a crawler's collaborators.
type Options struct {
	Job       *config.Job
	Fetcher   fetch.Fetcher
	Evaluator fetch.SelectorEvaluator
	// Robots may be nil; it is only consulted when the job sets
	// respect_robots_txt.
	Robots RobotsPolicy
	Writer *output.Writer
	Logger logger.Interface
}

// Crawler executes one job. Not reusable across runs: frontier state and
// stats belong to a single Run invocation.
type Crawler struct {
	job       *config.Job
	fetcher   fetch.Fetcher
	robots    RobotsPolicy
	assembler *pipeline.Assembler
	writer    *output.Writer
	log       logger.Interface
	pacer     *pacer

	mu      sync.Mutex
	records []*pipeline.Record
	stats   *Stats
}

// New creates a crawler for one run.
func New(opts Options) *Crawler {
	return &Crawler{
		job:       opts.Job,
		fetcher:   opts.Fetcher,
		robots:    opts.Robots,
		assembler: pipeline.NewAssembler(opts.Job, opts.Evaluator, opts.Logger),
		writer:    opts.Writer,
		log:       opts.Logger,
		pacer:     newPacer(opts.Job.Request.Delay, opts.Job.Request.RandomizeDelay),
	}
}

// Run crawls until the frontier drains, the page budget is spent, or ctx is
// cancelled, then flushes the buffered records. The returned stats are valid
// even when the flush fails; the error marks the run as unsuccessful.
func (c *Crawler) Run(ctx context.Context) (*Stats, error) {
	c.stats = &Stats{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now(),
		RecordsDropped: make(map[string]int),
		OutputPath:     c.writer.Path(),
	}

	c.log.Info("starting crawl",
		"run_id", c.stats.RunID,
		"job", c.job.JobName,
		"start_urls", len(c.job.StartURLs),
		"max_pages", c.job.Crawl.MaxPages,
		"max_depth", c.job.Crawl.MaxDepth,
	)

	front := frontier.New(c.job.Crawl, c.job.Links)
	front.Seed(c.job.StartURLs)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-runCtx.Done()
		front.Close()
	}()

	var wg sync.WaitGroup
	for i := 0; i < c.job.Request.ConcurrentRequests; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			c.work(runCtx, worker, front)
		}(i)
	}
	wg.Wait()

	err := c.writer.Write(c.records)
	if err != nil {
		c.log.Error("flushing records failed", "error", err, "path", c.writer.Path())
	}

	c.stats.FinishedAt = time.Now()

	c.log.Info("crawl finished",
		"run_id", c.stats.RunID,
		"pages_visited", c.stats.PagesVisited,
		"records_accepted", c.stats.RecordsAccepted,
		"records_dropped", c.stats.DroppedTotal(),
		"fetch_failures", c.stats.FetchFailures,
		"robots_skipped", c.stats.RobotsSkipped,
	)

	return c.stats, err
}

// work drains the frontier until it reports the crawl is over.
func (c *Crawler) work(ctx context.Context, worker int, front *frontier.Frontier) {
	for {
		entry, ok := front.Next()
		if !ok {
			return
		}

		c.process(ctx, worker, front, entry)
		front.Done()
	}
}

// process handles one frontier entry end to end.
func (c *Crawler) process(ctx context.Context, worker int, front *frontier.Frontier, entry frontier.Entry) {
	log := c.log.With("worker", worker, "url", entry.URL, "depth", entry.Depth)

	if c.job.Request.RespectRobotsTxt && c.robots != nil {
		allowed, err := c.robots.IsAllowed(ctx, entry.URL)
		if err != nil {
			log.Warn("robots check failed, skipping", "error", err)
			c.count(func(s *Stats) { s.RobotsSkipped++ })
			return
		}
		if !allowed {
			log.Info("skipping url disallowed by robots.txt")
			c.count(func(s *Stats) { s.RobotsSkipped++ })
			return
		}
	}

	page := c.fetchWithRetries(ctx, log, entry.URL)
	if page == nil {
		c.count(func(s *Stats) { s.FetchFailures++ })
		return
	}

	c.count(func(s *Stats) { s.PagesVisited++ })

	rec, reason, err := c.assembler.Assemble(page)
	switch {
	case err != nil:
		log.Error("assembling record failed", "error", err)
		c.count(func(s *Stats) { s.RecordsDropped[DropExtractionError]++ })
	case reason != "":
		c.count(func(s *Stats) { s.RecordsDropped[reason]++ })
	default:
		c.mu.Lock()
		c.records = append(c.records, rec)
		c.stats.RecordsAccepted++
		c.mu.Unlock()
	}

	if c.job.Crawl.FollowLinks && entry.Depth < c.job.Crawl.MaxDepth {
		for _, link := range page.Links {
			if ok, why := front.Enqueue(link, entry.Depth+1); !ok {
				log.Debug("link rejected", "link", link, "reason", why)
			}
		}
	}
}

// fetchWithRetries fetches a URL with the configured retry budget, pacing
// every attempt. A nil return means the budget is exhausted.
func (c *Crawler) fetchWithRetries(ctx context.Context, log logger.Interface, rawURL string) *fetch.Page {
	floor := c.crawlDelayFloor(rawURL)

	attempts := c.job.Request.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.pacer.wait(ctx, floor); err != nil {
			return nil
		}

		page, err := c.fetcher.Fetch(ctx, rawURL)
		if err == nil {
			return page
		}

		log.Warn("fetch attempt failed",
			"attempt", attempt,
			"attempts", attempts,
			"error", err,
		)
	}

	log.Error("fetch failed after all attempts", "attempts", attempts)

	return nil
}

// crawlDelayFloor asks robots.txt for a host-specific crawl-delay.
func (c *Crawler) crawlDelayFloor(rawURL string) time.Duration {
	if c.robots == nil || !c.job.Request.RespectRobotsTxt {
		return 0
	}

	host, err := frontier.ExtractHost(rawURL)
	if err != nil {
		return 0
	}

	return c.robots.CrawlDelay(host)
}

// count mutates the shared stats under the lock.
func (c *Crawler) count(fn func(*Stats)) {
	c.mu.Lock()
	fn(c.stats)
	c.mu.Unlock()
}
