// Package config defines the job description ("target" configuration) that
// drives a scrape: crawl bounds, request pacing, field extraction with
// transformation chains, validation and privacy directives, record filters,
// and the output sink. A Job is validated once at load time and never
// mutated afterwards.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Maybol283/EthoScraper/internal/transform"
)

// Defaults applied when optional sections are omitted.
const (
	// DefaultMaxPages bounds a crawl when max_pages is not configured.
	DefaultMaxPages = 10
	// DefaultDelay is the politeness delay between requests.
	DefaultDelay = 1 * time.Second
	// DefaultConcurrentRequests serializes fetching entirely.
	DefaultConcurrentRequests = 1
	// DefaultTimeout bounds a single fetch attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultRetries is the number of additional attempts after a failed fetch.
	DefaultRetries = 3
	// DefaultUserAgent identifies the scraper to target sites.
	DefaultUserAgent = "EthoScraper/1.0 (+https://github.com/Maybol283/EthoScraper)"
)

// defaultIgnoreExtensions lists binary/document extensions never enqueued.
var defaultIgnoreExtensions = []string{
	"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "zip", "rar", "tar", "gz",
}

// Job is the parsed, validated job description. Immutable after Load.
type Job struct {
	// JobName substitutes {job_name} in output and log path templates.
	JobName string
	// StartURLs are the absolute URLs seeded into the frontier at depth 0.
	StartURLs []string
	// Crawl bounds the frontier.
	Crawl CrawlSettings
	// Links filters which discovered links are followed.
	Links LinkExtraction
	// Request controls fetch pacing, timeouts, and identification.
	Request RequestSettings
	// Fields maps field names to their extraction specs.
	Fields map[string]*FieldSpec
	// FieldOrder preserves extract_fields declaration order; it determines
	// output column order.
	FieldOrder []string
	// Filters drop assembled records.
	Filters Filters
	// Output configures the serialization sink.
	Output OutputSettings
	// Monitoring configures the external logging collaborator.
	Monitoring MonitoringSettings
}

// CrawlSettings bounds the breadth-first traversal.
type CrawlSettings struct {
	// MaxDepth is the maximum link depth from a start URL (0 = start URLs only).
	MaxDepth int
	// MaxPages caps the number of pages processed.
	MaxPages int
	// FollowLinks enables enqueueing of discovered links.
	FollowLinks bool
	// AllowedDomains restricts crawling to these hosts. Defaults to the
	// hosts of the start URLs.
	AllowedDomains []string
}

// LinkExtraction filters discovered links before they enter the frontier.
type LinkExtraction struct {
	// FollowPaths is a substring allowlist over URL paths; empty allows all.
	FollowPaths []string
	// IgnorePaths is a substring denylist; it wins over FollowPaths.
	IgnorePaths []string
	// IgnoreExtensions rejects URLs whose path extension matches.
	IgnoreExtensions []string
	// CSSSelectors restricts link discovery to matching anchors; empty
	// means all anchors are candidates.
	CSSSelectors []string
}

// RequestSettings controls fetching behavior.
type RequestSettings struct {
	// Delay is the politeness delay between consecutive fetches.
	Delay time.Duration
	// RandomizeDelay scales Delay by a uniform factor in [0.5, 1.5).
	RandomizeDelay bool
	// ConcurrentRequests bounds in-flight fetches sharing the delay budget.
	ConcurrentRequests int
	// Timeout bounds a single fetch attempt.
	Timeout time.Duration
	// Retries is the number of additional attempts after a failed fetch.
	Retries int
	// UserAgent is sent with every request.
	UserAgent string
	// RespectRobotsTxt skips URLs disallowed by the host's robots.txt.
	RespectRobotsTxt bool
}

// FieldSpec describes how one output field is extracted and processed.
type FieldSpec struct {
	// Selector addresses values within a fetched page. The reserved
	// pseudo-selector "response.url" resolves to the page's final URL.
	Selector string
	// Transformations are applied in order to the raw extracted value.
	Transformations []transform.Transform
	// Required rejects the record when the transformed value is empty and
	// no DefaultValue is configured.
	Required bool
	// DefaultValue substitutes an empty required value. Nil means unset.
	DefaultValue *string
	// Validation constrains the transformed value. Nil means unconstrained.
	Validation *Validation
	// Privacy redacts the value after validation. Nil means untouched.
	Privacy *Privacy
}

// Validation constrains a transformed field value. Violations reject the
// whole record, not just the field.
type Validation struct {
	// Pattern must match the entire final scalar. Nil means no pattern.
	Pattern *regexp.Regexp
	// MinLength is the inclusive lower character bound; 0 means unbounded.
	MinLength int
	// MaxLength is the inclusive upper character bound; 0 means unbounded.
	MaxLength int
}

// PseudonymiseMode selects the redaction method for a field.
type PseudonymiseMode string

// Supported pseudonymisation modes.
const (
	// PseudonymiseNone leaves the value untouched.
	PseudonymiseNone PseudonymiseMode = ""
	// PseudonymiseSHA256 replaces the value with a (possibly truncated)
	// SHA-256 hex digest.
	PseudonymiseSHA256 PseudonymiseMode = "sha256"
	// PseudonymiseStub replaces the value with a fixed sentinel.
	PseudonymiseStub PseudonymiseMode = "stub"
)

// Privacy holds a field's redaction directives. Anonymize wins over
// pseudonymisation when both are set.
type Privacy struct {
	// Anonymize removes the field from the record entirely.
	Anonymize bool
	// Mode selects the pseudonymisation method.
	Mode PseudonymiseMode
	// HashLength truncates the SHA-256 hex digest; 0 keeps the full digest.
	HashLength int
}

// ExcludeRule drops a record when the named field's value contains the
// given substring (case-sensitive).
type ExcludeRule struct {
	Field    string
	Contains string
}

// Filters holds the per-record exclusion predicates.
type Filters struct {
	ExcludeIf []ExcludeRule
}

// OutputSettings configures the serialization sink.
type OutputSettings struct {
	// File is a path template; {timestamp} and {job_name} are substituted
	// once at job start. The extension selects the format.
	File string
}

// MonitoringSettings configures the external logging collaborator.
type MonitoringSettings struct {
	// LogFile is a path template like OutputSettings.File.
	LogFile string
}

// validate checks cross-field invariants after defaults are applied.
func (j *Job) validate() error {
	if len(j.StartURLs) == 0 {
		return ErrNoStartURLs
	}
	for _, raw := range j.StartURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidStartURL, raw)
		}
	}
	if j.Crawl.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must be non-negative", ErrInvalidSetting)
	}
	if j.Crawl.MaxPages < 1 {
		return fmt.Errorf("%w: max_pages must be at least 1", ErrInvalidSetting)
	}
	if j.Request.Delay < 0 {
		return fmt.Errorf("%w: delay must be non-negative", ErrInvalidSetting)
	}
	if j.Request.ConcurrentRequests < 1 {
		return fmt.Errorf("%w: concurrent_requests must be at least 1", ErrInvalidSetting)
	}
	if j.Request.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidSetting)
	}
	if j.Request.Retries < 0 {
		return fmt.Errorf("%w: retries must be non-negative", ErrInvalidSetting)
	}
	if len(j.Fields) == 0 {
		return ErrNoFields
	}
	for _, rule := range j.Filters.ExcludeIf {
		if rule.Field == "" {
			return fmt.Errorf("%w: exclude_if entry missing field", ErrInvalidSetting)
		}
	}
	if j.Output.File == "" {
		return fmt.Errorf("%w: output.file is required", ErrInvalidSetting)
	}
	return nil
}

// applyDefaults fills optional settings with documented defaults.
func (j *Job) applyDefaults() {
	if j.JobName == "" {
		j.JobName = "ethoscraper_job"
	}
	if j.Crawl.MaxPages == 0 {
		j.Crawl.MaxPages = DefaultMaxPages
	}
	if len(j.Crawl.AllowedDomains) == 0 {
		j.Crawl.AllowedDomains = startURLHosts(j.StartURLs)
	}
	if j.Links.IgnoreExtensions == nil {
		j.Links.IgnoreExtensions = defaultIgnoreExtensions
	}
	if j.Request.ConcurrentRequests == 0 {
		j.Request.ConcurrentRequests = DefaultConcurrentRequests
	}
	if j.Request.Timeout == 0 {
		j.Request.Timeout = DefaultTimeout
	}
	if j.Request.UserAgent == "" {
		j.Request.UserAgent = DefaultUserAgent
	}
}

// startURLHosts returns the distinct hosts of the start URLs, in order.
func startURLHosts(startURLs []string) []string {
	seen := make(map[string]struct{}, len(startURLs))
	hosts := make([]string, 0, len(startURLs))
	for _, raw := range startURLs {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if _, ok := seen[host]; ok || host == "" {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts
}
