package config

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/Maybol283/EthoScraper/internal/transform"
)

// stubDirective is the pseudonymise value selecting sentinel replacement.
const stubDirective = "Stub"

// sha256Directive is the pseudonymise prefix selecting hash replacement,
// optionally followed by ":<n>" to truncate the hex digest.
const sha256Directive = "SHA256"

// Raw decode targets. The YAML document is first unmarshalled into generic
// maps, then strictly decoded with mapstructure so that unknown keys are
// rejected at load time.
type rawJob struct {
	JobName    string              `mapstructure:"job_name"`
	StartURLs  []string            `mapstructure:"start_urls"`
	Crawl      rawCrawlSettings    `mapstructure:"crawl_settings"`
	Links      rawLinkExtraction   `mapstructure:"link_extraction"`
	Request    rawRequestSettings  `mapstructure:"request_settings"`
	Fields     map[string]rawField `mapstructure:"extract_fields"`
	Filters    rawFilters          `mapstructure:"filters"`
	Output     rawOutput           `mapstructure:"output"`
	Monitoring rawMonitoring       `mapstructure:"monitoring"`
}

type rawCrawlSettings struct {
	MaxDepth       int      `mapstructure:"max_depth"`
	MaxPages       int      `mapstructure:"max_pages"`
	FollowLinks    bool     `mapstructure:"follow_links"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
}

type rawLinkExtraction struct {
	FollowPaths      []string `mapstructure:"follow_paths"`
	IgnorePaths      []string `mapstructure:"ignore_paths"`
	IgnoreExtensions []string `mapstructure:"ignore_extensions"`
	CSSSelectors     []string `mapstructure:"css_selectors"`
}

type rawRequestSettings struct {
	Delay              *float64 `mapstructure:"delay"`
	RandomizeDelay     *bool    `mapstructure:"randomize_delay"`
	ConcurrentRequests int      `mapstructure:"concurrent_requests"`
	Timeout            float64  `mapstructure:"timeout"`
	Retries            *int     `mapstructure:"retries"`
	UserAgent          string   `mapstructure:"user_agent"`
	RespectRobotsTxt   *bool    `mapstructure:"respect_robots_txt"`
}

type rawField struct {
	Selector        string         `mapstructure:"selector"`
	Transformations []any          `mapstructure:"transformations"`
	Required        bool           `mapstructure:"required"`
	DefaultValue    *string        `mapstructure:"default_value"`
	Validation      *rawValidation `mapstructure:"validation"`
	Privacy         *rawPrivacy    `mapstructure:"privacy"`
}

type rawValidation struct {
	Pattern   string `mapstructure:"pattern"`
	MinLength int    `mapstructure:"min_length"`
	MaxLength int    `mapstructure:"max_length"`
}

type rawPrivacy struct {
	Pseudonymise string `mapstructure:"pseudonymise"`
	Anonymize    bool   `mapstructure:"anonymize"`
}

type rawFilters struct {
	ExcludeIf []rawExcludeRule `mapstructure:"exclude_if"`
}

type rawExcludeRule struct {
	Field    string `mapstructure:"field"`
	Contains string `mapstructure:"contains"`
}

type rawOutput struct {
	File string `mapstructure:"file"`
}

type rawMonitoring struct {
	LogFile string `mapstructure:"log_file"`
}

// Load reads and parses a job configuration file.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read target file: %w", err)
	}
	job, parseErr := Parse(data)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", path, parseErr)
	}
	return job, nil
}

// Parse builds a validated Job from YAML bytes. Unknown keys, malformed
// transformations, bad patterns, and out-of-range settings all fail here so
// the crawl never starts from a broken description.
func Parse(data []byte) (*Job, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var raw rawJob
	if err := decodeStrict(doc, &raw); err != nil {
		return nil, err
	}

	order, err := fieldOrder(data)
	if err != nil {
		return nil, err
	}

	job, buildErr := build(&raw, order)
	if buildErr != nil {
		return nil, buildErr
	}

	job.applyDefaults()
	if validateErr := job.validate(); validateErr != nil {
		return nil, validateErr
	}

	return job, nil
}

// decodeStrict decodes generic YAML maps into typed structs, rejecting
// unknown keys anywhere in the document.
func decodeStrict(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if decodeErr := dec.Decode(in); decodeErr != nil {
		return fmt.Errorf("%w: %s", ErrUnknownKey, decodeErr)
	}
	return nil
}

// fieldOrder reads the declaration order of extract_fields keys from the
// YAML document structure. Go maps do not preserve order, but output column
// order must follow the configuration.
func fieldOrder(data []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "extract_fields" {
			continue
		}
		fields := root.Content[i+1]
		if fields.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: extract_fields must be a mapping", ErrInvalidSetting)
		}
		order := make([]string, 0, len(fields.Content)/2)
		for j := 0; j+1 < len(fields.Content); j += 2 {
			order = append(order, fields.Content[j].Value)
		}
		return order, nil
	}

	return nil, nil
}

// build converts raw decoded settings into the validated Job model.
func build(raw *rawJob, order []string) (*Job, error) {
	job := &Job{
		JobName:   raw.JobName,
		StartURLs: raw.StartURLs,
		Crawl: CrawlSettings{
			MaxDepth:       raw.Crawl.MaxDepth,
			MaxPages:       raw.Crawl.MaxPages,
			FollowLinks:    raw.Crawl.FollowLinks,
			AllowedDomains: lowercaseAll(raw.Crawl.AllowedDomains),
		},
		Links: LinkExtraction{
			FollowPaths:      raw.Links.FollowPaths,
			IgnorePaths:      raw.Links.IgnorePaths,
			IgnoreExtensions: normalizeExtensions(raw.Links.IgnoreExtensions),
			CSSSelectors:     raw.Links.CSSSelectors,
		},
		Request:    buildRequestSettings(&raw.Request),
		FieldOrder: order,
		Output:     OutputSettings{File: raw.Output.File},
		Monitoring: MonitoringSettings{LogFile: raw.Monitoring.LogFile},
	}

	fields, err := buildFields(raw.Fields)
	if err != nil {
		return nil, err
	}
	job.Fields = fields

	for _, rule := range raw.Filters.ExcludeIf {
		job.Filters.ExcludeIf = append(job.Filters.ExcludeIf, ExcludeRule{
			Field:    rule.Field,
			Contains: rule.Contains,
		})
	}

	return job, nil
}

// buildRequestSettings converts second-valued numbers into durations and
// fills unset values with defaults.
func buildRequestSettings(raw *rawRequestSettings) RequestSettings {
	settings := RequestSettings{
		ConcurrentRequests: raw.ConcurrentRequests,
		UserAgent:          raw.UserAgent,
		Delay:              DefaultDelay,
		RandomizeDelay:     true,
		Timeout:            secondsToDuration(raw.Timeout),
		Retries:            DefaultRetries,
		RespectRobotsTxt:   true,
	}
	if raw.Delay != nil {
		settings.Delay = secondsToDuration(*raw.Delay)
	}
	if raw.RandomizeDelay != nil {
		settings.RandomizeDelay = *raw.RandomizeDelay
	}
	if raw.Retries != nil {
		settings.Retries = *raw.Retries
	}
	if raw.RespectRobotsTxt != nil {
		settings.RespectRobotsTxt = *raw.RespectRobotsTxt
	}
	return settings
}

// secondsToDuration converts a (possibly fractional) seconds value.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// buildFields parses every extract_fields entry, including its
// transformation chain, validation block, and privacy directive.
func buildFields(raw map[string]rawField) (map[string]*FieldSpec, error) {
	fields := make(map[string]*FieldSpec, len(raw))
	for name, entry := range raw {
		spec, err := buildField(&entry)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = spec
	}
	return fields, nil
}

// buildField parses one field specification.
func buildField(raw *rawField) (*FieldSpec, error) {
	if raw.Selector == "" {
		return nil, fmt.Errorf("%w: selector is required", ErrInvalidSetting)
	}

	chain, err := transform.ParseChain(raw.Transformations)
	if err != nil {
		return nil, err
	}

	spec := &FieldSpec{
		Selector:        raw.Selector,
		Transformations: chain,
		Required:        raw.Required,
		DefaultValue:    raw.DefaultValue,
	}

	if raw.Validation != nil {
		validation, validationErr := buildValidation(raw.Validation)
		if validationErr != nil {
			return nil, validationErr
		}
		spec.Validation = validation
	}

	if raw.Privacy != nil {
		privacy, privacyErr := buildPrivacy(raw.Privacy)
		if privacyErr != nil {
			return nil, privacyErr
		}
		spec.Privacy = privacy
	}

	return spec, nil
}

// buildValidation compiles the pattern anchored to the full value.
func buildValidation(raw *rawValidation) (*Validation, error) {
	validation := &Validation{
		MinLength: raw.MinLength,
		MaxLength: raw.MaxLength,
	}
	if raw.MinLength < 0 || raw.MaxLength < 0 {
		return nil, fmt.Errorf("%w: length bounds must be non-negative", ErrInvalidValidation)
	}
	if raw.MaxLength > 0 && raw.MinLength > raw.MaxLength {
		return nil, fmt.Errorf("%w: min_length exceeds max_length", ErrInvalidValidation)
	}
	if raw.Pattern != "" {
		re, err := regexp.Compile(`\A(?:` + raw.Pattern + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern: %s", ErrInvalidValidation, err)
		}
		validation.Pattern = re
	}
	return validation, nil
}

// buildPrivacy parses a pseudonymise directive: "SHA256", "SHA256:<n>", or
// "Stub". Anonymize needs no parsing and wins over pseudonymisation.
func buildPrivacy(raw *rawPrivacy) (*Privacy, error) {
	privacy := &Privacy{Anonymize: raw.Anonymize}

	directive := strings.TrimSpace(raw.Pseudonymise)
	switch {
	case directive == "":
		privacy.Mode = PseudonymiseNone
	case directive == stubDirective:
		privacy.Mode = PseudonymiseStub
	case directive == sha256Directive:
		privacy.Mode = PseudonymiseSHA256
	case strings.HasPrefix(directive, sha256Directive+":"):
		n, err := strconv.Atoi(strings.TrimPrefix(directive, sha256Directive+":"))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPrivacy, raw.Pseudonymise)
		}
		privacy.Mode = PseudonymiseSHA256
		privacy.HashLength = n
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrivacy, raw.Pseudonymise)
	}

	return privacy, nil
}

// lowercaseAll lowercases every element, preserving order.
func lowercaseAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// normalizeExtensions lowercases extensions and strips any leading dot so
// "PDF" and ".pdf" both match.
func normalizeExtensions(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, ext := range in {
		out[i] = strings.TrimPrefix(strings.ToLower(ext), ".")
	}
	return out
}
