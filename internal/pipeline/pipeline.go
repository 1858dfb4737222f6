package pipeline

import (
	"fmt"
	"time"

	"github.com/Maybol283/EthoScraper/internal/config"
	"github.com/Maybol283/EthoScraper/internal/fetch"
	"github.com/Maybol283/EthoScraper/internal/logger"
	"github.com/Maybol283/EthoScraper/internal/transform"
)

// Drop reasons reported when a page yields no record.
const (
	DropMissingRequiredField = "MissingRequiredField"
	DropValidationFailed     = "ValidationFailed"
	DropFiltered             = "Filtered"
)

// Assembler builds one Record per fetched page by running every configured
// field through its selector, transformation chain, validation, and privacy
// directives, then applying the record-level filters.
type Assembler struct {
	job       *config.Job
	evaluator fetch.SelectorEvaluator
	log       logger.Interface
}

// NewAssembler creates an assembler for one job.
func NewAssembler(job *config.Job, evaluator fetch.SelectorEvaluator, log logger.Interface) *Assembler {
	return &Assembler{
		job:       job,
		evaluator: evaluator,
		log:       log,
	}
}

// Assemble processes a page. It returns the accepted record, or an empty
// record with a non-empty drop reason, or an error when a selector could not
// be evaluated at all.
func (a *Assembler) Assemble(page *fetch.Page) (*Record, string, error) {
	scrapedAt := page.FetchedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	rec := NewRecord(page.URL, scrapedAt)

	for _, name := range a.job.FieldOrder {
		spec := a.job.Fields[name]

		value, reason, err := a.assembleField(page, name, spec)
		if err != nil {
			return nil, "", err
		}
		if reason != "" {
			return nil, reason, nil
		}

		// Anonymized fields are evaluated and validated like any other,
		// then dropped from the output.
		if spec.Privacy != nil && spec.Privacy.Anonymize {
			continue
		}

		rec.Set(name, value.Export())
	}

	if excluded(rec, a.job.Filters.ExcludeIf) {
		return nil, DropFiltered, nil
	}

	return rec, "", nil
}

// assembleField extracts, transforms, validates, and redacts one field.
// A non-empty reason means the whole record must be dropped.
func (a *Assembler) assembleField(
	page *fetch.Page,
	name string,
	spec *config.FieldSpec,
) (transform.Value, string, error) {
	matches, err := a.evaluator.Evaluate(page, spec.Selector)
	if err != nil {
		return transform.Empty(), "", fmt.Errorf("field %q: %w", name, err)
	}

	value := transform.Apply(transform.FromMatches(matches), spec.Transformations)

	if value.IsEmpty() {
		if spec.DefaultValue != nil {
			value = transform.Scalar(*spec.DefaultValue)
		} else if spec.Required {
			a.log.Debug("dropping record: required field empty",
				"field", name, "url", page.URL)
			return transform.Empty(), DropMissingRequiredField, nil
		}
	}

	if !value.IsEmpty() && !validateValue(value, spec.Validation) {
		a.log.Debug("dropping record: validation failed",
			"field", name, "url", page.URL)
		return transform.Empty(), DropValidationFailed, nil
	}

	return redact(value, spec.Privacy), "", nil
}
