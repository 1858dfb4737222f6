// Package pipeline turns fetched pages into output records: selector
// extraction, transformation chains, validation, privacy redaction, and
// record-level filters, applied in that order.
package pipeline

import "time"

// Record is one assembled output row. Field order follows the job's
// extract_fields declaration with anonymized fields removed. SourceURL and
// ScrapedAt are provenance metadata, never subject to the privacy directives
// of data fields.
type Record struct {
	order  []string
	values map[string]any

	SourceURL string
	ScrapedAt time.Time
}

// NewRecord creates an empty record with its provenance metadata.
func NewRecord(sourceURL string, scrapedAt time.Time) *Record {
	return &Record{
		values:    make(map[string]any),
		SourceURL: sourceURL,
		ScrapedAt: scrapedAt,
	}
}

// Set stores a field value, appending the name to the field order on first
// use. Values are strings or []string.
func (r *Record) Set(name string, value any) {
	if _, exists := r.values[name]; !exists {
		r.order = append(r.order, name)
	}
	r.values[name] = value
}

// Fields returns the record's field names in output order.
func (r *Record) Fields() []string {
	return r.order
}

// Value returns the named field's value. Values are strings or []string.
func (r *Record) Value(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}
