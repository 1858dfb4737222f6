// Package output serializes assembled records to disk. The output path is a
// template expanded once at job start, and its extension selects the format:
// .csv for tabular, .yaml/.yml for a document list, anything else JSON.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Maybol283/EthoScraper/internal/pipeline"
)

// Metadata column names appended after the configured fields.
const (
	sourceURLField = "source_url"
	scrapedAtField = "scraped_at"
)

// timestampLayout formats the {timestamp} path placeholder.
const timestampLayout = "20060102_150405"

// ErrWrite wraps serialization and filesystem failures. A failed flush is
// fatal to the run's success status.
var ErrWrite = errors.New("output write failed")

// ExpandPath substitutes the {job_name} and {timestamp} placeholders.
// Expansion happens once at job start so every record of a run lands in the
// same file.
func ExpandPath(template, jobName string, now time.Time) string {
	expanded := strings.ReplaceAll(template, "{job_name}", jobName)
	expanded = strings.ReplaceAll(expanded, "{timestamp}", now.Format(timestampLayout))

	return expanded
}

// Writer serializes one run's records to a single file.
type Writer struct {
	path string
}

// NewWriter creates a writer targeting the already-expanded path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the target file path.
func (w *Writer) Path() string {
	return w.path
}

// Write serializes the records and flushes them to the target path, creating
// parent directories as needed.
func (w *Writer) Write(records []*pipeline.Record) error {
	data, err := w.marshal(records)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWrite, err)
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o755); mkdirErr != nil {
			return fmt.Errorf("%w: %s", ErrWrite, mkdirErr)
		}
	}

	if writeErr := os.WriteFile(w.path, data, 0o644); writeErr != nil {
		return fmt.Errorf("%w: %s", ErrWrite, writeErr)
	}

	return nil
}

// marshal renders the records in the format selected by the path extension.
func (w *Writer) marshal(records []*pipeline.Record) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(w.path)) {
	case ".csv":
		return marshalCSV(records)
	case ".yaml", ".yml":
		return marshalYAML(records)
	default:
		return marshalJSON(records)
	}
}

// columns returns the output column order: the record's fields followed by
// the metadata columns.
func columns(rec *pipeline.Record) []string {
	cols := make([]string, 0, len(rec.Fields())+2)
	cols = append(cols, rec.Fields()...)
	cols = append(cols, sourceURLField, scrapedAtField)

	return cols
}

// cellValue renders one record value for tabular output. Sequences join
// with "; ".
func cellValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, "; ")
	default:
		return fmt.Sprint(val)
	}
}

// marshalCSV writes a header row and one row per record.
func marshalCSV(records []*pipeline.Record) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if len(records) == 0 {
		cw.Flush()
		return buf.Bytes(), cw.Error()
	}

	header := columns(records[0])
	if err := cw.Write(header); err != nil {
		return nil, err
	}

	for _, rec := range records {
		row := make([]string, 0, len(header))
		for _, name := range rec.Fields() {
			value, _ := rec.Value(name)
			row = append(row, cellValue(value))
		}
		row = append(row, rec.SourceURL, rec.ScrapedAt.Format(time.RFC3339))

		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}

	cw.Flush()

	return buf.Bytes(), cw.Error()
}

// marshalJSON writes an ordered JSON array. Field order is preserved by
// emitting each record's members manually; encoding/json maps would sort
// keys alphabetically.
func marshalJSON(records []*pipeline.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[\n")

	for i, rec := range records {
		if i > 0 {
			buf.WriteString(",\n")
		}
		if err := writeJSONRecord(&buf, rec); err != nil {
			return nil, err
		}
	}

	buf.WriteString("\n]\n")

	return buf.Bytes(), nil
}

// writeJSONRecord emits one record as a JSON object in field order.
func writeJSONRecord(buf *bytes.Buffer, rec *pipeline.Record) error {
	buf.WriteString("  {")

	first := true
	writeMember := func(name string, value any) error {
		if !first {
			buf.WriteString(", ")
		}
		first = false

		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		val, err := json.Marshal(value)
		if err != nil {
			return err
		}

		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)

		return nil
	}

	for _, name := range rec.Fields() {
		value, _ := rec.Value(name)
		if err := writeMember(name, value); err != nil {
			return err
		}
	}
	if err := writeMember(sourceURLField, rec.SourceURL); err != nil {
		return err
	}
	if err := writeMember(scrapedAtField, rec.ScrapedAt.Format(time.RFC3339)); err != nil {
		return err
	}

	buf.WriteString("}")

	return nil
}

// marshalYAML writes a document list, preserving field order with explicit
// mapping nodes.
func marshalYAML(records []*pipeline.Record) ([]byte, error) {
	list := &yaml.Node{Kind: yaml.SequenceNode}

	for _, rec := range records {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for _, name := range rec.Fields() {
			value, _ := rec.Value(name)
			appendYAMLMember(mapping, name, value)
		}
		appendYAMLMember(mapping, sourceURLField, rec.SourceURL)
		appendYAMLMember(mapping, scrapedAtField, rec.ScrapedAt.Format(time.RFC3339))

		list.Content = append(list.Content, mapping)
	}

	return yaml.Marshal(list)
}

// appendYAMLMember adds one key/value pair to a mapping node.
func appendYAMLMember(mapping *yaml.Node, name string, value any) {
	key := &yaml.Node{Kind: yaml.ScalarNode, Value: name}

	val := &yaml.Node{}
	switch v := value.(type) {
	case string:
		val.Kind = yaml.ScalarNode
		val.Value = v
	case []string:
		val.Kind = yaml.SequenceNode
		for _, item := range v {
			val.Content = append(val.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: item})
		}
	default:
		val.Kind = yaml.ScalarNode
		val.Value = fmt.Sprint(v)
	}

	mapping.Content = append(mapping.Content, key, val)
}
