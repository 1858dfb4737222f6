package pipeline_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maybol283/EthoScraper/internal/config"
	"github.com/Maybol283/EthoScraper/internal/fetch"
	"github.com/Maybol283/EthoScraper/internal/logger"
	"github.com/Maybol283/EthoScraper/internal/pipeline"
)

// stubEvaluator resolves selectors from a fixed map, mimicking a parsed page.
type stubEvaluator struct {
	matches map[string][]string
}

func (s *stubEvaluator) Evaluate(page *fetch.Page, selector string) ([]string, error) {
	if selector == fetch.ResponseURLSelector {
		return []string{page.URL}, nil
	}
	return s.matches[selector], nil
}

func parseJob(t *testing.T, yaml string) *config.Job {
	t.Helper()
	job, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return job
}

func assemble(t *testing.T, jobYAML string, matches map[string][]string) (*pipeline.Record, string) {
	t.Helper()

	job := parseJob(t, jobYAML)
	asm := pipeline.NewAssembler(job, &stubEvaluator{matches: matches}, logger.NewNoOp())

	rec, reason, err := asm.Assemble(&fetch.Page{URL: "https://x/a"})
	require.NoError(t, err)
	return rec, reason
}

func TestAssemble_StripScenario(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  title:
    selector: "h1::text"
    transformations: [strip]
output: {file: "out.json"}
`, map[string][]string{"h1::text": {" Hello "}})

	require.Empty(t, reason)
	got, ok := rec.Value("title")
	require.True(t, ok)
	assert.Equal(t, "Hello", got)
	assert.Equal(t, "https://x/a", rec.SourceURL)
}

func TestAssemble_MissingRequiredField(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  name:
    selector: ".name"
    required: true
output: {file: "out.json"}
`, map[string][]string{})

	assert.Nil(t, rec)
	assert.Equal(t, pipeline.DropMissingRequiredField, reason)
}

func TestAssemble_DefaultValueSavesRequiredField(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  name:
    selector: ".name"
    required: true
    default_value: "unknown"
output: {file: "out.json"}
`, map[string][]string{})

	require.Empty(t, reason)
	got, _ := rec.Value("name")
	assert.Equal(t, "unknown", got)
}

func TestAssemble_ValidationFailure(t *testing.T) {
	jobYAML := `
start_urls: ["https://x/a"]
extract_fields:
  email:
    selector: ".email"
    validation:
      pattern: "[^@]+@[^@]+"
output: {file: "out.json"}
`

	rec, reason := assemble(t, jobYAML, map[string][]string{".email": {"not-an-email"}})
	assert.Nil(t, rec)
	assert.Equal(t, pipeline.DropValidationFailed, reason)

	rec, reason = assemble(t, jobYAML, map[string][]string{".email": {"jane@x.org"}})
	require.Empty(t, reason)
	got, _ := rec.Value("email")
	assert.Equal(t, "jane@x.org", got)
}

func TestAssemble_ValidationSkippedForEmptyOptionalField(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  phone:
    selector: ".phone"
    validation:
      min_length: 5
output: {file: "out.json"}
`, map[string][]string{})

	require.Empty(t, reason)
	got, ok := rec.Value("phone")
	require.True(t, ok)
	assert.Equal(t, "", got)
}

func TestAssemble_LengthBoundsCountRunes(t *testing.T) {
	jobYAML := `
start_urls: ["https://x/a"]
extract_fields:
  name:
    selector: ".name"
    validation:
      min_length: 4
      max_length: 4
output: {file: "out.json"}
`

	rec, reason := assemble(t, jobYAML, map[string][]string{".name": {"Zoë!"}})
	require.Empty(t, reason)
	require.NotNil(t, rec)

	_, reason = assemble(t, jobYAML, map[string][]string{".name": {"Zoë"}})
	assert.Equal(t, pipeline.DropValidationFailed, reason)
}

func TestAssemble_AnonymizeRemovesField(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  name:
    selector: ".name"
  notes:
    selector: ".notes"
    privacy:
      anonymize: true
output: {file: "out.json"}
`, map[string][]string{".name": {"Jane"}, ".notes": {"sensitive"}})

	require.Empty(t, reason)
	_, ok := rec.Value("notes")
	assert.False(t, ok)
	assert.Equal(t, []string{"name"}, rec.Fields())
}

func TestAssemble_PseudonymiseSHA256(t *testing.T) {
	jobYAML := `
start_urls: ["https://x/a"]
extract_fields:
  email:
    selector: ".email"
    privacy:
      pseudonymise: "SHA256:8"
output: {file: "out.json"}
`

	sum := sha256.Sum256([]byte("jane@x.org"))
	want := hex.EncodeToString(sum[:])[:8]

	first, reason := assemble(t, jobYAML, map[string][]string{".email": {"jane@x.org"}})
	require.Empty(t, reason)
	got, _ := first.Value("email")
	assert.Equal(t, want, got)

	// Stable across runs, never the original value.
	second, _ := assemble(t, jobYAML, map[string][]string{".email": {"jane@x.org"}})
	again, _ := second.Value("email")
	assert.Equal(t, got, again)
	assert.NotEqual(t, "jane@x.org", got)
}

func TestAssemble_PseudonymiseFullDigestWithoutLength(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  email:
    selector: ".email"
    privacy:
      pseudonymise: "SHA256"
output: {file: "out.json"}
`, map[string][]string{".email": {"jane@x.org"}})

	require.Empty(t, reason)
	got, _ := rec.Value("email")
	assert.Len(t, got, 64)
}

func TestAssemble_PseudonymiseStub(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  phone:
    selector: ".phone"
    privacy:
      pseudonymise: "Stub"
output: {file: "out.json"}
`, map[string][]string{".phone": {"+441234"}})

	require.Empty(t, reason)
	got, _ := rec.Value("phone")
	assert.Equal(t, "[REDACTED]", got)
}

func TestAssemble_ExcludeIf(t *testing.T) {
	jobYAML := `
start_urls: ["https://x/a"]
extract_fields:
  title:
    selector: ".title"
filters:
  exclude_if:
    - field: "title"
      contains: "Admin"
output: {file: "out.json"}
`

	rec, reason := assemble(t, jobYAML, map[string][]string{".title": {"Admin Office"}})
	assert.Nil(t, rec)
	assert.Equal(t, pipeline.DropFiltered, reason)

	rec, reason = assemble(t, jobYAML, map[string][]string{".title": {"Library"}})
	require.Empty(t, reason)
	require.NotNil(t, rec)
}

func TestAssemble_ExcludeIfAbsentFieldNeverMatches(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  title:
    selector: ".title"
  notes:
    selector: ".notes"
    privacy:
      anonymize: true
filters:
  exclude_if:
    - field: "notes"
      contains: "secret"
output: {file: "out.json"}
`, map[string][]string{".title": {"Library"}, ".notes": {"secret"}})

	require.Empty(t, reason)
	require.NotNil(t, rec)
}

func TestAssemble_FilterRunsAfterPrivacy(t *testing.T) {
	// The rule matches the raw value but not its redacted form, so the
	// record survives: filters see the post-privacy record.
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  email:
    selector: ".email"
    privacy:
      pseudonymise: "Stub"
filters:
  exclude_if:
    - field: "email"
      contains: "@spam.org"
output: {file: "out.json"}
`, map[string][]string{".email": {"bot@spam.org"}})

	require.Empty(t, reason)
	require.NotNil(t, rec)
}

func TestAssemble_SequenceValues(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  topics:
    selector: ".topic"
    transformations: [strip, lowercase]
output: {file: "out.json"}
`, map[string][]string{".topic": {" Ethology ", " Welfare "}})

	require.Empty(t, reason)
	got, _ := rec.Value("topics")
	assert.Equal(t, []string{"ethology", "welfare"}, got)
}

func TestAssemble_ResponseURLField(t *testing.T) {
	rec, reason := assemble(t, `
start_urls: ["https://x/a"]
extract_fields:
  profile_url:
    selector: "response.url"
output: {file: "out.json"}
`, nil)

	require.Empty(t, reason)
	got, _ := rec.Value("profile_url")
	assert.Equal(t, "https://x/a", got)
}
