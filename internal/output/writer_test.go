package output_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Maybol283/EthoScraper/internal/output"
	"github.com/Maybol283/EthoScraper/internal/pipeline"
)

var testTime = time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC)

func testRecords() []*pipeline.Record {
	first := pipeline.NewRecord("https://x/a", testTime)
	first.Set("name", "Jane Doe")
	first.Set("topics", []string{"ethology", "welfare"})

	second := pipeline.NewRecord("https://x/b", testTime)
	second.Set("name", "Bob Roe")
	second.Set("topics", []string{"cognition"})

	return []*pipeline.Record{first, second}
}

func TestExpandPath(t *testing.T) {
	got := output.ExpandPath("out/{job_name}_{timestamp}.csv", "staff_crawl", testTime)
	assert.Equal(t, "out/staff_crawl_20260823_143005.csv", got)
}

func TestExpandPath_NoPlaceholders(t *testing.T) {
	got := output.ExpandPath("results.json", "staff_crawl", testTime)
	assert.Equal(t, "results.json", got)
}

func TestWrite_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := output.NewWriter(path)

	require.NoError(t, w.Write(testRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"name", "topics", "source_url", "scraped_at"}, rows[0])
	assert.Equal(t, []string{"Jane Doe", "ethology; welfare", "https://x/a", "2026-08-23T14:30:05Z"}, rows[1])
	assert.Equal(t, []string{"Bob Roe", "cognition", "https://x/b", "2026-08-23T14:30:05Z"}, rows[2])
}

func TestWrite_JSONPreservesFieldOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := output.NewWriter(path)

	require.NoError(t, w.Write(testRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Jane Doe", decoded[0]["name"])
	assert.Equal(t, "https://x/a", decoded[0]["source_url"])

	// Configured fields come before the metadata members.
	text := string(data)
	assert.Less(t, strings.Index(text, `"name"`), strings.Index(text, `"topics"`))
	assert.Less(t, strings.Index(text, `"topics"`), strings.Index(text, `"source_url"`))
	assert.Less(t, strings.Index(text, `"source_url"`), strings.Index(text, `"scraped_at"`))
}

func TestWrite_UnknownExtensionDefaultsToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.dat")
	w := output.NewWriter(path)

	require.NoError(t, w.Write(testRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
}

func TestWrite_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	w := output.NewWriter(path)

	require.NoError(t, w.Write(testRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Jane Doe", decoded[0]["name"])
	assert.Equal(t, []any{"ethology", "welfare"}, decoded[0]["topics"])
	assert.Contains(t, string(data), "2026-08-23T14:30:05Z")
}

func TestWrite_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "out.json")
	w := output.NewWriter(path)

	require.NoError(t, w.Write(testRecords()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestWrite_EmptyRunStillWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := output.NewWriter(path)

	require.NoError(t, w.Write(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded)
}

func TestWrite_FailureWrapsErrWrite(t *testing.T) {
	dir := t.TempDir()
	// The target path is an existing directory, so the write must fail.
	w := output.NewWriter(dir)

	err := w.Write(testRecords())
	require.Error(t, err)
	assert.ErrorIs(t, err, output.ErrWrite)
}
