package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/webscrape/config"
	"github.com/pevans/webscrape/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func sampleRecords() []record.Record {
	return []record.Record{
		record.New(
			record.F("text", record.String("“Ça va?” said the café owner")),
			record.F("author", record.String("Zoë")),
			record.F("tags", record.List("life", "français")),
		),
		record.New(
			record.F("text", record.String("Second")),
			record.F("author", record.String("Bob")),
			record.F("tags", record.List()),
		),
	}
}

func testWriter(t *testing.T, dir string, format config.OutputFormat) (*Writer, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	return &Writer{
		Dir:    dir,
		Format: format,
		Now:    func() time.Time { return fixedNow },
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	}, &logs
}

// TestFileName verifies the prefix_timestamp.ext layout
func TestFileName(t *testing.T) {
	assert.Equal(t, "quotes_20240309_140507.csv", FileName("quotes", fixedNow, "csv"))
}

// TestWriter_JSONRoundTrip verifies written JSON decodes back to equal records
func TestWriter_JSONRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w, _ := testWriter(t, dir, config.FormatJSON)
	records := sampleRecords()

	paths := w.Save(records, "quotes")

	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "quotes_20240309_140507.json"), paths[0])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	var decoded []record.Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, len(records))
	for i := range records {
		assert.Equal(t, records[i].Fields(), decoded[i].Fields())
	}

	// Non-ASCII text is written literally, keys keep extraction order
	assert.Contains(t, string(data), "“Ça va?” said the café owner")
	assert.Contains(t, string(data), "\n  {\n    \"text\"")
	assert.NotContains(t, string(data), `\u00`)
}

// TestWriter_JSONKeepsMarkupCharacters verifies & and < are not escaped
func TestWriter_JSONKeepsMarkupCharacters(t *testing.T) {
	dir := t.TempDir()
	w, _ := testWriter(t, dir, config.FormatJSON)
	records := []record.Record{
		record.New(record.F("text", record.String("Tom & Jerry <b> café"))),
	}

	paths := w.Save(records, "quotes")
	require.Len(t, paths, 1)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Tom & Jerry <b> café"`)
	assert.NotContains(t, string(data), `\u0026`)
	assert.NotContains(t, string(data), `\u003c`)
}

// TestWriter_CSVHeader verifies the header is the sorted union of keys
func TestWriter_CSVHeader(t *testing.T) {
	dir := t.TempDir()
	w, _ := testWriter(t, dir, config.FormatCSV)
	records := []record.Record{
		record.New(
			record.F("title", record.String("A")),
			record.F("author", record.String("x")),
		),
		record.New(
			record.F("title", record.String("B")),
			record.F("tags", record.List("one", "two")),
		),
	}

	paths := w.Save(records, "mixed")
	require.Len(t, paths, 1)

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"author", "tags", "title"}, rows[0])
	assert.Equal(t, []string{"x", "", "A"}, rows[1])
	assert.Equal(t, []string{"", "one, two", "B"}, rows[2])
}

// TestWriter_Both verifies both formats are written for FormatBoth
func TestWriter_Both(t *testing.T) {
	dir := t.TempDir()
	w, _ := testWriter(t, dir, config.FormatBoth)

	paths := w.Save(sampleRecords(), "quotes")

	assert.Equal(t, []string{
		filepath.Join(dir, "quotes_20240309_140507.csv"),
		filepath.Join(dir, "quotes_20240309_140507.json"),
	}, paths)
	for _, path := range paths {
		assert.FileExists(t, path)
	}
}

// TestWriter_EmptyInput verifies nothing is written for empty input
func TestWriter_EmptyInput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	w, logs := testWriter(t, dir, config.FormatBoth)

	paths := w.Save(nil, "quotes")

	assert.Empty(t, paths)
	assert.NoDirExists(t, dir)
	assert.Contains(t, logs.String(), "no records to save")
}

// TestWriter_WriteFailureLogged verifies I/O errors are logged, not returned
func TestWriter_WriteFailureLogged(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	w, logs := testWriter(t, blocker, config.FormatBoth)

	paths := w.Save(sampleRecords(), "quotes")

	assert.Empty(t, paths)
	assert.Contains(t, logs.String(), "failed to save CSV")
	assert.Contains(t, logs.String(), "failed to save JSON")
}

// TestWriteCSV_Empty verifies the package-level writers are no-ops on empty input
func TestWriteCSV_Empty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteCSV(nil, "quotes", dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteJSON([]record.Record{}, "quotes", dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	assert.NoDirExists(t, dir)
}

// TestWriteJSON_CreatesDirectory verifies the output directory is created
func TestWriteJSON_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	path, err := WriteJSON(sampleRecords(), "quotes", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, `^quotes_\d{8}_\d{6}\.json$`, filepath.Base(path))
	assert.FileExists(t, path)
}

// TestNewWriter verifies the writer takes its settings from config
func TestNewWriter(t *testing.T) {
	cfg := config.Default()
	cfg.Directory = "elsewhere"
	cfg.Format = config.FormatCSV

	w := NewWriter(cfg, nil)

	assert.Equal(t, "elsewhere", w.Dir)
	assert.Equal(t, config.FormatCSV, w.Format)
}
