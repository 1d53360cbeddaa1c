package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/webscrape/config"
	"github.com/pevans/webscrape/record"
)

// TimestampFormat is the layout of the timestamp in output file names
// (YYYYMMDD_HHMMSS).
const TimestampFormat = "20060102_150405"

// FileName builds {prefix}_{timestamp}.{ext}.
func FileName(prefix string, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format(TimestampFormat), ext)
}

// Writer saves scrape results in the configured formats. Write failures are
// logged and never propagated; callers learn what was written from the
// returned paths.
type Writer struct {
	Dir    string
	Format config.OutputFormat
	// Now supplies the file name timestamp. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// NewWriter creates a writer from the output section of cfg.
func NewWriter(cfg config.JobConfig, logger *slog.Logger) *Writer {
	return &Writer{
		Dir:    cfg.Directory,
		Format: cfg.Format,
		Logger: logger,
	}
}

// Save writes records as CSV and/or JSON under w.Dir and returns the paths
// of the files it wrote.
func (w *Writer) Save(records []record.Record, prefix string) []string {
	logger := w.logger()

	if len(records) == 0 {
		logger.Warn("no records to save", "prefix", prefix)
		return nil
	}

	var paths []string
	if w.Format.WantsCSV() {
		path, err := writeCSV(records, prefix, w.Dir, w.now())
		if err != nil {
			logger.Error("failed to save CSV", "dir", w.Dir, "error", err)
		} else {
			logger.Info("saved CSV", "path", path, "records", len(records))
			paths = append(paths, path)
		}
	}
	if w.Format.WantsJSON() {
		path, err := writeJSON(records, prefix, w.Dir, w.now())
		if err != nil {
			logger.Error("failed to save JSON", "dir", w.Dir, "error", err)
		} else {
			logger.Info("saved JSON", "path", path, "records", len(records))
			paths = append(paths, path)
		}
	}

	return paths
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// WriteCSV writes records to {dir}/{prefix}_{timestamp}.csv. The header is
// the sorted union of every record's keys; list values are joined with ", "
// and missing keys become empty cells. Empty input writes nothing and
// returns an empty path.
func WriteCSV(records []record.Record, prefix, dir string) (string, error) {
	if len(records) == 0 {
		slog.Warn("no data to save to CSV", "prefix", prefix)
		return "", nil
	}
	return writeCSV(records, prefix, dir, time.Now())
}

// WriteJSON writes records to {dir}/{prefix}_{timestamp}.json as an indented
// array of objects. Non-ASCII text is written as-is. Empty input writes
// nothing and returns an empty path.
func WriteJSON(records []record.Record, prefix, dir string) (string, error) {
	if len(records) == 0 {
		slog.Warn("no data to save to JSON", "prefix", prefix)
		return "", nil
	}
	return writeJSON(records, prefix, dir, time.Now())
}

func writeCSV(records []record.Record, prefix, dir string, now time.Time) (string, error) {
	path, f, err := create(dir, FileName(prefix, now, "csv"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := record.KeyUnion(records)

	bw := bufio.NewWriter(f)
	cw := csv.NewWriter(bw)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range records {
		for i, key := range header {
			row[i] = ""
			if v, ok := r.Get(key); ok {
				row[i] = v.Text()
			}
		}
		if err := cw.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to write CSV: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("failed to write CSV: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close CSV file: %w", err)
	}

	return path, nil
}

func writeJSON(records []record.Record, prefix, dir string, now time.Time) (string, error) {
	path, f, err := create(dir, FileName(prefix, now, "json"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close JSON file: %w", err)
	}

	return path, nil
}

// create makes sure dir exists and creates name inside it.
func create(dir, name string) (string, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return path, f, nil
}
