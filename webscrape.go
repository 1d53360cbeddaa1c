package webscrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/webscrape/config"
	"github.com/pevans/webscrape/discovery"
	"github.com/pevans/webscrape/fetcher"
	"github.com/pevans/webscrape/output"
	"github.com/pevans/webscrape/record"
	"github.com/pevans/webscrape/scraper"
	"github.com/pevans/webscrape/store"
)

// PreviewSize is the number of records shown after a run.
const PreviewSize = 3

// Job describes one scrape.
type Job struct {
	// Target names a registered site (see scraper.Targets).
	Target string
	// URL overrides the target's base URL when set.
	URL string
	// Paginate walks listing pages 1..MaxPages instead of a single page.
	Paginate bool
	MaxPages int
	// Prefix overrides the target's output file prefix when set.
	Prefix string
}

// Summary reports the outcome of a job.
type Summary struct {
	RunID      uuid.UUID
	Target     string
	URL        string
	Records    []record.Record
	Pages      int
	Skipped    int
	Stop       discovery.StopReason
	Files      []string
	StartedAt  time.Time
	FinishedAt time.Time
	// Err is the error that ended the scrape early, if any.
	Err error
}

// OK reports whether the job produced at least one record.
func (s Summary) OK() bool {
	return len(s.Records) > 0
}

// Runner executes scrape jobs: fetch and parse, then save, then archive.
type Runner struct {
	Config  config.JobConfig
	Fetcher discovery.Fetcher
	Writer  *output.Writer
	// Store archives runs when set.
	Store  *store.RunStore
	Logger *slog.Logger
}

// NewRunner wires a fetcher, writer and (when output.database is set) a run
// archive from cfg. A run archive that cannot be opened is logged and left
// disabled.
func NewRunner(cfg config.JobConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		Config:  cfg,
		Fetcher: fetcher.New(fetcher.ClientConfigFrom(cfg), fetcher.WithLogger(logger)),
		Writer:  output.NewWriter(cfg, logger),
		Logger:  logger,
	}

	if cfg.Database != "" {
		s, err := store.Open(cfg.Database)
		if err != nil {
			logger.Error("failed to open run archive, continuing without it", "path", cfg.Database, "error", err)
		} else {
			r.Store = s
		}
	}

	return r
}

// Close releases the run archive, if any.
func (r *Runner) Close() error {
	if r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// Run executes job. It never returns an error: fetch, parse, write and archive
// failures are logged and reflected in the summary.
func (r *Runner) Run(ctx context.Context, job Job) Summary {
	summary := Summary{
		RunID:     uuid.New(),
		Target:    job.Target,
		URL:       job.URL,
		StartedAt: time.Now(),
	}
	logger := r.logger().With("run_id", summary.RunID.String())

	target, err := scraper.Lookup(job.Target)
	if err != nil {
		logger.Error("cannot run job", "target", job.Target, "error", err)
		summary.Err = err
		summary.FinishedAt = time.Now()
		return summary
	}
	summary.Target = target.Name
	if summary.URL == "" {
		summary.URL = target.BaseURL
	}

	prefix := job.Prefix
	if prefix == "" {
		prefix = target.Prefix
	}

	logger.Info("starting scrape",
		"target", target.Name,
		"url", summary.URL,
		"paginate", job.Paginate,
		"max_pages", job.MaxPages,
	)

	driver := discovery.NewDriver(r.Fetcher, logger)

	var res discovery.Result
	if job.Paginate {
		res = driver.ScrapeAll(ctx, target, job.URL, job.MaxPages)
	} else {
		res = driver.ScrapeOne(ctx, target.Parser, summary.URL)
	}

	summary.Records = res.Records
	summary.Pages = res.Pages
	summary.Skipped = res.Skipped
	summary.Stop = res.Stop
	summary.Err = res.Err

	if r.Writer != nil {
		summary.Files = r.Writer.Save(res.Records, prefix)
	}

	summary.FinishedAt = time.Now()
	r.archive(logger, summary)

	logger.Info("scrape finished",
		"target", target.Name,
		"records", len(summary.Records),
		"pages", summary.Pages,
		"skipped", summary.Skipped,
		"stop", string(summary.Stop),
		"files", summary.Files,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	for i, rec := range Preview(summary.Records) {
		logger.Info("record preview", "index", i+1, "record", Describe(rec))
	}

	return summary
}

// archive stores the run in the run archive if one is configured.
func (r *Runner) archive(logger *slog.Logger, summary Summary) {
	if r.Store == nil {
		return
	}

	run := &store.Run{
		RunID:      summary.RunID,
		Target:     summary.Target,
		URL:        summary.URL,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Pages:      summary.Pages,
		Skipped:    summary.Skipped,
		StopReason: string(summary.Stop),
	}
	if err := r.Store.SaveRun(run, summary.Records); err != nil {
		logger.Error("failed to archive run", "error", err)
		return
	}
	logger.Debug("archived run", "records", run.RecordCount)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Preview returns at most PreviewSize records from the start of records.
func Preview(records []record.Record) []record.Record {
	if len(records) > PreviewSize {
		return records[:PreviewSize]
	}
	return records
}

// Describe renders a record on one line as "key=value" pairs in field order.
// Long values are truncated.
func Describe(r record.Record) string {
	var out string
	for i, f := range r.Fields() {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%q", f.Key, truncate(f.Value.Text(), 60))
	}
	return out
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
