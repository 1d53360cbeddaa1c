package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pevans/webscrape"
	"github.com/pevans/webscrape/record"
	"github.com/pevans/webscrape/scraper"
	"github.com/pevans/webscrape/store"
)

// printTargets prints the target registry as a table
func printTargets(w io.Writer, targets []scraper.Target) {
	fmt.Fprintf(w, "%-12s %-40s %s\n", "NAME", "BASE URL", "DESCRIPTION")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, t := range targets {
		fmt.Fprintf(w, "%-12s %-40s %s\n", t.Name, t.BaseURL, t.Description)
	}
}

// printSummary prints the outcome of a run and a preview of its records
func printSummary(w io.Writer, s webscrape.Summary) {
	if !s.OK() {
		fmt.Fprintf(w, "No records scraped from %s (%s)\n", s.URL, s.Stop)
		if s.Err != nil {
			fmt.Fprintf(w, "  Error: %v\n", s.Err)
		}
		return
	}

	fmt.Fprintf(w, "✓ Scraped %d records from %s\n", len(s.Records), s.URL)
	fmt.Fprintf(w, "  Pages: %d | Skipped: %d | Stopped: %s\n", s.Pages, s.Skipped, s.Stop)
	for _, path := range s.Files {
		fmt.Fprintf(w, "  Saved: %s\n", path)
	}
	fmt.Fprintf(w, "  Run ID: %s\n", s.RunID)

	preview := webscrape.Preview(s.Records)
	fmt.Fprintf(w, "\nFirst %d records:\n\n", len(preview))
	for i, r := range preview {
		printRecord(w, i+1, r)
	}
}

// printRecord prints one record with a field per line
func printRecord(w io.Writer, n int, r record.Record) {
	fmt.Fprintf(w, "%d.\n", n)
	for _, f := range r.Fields() {
		value := f.Value.Text()
		if runes := []rune(value); len(runes) > 100 {
			value = string(runes[:97]) + "..."
		}
		fmt.Fprintf(w, "   %s: %s\n", f.Key, value)
	}
	fmt.Fprintln(w)
}

// printRunsTable prints archived runs, newest first
func printRunsTable(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No archived runs.")
		return
	}

	fmt.Fprintf(w, "%-36s %-12s %-16s %7s %5s %s\n", "ID", "TARGET", "STARTED", "RECORDS", "PAGES", "STOP")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, run := range runs {
		fmt.Fprintf(w, "%-36s %-12s %-16s %7d %5d %s\n",
			run.RunID.String(),
			run.Target,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.RecordCount,
			run.Pages,
			run.StopReason,
		)
	}
}

// printRun prints one archived run followed by all of its records
func printRun(w io.Writer, run store.Run, records []record.Record) {
	fmt.Fprintf(w, "Run ID: %s\n", run.RunID)
	fmt.Fprintf(w, "  Target: %s\n", run.Target)
	fmt.Fprintf(w, "  URL: %s\n", run.URL)
	fmt.Fprintf(w, "  Started: %s | Finished: %s\n",
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
	)
	fmt.Fprintf(w, "  Records: %d | Pages: %d | Skipped: %d | Stopped: %s\n",
		run.RecordCount, run.Pages, run.Skipped, run.StopReason)
	fmt.Fprintln(w)

	for i, r := range records {
		printRecord(w, i+1, r)
	}
}
