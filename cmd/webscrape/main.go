package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/pevans/webscrape"
	"github.com/pevans/webscrape/config"
	"github.com/pevans/webscrape/scraper"
	"github.com/pevans/webscrape/store"
)

// Exit codes
const (
	exitOK        = 0
	exitNoRecords = 1
	exitUsage     = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns its exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("webscrape", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "Path to the YAML config file")
	targetName := fs.String("target", "quotes", "Site to scrape (see -list-targets)")
	url := fs.String("url", "", "Override the target's base URL")
	paginate := fs.Bool("paginate", false, "Walk listing pages instead of a single page")
	maxPages := fs.Int("max-pages", 5, "Maximum number of pages to scrape with -paginate")
	prefix := fs.String("prefix", "", "Output file prefix (default: the target's name)")
	listTargets := fs.Bool("list-targets", false, "List the available targets and exit")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	listRuns := fs.Int("list-runs", 0, "List the N most recent archived runs and exit (needs output.database)")
	showRun := fs.String("show-run", "", "Show an archived run and its records by ID and exit (needs output.database)")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments: %v\n\n", fs.Args())
		fs.Usage()
		return exitUsage
	}
	if *listRuns < 0 {
		fmt.Fprintf(stderr, "Error: -list-runs must not be negative\n")
		return exitUsage
	}
	if *maxPages < 0 {
		fmt.Fprintf(stderr, "Error: -max-pages must not be negative\n")
		return exitUsage
	}

	if *listTargets {
		printTargets(stdout, scraper.Targets())
		return exitOK
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	// Validate target before touching the network
	target, err := scraper.Lookup(*targetName)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintf(stderr, "Run 'webscrape -list-targets' to see the available targets.\n")
		return exitUsage
	}

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if *listRuns > 0 || *showRun != "" {
		return handleArchive(cfg, *listRuns, *showRun, stdout, stderr)
	}

	runner := webscrape.NewRunner(cfg, logger)
	defer runner.Close()

	summary := runner.Run(ctx, webscrape.Job{
		Target:   target.Name,
		URL:      *url,
		Paginate: *paginate,
		MaxPages: *maxPages,
		Prefix:   *prefix,
	})

	printSummary(stdout, summary)

	if !summary.OK() {
		return exitNoRecords
	}
	return exitOK
}

// handleArchive serves -list-runs and -show-run from the run archive.
func handleArchive(cfg config.JobConfig, listRuns int, showRun string, stdout, stderr io.Writer) int {
	if cfg.Database == "" {
		fmt.Fprintf(stderr, "Error: output.database is not set in the config file\n")
		return exitUsage
	}

	// Parse the ID before touching the database
	var runID uuid.UUID
	if showRun != "" {
		id, err := uuid.Parse(showRun)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid run ID: %v\n", err)
			return exitUsage
		}
		runID = id
	}

	runStore, err := store.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open run archive: %v\n", err)
		return exitNoRecords
	}
	defer runStore.Close()

	if showRun != "" {
		run, err := runStore.GetRun(runID)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to get run: %v\n", err)
			return exitNoRecords
		}
		records, err := runStore.Records(runID)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to get records: %v\n", err)
			return exitNoRecords
		}
		printRun(stdout, *run, records)
		return exitOK
	}

	runs, err := runStore.ListRuns(listRuns)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to list runs: %v\n", err)
		return exitNoRecords
	}
	printRunsTable(stdout, runs)
	return exitOK
}

func printUsage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "webscrape - Scrape listing sites into CSV and JSON")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  webscrape [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0  records were scraped")
	fmt.Fprintln(w, "  1  the job produced no records, or an archived run could not be read")
	fmt.Fprintln(w, "  2  usage error, unknown target or invalid config file")
}
