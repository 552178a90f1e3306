package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"flatcsv/internal/metrics"
	"flatcsv/internal/metrics/datadog"
	"flatcsv/internal/pipeline"
	"flatcsv/internal/tabular"
)

// fileRecord is emitted as JSONL to stdout for each processed file when
// -jsonl is set.
//
// This output is intended for machine parsing. Additive changes are safe;
// renames/removals are breaking changes for downstream log consumers.
type fileRecord struct {
	Timestamp  string   `json:"ts"`
	File       string   `json:"file"`
	Outcome    string   `json:"outcome"`
	Rows       int      `json:"rows"`
	LinkTables int      `json:"link_tables"`
	Output     []string `json:"output,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// runRecord closes a -jsonl stream with the whole-run totals.
type runRecord struct {
	Timestamp  string `json:"ts"`
	Run        string `json:"run"`
	Converted  int    `json:"converted"`
	Empty      int    `json:"empty"`
	Failed     int    `json:"failed"`
	Tables     int    `json:"tables"`
	Rows       int    `json:"rows"`
	DurationMs int64  `json:"duration_ms"`
}

// backendCloser is the minimal interface used by this command to manage a
// metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
//
// When to use:
//   - Unit tests: inject a fake backend factory and capture stdout/stderr.
//   - Alternate runtimes: swap the metrics backend or output sinks.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
	Now            func() time.Time
}

// runConfig holds the parsed flags for a run.
type runConfig struct {
	InputDir  string
	OutputDir string
	LogFile   string
	JobName   string

	StripSpecialChars bool
	GenerateIDs       bool
	DateFeatures      bool

	JSONL     bool
	WatchMode bool
	Schedule  string

	MetricsBackend string
	DDTagsCSV      string
	FlushEvery     time.Duration

	Verbose bool
}

// main is intentionally small: it wires real dependencies and exits with a
// code.
func main() {
	code := run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName:    jobName,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
		},
		Now: time.Now,
	})
	os.Exit(code)
}

// run executes the converter command and returns an exit code.
//
// Exit codes:
//   - 0: success.
//   - 1: runtime failure, including at least one file that failed to
//     convert.
//   - 2: configuration/initialization error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.BackendFactory == nil {
		fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
		return 2
	}

	_ = godotenv.Load()

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, closeLog, err := openLogger(cfg.LogFile, d.Stderr)
	if err != nil {
		fmt.Fprintf(d.Stderr, "open log file: %v\n", err)
		return 2
	}
	defer closeLog()

	runID := uuid.New().String()
	logger.Printf("flatcsv: run=%s input=%s output=%s", runID, cfg.InputDir, cfg.OutputDir)

	// Decide metrics backend: flag → env → default.
	backendName := cfg.MetricsBackend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		tags := datadog.ParseTagsCSV(cfg.DDTagsCSV)
		if len(tags) == 0 {
			tags = datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		}
		tags = append(tags, "tool:flatcsv", "run:"+runID)

		// The backend gets a fresh context so the final flush still goes
		// out after a signal cancels ctx.
		b, err := d.BackendFactory(context.Background(), cfg.JobName, tags, cfg.FlushEvery)
		if err != nil {
			logger.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			logger.Printf("metrics: backend=datadog job=%s tags=%v", cfg.JobName, tags)
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					logger.Printf("metrics: close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if cfg.Verbose {
			logger.Printf("metrics: disabled")
		}

	default:
		logger.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	conv := &pipeline.Converter{
		Config: pipeline.Config{
			InputDir:  cfg.InputDir,
			OutputDir: cfg.OutputDir,
			Options: tabular.Options{
				StripSpecialChars:   cfg.StripSpecialChars,
				AutoGenerateIDs:     cfg.GenerateIDs,
				ExtractDateFeatures: cfg.DateFeatures,
			},
		},
		Logger: logger,
	}

	// JSONL output shares one encoder between the per-file callback and
	// the run record; the watcher may invoke the callback concurrently.
	var emit func(v any)
	if cfg.JSONL {
		enc := json.NewEncoder(d.Stdout)
		var mu sync.Mutex
		emit = func(v any) {
			mu.Lock()
			defer mu.Unlock()
			_ = enc.Encode(v)
		}
		conv.OnResult = func(res pipeline.FileResult) {
			emit(newFileRecord(d.Now(), res))
		}
	}

	report := func(sum *pipeline.Summary) {
		if emit != nil {
			emit(newRunRecord(d.Now(), runID, sum))
			return
		}
		printSummary(d.Stdout, sum)
	}

	switch {
	case cfg.WatchMode:
		return runWatch(ctx, conv, report, d)
	case cfg.Schedule != "":
		return runScheduled(ctx, conv, cfg.Schedule, report, logger, d)
	default:
		return runOnce(ctx, conv, report, d)
	}
}

func runOnce(ctx context.Context, conv *pipeline.Converter, report func(*pipeline.Summary), d deps) int {
	sum, err := conv.Run(ctx)
	if err != nil {
		fmt.Fprintf(d.Stderr, "run failed: %v\n", err)
		return 1
	}
	_ = metrics.Flush()

	report(sum)
	if len(sum.Failed) > 0 {
		return 1
	}
	return 0
}

// runWatch performs one full conversion, then keeps converting files as
// they change until the context is cancelled.
func runWatch(ctx context.Context, conv *pipeline.Converter, report func(*pipeline.Summary), d deps) int {
	sum, err := conv.Run(ctx)
	if err != nil {
		fmt.Fprintf(d.Stderr, "initial run failed: %v\n", err)
		return 1
	}
	report(sum)

	if err := conv.Watch(ctx); err != nil {
		fmt.Fprintf(d.Stderr, "watch failed: %v\n", err)
		return 1
	}
	_ = metrics.Flush()
	return 0
}

// runScheduled reruns the conversion on a cron cadence until the context
// is cancelled. A tick that arrives while a run is still going is skipped,
// not queued.
func runScheduled(ctx context.Context, conv *pipeline.Converter, spec string, report func(*pipeline.Summary), logger *log.Logger, d deps) int {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))))
	_, err := c.AddFunc(spec, func() {
		sum, err := conv.Run(ctx)
		if err != nil {
			logger.Printf("scheduled run failed: %v", err)
			return
		}
		_ = metrics.Flush()
		report(sum)
	})
	if err != nil {
		fmt.Fprintf(d.Stderr, "invalid -schedule %q: %v\n", spec, err)
		return 2
	}

	c.Start()
	logger.Printf("schedule: %q installed", spec)

	<-ctx.Done()
	// Stop accepting new runs and wait for an in-flight one to finish.
	<-c.Stop().Done()
	return 0
}

// openLogger builds the run logger. With a log file the logger writes to
// both stderr and the file; the file is opened append-only so consecutive
// runs accumulate.
func openLogger(logFile string, stderr io.Writer) (*log.Logger, func(), error) {
	if logFile == "" {
		return log.New(stderr, "", log.LstdFlags), func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return log.New(io.MultiWriter(stderr, f), "", log.LstdFlags), func() { _ = f.Close() }, nil
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	fmt.Fprintf(w, "converted %d file(s), %d empty, %d failed\n",
		len(sum.Converted), len(sum.Empty), len(sum.Failed))
	fmt.Fprintf(w, "tables written: %d (rows: %d)\n", sum.TablesWritten, sum.RowsWritten)
	fmt.Fprintf(w, "duration: %s\n", sum.Duration.Truncate(time.Millisecond))
	for _, fe := range sum.Failed {
		fmt.Fprintf(w, "  failed %s: %v\n", fe.File, fe.Err)
	}
}

func newFileRecord(now time.Time, res pipeline.FileResult) fileRecord {
	rec := fileRecord{
		Timestamp:  now.UTC().Format("2006-01-02T15:04:05.000Z"),
		File:       res.Input,
		Outcome:    string(res.Outcome),
		Rows:       res.MainRows + res.LinkRows,
		Output:     res.Tables,
		DurationMs: res.Duration.Milliseconds(),
	}
	if n := len(res.Tables); n > 1 {
		rec.LinkTables = n - 1
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	return rec
}

func newRunRecord(now time.Time, runID string, sum *pipeline.Summary) runRecord {
	return runRecord{
		Timestamp:  now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Run:        runID,
		Converted:  len(sum.Converted),
		Empty:      len(sum.Empty),
		Failed:     len(sum.Failed),
		Tables:     sum.TablesWritten,
		Rows:       sum.RowsWritten,
		DurationMs: sum.Duration.Milliseconds(),
	}
}

// parseFlags parses command arguments into a validated runConfig.
//
// Errors:
//   - Returns an error for invalid flag combinations.
//   - Does not exit the process (caller decides exit code).
func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("flatcsv", flag.ContinueOnError)

	// Capture help/usage text instead of writing to stdout.
	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)

	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage of %s:\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.InputDir, "in", "instagram_jsons", "Directory of JSON export files to convert")
	fs.StringVar(&cfg.OutputDir, "out", "cleaned_csvs", "Directory for the cleaned CSV tables")
	fs.StringVar(&cfg.LogFile, "log", "processing.log", "Append-only log file (empty logs to stderr only)")
	fs.StringVar(&cfg.JobName, "job", "flatcsv", "Logical job name used in metrics tags")
	fs.BoolVar(&cfg.StripSpecialChars, "strip-special", false, "Remove emoji and symbol runes from text values")
	fs.BoolVar(&cfg.GenerateIDs, "gen-ids", true, "Generate a unique_id column when no natural key exists")
	fs.BoolVar(&cfg.DateFeatures, "date-features", true, "Add year/month/day/weekday/hour columns for parsed dates")
	fs.BoolVar(&cfg.JSONL, "jsonl", false, "Emit per-file results as JSON lines on stdout")
	fs.BoolVar(&cfg.WatchMode, "watch", false, "Keep running and convert files as they appear")
	fs.StringVar(&cfg.Schedule, "schedule", "", "Cron expression for periodic reruns (e.g. \"0 3 * * *\")")
	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", "", "Metrics backend (datadog, none; default env METRICS_BACKEND, then none)")
	fs.StringVar(&cfg.DDTagsCSV, "dd-tags", "", "Extra Datadog tags CSV (e.g. env:prod,team:data)")
	fs.DurationVar(&cfg.FlushEvery, "metrics-flush", time.Minute, "Datadog flush interval")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		// When -h / -help is passed, flag.Parse returns flag.ErrHelp.
		// Return the captured usage text so caller prints it.
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if cfg.InputDir == "" {
		return runConfig{}, errors.New("missing required -in <dir>")
	}
	if cfg.OutputDir == "" {
		return runConfig{}, errors.New("missing required -out <dir>")
	}
	if cfg.WatchMode && cfg.Schedule != "" {
		return runConfig{}, errors.New("-watch and -schedule are mutually exclusive")
	}

	return cfg, nil
}
