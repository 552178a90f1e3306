// Package pipeline orchestrates the conversion of a directory of JSON
// export files into cleaned CSV tables.
//
// Each input file is processed independently: decode, flatten, clean,
// write. A file that fails leaves the run going; its error lands in the
// run summary. The output directory mirrors the input directory's
// structure.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"flatcsv/internal/csvout"
	"flatcsv/internal/flatten"
	"flatcsv/internal/metrics"
	"flatcsv/internal/tabular"
	"flatcsv/internal/textclean"
)

// Logger is the minimal logging interface used by the pipeline.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Config locates the input and output trees and carries the normalization
// toggles applied to every table.
type Config struct {
	InputDir  string
	OutputDir string
	Options   tabular.Options
}

// Outcome classifies what happened to one input file.
type Outcome string

const (
	// OutcomeConverted means at least one CSV artifact was written.
	OutcomeConverted Outcome = "converted"

	// OutcomeEmpty means the file decoded fine but held no tabular data,
	// so no artifact was written.
	OutcomeEmpty Outcome = "empty"

	// OutcomeFailed means the file could not be converted.
	OutcomeFailed Outcome = "failed"
)

// FileResult reports the conversion of one input file.
type FileResult struct {
	// Input is the file's path relative to Config.InputDir.
	Input string

	Outcome Outcome

	// Tables lists written artifact paths, main table first.
	Tables []string

	MainRows int
	LinkRows int

	Duration time.Duration

	// Err is set when Outcome is OutcomeFailed.
	Err error
}

// FileError pairs a failed input file with its error for the run summary.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string { return e.File + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// Summary aggregates a whole run.
type Summary struct {
	Converted []string
	Empty     []string
	Failed    []FileError

	TablesWritten int
	RowsWritten   int

	Duration time.Duration
}

// Log emits the run totals through l.
func (s *Summary) Log(l Logger) {
	l.Printf("run: converted=%d empty=%d failed=%d tables=%d rows=%d duration=%s",
		len(s.Converted), len(s.Empty), len(s.Failed),
		s.TablesWritten, s.RowsWritten, s.Duration.Truncate(time.Millisecond))
}

func (s *Summary) add(res FileResult) {
	switch res.Outcome {
	case OutcomeConverted:
		s.Converted = append(s.Converted, res.Input)
		s.TablesWritten += len(res.Tables)
		s.RowsWritten += res.MainRows + res.LinkRows
	case OutcomeEmpty:
		s.Empty = append(s.Empty, res.Input)
	case OutcomeFailed:
		s.Failed = append(s.Failed, FileError{File: res.Input, Err: res.Err})
	}
}

// Converter runs conversions against one Config. The zero Logger logs
// nowhere.
type Converter struct {
	Config Config
	Logger Logger

	// OnResult, when set, receives every FileResult as it completes.
	// Callers use it to stream per-file progress. It may be invoked from
	// the watcher's timer goroutines, so it must be safe for concurrent
	// use.
	OnResult func(FileResult)
}

func (c *Converter) emit(res FileResult) {
	if c.OnResult != nil {
		c.OnResult(res)
	}
}

// printfLogger adapts a Printf-shaped function to Logger.
type printfLogger func(format string, v ...any)

func (f printfLogger) Printf(format string, v ...any) { f(format, v...) }

func (c *Converter) logf() func(format string, v ...any) {
	if c.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return c.Logger.Printf
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Run converts every .json file under Config.InputDir, walking
// subdirectories in lexical order.
//
// Errors:
//   - Per-file conversion errors do not stop the run; they are collected
//     in Summary.Failed.
//   - An unreadable input tree or a cancelled context stops the walk and
//     returns the error alongside the partial summary.
func (c *Converter) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	logf := c.logf()
	sum := &Summary{}

	logf("run: input=%s output=%s", c.Config.InputDir, c.Config.OutputDir)

	err := filepath.WalkDir(c.Config.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		res := c.ConvertFile(ctx, path)
		sum.add(res)
		c.emit(res)

		switch res.Outcome {
		case OutcomeConverted:
			logf("stage=convert file=%s outcome=%s tables=%d rows=%d duration=%s",
				res.Input, res.Outcome, len(res.Tables), res.MainRows+res.LinkRows, res.Duration.Truncate(time.Millisecond))
		case OutcomeEmpty:
			logf("stage=convert file=%s outcome=%s duration=%s",
				res.Input, res.Outcome, res.Duration.Truncate(time.Millisecond))
		case OutcomeFailed:
			logf("stage=convert file=%s outcome=%s error=%q duration=%s",
				res.Input, res.Outcome, res.Err, res.Duration.Truncate(time.Millisecond))
		}
		return nil
	})

	sum.Duration = time.Since(start)
	sum.Log(printfLogger(logf))

	if err != nil {
		return sum, err
	}
	return sum, nil
}

// ConvertFile converts a single input file and reports the result. The
// error, if any, is carried inside the result; callers decide whether it
// is fatal.
func (c *Converter) ConvertFile(ctx context.Context, path string) FileResult {
	start := time.Now()

	rel, err := filepath.Rel(c.Config.InputDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	res := FileResult{Input: rel}

	fail := func(stage string, started time.Time, err error) FileResult {
		metrics.ObserveStage(stage, "error", time.Since(started).Seconds())
		metrics.RecordFile(string(OutcomeFailed))
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("%s: %w", stage, err)
		res.Duration = time.Since(start)
		return res
	}
	done := func(stage string, started time.Time) {
		metrics.ObserveStage(stage, "ok", time.Since(started).Seconds())
	}
	empty := func() FileResult {
		metrics.RecordFile(string(OutcomeEmpty))
		res.Outcome = OutcomeEmpty
		res.Duration = time.Since(start)
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}

	decodeStart := time.Now()
	doc, err := decodeFile(path)
	if err != nil {
		return fail("decode", decodeStart, err)
	}
	done("decode", decodeStart)

	flattenStart := time.Now()
	raw := flatten.RecordList(doc)
	recs := make([]flatten.Record, 0, len(raw))
	for _, r := range raw {
		recs = append(recs, flatten.Flatten(r, "", ""))
	}
	done("flatten", flattenStart)
	if len(recs) == 0 {
		return empty()
	}

	cleanStart := time.Now()
	table := tabular.BuildTable(recs)
	if table.Empty() {
		done("clean", cleanStart)
		return empty()
	}
	tabular.Clean(table, c.Config.Options)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	links := tabular.ExtractLinkTables(table, stem)
	done("clean", cleanStart)
	if table.Empty() {
		return empty()
	}

	writeStart := time.Now()
	outDir := filepath.Join(c.Config.OutputDir, filepath.Dir(rel))
	mainPath := filepath.Join(outDir, stem+"_cleaned.csv")
	if err := csvout.WriteTable(mainPath, table); err != nil {
		return fail("write", writeStart, err)
	}
	res.Tables = append(res.Tables, mainPath)
	res.MainRows = len(table.Rows)

	for _, lt := range links {
		linkPath := filepath.Join(outDir, lt.Name+"_cleaned.csv")
		if err := csvout.WriteTable(linkPath, lt.Table); err != nil {
			return fail("write", writeStart, err)
		}
		res.Tables = append(res.Tables, linkPath)
		res.LinkRows += len(lt.Table.Rows)
	}
	done("write", writeStart)

	metrics.RecordFile(string(OutcomeConverted))
	metrics.RecordTables("main", 1)
	metrics.RecordRows("main", res.MainRows)
	metrics.RecordTables("link", len(links))
	metrics.RecordRows("link", res.LinkRows)

	res.Outcome = OutcomeConverted
	res.Duration = time.Since(start)
	return res
}

// decodeFile reads one JSON document. The reader tolerates a byte order
// mark and UTF-16 encodings, which some export archives carry.
func decodeFile(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return flatten.Decode(textclean.NewReader(f))
}
