// Command html2json converts saved HTML export pages into the JSON array
// the CSV converter consumes.
//
// Usage (stdin):
//
//	cat saved_messages.html | html2json -mappings mappings.json
//
// Usage (directory mode):
//
//	html2json -dir "./export_pages" -mappings mappings.json -o messages.json
//
// Debug (print outer HTML blocks):
//
//	cat page.html | html2json -selector "div.media"
//
// Debug (print text for selector matches):
//
//	cat page.html | html2json -selector "div.media p" -text
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"flatcsv/internal/htmlrecords"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is split out from main so we can unit test the command without
// spawning an OS process.
//
// It returns a Unix-style exit code:
//   - 0 for success
//   - 2 for usage/config errors
//   - 1 for operational/runtime errors
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("html2json", flag.ContinueOnError)
	fs.SetOutput(stderr)

	onlyText := fs.Bool("text", false, "Debug: print text blocks for -selector matches (not JSON)")
	debugSelector := fs.String("selector", "", "Debug: CSS selector to print matches for (not JSON)")
	mappingsPath := fs.String("mappings", "", "Path to mappings JSON file (required for JSON extraction)")
	dirFlag := fs.String("dir", "", "Directory of HTML files to convert into one JSON array")
	outPath := fs.String("o", "", "Write output to this file atomically instead of stdout")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Debug selector mode needs HTML input but not mappings.
	if *debugSelector != "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "read stdin: %v\n", err)
			return 1
		}
		if err := htmlrecords.DebugPrintSelector(stdout, string(b), *debugSelector, *onlyText); err != nil {
			fmt.Fprintf(stderr, "debug selector: %v\n", err)
			return 1
		}
		return 0
	}

	if *mappingsPath == "" {
		fmt.Fprintf(stderr, "missing -mappings\n")
		return 2
	}

	mf, err := htmlrecords.LoadMappingFile(*mappingsPath)
	if err != nil {
		fmt.Fprintf(stderr, "load mappings: %v\n", err)
		return 2
	}

	emit := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)

		// Directory mode: stream output as a single JSON array.
		if *dirFlag != "" {
			return htmlrecords.StreamFromDir(w, *dirFlag, mf, enc)
		}

		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		html := string(b)

		// Record mode: output []object (one per record container).
		if mf.RecordSelector != "" {
			records, err := htmlrecords.ExtractRecords(html, mf.RecordSelector, mf.Mappings)
			if err != nil {
				return err
			}
			return enc.Encode(records)
		}

		obj, err := htmlrecords.ExtractOne(html, mf.Mappings)
		if err != nil {
			return err
		}
		return enc.Encode(obj)
	}

	if err := writeOutput(*outPath, stdout, emit); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	return 0
}

// writeOutput routes fn's output to stdout, or atomically to path: temp
// file in the target directory, renamed into place on success, removed on
// failure.
func writeOutput(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".html2json-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	writeErr := fn(tmp)
	closeErr := tmp.Close()

	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return closeErr
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
