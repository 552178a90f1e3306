// Package metrics decouples the conversion pipeline from any concrete
// metrics system. The pipeline records counters and histograms against the
// package-level backend; backends (see the datadog subpackage) buffer and
// ship them. The default backend drops everything, so instrumented code
// never checks whether metrics are enabled.
package metrics

import "sync"

// Labels attach dimensions to a metric observation.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer observations and can
// submit them on demand.
type Flusher interface {
	Flush() error
}

// Metric names understood by the shipped backends. Unknown names are
// silently dropped, so adding an instrumentation point is backwards
// compatible with old backends.
const (
	// MetricFilesTotal counts processed input files, labeled
	// outcome=converted|empty|failed.
	MetricFilesTotal = "flatcsv_files_total"

	// MetricTablesTotal counts written output tables, labeled
	// kind=main|link.
	MetricTablesTotal = "flatcsv_tables_total"

	// MetricRowsTotal counts written data rows, labeled kind=main|link.
	MetricRowsTotal = "flatcsv_rows_total"

	// MetricStageDurationSeconds observes per-file stage latency, labeled
	// stage=decode|flatten|clean|write and status=ok|error.
	MetricStageDurationSeconds = "flatcsv_stage_duration_seconds"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. Passing nil restores
// the no-op default.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to the named counter on the current backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of the named histogram on the
// current backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush submits buffered observations if the current backend supports it.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordFile counts one processed input file with the given outcome.
func RecordFile(outcome string) {
	IncCounter(MetricFilesTotal, 1, Labels{"outcome": outcome})
}

// RecordTables counts n written tables of the given kind.
func RecordTables(kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(MetricTablesTotal, float64(n), Labels{"kind": kind})
}

// RecordRows counts n written data rows of the given kind.
func RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(MetricRowsTotal, float64(n), Labels{"kind": kind})
}

// ObserveStage records the latency of one pipeline stage run.
func ObserveStage(stage, status string, seconds float64) {
	ObserveHistogram(MetricStageDurationSeconds, seconds, Labels{"stage": stage, "status": status})
}
