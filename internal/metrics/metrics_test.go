package metrics

import (
	"errors"
	"reflect"
	"testing"
)

type observation struct {
	name   string
	value  float64
	labels Labels
}

type captureBackend struct {
	counters   []observation
	histograms []observation
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	c.counters = append(c.counters, observation{name: name, value: delta, labels: labels})
}

func (c *captureBackend) ObserveHistogram(name string, value float64, labels Labels) {
	c.histograms = append(c.histograms, observation{name: name, value: value, labels: labels})
}

type flushingBackend struct {
	captureBackend
	flushed int
	err     error
}

func (f *flushingBackend) Flush() error {
	f.flushed++
	return f.err
}

// Backend swaps go through package state, so these tests are intentionally
// not parallel.

func TestHelpersForwardToBackend(t *testing.T) {
	sink := &captureBackend{}
	SetBackend(sink)
	defer SetBackend(nil)

	RecordFile("converted")
	RecordTables("link", 2)
	RecordRows("main", 40)
	ObserveStage("decode", "ok", 0.25)

	wantCounters := []observation{
		{name: MetricFilesTotal, value: 1, labels: Labels{"outcome": "converted"}},
		{name: MetricTablesTotal, value: 2, labels: Labels{"kind": "link"}},
		{name: MetricRowsTotal, value: 40, labels: Labels{"kind": "main"}},
	}
	if !reflect.DeepEqual(sink.counters, wantCounters) {
		t.Fatalf("counters=%v\nwant %v", sink.counters, wantCounters)
	}

	wantHistograms := []observation{
		{name: MetricStageDurationSeconds, value: 0.25, labels: Labels{"stage": "decode", "status": "ok"}},
	}
	if !reflect.DeepEqual(sink.histograms, wantHistograms) {
		t.Fatalf("histograms=%v\nwant %v", sink.histograms, wantHistograms)
	}
}

func TestZeroCountsAreDropped(t *testing.T) {
	sink := &captureBackend{}
	SetBackend(sink)
	defer SetBackend(nil)

	RecordTables("main", 0)
	RecordRows("link", -1)
	if len(sink.counters) != 0 {
		t.Fatalf("counters=%v, want empty", sink.counters)
	}
}

func TestFlush(t *testing.T) {
	t.Run("nop_backend_is_nil", func(t *testing.T) {
		SetBackend(nil)
		if err := Flush(); err != nil {
			t.Fatalf("Flush()=%v, want nil", err)
		}
	})

	t.Run("non_flusher_is_nil", func(t *testing.T) {
		SetBackend(&captureBackend{})
		defer SetBackend(nil)
		if err := Flush(); err != nil {
			t.Fatalf("Flush()=%v, want nil", err)
		}
	})

	t.Run("flusher_is_called", func(t *testing.T) {
		fb := &flushingBackend{err: errors.New("submit failed")}
		SetBackend(fb)
		defer SetBackend(nil)

		if err := Flush(); !errors.Is(err, fb.err) {
			t.Fatalf("Flush()=%v, want backend error", err)
		}
		if fb.flushed != 1 {
			t.Fatalf("flushed=%d, want 1", fb.flushed)
		}
	})
}

func TestSetBackendNilRestoresNop(t *testing.T) {
	sink := &captureBackend{}
	SetBackend(sink)
	SetBackend(nil)

	RecordFile("converted")
	if len(sink.counters) != 0 {
		t.Fatalf("counters=%v, want none after reset", sink.counters)
	}
}
