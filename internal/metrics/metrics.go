// Package metrics records operational metrics for an incident load run.
//
// Callers use the package-level helpers (RecordStep, RecordRows,
// RecordWarnings, SetExportBytes, MarkSuccess); a pluggable Backend receives
// them. The default backend is a no-op, so instrumentation is always safe to
// call. Concrete systems live in subpackages (prompush, datadog) so the
// pipeline never imports Prometheus or DogStatsD directly.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the helpers.
const (
	StepTotal           = "kobo_etl_step_total"
	StepDurationSeconds = "kobo_etl_step_duration_seconds"
	RowsTotal           = "kobo_etl_rows_total"
	WarningsTotal       = "kobo_etl_warnings_total"
	ExportBytes         = "kobo_etl_export_bytes"
	LastSuccessUnix     = "kobo_etl_last_success_timestamp_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge sets a point-in-time value.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) SetGauge(string, float64, Labels)         {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Reset restores the no-op backend.
func Reset() {
	mu.Lock()
	backend = nopBackend{}
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a run step (fetch, normalize, load)
// and records its duration, labelled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind. Kinds used by the pipeline:
// "parsed", "skipped_lines" and "inserted". Non-positive deltas are ignored.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordWarnings adds delta normalizer warnings of the given kind.
func RecordWarnings(job, kind string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(WarningsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// SetExportBytes records the size of the downloaded export.
func SetExportBytes(job string, n int) {
	current().SetGauge(ExportBytes, float64(n), Labels{"job": job})
}

// MarkSuccess stamps the time of the last committed reload.
func MarkSuccess(job string, at time.Time) {
	current().SetGauge(LastSuccessUnix, float64(at.Unix()), Labels{"job": job})
}
