// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from an import run.
//
// A global, pluggable backend defaults to a no-op implementation, so the
// Record helpers are always safe to call. Concrete systems live in the
// prompush and datadog subpackages.
package metrics

import "time"

// Metric names emitted by the Record helpers.
const (
	StepTotal       = "mongoimport_step_total"
	StepDuration    = "mongoimport_step_duration_seconds"
	RecordsTotal    = "mongoimport_records_total"
	CommitsTotal    = "mongoimport_commits_total"
	RouteTyped      = "typed"
	RouteArchived   = "archived"
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	defaultJobLabel = "mongoimport"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of one run step, such as
// "bootstrap" or "import:users".
func RecordStep(job, step string, err error, d time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	if job == "" {
		job = defaultJobLabel
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow counts imported records for a collection by route, either
// RouteTyped or RouteArchived.
func RecordRow(collection, route string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"collection": collection,
		"route":      route,
	})
}

// RecordCommits counts committed transactions for a collection.
func RecordCommits(collection string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(CommitsTotal, float64(delta), Labels{
		"collection": collection,
	})
}
