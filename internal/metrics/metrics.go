// Package metrics registers a private Prometheus registry for the
// correlation engine, alongside the Go and process collectors, the way a
// long-running server exposes its own counters without polluting the
// default global registry.
package metrics

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cdrgo"

// Metrics holds every counter/gauge the engine updates over a run.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsParsed     prometheus.Counter
	ParseFailures     prometheus.Counter
	LegsCached        prometheus.Gauge
	LegsSuppressed    prometheus.Counter
	CallsEmitted      prometheus.Counter
	TrunkToTrunkSplit prometheus.Counter
	UnknownEndpoints  prometheus.Gauge
	FilesInFlight     prometheus.Gauge
	FileProcessTime   prometheus.Histogram
}

// New builds a fresh registry with the engine's counters plus the standard
// Go runtime and process collectors registered against it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		PidFn:        func() (int, error) { return os.Getpid(), nil },
		Namespace:    namespace,
		ReportErrors: true,
	}))

	m := &Metrics{
		Registry: reg,
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "CDR lines successfully parsed into a record.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "CDR lines that failed to parse.",
		}),
		LegsCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "legs_cached",
			Help:      "Legs currently held in the correlation cache, awaiting a match or eviction.",
		}),
		LegsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legs_suppressed_total",
			Help:      "Records that parsed but produced no emitted leg.",
		}),
		CallsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_emitted_total",
			Help:      "Correlated calls written to a sink.",
		}),
		TrunkToTrunkSplit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trunk_to_trunk_split_total",
			Help:      "Trunk-to-trunk calls split into a synthetic inbound/outbound pair.",
		}),
		UnknownEndpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unknown_endpoints",
			Help:      "Distinct SIP endpoints seen that matched no loaded endpoint document entry.",
		}),
		FilesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_in_flight",
			Help:      "Input files currently being processed by a batch run.",
		}),
		FileProcessTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_process_seconds",
			Help:      "Wall-clock time to fully process one input file.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.RecordsParsed,
		m.ParseFailures,
		m.LegsCached,
		m.LegsSuppressed,
		m.CallsEmitted,
		m.TrunkToTrunkSplit,
		m.UnknownEndpoints,
		m.FilesInFlight,
		m.FileProcessTime,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveRunReport folds one Driver.Process outcome into the counters. It
// is additive: callers running several files accumulate by calling this
// once per file.
func (m *Metrics) ObserveRunReport(recordsParsed, callsEmitted, trunkToTrunkSplit, suppressed, parseFailures, unknownEndpoints int) {
	m.RecordsParsed.Add(float64(recordsParsed))
	m.CallsEmitted.Add(float64(callsEmitted))
	m.TrunkToTrunkSplit.Add(float64(trunkToTrunkSplit))
	m.LegsSuppressed.Add(float64(suppressed))
	m.ParseFailures.Add(float64(parseFailures))
	m.UnknownEndpoints.Set(float64(unknownEndpoints))
}
