// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Namespace prefixes every paperfeed metric name.
const Namespace = "paperfeed"

// Metrics holds the counters updated by the retry controller, the
// pagination engine and the proxy. A nil *Metrics is valid and records
// nothing, so components can run without instrumentation.
type Metrics struct {
	// FetchAttempts counts feed round trips made by the retry controller.
	FetchAttempts prometheus.Counter

	// FetchFailures counts failed round trips, labeled by failure reason.
	FetchFailures *prometheus.CounterVec

	// EmptyPages counts round trips that returned no records.
	EmptyPages prometheus.Counter

	// PlaceholderBatches counts batches substituted with placeholders.
	PlaceholderBatches prometheus.Counter

	// PagesSettled counts pagination fetches that completed, labeled by
	// batch origin.
	PagesSettled *prometheus.CounterVec

	// RecordsAppended counts unseen records appended to a result set.
	RecordsAppended prometheus.Counter

	// DuplicatesDropped counts records discarded as already seen.
	DuplicatesDropped prometheus.Counter

	// StaleResults counts fetch results discarded after a scope change.
	StaleResults prometheus.Counter

	// Reopens counts under-fill recoveries.
	Reopens prometheus.Counter

	// ProxyRequests counts proxy requests, labeled by outcome.
	ProxyRequests *prometheus.CounterVec

	// ProxyDuration observes proxy request latency in seconds.
	ProxyDuration prometheus.Histogram
}

// NewMetrics registers all metrics with reg. Passing a fresh
// prometheus.NewRegistry keeps tests and multiple engines independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_attempts_total",
			Help:      "Total number of feed round trips attempted",
		}),
		FetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of failed feed round trips by reason",
		}, []string{"reason"}),
		EmptyPages: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_empty_pages_total",
			Help:      "Total number of feed round trips that returned no records",
		}),
		PlaceholderBatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "placeholder_batches_total",
			Help:      "Total number of batches replaced by placeholder records",
		}),
		PagesSettled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_settled_total",
			Help:      "Total number of pagination fetches settled by batch origin",
		}, []string{"origin"}),
		RecordsAppended: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_appended_total",
			Help:      "Total number of unseen records appended to result sets",
		}),
		DuplicatesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Total number of records dropped as duplicates",
		}),
		StaleResults: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stale_results_total",
			Help:      "Total number of fetch results discarded after a scope change",
		}),
		Reopens: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pagination_reopens_total",
			Help:      "Total number of under-fill pagination reopenings",
		}),
		ProxyRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "proxy_requests_total",
			Help:      "Total number of proxy requests by outcome",
		}, []string{"outcome"}),
		ProxyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "proxy_request_duration_seconds",
			Help:      "Proxy request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordAttempt() {
	if m != nil {
		m.FetchAttempts.Inc()
	}
}

func (m *Metrics) RecordFailure(reason string) {
	if m != nil {
		m.FetchFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) RecordEmptyPage() {
	if m != nil {
		m.EmptyPages.Inc()
	}
}

func (m *Metrics) RecordPlaceholderBatch() {
	if m != nil {
		m.PlaceholderBatches.Inc()
	}
}

// RecordSettle records one settled pagination fetch.
func (m *Metrics) RecordSettle(origin string, appended, duplicates int) {
	if m == nil {
		return
	}
	m.PagesSettled.WithLabelValues(origin).Inc()
	m.RecordsAppended.Add(float64(appended))
	m.DuplicatesDropped.Add(float64(duplicates))
}

func (m *Metrics) RecordStale() {
	if m != nil {
		m.StaleResults.Inc()
	}
}

func (m *Metrics) RecordReopen() {
	if m != nil {
		m.Reopens.Inc()
	}
}

// RecordProxyRequest records one proxy request outcome and its latency.
func (m *Metrics) RecordProxyRequest(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ProxyRequests.WithLabelValues(outcome).Inc()
	m.ProxyDuration.Observe(seconds)
}

// Totals sums each paperfeed counter family in g across its labels, keyed
// by name without the namespace (e.g. "fetch_attempts_total"). Families
// that are not counters are skipped.
func Totals(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, Namespace+"_") {
			continue
		}
		counted := false
		var sum float64
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				sum += c.GetValue()
				counted = true
			}
		}
		if counted {
			out[strings.TrimPrefix(name, Namespace+"_")] = sum
		}
	}
	return out, nil
}

// LogTotals writes the counter totals of g as one info event.
func LogTotals(log zerolog.Logger, g prometheus.Gatherer, msg string) {
	totals, err := Totals(g)
	if err != nil {
		log.Warn().Err(err).Msg("gathering metrics")
		return
	}
	fields := make(map[string]any, len(totals))
	for k, v := range totals {
		fields[k] = v
	}
	log.Info().Fields(fields).Msg(msg)
}
