package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the Prometheus collectors of the timetable service. It
// satisfies application.TimetableMetrics and the cache lookup observer.
type Recorder struct {
	rowWrites     *prometheus.CounterVec
	weekReplaces  *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// NewRecorder registers the collectors on the default registerer.
func NewRecorder() (*Recorder, error) {
	return NewRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewRecorderWithRegistry registers the collectors on reg. A nil registerer
// defaults to the global one. Collectors already registered are reused.
func NewRecorderWithRegistry(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	rowWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_row_writes_total",
		Help: "Incremental import rows by operation and outcome",
	}, []string{"operation", "outcome"})
	weekReplaces := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_week_replacements_total",
		Help: "Whole-week replacements by outcome",
	}, []string{"outcome"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_cache_lookups_total",
		Help: "Utilization cache lookups by backend and result",
	}, []string{"backend", "result"})
	httpDurations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	var err error
	if rowWrites, err = register(reg, rowWrites); err != nil {
		return nil, err
	}
	if weekReplaces, err = register(reg, weekReplaces); err != nil {
		return nil, err
	}
	if cacheLookups, err = register(reg, cacheLookups); err != nil {
		return nil, err
	}
	if httpDurations, err = register(reg, httpDurations); err != nil {
		return nil, err
	}

	return &Recorder{
		rowWrites:     rowWrites,
		weekReplaces:  weekReplaces,
		cacheLookups:  cacheLookups,
		httpDurations: httpDurations,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

// ObserveRowWrite counts one import row.
func (r *Recorder) ObserveRowWrite(operation, outcome string) {
	r.rowWrites.WithLabelValues(operation, outcome).Inc()
}

// ObserveWeekReplace counts one whole-week replacement.
func (r *Recorder) ObserveWeekReplace(outcome string) {
	r.weekReplaces.WithLabelValues(outcome).Inc()
}

// ObserveCacheLookup counts one cache lookup.
func (r *Recorder) ObserveCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(backend, result).Inc()
}

// ObserveHTTPRequest records the latency of one HTTP request.
func (r *Recorder) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	r.httpDurations.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
