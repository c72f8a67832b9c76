package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "platform_"

	resultSuccess = "success"
	resultFailure = "failure"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	parseTotal     *prometheus.CounterVec
	parseLatency   *prometheus.HistogramVec
	parseFailures  *prometheus.CounterVec
	parsedRecords  *prometheus.CounterVec
	uploadBytes    prometheus.Histogram
	reportExports  *prometheus.CounterVec
	exportLatency  *prometheus.HistogramVec
	rprEstimations *prometheus.CounterVec
	eventsTotal    *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		parseTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "production_parse_total",
				Help: "Total production log parses by source format and result",
			},
			[]string{"source", "result"},
		)
		parseLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "production_parse_latency_seconds",
				Help:    "Production log parse latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source", "result"},
		)
		parseFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "production_parse_failures_total",
				Help: "Total production log parse failures by reason",
			},
			[]string{"reason"},
		)
		parsedRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "production_parsed_records_total",
				Help: "Total admitted log rows by source format",
			},
			[]string{"source"},
		)
		uploadBytes = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "production_upload_bytes",
				Help:    "Size of uploaded production logs in bytes",
				Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
			},
		)
		reportExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "production_report_export_total",
				Help: "Total production report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "production_report_export_latency_seconds",
				Help:    "Production report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		rprEstimations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "performance_rpr_total",
				Help: "Total RPR estimations by result",
			},
			[]string{"result"},
		)
		eventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_published_total",
				Help: "Total published events by type and result",
			},
			[]string{"event", "result"},
		)

		prometheus.MustRegister(
			parseTotal,
			parseLatency,
			parseFailures,
			parsedRecords,
			uploadBytes,
			reportExports,
			exportLatency,
			rprEstimations,
			eventsTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveParse records parse duration and result for a source format.
func ObserveParse(source, result string, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if parseTotal != nil {
		parseTotal.WithLabelValues(source, result).Inc()
	}
	if parseLatency != nil {
		parseLatency.WithLabelValues(source, result).Observe(duration.Seconds())
	}
}

// IncParseFailure increments parse failure counter.
func IncParseFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if parseFailures != nil {
		parseFailures.WithLabelValues(reason).Inc()
	}
}

// AddParsedRecords adds admitted rows for a source format.
func AddParsedRecords(source string, count int) {
	if count <= 0 {
		return
	}
	if parsedRecords != nil {
		parsedRecords.WithLabelValues(source).Add(float64(count))
	}
}

// ObserveUploadSize records an upload size in bytes.
func ObserveUploadSize(size int) {
	if uploadBytes != nil && size >= 0 {
		uploadBytes.Observe(float64(size))
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExports != nil {
		reportExports.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveRPR counts an RPR estimation.
func ObserveRPR(result string) {
	if result == "" {
		result = resultSuccess
	}
	if rprEstimations != nil {
		rprEstimations.WithLabelValues(result).Inc()
	}
}

// IncEventPublished counts a published event.
func IncEventPublished(event, result string) {
	if event == "" {
		event = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if eventsTotal != nil {
		eventsTotal.WithLabelValues(event, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultFailure = resultFailure
	ResultError   = resultError
)
