package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec

	documentTypeTotal     *prometheus.CounterVec
	extractionMethodTotal *prometheus.CounterVec
	confidenceScore       *prometheus.HistogramVec
	persistWarningsTotal  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdp",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdp",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hdp",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document analysis jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdp",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between upload and analysis start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	documentTypeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdp",
			Subsystem: "worker",
			Name:      "document_type_total",
			Help:      "Total analyzed documents by classified type.",
		},
		[]string{"service", "document_type"},
	)
	extractionMethodTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdp",
			Subsystem: "worker",
			Name:      "extraction_method_total",
			Help:      "Total extractions by winning engine, including fallbacks.",
		},
		[]string{"service", "method"},
	)
	confidenceScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdp",
			Subsystem: "worker",
			Name:      "confidence_score",
			Help:      "Distribution of final document confidence scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	persistWarningsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdp",
			Subsystem: "worker",
			Name:      "persist_warnings_total",
			Help:      "Analyses that completed but could not be fully persisted.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		queueLag,
		documentTypeTotal,
		extractionMethodTotal,
		confidenceScore,
		persistWarningsTotal,
	)

	return &WorkerMetrics{
		registry:              registry,
		processTotal:          processTotal,
		processDuration:       processDuration,
		processInFlight:       processInFlight,
		queueLag:              queueLag,
		documentTypeTotal:     documentTypeTotal,
		extractionMethodTotal: extractionMethodTotal,
		confidenceScore:       confidenceScore,
		persistWarningsTotal:  persistWarningsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordAnalysisOutcome(service, documentType, method string, confidence float64) {
	if documentType == "" {
		documentType = "unknown"
	}
	m.documentTypeTotal.WithLabelValues(service, documentType).Inc()
	if method != "" {
		m.extractionMethodTotal.WithLabelValues(service, method).Inc()
	}
	m.confidenceScore.WithLabelValues(service).Observe(confidence)
}

func (m *WorkerMetrics) RecordPersistWarning(service string) {
	m.persistWarningsTotal.WithLabelValues(service).Inc()
}
