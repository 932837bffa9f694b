package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"

	VerificationDecisionTotal   = "verification_decision_total"
	VerificationDurationSeconds = "verification_duration_seconds"
	CapabilityFailureTotal      = "capability_failure_total"
	LedgerRetryTotal            = "ledger_retry_total"
	ReviewResolutionTotal       = "review_resolution_total"
	IndexFailureTotal           = "duplicate_index_failure_total"
)

var (
	PromGauges = map[string]*prometheus.GaugeVec{}

	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"path", "code"}),
		VerificationDecisionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: VerificationDecisionTotal,
			Help: "Count of automatic verification decisions",
		}, []string{"decision"}),
		CapabilityFailureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: CapabilityFailureTotal,
			Help: "Count of classifier, hasher and metadata failures",
		}, []string{"capability"}),
		LedgerRetryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: LedgerRetryTotal,
			Help: "Count of ledger writes retried after a concurrent modification",
		}, []string{"operation"}),
		ReviewResolutionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ReviewResolutionTotal,
			Help: "Count of manual review resolutions",
		}, []string{"status"}),
		IndexFailureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: IndexFailureTotal,
			Help: "Count of accepted media hashes which could not be indexed",
		}, []string{"operation"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"path", "code"}),
		VerificationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: VerificationDurationSeconds,
			Help: "Duration of the verification pipeline",
		}, []string{"decision"}),
	}

	PromSummaries = map[string]*prometheus.SummaryVec{}
)

