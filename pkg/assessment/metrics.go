package assessment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var AssessmentsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kaytu",
	Subsystem: "assessor",
	Name:      "assessments_total",
	Help:      "Count of comprehensive assessments by status",
}, []string{"status"})

var AssessmentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "kaytu",
	Subsystem: "assessor",
	Name:      "assessment_duration_seconds",
	Help:      "Duration of comprehensive assessments",
	Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
}, []string{"status"})

var EvidencePackagesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kaytu",
	Subsystem: "assessor",
	Name:      "evidence_packages_total",
	Help:      "Count of evidence packages by status",
}, []string{"status"})

var CertificatesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kaytu",
	Subsystem: "assessor",
	Name:      "certificates_total",
	Help:      "Count of certificate requests by outcome",
}, []string{"outcome"})

var cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kaytu",
	Subsystem: "assessor",
	Name:      "resource_cache_requests_total",
	Help:      "Resource cache lookups by result",
}, []string{"result"})
