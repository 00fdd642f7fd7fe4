package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "rolemaster"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_requests_total",
			Help:      "Total number of one-time code requests.",
		},
		[]string{"result"},
	)

	OTPVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "Total number of one-time code verification attempts.",
		},
		[]string{"result"},
	)

	OTPChallengesPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_challenges_purged_total",
			Help:      "Total number of expired one-time code challenges removed by the cleanup worker.",
		},
	)

	CleanupRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Total number of cleanup passes by result.",
		},
		[]string{"result"},
	)

	DirectoryWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_writes_total",
			Help:      "Total number of optimistic directory writes by final state.",
		},
		[]string{"action", "state"},
	)

	DirectoryWritesPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "directory_writes_pending",
			Help:      "Number of optimistic directory writes awaiting the store.",
		},
	)

	DirectorySnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_snapshots_total",
			Help:      "Total number of directory snapshots received.",
		},
	)

	DirectoryRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "directory_records",
			Help:      "Number of records in the last directory snapshot.",
		},
	)
)

// MustRegister registers every collector with the default registry
func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		OTPRequestsTotal,
		OTPVerificationsTotal,
		OTPChallengesPurgedTotal,
		CleanupRunsTotal,
		DirectoryWritesTotal,
		DirectoryWritesPending,
		DirectorySnapshotsTotal,
		DirectoryRecords,
	)
}
