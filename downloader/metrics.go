package downloader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acquirer_fetch_total",
		Help: "Total number of fetch tasks by status",
	}, []string{"status"})

	fetchBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acquirer_fetch_bytes_total",
		Help: "Total bytes downloaded",
	})

	fetchActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acquirer_fetch_active",
		Help: "Number of fetch tasks in progress",
	})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acquirer_fetch_duration_seconds",
		Help:    "Fetch task duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
