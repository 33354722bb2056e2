package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rulegrid_commands_total",
		Help: "Top-level commands dispatched, by command and outcome.",
	}, []string{"command", "status"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rulegrid_command_duration_seconds",
		Help:    "Duration of top-level commands.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"command"})

	anomaliesFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rulegrid_anomalies_total",
		Help: "Entities flagged as anomalous, by rule.",
	}, []string{"rule"})

	resultRowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rulegrid_result_rows_dropped_total",
		Help: "Malformed result rows dropped while building result sheets.",
	})
)
