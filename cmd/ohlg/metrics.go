package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics counts match jobs and the obfuscated gates they consumed.
type WorkerMetrics struct {
	jobs      *prometheus.CounterVec
	gates     prometheus.Counter
	matchTime prometheus.Histogram
}

func NewWorkerMetrics(registerer prometheus.Registerer) *WorkerMetrics {
	m := WorkerMetrics{
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ohlg_jobs_total",
				Help: "Match jobs processed",
			},
			[]string{"status"},
		),
		gates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ohlg_gates_total",
				Help: "Obfuscated gates evaluated",
			},
		),
		matchTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ohlg_match_seconds",
				Help:    "Time to run one match cascade",
				Buckets: prometheus.ExponentialBucketsRange(0.1, 600, 12),
			},
		),
	}

	registerer.MustRegister(m.jobs)
	registerer.MustRegister(m.gates)
	registerer.MustRegister(m.matchTime)

	return &m
}
