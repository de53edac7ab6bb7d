// Package metrics exposes Prometheus metrics for a migration run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "redisshard"
)

var (
	// CommandsTotal counts cluster commands issued to nodes
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of node commands issued",
		},
		[]string{"cmd", "status"}, // status: ok/error
	)

	// CommandDuration measures node command round-trip latency
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Node command round-trip latency in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"cmd"},
	)

	// SlotsProcessed counts per-slot outcomes
	SlotsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_processed_total",
			Help:      "Slots processed by the migration loop",
		},
		[]string{"outcome"}, // completed/failed
	)

	// KeysMoved counts keys confirmed moved to the destination
	KeysMoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_moved_total",
			Help:      "Total number of keys moved to the destination node",
		},
	)
)
