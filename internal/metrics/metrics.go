// Package metrics exposes the engine's prometheus counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terminplan",
			Name:      "cache_hits_total",
			Help:      "Availability cache hits.",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terminplan",
			Name:      "cache_misses_total",
			Help:      "Availability cache misses.",
		},
	)

	cacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terminplan",
			Name:      "cache_evictions_total",
			Help:      "Entries evicted from the availability cache.",
		},
	)

	cacheInvalidations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terminplan",
			Name:      "cache_invalidations_total",
			Help:      "Entries dropped by targeted invalidation.",
		},
	)

	conflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "terminplan",
			Name:      "conflicts_total",
			Help:      "Detected booking conflicts by kind.",
		},
		[]string{"kind"},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "terminplan",
			Name:      "reservations_total",
			Help:      "Slot reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			cacheHits, cacheMisses, cacheEvictions, cacheInvalidations,
			conflicts, reservations,
		)
	})
}

func IncCacheHit()  { cacheHits.Inc() }
func IncCacheMiss() { cacheMisses.Inc() }

func AddCacheEvictions(n int)     { cacheEvictions.Add(float64(n)) }
func AddCacheInvalidations(n int) { cacheInvalidations.Add(float64(n)) }

func IncConflict(kind string) { conflicts.WithLabelValues(kind).Inc() }

func IncReservation(granted bool) {
	outcome := "rejected"
	if granted {
		outcome = "granted"
	}
	reservations.WithLabelValues(outcome).Inc()
}
