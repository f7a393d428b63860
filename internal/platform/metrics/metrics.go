/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package metrics

import (
	"time"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storage_adapter"

// Metrics records mapping resolution outcomes.
type Metrics struct {
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	pages       prometheus.Histogram
}

var _ ports.ResolutionObserver = (*Metrics)(nil)

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mapping",
			Name:      "resolutions_total",
			Help:      "Total mapping resolutions by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mapping",
			Name:      "resolution_duration_seconds",
			Help:      "Mapping resolution latency by outcome",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		pages: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_pages",
			Help:      "Pages fetched per mapping store query",
			Buckets:   []float64{1, 2, 3, 5, 10, 25},
		}),
	}
}

func (m *Metrics) ObserveResolution(outcome domain.Outcome, d time.Duration) {
	m.resolutions.WithLabelValues(string(outcome)).Inc()
	m.duration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

func (m *Metrics) ObservePages(n int) {
	m.pages.Observe(float64(n))
}
