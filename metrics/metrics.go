// Package metrics exposes the Prometheus counters/gauges the pipeline's
// components report into: pool-index hit/miss rates, opportunity-cache
// size, and worker-pool throughput (SPEC_FULL.md "Supplemented features").
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric the arbitrage pipeline emits. Each
// component is handed the narrow interface it needs (poolstate.Metrics,
// oppcache's recorder, worker's recorder) rather than this whole struct, so
// packages stay decoupled from the prometheus client.
type Registry struct {
	reg *prometheus.Registry

	poolIndexHits   *prometheus.CounterVec
	poolIndexMisses *prometheus.CounterVec

	oppCacheSize    prometheus.Gauge
	oppCachePops    *prometheus.CounterVec
	oppCacheInserts prometheus.Counter

	workerEvaluated  prometheus.Counter
	workerProfitable prometheus.Counter
	workerBusy       prometheus.Gauge
}

// NewRegistry builds and registers every metric against a fresh Prometheus
// registry, returned alongside the Registry so callers can expose it over
// /metrics.
func NewRegistry() (*Registry, *prometheus.Registry) {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		poolIndexHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperarb",
			Subsystem: "poolstate",
			Name:      "index_hits_total",
			Help:      "Pool index lookups that found a result, by index name.",
		}, []string{"index"}),
		poolIndexMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperarb",
			Subsystem: "poolstate",
			Name:      "index_misses_total",
			Help:      "Pool index lookups that found nothing, by index name.",
		}, []string{"index"}),
		oppCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hyperarb",
			Subsystem: "oppcache",
			Name:      "size",
			Help:      "Current number of live map entries in the opportunity cache.",
		}),
		oppCachePops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperarb",
			Subsystem: "oppcache",
			Name:      "pops_total",
			Help:      "popBest outcomes, by result (hit, stale, expired, empty).",
		}, []string{"result"}),
		oppCacheInserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hyperarb",
			Subsystem: "oppcache",
			Name:      "inserts_total",
			Help:      "Opportunities inserted into the cache.",
		}),
		workerEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hyperarb",
			Subsystem: "worker",
			Name:      "evaluated_total",
			Help:      "Opportunities evaluated by the worker pool.",
		}),
		workerProfitable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hyperarb",
			Subsystem: "worker",
			Name:      "profitable_total",
			Help:      "Opportunities that cleared minProfitThreshold.",
		}),
		workerBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hyperarb",
			Subsystem: "worker",
			Name:      "busy_workers",
			Help:      "Number of workers currently evaluating an opportunity.",
		}),
	}

	reg.MustRegister(
		r.poolIndexHits, r.poolIndexMisses,
		r.oppCacheSize, r.oppCachePops, r.oppCacheInserts,
		r.workerEvaluated, r.workerProfitable, r.workerBusy,
	)
	return r, reg
}

// PoolState returns the poolstate.Metrics adapter.
func (r *Registry) PoolState() PoolStateMetrics { return poolStateAdapter{r} }

// OppCache returns the oppcache recorder adapter.
func (r *Registry) OppCache() OppCacheMetrics { return oppCacheAdapter{r} }

// Worker returns the worker-pool recorder adapter.
func (r *Registry) Worker() WorkerMetrics { return workerAdapter{r} }

// PoolStateMetrics matches poolstate.Metrics without importing poolstate
// here, keeping this package dependency-direction-neutral.
type PoolStateMetrics interface {
	IndexHit(index string)
	IndexMiss(index string)
}

type poolStateAdapter struct{ r *Registry }

func (a poolStateAdapter) IndexHit(index string)  { a.r.poolIndexHits.WithLabelValues(index).Inc() }
func (a poolStateAdapter) IndexMiss(index string) { a.r.poolIndexMisses.WithLabelValues(index).Inc() }

// OppCacheMetrics matches oppcache's recorder interface.
type OppCacheMetrics interface {
	SetSize(n int)
	RecordPop(result string)
	RecordInsert()
}

type oppCacheAdapter struct{ r *Registry }

func (a oppCacheAdapter) SetSize(n int)            { a.r.oppCacheSize.Set(float64(n)) }
func (a oppCacheAdapter) RecordPop(result string)  { a.r.oppCachePops.WithLabelValues(result).Inc() }
func (a oppCacheAdapter) RecordInsert()            { a.r.oppCacheInserts.Inc() }

// WorkerMetrics matches worker's recorder interface.
type WorkerMetrics interface {
	RecordEvaluated()
	RecordProfitable()
	SetBusy(n int)
}

type workerAdapter struct{ r *Registry }

func (a workerAdapter) RecordEvaluated()  { a.r.workerEvaluated.Inc() }
func (a workerAdapter) RecordProfitable() { a.r.workerProfitable.Inc() }
func (a workerAdapter) SetBusy(n int)     { a.r.workerBusy.Set(float64(n)) }
