package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshot is the subset of pgxpool statistics exported as metrics.
type PoolSnapshot struct {
	Acquired        int32
	Idle            int32
	Total           int32
	Max             int32
	AcquireCount    int64
	AcquireSeconds  float64
	EmptyAcquires   int64
	CanceledAcquire int64
}

// SnapshotPool reads the current statistics of pool.
func SnapshotPool(pool *pgxpool.Pool) PoolSnapshot {
	s := pool.Stat()
	return PoolSnapshot{
		Acquired:        s.AcquiredConns(),
		Idle:            s.IdleConns(),
		Total:           s.TotalConns(),
		Max:             s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireSeconds:  s.AcquireDuration().Seconds(),
		EmptyAcquires:   s.EmptyAcquireCount(),
		CanceledAcquire: s.CanceledAcquireCount(),
	}
}

type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(PoolSnapshot) float64
}

// PoolStatsCollector exports connection pool statistics on every scrape.
type PoolStatsCollector struct {
	service  string
	snapshot func() PoolSnapshot
	metrics  []poolMetric
}

// NewPoolStatsCollector builds a collector that calls snapshot on each scrape.
func NewPoolStatsCollector(service string, snapshot func() PoolSnapshot) *PoolStatsCollector {
	gauge := func(name, help string, f func(PoolSnapshot) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, []string{"service"}, nil), prometheus.GaugeValue, f}
	}
	counter := func(name, help string, f func(PoolSnapshot) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, []string{"service"}, nil), prometheus.CounterValue, f}
	}

	return &PoolStatsCollector{
		service:  service,
		snapshot: snapshot,
		metrics: []poolMetric{
			gauge("db_pool_acquired_connections", "Connections currently checked out.",
				func(s PoolSnapshot) float64 { return float64(s.Acquired) }),
			gauge("db_pool_idle_connections", "Idle connections.",
				func(s PoolSnapshot) float64 { return float64(s.Idle) }),
			gauge("db_pool_total_connections", "Open connections.",
				func(s PoolSnapshot) float64 { return float64(s.Total) }),
			gauge("db_pool_max_connections", "Configured connection limit.",
				func(s PoolSnapshot) float64 { return float64(s.Max) }),
			counter("db_pool_acquire_count_total", "Successful acquires.",
				func(s PoolSnapshot) float64 { return float64(s.AcquireCount) }),
			counter("db_pool_acquire_duration_seconds_total", "Time spent acquiring connections.",
				func(s PoolSnapshot) float64 { return s.AcquireSeconds }),
			counter("db_pool_empty_acquire_count_total", "Acquires that waited for a free connection.",
				func(s PoolSnapshot) float64 { return float64(s.EmptyAcquires) }),
			counter("db_pool_canceled_acquire_count_total", "Acquires canceled by context.",
				func(s PoolSnapshot) float64 { return float64(s.CanceledAcquire) }),
		},
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(snap), c.service)
	}
}

// RegisterPoolMetrics registers pool statistics with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) error {
	return reg.Register(NewPoolStatsCollector(service, func() PoolSnapshot { return SnapshotPool(pool) }))
}
