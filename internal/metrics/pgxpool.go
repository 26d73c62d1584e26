package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics publishes gauges tracking the pgx connection pool.
// Stats are sampled at scrape time.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	poolGauge := func(name, help string, value func(*pgxpool.Stat) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(value(pool.Stat()))
		})
	}

	prometheus.MustRegister(
		poolGauge("pgxpool_acquired_conns", "Connections currently acquired from the pool",
			(*pgxpool.Stat).AcquiredConns),
		poolGauge("pgxpool_max_conns", "Configured connection ceiling of the pool",
			(*pgxpool.Stat).MaxConns),
		poolGauge("pgxpool_total_conns", "Connections currently held by the pool",
			(*pgxpool.Stat).TotalConns),
		poolGauge("pgxpool_idle_conns", "Idle connections in the pool",
			(*pgxpool.Stat).IdleConns),
	)
}
