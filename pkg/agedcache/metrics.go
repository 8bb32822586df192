package agedcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 收敛 aged cache 相关指标，nil 时所有方法为空操作。
type Metrics struct {
	puts         *prometheus.CounterVec
	replacements *prometheus.CounterVec
	hits         *prometheus.CounterVec
	misses       *prometheus.CounterVec
	removals     *prometheus.CounterVec
	expirations  *prometheus.CounterVec
	rejectedPuts *prometheus.CounterVec
	entries      *prometheus.GaugeVec
}

// NewMetrics 构造指标集合，reg 为空时默认使用全局注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		puts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aged_cache_puts_total",
			Help: "Number of entries written to the aged cache",
		}, []string{"cache"}),
		replacements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aged_cache_replacements_total",
			Help: "Number of puts that discarded an existing entry for the same key",
		}, []string{"cache"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aged_cache_hits_total",
			Help: "Number of lookups that returned a live entry",
		}, []string{"cache"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aged_cache_misses_total",
			Help: "Number of lookups that found no live entry",
		}, []string{"cache"}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aged_cache_removals_total",
			Help: "Number of entries deleted by explicit removal",
		}, []string{"cache"}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aged_cache_expirations_total",
			Help: "Number of expired entries purged",
		}, []string{"cache"}),
		rejectedPuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aged_cache_rejected_puts_total",
			Help: "Number of puts rejected for invalid retention",
		}, []string{"cache"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aged_cache_entries",
			Help: "Number of entries held after the last mutation or purge",
		}, []string{"cache"}),
	}
	reg.MustRegister(
		m.puts,
		m.replacements,
		m.hits,
		m.misses,
		m.removals,
		m.expirations,
		m.rejectedPuts,
		m.entries,
	)
	return m
}

func (m *Metrics) incPut(cache string) {
	if m == nil {
		return
	}
	m.puts.WithLabelValues(cache).Inc()
}

func (m *Metrics) incReplacement(cache string) {
	if m == nil {
		return
	}
	m.replacements.WithLabelValues(cache).Inc()
}

func (m *Metrics) incHit(cache string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(cache).Inc()
}

func (m *Metrics) incMiss(cache string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(cache).Inc()
}

func (m *Metrics) incRejected(cache string) {
	if m == nil {
		return
	}
	m.rejectedPuts.WithLabelValues(cache).Inc()
}

func (m *Metrics) addRemovals(cache string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.removals.WithLabelValues(cache).Add(float64(n))
}

func (m *Metrics) addExpirations(cache string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expirations.WithLabelValues(cache).Add(float64(n))
}

func (m *Metrics) setEntries(cache string, n int) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(cache).Set(float64(n))
}
