package radixcache

import "github.com/prometheus/client_golang/prometheus"

// metrics bundles the Prometheus collectors Cache updates. A *Cache
// constructed without WithMetrics carries a nil *metrics, and every
// method below is a nil-receiver no-op, so call sites never branch on
// whether metrics were configured — the same nil-is-fine shape as the
// logger in log.go.
type metrics struct {
	evictableSize prometheus.Gauge
	totalSize     prometheus.Gauge
	evictions     prometheus.Counter
	evictedTokens prometheus.Counter
	hits          prometheus.Counter
	misses        prometheus.Counter
}

// NewMetrics creates the Cache collector set and registers it with reg.
// Pass the result to WithMetrics. reg may be nil, in which case the
// collectors are created but not registered (useful in tests that want
// the gauges without a global registry side effect).
func NewMetrics(reg prometheus.Registerer, namespace string) *metrics {
	m := &metrics{
		evictableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prefix_cache",
			Name:      "evictable_tokens",
			Help:      "KV slots currently held by unpinned, non-root tree nodes.",
		}),
		totalSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prefix_cache",
			Name:      "total_tokens",
			Help:      "KV slots currently held anywhere in the tree.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefix_cache",
			Name:      "evictions_total",
			Help:      "Number of Evict calls.",
		}),
		evictedTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefix_cache",
			Name:      "evicted_tokens_total",
			Help:      "Total KV slots freed across all Evict calls.",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefix_cache",
			Name:      "match_hits_total",
			Help:      "MatchPrefix calls that matched at least one token.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefix_cache",
			Name:      "match_misses_total",
			Help:      "MatchPrefix calls that matched zero tokens.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.evictableSize,
			m.totalSize,
			m.evictions,
			m.evictedTokens,
			m.hits,
			m.misses,
		)
	}

	return m
}

func (m *metrics) observeMatch(matched int) {
	if m == nil {
		return
	}
	if matched > 0 {
		m.hits.Inc()
	} else {
		m.misses.Inc()
	}
}

func (m *metrics) observeEvict(res EvictResult) {
	if m == nil {
		return
	}
	m.evictions.Inc()
	m.evictedTokens.Add(float64(res.TokensFreed))
}

func (m *metrics) setGauges(evictable, total int) {
	if m == nil {
		return
	}
	m.evictableSize.Set(float64(evictable))
	m.totalSize.Set(float64(total))
}
