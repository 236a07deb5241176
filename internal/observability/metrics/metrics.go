package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters for the webhook, catalog cache and booking
// submission flows. It satisfies the metrics interfaces those packages
// declare.
type BotMetrics struct {
	updatesTotal      *prometheus.CounterVec
	outboundTotal     *prometheus.CounterVec
	catalogCacheTotal *prometheus.CounterVec
	submissionsTotal  *prometheus.CounterVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		updatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Total inbound webhook updates by kind",
		}, []string{"kind"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "telegram",
			Name:      "outbound_total",
			Help:      "Total outbound Bot API calls by method and status",
		}, []string{"method", "status"}),
		catalogCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "catalog",
			Name:      "cache_total",
			Help:      "Catalog cache lookups by outcome",
		}, []string{"outcome"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submission attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.updatesTotal, m.outboundTotal, m.catalogCacheTotal, m.submissionsTotal)
	return m
}

func (m *BotMetrics) ObserveSend(method, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(method, status).Inc()
}

func (m *BotMetrics) ObserveUpdate(kind string) {
	if m == nil {
		return
	}
	m.updatesTotal.WithLabelValues(kind).Inc()
}

func (m *BotMetrics) ObserveCatalogCache(outcome string) {
	if m == nil {
		return
	}
	m.catalogCacheTotal.WithLabelValues(outcome).Inc()
}

func (m *BotMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}
