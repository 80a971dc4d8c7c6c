// Package metrics exposes the control plane's Prometheus gauges: IP
// counts by lifecycle status, per-node queue depth and reachability, the
// retry queue's backlog size, and the count of actively warming plans.
// The scheduler's metrics-refresh job (§4.9) recomputes these once a
// minute; the webhook HTTP surface serves them at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private Prometheus registry so multiple test instances
// never collide on the global default registry.
type Collector struct {
	registry *prometheus.Registry

	IPsByStatus       *prometheus.GaugeVec
	NodeReachable     *prometheus.GaugeVec
	NodeQueueDepth    *prometheus.GaugeVec
	RetryQueueDepth   prometheus.Gauge
	WarmupActivePlans prometheus.Gauge
	OpenBlacklistings prometheus.Gauge
}

// New builds a Collector with every gauge registered.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		IPsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coldroute",
			Name:      "ips_by_status",
			Help:      "Number of sending IPs in each lifecycle status.",
		}, []string{"status"}),
		NodeReachable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coldroute",
			Name:      "node_reachable",
			Help:      "1 if the node answered the last health probe, else 0.",
		}, []string{"node_id"}),
		NodeQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coldroute",
			Name:      "node_queue_depth",
			Help:      "Last observed outbound queue depth per node (-1 if indeterminate).",
		}, []string{"node_id"}),
		RetryQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coldroute",
			Name:      "retry_queue_depth",
			Help:      "Number of entries currently pending in the durable retry queue.",
		}),
		WarmupActivePlans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coldroute",
			Name:      "warmup_active_plans",
			Help:      "Number of warmup plans not yet completed or emergency-stopped.",
		}),
		OpenBlacklistings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coldroute",
			Name:      "open_blacklistings",
			Help:      "Number of currently open DNSBL listings across all IPs.",
		}),
	}

	reg.MustRegister(
		c.IPsByStatus, c.NodeReachable, c.NodeQueueDepth,
		c.RetryQueueDepth, c.WarmupActivePlans, c.OpenBlacklistings,
	)
	return c
}

// Handler serves the registry in the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
