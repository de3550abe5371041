// Package metrics holds the daemon's Prometheus counters and gauges,
// replacing the expvar block the teacher kept at the bottom of its
// reactor file with registered, independently-scrapable series.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the set of counters/gauges the reactor updates. Each
// daemon instance owns its own Registry so multiple daemons in one
// process (as in tests) don't collide on global Prometheus registration.
type Registry struct {
	HelloSent       prometheus.Counter
	HelloReceived   prometheus.Counter
	DVSent          prometheus.Counter
	DVReceived      prometheus.Counter
	MalformedDrops  prometheus.Counter
	ThrottledDrops  prometheus.Counter
	NeighborCount   prometheus.Gauge
	RouteCount      prometheus.Gauge
	NeighborEvicted prometheus.Counter
	RoutesGC        prometheus.Counter
	RoutesRejected  prometheus.Counter

	reg *prometheus.Registry
}

// New builds a Registry backed by a fresh, private prometheus.Registry
// suitable for mounting at /metrics via promhttp.HandlerFor.
func New() *Registry {
	r := prometheus.NewRegistry()
	m := &Registry{
		HelloSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_hello_sent_total",
			Help: "Number of HELLO datagrams broadcast.",
		}),
		HelloReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_hello_received_total",
			Help: "Number of HELLO datagrams received from neighbors.",
		}),
		DVSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_dv_sent_total",
			Help: "Number of DV datagrams broadcast.",
		}),
		DVReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_dv_received_total",
			Help: "Number of DV datagrams received from neighbors.",
		}),
		MalformedDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_malformed_packets_total",
			Help: "Number of received datagrams that failed to decode as HELLO or DV.",
		}),
		ThrottledDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_throttled_packets_total",
			Help: "Number of received datagrams dropped by the per-source-IP rate limiter.",
		}),
		NeighborCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dvrouting_neighbors",
			Help: "Current count of live neighbors.",
		}),
		RouteCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dvrouting_routes",
			Help: "Current count of (destination, via) route entries.",
		}),
		NeighborEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_neighbor_evictions_total",
			Help: "Number of neighbors removed for exceeding the liveness timeout.",
		}),
		RoutesGC: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_routes_gc_total",
			Help: "Number of routes removed because their via-neighbor went stale.",
		}),
		RoutesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvrouting_routes_rejected_total",
			Help: "Number of new-destination routes rejected because the table was at MaxDestinations.",
		}),
		reg: r,
	}
	r.MustRegister(
		m.HelloSent, m.HelloReceived, m.DVSent, m.DVReceived,
		m.MalformedDrops, m.ThrottledDrops, m.NeighborCount, m.RouteCount,
		m.NeighborEvicted, m.RoutesGC, m.RoutesRejected,
	)
	return m
}

// Registerer exposes the private registry for promhttp.HandlerFor.
func (m *Registry) Registerer() *prometheus.Registry {
	return m.reg
}
