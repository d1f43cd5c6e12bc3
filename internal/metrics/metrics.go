package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the storefront's Prometheus collectors. A nil *Registry is
// valid and records nothing.
type Registry struct {
	reg           *prometheus.Registry
	Intents       *prometheus.CounterVec
	CatalogLoads  *prometheus.CounterVec
	CartLines     prometheus.Gauge
	CartTotal     prometheus.Gauge
	SnapshotsSent prometheus.Counter
	Logins        *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_intents_total",
		Help: "Intents processed by the state container, by kind and outcome.",
	}, []string{"kind", "outcome"})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_loads_total",
		Help: "Completed catalog fetches, by result.",
	}, []string{"result"})
	lines := prometheus.NewGauge(prometheus.GaugeOpts{Name: "storefront_cart_lines"})
	total := prometheus.NewGauge(prometheus.GaugeOpts{Name: "storefront_cart_total_price"})
	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_snapshots_published_total"})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_logins_total",
		Help: "Login attempts, by method and result.",
	}, []string{"method", "result"})

	r.MustRegister(intents, loads, lines, total, published, logins)
	return &Registry{
		reg:           r,
		Intents:       intents,
		CatalogLoads:  loads,
		CartLines:     lines,
		CartTotal:     total,
		SnapshotsSent: published,
		Logins:        logins,
	}
}

func (r *Registry) Intent(kind, outcome string) {
	if r == nil {
		return
	}
	r.Intents.WithLabelValues(kind, outcome).Inc()
}

func (r *Registry) CatalogLoad(result string) {
	if r == nil {
		return
	}
	r.CatalogLoads.WithLabelValues(result).Inc()
}

func (r *Registry) Published(lines int, total float64) {
	if r == nil {
		return
	}
	r.SnapshotsSent.Inc()
	r.CartLines.Set(float64(lines))
	r.CartTotal.Set(total)
}

func (r *Registry) Login(method, result string) {
	if r == nil {
		return
	}
	r.Logins.WithLabelValues(method, result).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
