package server

import (
	"net/http"
	"strconv"

	"github.com/Amila1P/portfolio/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics is owned by one Server so tests can build several servers.
type metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	pageViews prometheus.Counter
	reveals   *prometheus.CounterVec
	toggles   *prometheus.CounterVec
	contacts  *prometheus.CounterVec
	streams   prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		pageViews: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "page_views_total",
			Help:      "Rendered portfolio pages.",
		}),
		reveals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "section_reveals_total",
			Help:      "Sections scrolled into view for the first time in a page view.",
		}, []string{"section"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "toggle_flips_total",
			Help:      "Show-more toggle activations.",
		}, []string{"toggle"}),
		contacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "contact_submissions_total",
			Help:      "Contact form submissions by outcome.",
		}, []string{"result"}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portfolio",
			Name:      "typing_streams",
			Help:      "Open typewriter event streams.",
		}),
	}
	m.registry.MustRegister(m.requests, m.pageViews, m.reveals, m.toggles, m.contacts, m.streams)
	return m
}

func (m *metrics) watchSessions(mgr *session.Manager) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "portfolio",
		Name:      "sessions",
		Help:      "Live page sessions.",
	}, func() float64 { return float64(mgr.Len()) }))
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
