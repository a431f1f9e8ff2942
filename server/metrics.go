package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	replyPong        = "pong"
	replyUnknownPong = "unknown_pong"
)

type metrics struct {
	clients prometheus.Gauge
	pings   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pingpong",
			Subsystem: "server",
			Name:      "clients",
			Help:      "Number of connected clients with a ping counter.",
		}),
		pings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pingpong",
			Subsystem: "server",
			Name:      "pings_total",
			Help:      "Pings answered, by kind of reply.",
		}, []string{"reply"}),
	}
}

func newMetricsRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", instrumentHandler(reg, "metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return r
}

func instrumentHandler(reg prometheus.Registerer, handlerName string, handler http.Handler) http.Handler {
	reg = prometheus.WrapRegistererWith(prometheus.Labels{"handler": handlerName}, reg)

	requestsTotal := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Tracks the number of HTTP requests.",
		}, []string{"method", "code"},
	)

	return promhttp.InstrumentHandlerCounter(requestsTotal, handler)
}
