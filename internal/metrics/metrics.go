package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sudo-init-do/coinvault/internal/wallet"
)

const namespace = "coinvault"

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	transactionsTotal   *prometheus.CounterVec
	volumeTotal         *prometheus.CounterVec
}

// New registers the collectors on reg and serves reg from Handler.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, path and status code.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Ledger transitions by transaction type and resulting status.",
			},
			[]string{"type", "status"},
		),
		volumeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completed_volume_total",
				Help:      "Fiat amount of completed transactions by type.",
			},
			[]string{"type"},
		),
	}
}

// Middleware records one request count and latency sample per request,
// labelled by the route template rather than the raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.httpRequestDuration.
				WithLabelValues(c.Request().Method, path).
				Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.
				WithLabelValues(c.Request().Method, path, strconv.Itoa(statusOf(c, err))).
				Inc()
			return err
		}
	}
}

// Notify implements wallet.Notifier.
func (m *Metrics) Notify(_ context.Context, evt wallet.Event) {
	tx := evt.Transaction
	m.transactionsTotal.WithLabelValues(string(tx.Type), string(tx.Status)).Inc()
	if evt.Kind == wallet.EventCompleted {
		if amount, _ := tx.Amount.Float64(); amount > 0 {
			m.volumeTotal.WithLabelValues(string(tx.Type)).Add(amount)
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// statusOf predicts the status echo's error handler will write for err.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
