// Package metrics exposes prometheus counters for the account server and
// the HTTP endpoint that serves them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

type Metrics struct {
	RPCRequests  *prometheus.CounterVec
	RPCDuration  *prometheus.HistogramVec
	Logins       *prometheus.CounterVec
	Refreshes    *prometheus.CounterVec
	ReapedTokens prometheus.Counter
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RPCRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophaccount_rpc_requests_total",
				Help: "Total gRPC requests by method and status code.",
			},
			[]string{"method", "code"},
		),
		RPCDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gophaccount_rpc_duration_seconds",
				Help:    "gRPC request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophaccount_logins_total",
				Help: "Login attempts by kind (password, social) and result.",
			},
			[]string{"kind", "result"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophaccount_token_refreshes_total",
				Help: "Token rotations by result.",
			},
			[]string{"result"},
		),
		ReapedTokens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gophaccount_reaped_tokens_total",
				Help: "Expired token records removed by the reaper.",
			},
		),
	}

	registry.MustRegister(m.RPCRequests, m.RPCDuration, m.Logins, m.Refreshes, m.ReapedTokens)
	return m
}

func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	m.RPCRequests.WithLabelValues(method, code).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ObserveLogin(kind string, err error) {
	m.Logins.WithLabelValues(kind, Result(err)).Inc()
}

func (m *Metrics) ObserveRefresh(err error) {
	m.Refreshes.WithLabelValues(Result(err)).Inc()
}

func (m *Metrics) AddReaped(n int64) {
	if n > 0 {
		m.ReapedTokens.Add(float64(n))
	}
}

func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Serve runs the /metrics endpoint on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, registry *prometheus.Registry, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(registry))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
