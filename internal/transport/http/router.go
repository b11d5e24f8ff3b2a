package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	passhandler "passbook/internal/passes/handler"
	"passbook/internal/platform/health"
	"passbook/internal/platform/metrics"
	"passbook/pkg/platform/middleware/device"
	"passbook/pkg/platform/middleware/metadata"
	request "passbook/pkg/platform/middleware/request"
	"passbook/pkg/platform/middleware/requesttime"
)

// Config carries the transport settings taken from the server config.
type Config struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	TrustedProxies []netip.Prefix
}

// NewRouter wires the web service routes, health checks and /metrics behind
// the shared middleware stack. Pass routes are served at the root and under
// /v1.
func NewRouter(cfg Config, passes *passhandler.Handler, checks *health.Handler, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(cfg.TrustedProxies).Handler)
	r.Use(requesttime.Middleware)
	r.Use(device.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(request.NewMetrics(reg)))

	checks.Register(r)
	r.Handle("/metrics", metrics.Handler(reg))

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(cfg.RequestTimeout))
		r.Use(request.BodyLimit(cfg.MaxBodyBytes))
		passes.Register(r)
		r.Route("/v1", passes.Register)
	})

	return r
}
