package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hwsiew/woosession"
	"github.com/hwsiew/woosession/metrics/export/prometheus"
	"github.com/hwsiew/woosession/middleware"
	"go.uber.org/zap"
)

const (
	defaultMaxBodyBytes   = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

// Options tunes the router. The zero value is usable.
type Options struct {
	Logger         *zap.Logger
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	EnableMetrics  bool
}

type handler struct {
	engine  *woosession.Engine
	logger  *zap.Logger
	maxBody int64
}

// NewRouter returns the HTTP surface of engine.
func NewRouter(engine *woosession.Engine, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	h := &handler{
		engine:  engine,
		logger:  opts.Logger.Named("http"),
		maxBody: opts.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(h.logger))
	r.Use(recoverer(h.logger))
	r.Use(chimw.Timeout(opts.RequestTimeout))

	r.Get("/healthz", h.health)
	r.Post("/graphql", h.graphql)
	r.With(middleware.Session(engine)).Get("/cart", h.cart)

	if opts.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", prometheus.NewPrometheusExporter(engine).Handler())
	}

	return r
}
