package api

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yegors/metar-reader/pkg/logger"
)

// Router wires the HTTP routes
type Router struct {
	handler   *Handler
	liveFeed  http.HandlerFunc
	metrics   http.Handler
	staticDir string
	logger    *logger.Logger
}

// NewRouter creates a router. liveFeed and metrics may be nil to leave
// those routes out.
func NewRouter(handler *Handler, liveFeed http.HandlerFunc, metrics http.Handler, staticDir string, logger *logger.Logger) *Router {
	return &Router{
		handler:   handler,
		liveFeed:  liveFeed,
		metrics:   metrics,
		staticDir: staticDir,
		logger:    logger.Named("router"),
	}
}

// DefaultMetricsHandler serves the default Prometheus registry
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Routes returns the configured handler
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(requestLogger(r.logger))
	mux.Use(middleware.Recoverer)

	mux.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", r.handler.Health)
		api.Get("/cache/stats", r.handler.GetCacheStats)
		api.Post("/decode", r.handler.DecodeMETAR)
		api.Get("/metar/{code}", r.handler.GetMETAR)
		api.Get("/metar/{code}/history", r.handler.GetHistory)
		api.Get("/metar/{code}/latest", r.handler.GetLatest)
	})

	mux.Post("/get_metar", r.handler.PostGetMETAR)

	if r.liveFeed != nil {
		mux.Get("/ws", r.liveFeed)
	}
	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics)
	}

	if r.staticDir != "" {
		if info, err := os.Stat(r.staticDir); err == nil && info.IsDir() {
			mux.Handle("/*", NewStaticFileHandler(r.staticDir, r.logger))
		} else {
			r.logger.Warn("Static files directory not found, web page disabled",
				logger.String("dir", r.staticDir))
		}
	}

	return mux
}

// requestLogger logs each request once it has been served
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Debug("HTTP request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
				logger.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
