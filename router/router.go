// router/router.go
package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/latrix/insider/config"
	"github.com/latrix/insider/logging"
	"github.com/latrix/insider/metrics"
	"github.com/latrix/insider/middleware"
	"go.uber.org/zap"
)

// New creates a chi.Router with the standard middleware stack:
//
//   - RequestID, RealIP
//   - Recoverer (panic → JSON 500)
//   - body size limit (MaxRequestBodyBytes)
//   - metrics and request logging
//   - security headers, CORS and compression, each driven by config
//   - JSON NotFound / MethodNotAllowed handlers
//
// Routes are mounted by the caller.
func New(coreCfg *config.CoreConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))
	r.Use(middleware.LimitBodySize(coreCfg.MaxRequestBodyBytes))
	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.CompressFromConfig(coreCfg))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
