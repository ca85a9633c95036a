// app/app.go
package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/latrix/insider/config"
	"github.com/latrix/insider/httputil"
	"github.com/latrix/insider/logging"
	"github.com/latrix/insider/metrics"
	"github.com/latrix/insider/server"
	"go.uber.org/zap"
)

// Hooks defines the integration points a service provides to Run.
type Hooks[C any, D any] struct {
	// Name is used only for logging/diagnostics.
	Name string

	// LoadConfig must return both the core config and the app-specific
	// config. It typically calls config.LoadWithAppConfig and then maps and
	// validates the app keys.
	LoadConfig func(logger *zap.Logger) (*config.CoreConfig, C, error)

	// BuildDeps constructs the long-lived collaborators the handlers need
	// (relay handlers, health checks). It may be nil, in which case the
	// zero D is passed to BuildHandler.
	BuildDeps func(ctx context.Context, core *config.CoreConfig, appCfg C, logger *zap.Logger) (D, error)

	// BuildHandler must construct the final http.Handler for the app:
	// router, middleware and routes.
	BuildHandler func(core *config.CoreConfig, appCfg C, deps D, logger *zap.Logger) (http.Handler, error)
}

// Run executes the standard startup sequence:
//
//  1. Bootstrap logger
//  2. Load core + app config (Hooks.LoadConfig)
//  3. Build final logger based on core config
//  4. Register default metrics
//  5. Build dependencies (Hooks.BuildDeps, if provided)
//  6. Wire shutdown signals to a context
//  7. Build the HTTP handler (Hooks.BuildHandler)
//  8. Start the HTTP(S) server and block until shutdown
func Run[C any, D any](ctx context.Context, hooks Hooks[C, D]) error {
	if hooks.LoadConfig == nil || hooks.BuildHandler == nil {
		return errors.New("app: LoadConfig and BuildHandler hooks are required")
	}

	// 1) Bootstrap logger for early startup
	bootstrap := logging.BootstrapLogger()
	defer bootstrap.Sync()
	bootstrap.Info("bootstrap logger initialized", zap.String("app", hooks.Name))

	// 2) Load config (core + app-specific)
	coreCfg, appCfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return err
	}
	bootstrap.Info("config loaded",
		zap.String("env", coreCfg.Env),
		zap.String("log_level", coreCfg.LogLevel),
	)

	// 3) Build final logger
	logger := logging.MustBuildLogger(coreCfg.LogLevel, coreCfg.Env)
	defer logger.Sync()
	logger.Info("logger initialized", zap.String("app", hooks.Name))
	httputil.SetLogger(logger)

	// 4) Register default metrics (Go, process, HTTP and relay collectors)
	metrics.RegisterDefault(logger)

	// 5) Build dependencies
	var deps D
	if hooks.BuildDeps != nil {
		deps, err = hooks.BuildDeps(ctx, coreCfg, appCfg, logger)
		if err != nil {
			logger.Error("dependency build failed", zap.Error(err))
			return err
		}
	}

	// 6) Wire shutdown signals → context
	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	// 7) Build HTTP handler (router + middleware + routes)
	handler, err := hooks.BuildHandler(coreCfg, appCfg, deps, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return err
	}

	// 8) Start HTTP server
	if err := server.ListenAndServeWithContext(ctx, coreCfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
