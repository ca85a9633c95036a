package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/latrix/insider/app"
	"github.com/latrix/insider/config"
	"github.com/latrix/insider/internal/app/features/contact"
	"github.com/latrix/insider/metrics"
	"github.com/latrix/insider/pantry/health"
	"github.com/latrix/insider/pantry/version"
	"github.com/latrix/insider/router"
	"go.uber.org/zap"
)

// Deps holds the collaborators built once at startup.
type Deps struct {
	Contact *contact.Handler
	Checks  map[string]health.Check
}

// LoadConfig loads core config and the relay's app keys.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, vals, err := config.LoadWithAppConfig(logger, "", appKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}
	appCfg, err := appConfigFrom(vals)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, appCfg, nil
}

// BuildDeps builds the relay handler and the readiness checks. Missing mail
// credentials are not fatal: the relay answers with a configuration error
// and the mail check reports not ready.
func BuildDeps(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (Deps, error) {
	mail := appCfg.Contact.Mail
	if !mail.Configured() {
		hasUser, hasSecret := mail.Credentials()
		logger.Warn("mail transport not configured; contact submissions will fail",
			zap.String("transport", mail.Kind),
			zap.Bool("has_user", hasUser),
			zap.Bool("has_password", hasSecret),
		)
	}

	return Deps{
		Contact: contact.NewHandler(appCfg.Contact, logger.Named("contact")),
		Checks: map[string]health.Check{
			"mail": func(context.Context) error {
				if !mail.Configured() {
					return errors.New("mail transport not configured")
				}
				return nil
			},
		},
	}, nil
}

// BuildHandler mounts the relay and the operational endpoints on the
// standard router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps Deps, logger *zap.Logger) (http.Handler, error) {
	r := router.New(coreCfg, logger)

	health.Mount(r, deps.Checks, logger)
	version.Mount(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Mount("/api", contact.Routes(deps.Contact))

	return r, nil
}

// Hooks wires the relay into the app lifecycle.
var Hooks = app.Hooks[AppConfig, Deps]{
	Name:         "insider",
	LoadConfig:   LoadConfig,
	BuildDeps:    BuildDeps,
	BuildHandler: BuildHandler,
}
