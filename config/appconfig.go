// config/appconfig.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AppKey defines a configuration key for an application.
// Apps register their config keys using this type, and LoadWithAppConfig
// handles loading from config files, environment variables, and flags.
type AppKey struct {
	// Name is the key name (e.g., "smtp_user").
	// This is used as-is for config files and CLI flags; the env var is the
	// uppercased name, prefixed when an app prefix is given.
	Name string

	// Default is the default value if not set elsewhere.
	// Supported types: string, int, int64, bool, []string.
	Default any

	// Desc is a short description for --help output.
	Desc string

	// Secret keeps the value out of logs regardless of its name.
	Secret bool
}

// AppConfigValues holds the loaded app configuration values.
// Keys are the AppKey.Name values, values are the loaded configuration.
type AppConfigValues map[string]any

// String returns a string value or empty string if not found.
func (a AppConfigValues) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// Int returns an int value or 0 if not found/unparseable.
// Env vars arrive as strings, config files as int/int64; both are accepted.
func (a AppConfigValues) Int(key string) int {
	n, err := cast.ToIntE(a[key])
	if err != nil {
		return 0
	}
	return n
}

// Bool returns a bool value or false if not found/unparseable.
func (a AppConfigValues) Bool(key string) bool {
	b, err := cast.ToBoolE(a[key])
	if err != nil {
		return false
	}
	return b
}

// StringSlice returns a []string value or nil if not found.
func (a AppConfigValues) StringSlice(key string) []string {
	v, ok := a[key]
	if !ok || v == nil {
		return nil
	}
	return cast.ToStringSlice(v)
}

// Duration parses a duration value from the config.
// Accepts:
//   - Duration strings: "10s", "1m30s"
//   - Numeric values: interpreted as seconds
//   - Plain numeric strings: "10" = 10 seconds
//
// Returns the default value if the key is not found, empty, or invalid.
func (a AppConfigValues) Duration(key string, def time.Duration) time.Duration {
	raw := a[key]
	if raw == nil {
		return def
	}
	dur, err := parseDurationFlexible(raw, def)
	if err != nil {
		return def
	}
	return dur
}

// loadAppConfig loads app-specific configuration using the same precedence
// as core config: flags > env > config files > defaults.
//
// With an empty envPrefix the key "smtp_user" maps to the env var SMTP_USER;
// with envPrefix "INSIDER" it maps to INSIDER_SMTP_USER.
func loadAppConfig(logger *zap.Logger, envPrefix string, keys []AppKey) AppConfigValues {
	if len(keys) == 0 {
		return make(AppConfigValues)
	}

	appV := viper.New()
	if envPrefix != "" {
		appV.SetEnvPrefix(envPrefix)
	}
	appV.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	appV.AutomaticEnv()

	// The files sit in viper's config layer, below env and flags.
	mergeConfigFiles(nil, appV)

	for _, key := range keys {
		appV.SetDefault(key.Name, key.Default)
		_ = appV.BindEnv(key.Name)

		if f := pflag.Lookup(key.Name); f != nil && f.Changed {
			_ = appV.BindPFlag(key.Name, f)
		}
	}

	result := make(AppConfigValues, len(keys))
	for _, key := range keys {
		result[key.Name] = appV.Get(key.Name)
	}

	if logger != nil {
		logger.Info("app config loaded", redactedFields(keys, result)...)
	}
	return result
}

// redactedFields renders the loaded values as zap fields, masking secrets.
func redactedFields(keys []AppKey, vals AppConfigValues) []zap.Field {
	fields := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		if isSecretKey(key) {
			set := vals.String(key.Name) != ""
			fields = append(fields, zap.Bool(key.Name+"_set", set))
			continue
		}
		fields = append(fields, zap.Any(key.Name, vals[key.Name]))
	}
	return fields
}

func isSecretKey(key AppKey) bool {
	if key.Secret {
		return true
	}
	nameLower := strings.ToLower(key.Name)
	for _, marker := range []string{"key", "secret", "password", "token"} {
		if strings.Contains(nameLower, marker) {
			return true
		}
	}
	return false
}

// registerAppFlags registers command-line flags for app config keys.
// Must be called before pflag.Parse().
func registerAppFlags(keys []AppKey) error {
	for _, key := range keys {
		if pflag.Lookup(key.Name) != nil {
			return fmt.Errorf("config key %q conflicts with existing flag", key.Name)
		}

		switch d := key.Default.(type) {
		case string:
			pflag.String(key.Name, d, key.Desc)
		case int:
			pflag.Int(key.Name, d, key.Desc)
		case int64:
			pflag.Int64(key.Name, d, key.Desc)
		case bool:
			pflag.Bool(key.Name, d, key.Desc)
		case []string:
			pflag.String(key.Name, "", key.Desc+" (JSON array)")
		default:
			return fmt.Errorf("config key %q has unsupported default type %T", key.Name, key.Default)
		}
	}
	return nil
}
