package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationFlexible(t *testing.T) {
	def := 10 * time.Second
	tests := []struct {
		name    string
		raw     any
		want    time.Duration
		wantErr bool
	}{
		{"nil uses default", nil, def, false},
		{"empty string uses default", "  ", def, false},
		{"duration string", "90s", 90 * time.Second, false},
		{"plain seconds string", "12", 12 * time.Second, false},
		{"int seconds", 3, 3 * time.Second, false},
		{"int64 seconds", int64(4), 4 * time.Second, false},
		{"float seconds", 1.5, 1500 * time.Millisecond, false},
		{"time.Duration", 2 * time.Minute, 2 * time.Minute, false},
		{"garbage", "soon", def, true},
		{"zero", "0s", def, true},
		{"negative int", -1, def, true},
		{"bool ignored", true, def, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationFlexible(tt.raw, def)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppConfigValues_Accessors(t *testing.T) {
	vals := AppConfigValues{
		"smtp_host":   " smtp.example.com ",
		"smtp_port":   "465",
		"port_int64":  int64(2525),
		"strict":      "true",
		"strict_bool": true,
		"timeout":     "7s",
		"origins":     []string{"https://a.example"},
	}

	assert.Equal(t, "smtp.example.com", vals.String("smtp_host"))
	assert.Equal(t, "", vals.String("missing"))
	assert.Equal(t, 465, vals.Int("smtp_port"))
	assert.Equal(t, 2525, vals.Int("port_int64"))
	assert.Equal(t, 0, vals.Int("smtp_host"))
	assert.True(t, vals.Bool("strict"))
	assert.True(t, vals.Bool("strict_bool"))
	assert.False(t, vals.Bool("missing"))
	assert.Equal(t, 7*time.Second, vals.Duration("timeout", time.Second))
	assert.Equal(t, time.Second, vals.Duration("missing", time.Second))
	assert.Equal(t, []string{"https://a.example"}, vals.StringSlice("origins"))
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, isSecretKey(AppKey{Name: "smtp_password"}))
	assert.True(t, isSecretKey(AppKey{Name: "postmark_server_token"}))
	assert.True(t, isSecretKey(AppKey{Name: "smtp_user", Secret: true}))
	assert.False(t, isSecretKey(AppKey{Name: "smtp_host"}))
}

func TestRedactedFields_HidesSecrets(t *testing.T) {
	keys := []AppKey{
		{Name: "smtp_host", Default: ""},
		{Name: "smtp_password", Default: ""},
	}
	vals := AppConfigValues{"smtp_host": "smtp.example.com", "smtp_password": "hunter2"}

	fields := redactedFields(keys, vals)
	require.Len(t, fields, 2)
	assert.Equal(t, "smtp_host", fields[0].Key)
	assert.Equal(t, "smtp_password_set", fields[1].Key)
	for _, f := range fields {
		assert.NotEqual(t, "hunter2", f.String)
	}
}

func validCore() CoreConfig {
	return CoreConfig{
		Env:              "dev",
		LogLevel:         "info",
		HTTP:             HTTPConfig{HTTPPort: 8080, HTTPSPort: 443},
		CompressionLevel: 5,
	}
}

func TestValidateCoreConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *CoreConfig)
		wantErr string
	}{
		{"valid", func(c *CoreConfig) {}, ""},
		{"bad env", func(c *CoreConfig) { c.Env = "staging" }, `env must be "dev" or "prod"`},
		{"bad port", func(c *CoreConfig) { c.HTTP.HTTPPort = 0 }, "http_port must be in 1..65535"},
		{"manual tls without files", func(c *CoreConfig) { c.HTTP.UseHTTPS = true }, "for manual TLS"},
		{"lets encrypt without https", func(c *CoreConfig) {
			c.TLS.UseLetsEncrypt = true
			c.TLS.Domain = "latrix.example"
			c.TLS.LetsEncryptEmail = "ops@latrix.example"
		}, "use_lets_encrypt=true requires use_https=true"},
		{"cors wildcard with credentials", func(c *CoreConfig) {
			c.CORS = CORSConfig{
				EnableCORS:           true,
				CORSAllowedOrigins:   []string{"*"},
				CORSAllowedMethods:   []string{"POST"},
				CORSAllowCredentials: true,
			}
		}, `cannot use "*"`},
		{"compression level", func(c *CoreConfig) {
			c.EnableCompression = true
			c.CompressionLevel = 12
		}, "compression_level must be in 1..9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCore()
			tt.mutate(&cfg)
			err := validateCoreConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadAppConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	yaml := "smtp_password: from-file\nsmtp_host: smtp.file.example\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("SMTP_PASSWORD", "from-env")

	keys := []AppKey{
		{Name: "smtp_password", Default: ""},
		{Name: "smtp_host", Default: "smtp.gmail.com"},
		{Name: "smtp_port", Default: 587},
	}
	vals := loadAppConfig(nil, "", keys)

	assert.Equal(t, "from-env", vals.String("smtp_password"))
	assert.Equal(t, "smtp.file.example", vals.String("smtp_host"))
	assert.Equal(t, 587, vals.Int("smtp_port"))
}
