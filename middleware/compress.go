// middleware/compress.go
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/latrix/insider/config"
)

// CompressFromConfig returns gzip/deflate compression at coreCfg.CompressionLevel,
// or an identity middleware when compression is disabled.
//
// The level is validated by config; out-of-range values are clamped here.
func CompressFromConfig(coreCfg *config.CoreConfig) func(next http.Handler) http.Handler {
	if coreCfg == nil || !coreCfg.EnableCompression {
		return func(next http.Handler) http.Handler { return next }
	}
	return Compress(coreCfg.CompressionLevel)
}

// Compress compresses JSON and text responses. Level is clamped to 1..9.
func Compress(level int) func(next http.Handler) http.Handler {
	if level < 1 {
		level = 1
	}
	if level > 9 {
		level = 9
	}
	return middleware.Compress(level, "application/json", "text/plain", "text/html")
}
