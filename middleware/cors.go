// middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/latrix/insider/config"
)

// CORSFromConfig applies go-chi/cors using the CORS section of coreCfg.
// When CORS is disabled it returns an identity middleware, so it is safe to
// install unconditionally.
func CORSFromConfig(coreCfg *config.CoreConfig) func(next http.Handler) http.Handler {
	if coreCfg == nil || !coreCfg.CORS.EnableCORS {
		return func(next http.Handler) http.Handler { return next }
	}

	exposed := coreCfg.CORS.CORSExposedHeaders
	if !contains(exposed, SubmissionIDHeader) {
		exposed = append(append([]string{}, exposed...), SubmissionIDHeader)
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   coreCfg.CORS.CORSAllowedOrigins,
		AllowedMethods:   coreCfg.CORS.CORSAllowedMethods,
		AllowedHeaders:   coreCfg.CORS.CORSAllowedHeaders,
		ExposedHeaders:   exposed,
		AllowCredentials: coreCfg.CORS.CORSAllowCredentials,
		MaxAge:           coreCfg.CORS.CORSMaxAge,
	})
}

// SubmissionIDHeader carries the per-submission correlation id on relay responses.
const SubmissionIDHeader = "X-Submission-ID"

func contains(list []string, s string) bool {
	for _, v := range list {
		if http.CanonicalHeaderKey(v) == http.CanonicalHeaderKey(s) {
			return true
		}
	}
	return false
}
