// middleware/sizelimit.go
package middleware

import (
	"net/http"

	"github.com/latrix/insider/httputil"
)

// LimitBodySize caps request bodies at maxBytes. A declared Content-Length
// above the cap is rejected up front with 413; streamed bodies are cut off by
// http.MaxBytesReader and surface as a bind error in the handler.
// maxBytes <= 0 disables the limit.
func LimitBodySize(maxBytes int64) func(next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.JSONErrorSimple(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
