package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the configured browser origins call the API and read back the
// headers it sets.
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", idempotencyHeader, requestIDHeader, userIDHeader},
		ExposedHeaders: []string{requestIDHeader, replayHeader, "Content-Disposition"},
		MaxAge:         600,
	}
	// credentials may not be combined with a wildcard origin
	for _, o := range origins {
		if o == "*" {
			return cors.Handler(opts)
		}
	}
	opts.AllowCredentials = true
	return cors.Handler(opts)
}
