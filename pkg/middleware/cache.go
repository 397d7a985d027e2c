package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheControl returns a middleware that sets the Cache-Control header on GET responses.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (cw *cachingResponseWriter) WriteHeader(code int) {
	cw.statusCode = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cachingResponseWriter) Write(b []byte) (int, error) {
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}

// ResponseCache caches successful GET responses in Redis, keyed by request
// URI, for the given TTL. Cache failures degrade to serving the request
// directly; a read-through cache must never take the endpoint down.
func ResponseCache(client *redis.Client, keyPrefix string, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil || r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := keyPrefix + ":" + r.URL.RequestURI()

			if cached, err := client.Get(r.Context(), key).Bytes(); err == nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(cached)
				return
			}

			cw := &cachingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.statusCode == http.StatusOK && cw.body.Len() > 0 {
				_ = client.Set(r.Context(), key, cw.body.Bytes(), ttl).Err()
			}
		})
	}
}
