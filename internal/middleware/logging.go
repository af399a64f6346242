package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger logs one line per request, including the acting user when the
// identity middleware has run.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			actor := "-"
			if a, ok := ActorFrom(r.Context()); ok {
				actor = a.ID
			}
			log.Printf(
				"%s %s %d %s user=%s %s",
				r.Method,
				r.URL.Path,
				ww.Status(),
				time.Since(start),
				actor,
				r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
