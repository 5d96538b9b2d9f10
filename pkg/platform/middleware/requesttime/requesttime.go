// Package requesttime captures one "now" per request so the finalization
// timestamp, audit entry and log lines of a request agree.
package requesttime

import (
	"net/http"
	"time"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
