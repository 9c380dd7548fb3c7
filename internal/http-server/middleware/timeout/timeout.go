package timeout

import (
	"context"
	"net/http"
	"time"
)

// Timeout attaches a deadline of d to each request's context; handlers
// that honor the context stop at the deadline, others are not
// interrupted.
func Timeout(d time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}
