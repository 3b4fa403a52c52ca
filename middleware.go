package forwarded

import (
	"context"
	"net/http"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying result.
func NewContext(ctx context.Context, result Result) context.Context {
	return context.WithValue(ctx, contextKey{}, result)
}

// FromContext returns the Result stored by NewContext or Middleware.
func FromContext(ctx context.Context) (Result, bool) {
	result, ok := ctx.Value(contextKey{}).(Result)
	return result, ok
}

// Middleware reconciles every request and stores the Result in the request
// context for next, retrievable with FromContext.
//
// A request that cannot be reconciled is logged and passed on without a
// stored result.
func (rc *Reconciler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := rc.Reconcile(r)
		if err != nil {
			rc.config.logger.WarnContext(r.Context(), "request could not be reconciled",
				"event", eventInvalidInput,
				"remote_addr", r.RemoteAddr,
				"error", err.Error(),
			)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), result)))
	})
}
