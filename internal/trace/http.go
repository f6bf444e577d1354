package trace

import "net/http"

// Middleware continues the caller's trace from headers or starts a new one, and
// echoes the trace id back in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := New()
		if id := r.Header.Get(TraceIDKey); id != "" {
			tc = Context{TraceID: id, SpanID: newSpanID(), ParentSpanID: r.Header.Get(SpanIDKey)}
		}
		w.Header().Set(TraceIDKey, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}
