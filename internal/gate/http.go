package gate

import (
	"net/http"
)

// Middleware guards a net/http handler with the same rules as the gRPC interceptor.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			code := HTTPStatus(err)
			if code == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", `Bearer realm="notekeeper"`)
			}
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// HTTPStatus converts an Authenticate error into an HTTP status code.
func HTTPStatus(err error) int {
	switch Classify(err) {
	case Unauthorized:
		return http.StatusUnauthorized
	case Misconfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}
