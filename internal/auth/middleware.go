package auth

import (
	"net/http"
	"strings"
)

// Middleware resolves the bearer token into a Principal stored on the
// request context. Failures are handed to onError.
func Middleware(v Verifier, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				onError(w, r, ErrUnauthorized)

				return
			}

			p, err := v.Verify(token)
			if err != nil {
				onError(w, r, err)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole lets only principals with one of roles through.
func RequireRole(onError func(w http.ResponseWriter, r *http.Request, err error), roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				onError(w, r, ErrUnauthorized)

				return
			}

			if !p.Is(roles...) {
				onError(w, r, ErrForbidden)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
