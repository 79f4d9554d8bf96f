package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type identityKey struct{}

// IdentityFromContext returns the login attached by Middleware.
func IdentityFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(identityKey{}).(string)
	return login, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Middleware rejects requests without a valid bearer token and stores the
// verified identity in the request context.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := hlog.FromRequest(r)

			login, err := verifier.Verify(BearerToken(r))
			if err != nil {
				log.Info().Err(err).Msg("Rejected bearer credential")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}

			log.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("identity", login)
			})
			ctx := context.WithValue(r.Context(), identityKey{}, login)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
