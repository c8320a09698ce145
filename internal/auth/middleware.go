package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type ctxKey struct{}

type Authenticator interface {
	Authenticate(token string) (Identity, error)
}

// Middleware guards handlers that need a resolved caller.
type Middleware struct {
	authenticator Authenticator
	logger        *slog.Logger
}

func NewMiddleware(authenticator Authenticator, logger *slog.Logger) *Middleware {
	return &Middleware{
		authenticator: authenticator,
		logger:        logger,
	}
}

func (m *Middleware) Require(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			m.unauthorized(w, "missing token")
			return
		}

		identity, err := m.authenticator.Authenticate(token)
		if err != nil {
			m.logger.Info("rejected token", "error", err, "path", r.URL.Path)
			m.unauthorized(w, "invalid token")
			return
		}

		h(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		m.logger.Error("failed to encode response", "error", err)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(ctxKey{}).(Identity)
	return identity, ok
}
