package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"jobdesk.org/internal/auth"
	"jobdesk.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth verifies the standard bearer credential and attaches the
// resolved principal. The four client failures are all 401; a store
// failure is 500 with no internal detail in the body.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeCodedError(w, r, http.StatusUnauthorized, err.Error(), codeAuthRequired, "")
			return
		}

		principal, err := a.svc.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				writeCodedError(w, r, http.StatusUnauthorized, "token expired", codeAuthRequired, "")
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoToken):
				writeCodedError(w, r, http.StatusUnauthorized, "invalid token", codeAuthRequired, "")
			case errors.Is(err, auth.ErrNotFound):
				writeCodedError(w, r, http.StatusUnauthorized, "account no longer exists", codeAuthRequired, "")
			default:
				obs.LogJSON(map[string]any{
					"ts":         time.Now().UTC().Format(time.RFC3339Nano),
					"level":      "error",
					"msg":        "authentication_store_failure",
					"request_id": RequestIDFromContext(r.Context()),
					"error":      err.Error(),
				})
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin resolves the principal and applies the admin gate. The
// elevated gate is never consulted before this one.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	if err := auth.RequireAdmin(principal); err != nil {
		handleAuthError(w, r, err)
		return nil, false
	}
	return principal, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
