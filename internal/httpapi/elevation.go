package httpapi

import (
	"net/http"
	"time"

	"jobdesk.org/internal/auth"
)

// The elevated credential travels in its own header. It is never
// accepted from Authorization and never substitutes for the standard
// credential.
const elevatedHeader = "X-Elevated-Token"

// requireElevation validates the step-up credential for a sensitive
// route. Always called after requireAdmin; each failure carries a
// distinct code so the client can re-prompt for a password instead of
// treating the response as a hard denial.
func (a *API) requireElevation(w http.ResponseWriter, r *http.Request) (auth.ElevatedSession, bool) {
	raw := r.Header.Get(elevatedHeader)
	if raw == "" {
		handleAuthError(w, r, auth.ErrElevationRequired)
		return auth.ElevatedSession{}, false
	}
	claims, err := a.svc.Tokens().VerifyElevated(raw)
	if err != nil {
		handleAuthError(w, r, err)
		return auth.ElevatedSession{}, false
	}
	// The credential is bound to the principal that earned it. One
	// admin's elevated token never authorizes another admin's session.
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || claims.Subject != principal.ID {
		handleAuthError(w, r, auth.ErrElevationInvalid)
		return auth.ElevatedSession{}, false
	}
	session := auth.ElevatedSession{
		Subject:   claims.Subject,
		ExpiresAt: time.UnixMilli(claims.ExpiresAtMS).UTC(),
	}
	return session, true
}
