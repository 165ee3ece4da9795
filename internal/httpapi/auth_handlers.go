package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"jobdesk.org/internal/audit"
	"jobdesk.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      auth.UserView `json:"user"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	result, err := a.svc.Login(r.Context(), email, req.Password)
	if err != nil {
		// Known accounts carry their id so the failure lands in that
		// user's activity trail; the response stays generic regardless.
		var targetID string
		var denial *auth.LoginFailure
		if errors.As(err, &denial) {
			targetID = denial.UserID
		}
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			a.audit(r, audit.Event{
				Action:        audit.ActionFailedLogin,
				TargetUserID:  targetID,
				Success:       false,
				FailureReason: "invalid credentials",
				Metadata:      map[string]any{"email": email},
			})
			a.audit(r, audit.Event{
				Action:       audit.ActionAccountLocked,
				TargetUserID: targetID,
				Success:      true,
				Metadata:     map[string]any{"email": email},
			})
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, auth.ErrInvalidCredentials):
			a.audit(r, audit.Event{
				Action:        audit.ActionFailedLogin,
				TargetUserID:  targetID,
				Success:       false,
				FailureReason: "invalid credentials",
				Metadata:      map[string]any{"email": email},
			})
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	a.audit(r, audit.Event{
		Action:       audit.ActionLogin,
		TargetUserID: result.User.ID,
		Success:      true,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User.View(),
	})
}

// handleLogout records the event; the credential itself stays valid
// until expiry since no revocation list exists.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		handleAuthError(w, r, auth.ErrAuthRequired)
		return
	}
	a.audit(r, audit.Event{
		Action:       audit.ActionLogout,
		TargetUserID: principal.ID,
		Success:      true,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}
