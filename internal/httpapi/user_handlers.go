package httpapi

import (
	"net/http"
	"strings"

	"jobdesk.org/internal/audit"
	"jobdesk.org/internal/auth"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleUserResource routes /users/{id}/password: the self-service
// password change, gated by ownership-or-admin. Admins acting on
// another account go through the elevated gate here too and are audited
// as an admin reset.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "password" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	targetID := parts[0]

	principal, _ := auth.PrincipalFromContext(r.Context())
	if err := auth.RequireOwnershipOrAdmin(principal, targetID); err != nil {
		handleAuthError(w, r, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if principal.ID == targetID {
		if err := a.svc.ChangeOwnPassword(r.Context(), principal, req.CurrentPassword, req.NewPassword); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r, audit.Event{
			Action:       audit.ActionPasswordReset,
			TargetUserID: targetID,
			Success:      true,
		})
		writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
		return
	}

	// Admin path: same step-up requirement as the admin route.
	session, ok := a.requireElevation(w, r)
	if !ok {
		return
	}
	ctx := auth.ContextWithElevation(r.Context(), session)
	if err := a.svc.ResetPassword(ctx, targetID, req.NewPassword); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r, audit.Event{
		Action:       audit.ActionPasswordResetByAdmin,
		ActorID:      principal.ID,
		TargetUserID: targetID,
		Success:      true,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}
