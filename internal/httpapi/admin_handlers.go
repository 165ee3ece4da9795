package httpapi

import (
	"net/http"
	"strings"
	"time"

	"jobdesk.org/internal/audit"
	"jobdesk.org/internal/auth"
)

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

type verifyPasswordResponse struct {
	ElevatedToken string `json:"elevatedToken"`
	ExpiresAt     string `json:"expiresAt"`
}

// handleVerifyPassword is the step-up endpoint: the already
// authenticated admin re-proves their password and receives the
// short-lived elevated credential. The grant is audited on both
// outcomes.
func (a *API) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	var req verifyPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	elevation, err := a.svc.GrantElevation(r.Context(), principal, req.Password)
	if err != nil {
		a.audit(r, audit.Event{
			Action:        audit.ActionElevationGranted,
			TargetUserID:  principal.ID,
			Success:       false,
			FailureReason: "password verification failed",
		})
		handleAuthError(w, r, err)
		return
	}

	a.audit(r, audit.Event{
		Action:       audit.ActionElevationGranted,
		TargetUserID: principal.ID,
		Success:      true,
		Metadata:     map[string]any{"expires_at": elevation.ExpiresAt.Format(time.RFC3339)},
	})
	writeJSON(w, http.StatusOK, verifyPasswordResponse{
		ElevatedToken: elevation.Token,
		ExpiresAt:     elevation.ExpiresAt.Format(time.RFC3339),
	})
}

type listUsersResponse struct {
	Users      []auth.UserView `json:"users"`
	Pagination pagination      `json:"pagination"`
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	filter := auth.UserFilter{
		Role:      r.URL.Query().Get("role"),
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
		Page:      queryInt(r, "page", 1, 1, 1<<20),
		Limit:     queryInt(r, "limit", 20, 1, 100),
	}
	users, total, err := a.svc.ListUsers(r.Context(), filter)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	views := make([]auth.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	writeJSON(w, http.StatusOK, listUsersResponse{
		Users:      views,
		Pagination: newPagination(filter.Page, filter.Limit, total),
	})
}

// handleAdminUserResource routes /admin/users/{id}/{role|status|password|activity}.
func (a *API) handleAdminUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	targetID := parts[0]
	switch parts[1] {
	case "role":
		a.handleRoleChange(w, r, targetID)
	case "status":
		a.handleStatusChange(w, r, targetID)
	case "password":
		a.handleAdminPasswordReset(w, r, targetID)
	case "activity":
		a.handleUserActivity(w, r, targetID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

type roleChangeRequest struct {
	Role string `json:"role"`
}

func (a *API) handleRoleChange(w http.ResponseWriter, r *http.Request, targetID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	principal, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	session, ok := a.requireElevation(w, r)
	if !ok {
		return
	}
	var req roleChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := auth.ContextWithElevation(r.Context(), session)
	user, err := a.svc.ChangeRole(ctx, principal, targetID, req.Role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	a.audit(r, audit.Event{
		Action:       audit.ActionRoleChange,
		ActorID:      principal.ID,
		TargetUserID: targetID,
		Success:      true,
		Metadata:     map[string]any{"role": user.Role},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "role updated",
		"user":    user.View(),
	})
}

type statusChangeRequest struct {
	IsActive *bool `json:"is_active"`
}

func (a *API) handleStatusChange(w http.ResponseWriter, r *http.Request, targetID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	principal, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	session, ok := a.requireElevation(w, r)
	if !ok {
		return
	}
	var req statusChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.IsActive == nil {
		writeError(w, r, http.StatusBadRequest, "is_active is required")
		return
	}

	ctx := auth.ContextWithElevation(r.Context(), session)
	user, err := a.svc.ChangeStatus(ctx, principal, targetID, *req.IsActive)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	a.audit(r, audit.Event{
		Action:       audit.ActionStatusChange,
		ActorID:      principal.ID,
		TargetUserID: targetID,
		Success:      true,
		Metadata:     map[string]any{"is_active": user.IsActive},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "status updated",
		"user":    user.View(),
	})
}

type adminPasswordResetRequest struct {
	NewPassword string `json:"newPassword"`
}

func (a *API) handleAdminPasswordReset(w http.ResponseWriter, r *http.Request, targetID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	principal, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	session, ok := a.requireElevation(w, r)
	if !ok {
		return
	}
	var req adminPasswordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
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
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "password updated",
	})
}

type activityResponse struct {
	Activity   []audit.Entry `json:"activity"`
	Pagination pagination    `json:"pagination"`
}

func (a *API) handleUserActivity(w http.ResponseWriter, r *http.Request, targetID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	limit := queryInt(r, "limit", 50, 1, 200)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	entries, total, err := a.recorder.Activity(r.Context(), targetID, limit, offset)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	page := offset/limit + 1
	writeJSON(w, http.StatusOK, activityResponse{
		Activity:   entries,
		Pagination: newPagination(page, limit, total),
	})
}

type impersonateResponse struct {
	User    auth.UserView `json:"user"`
	Token   string        `json:"token"`
	Message string        `json:"message"`
}

// handleImpersonate mints a standard credential for the target user.
// Contract with the client: before adopting the returned token, the
// caller persists its own {id, email, name, current token}; "switch
// back" re-adopts that cached credential directly, without another
// authentication round-trip. Nothing server-side changes beyond the
// audit entry, so a lost response leaves no partial state.
func (a *API) handleImpersonate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	targetID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/impersonate/"), "/")
	if targetID == "" || strings.Contains(targetID, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	principal, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	session, ok := a.requireElevation(w, r)
	if !ok {
		return
	}

	ctx := auth.ContextWithElevation(r.Context(), session)
	result, err := a.svc.Impersonate(ctx, principal, targetID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	a.audit(r, audit.Event{
		Action:       audit.ActionImpersonation,
		ActorID:      principal.ID,
		TargetUserID: targetID,
		Success:      true,
		Metadata:     map[string]any{"target_email": result.User.Email},
	})
	writeJSON(w, http.StatusOK, impersonateResponse{
		User:    result.User.View(),
		Token:   result.Token,
		Message: "impersonation started; cache your current session before adopting the new token",
	})
}
