package httpapi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"jobdesk.org/internal/audit"
	"jobdesk.org/internal/auth"
)

// The full step-up path: a sensitive call without the elevated header
// is refused with a re-prompt code, the password check mints the
// credential, and the retried call succeeds.
func TestStepUpFlow(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")

	resp := env.put("/admin/users/u2/role", map[string]any{"role": "admin"}, bearerHeaders(token))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Code != "ELEVATED_SESSION_REQUIRED" || body.Action != "reauthenticate" {
		t.Fatalf("body = %+v", body)
	}

	// Wrong password does not elevate.
	resp = env.post("/admin/verify-password", map[string]any{"password": "wrong"}, bearerHeaders(token))
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	elevated := env.elevate(token, "admin-pass")

	resp = env.put("/admin/users/u2/role", map[string]any{"role": "admin"}, elevatedHeaders(token, elevated))
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	if env.users.users["u2"].Role != auth.RoleAdmin {
		t.Fatalf("role not applied: %q", env.users.users["u2"].Role)
	}

	grants := env.audits.byAction(audit.ActionElevationGranted)
	if len(grants) != 2 {
		t.Fatalf("elevation audit entries: %d", len(grants))
	}
	if grants[0].Success || !grants[1].Success {
		t.Fatalf("expected failed then successful grant: %+v", grants)
	}
	if changes := env.audits.byAction(audit.ActionRoleChange); len(changes) != 1 || changes[0].ActorID != "adm" || changes[0].TargetUserID != "u2" {
		t.Fatalf("role_change audit entries: %+v", changes)
	}
}

// The elevated credential has a fixed lifetime. Sixteen minutes after
// issue it is refused with the expired code, and only a fresh password
// check restores access.
func TestElevatedSessionExpires(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(token, "admin-pass")

	*env.now = env.now.Add(16 * time.Minute)

	resp := env.put("/admin/users/u2/status", map[string]any{"is_active": false}, elevatedHeaders(token, elevated))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Code != "ELEVATED_SESSION_EXPIRED" || body.Action != "reauthenticate" {
		t.Fatalf("body = %+v", body)
	}
	if !env.users.users["u2"].IsActive {
		t.Fatal("status must not change on an expired session")
	}

	fresh := env.elevate(token, "admin-pass")
	resp = env.put("/admin/users/u2/status", map[string]any{"is_active": false}, elevatedHeaders(token, fresh))
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	if env.users.users["u2"].IsActive {
		t.Fatal("status change not applied")
	}
}

func TestElevatedTokenGarbageRejected(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")

	resp := env.put("/admin/users/u2/role", map[string]any{"role": "admin"}, elevatedHeaders(token, "tampered"))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Code != "INVALID_ELEVATED_TOKEN" {
		t.Fatalf("body = %+v", body)
	}
}

// A non-admin carrying a forged elevated header is stopped at the role
// gate; the header is never inspected and the denial names the missing
// role, not the bad token.
func TestElevatedRouteRejectsNonAdminFirst(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("bob@example.com", "bob-pass1")

	resp := env.put("/admin/users/u2/role", map[string]any{"role": "admin"}, elevatedHeaders(token, "forged"))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Code != "ADMIN_REQUIRED" {
		t.Fatalf("body = %+v", body)
	}
	if env.users.users["u2"].Role != auth.RoleUser {
		t.Fatalf("role changed: %q", env.users.users["u2"].Role)
	}
}

// An elevated token belongs to the admin whose password minted it.
// Paired with a different admin's session credential it is refused.
func TestElevatedTokenBoundToItsSubject(t *testing.T) {
	env := newTestAPI(t)
	now := *env.now
	env.users.mu.Lock()
	env.users.users["adm2"] = &auth.User{
		ID: "adm2", Email: "ops@example.com", Name: "Ops Admin",
		Role: auth.RoleAdmin, IsActive: true,
		PasswordHash: hashFor(t, "ops-pass1"),
		CreatedAt:    now, UpdatedAt: now,
	}
	env.users.mu.Unlock()

	firstToken := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(firstToken, "admin-pass")
	secondToken := env.login("ops@example.com", "ops-pass1")

	resp := env.put("/admin/users/u2/role", map[string]any{"role": "admin"}, elevatedHeaders(secondToken, elevated))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Code != "INVALID_ELEVATED_TOKEN" {
		t.Fatalf("body = %+v", body)
	}
	if env.users.users["u2"].Role != auth.RoleUser {
		t.Fatalf("role changed: %q", env.users.users["u2"].Role)
	}

	// The admin who earned the credential still passes with it.
	resp = env.put("/admin/users/u2/role", map[string]any{"role": "admin"}, elevatedHeaders(firstToken, elevated))
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestVerifyPasswordRequiresAdmin(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("bob@example.com", "bob-pass1")

	resp := env.post("/admin/verify-password", map[string]any{"password": "bob-pass1"}, bearerHeaders(token))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Code != "ADMIN_REQUIRED" {
		t.Fatalf("body = %+v", body)
	}
}

// Impersonation mints the target's credential without touching the
// admin's session. The impersonated identity has the target's
// privileges, the admin's original token keeps working, and the switch
// is audited with both parties.
func TestImpersonationFlow(t *testing.T) {
	env := newTestAPI(t)
	adminToken := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(adminToken, "admin-pass")

	resp := env.post("/admin/impersonate/u2", nil, elevatedHeaders(adminToken, elevated))
	wantStatus(t, resp, http.StatusOK)
	payload := decode[impersonateResponse](t, resp)
	if payload.User.ID != "u2" || payload.Token == "" {
		t.Fatalf("payload = %+v", payload)
	}

	// The impersonated session is an ordinary user session.
	resp = env.get("/admin/users", nil, bearerHeaders(payload.Token))
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// The admin's own credential is untouched; switching back is just
	// re-adopting it.
	resp = env.get("/admin/users", nil, bearerHeaders(adminToken))
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	imps := env.audits.byAction(audit.ActionImpersonation)
	if len(imps) != 1 || imps[0].ActorID != "adm" || imps[0].TargetUserID != "u2" {
		t.Fatalf("impersonation audit entries: %+v", imps)
	}
}

func TestImpersonationGuards(t *testing.T) {
	env := newTestAPI(t)
	adminToken := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(adminToken, "admin-pass")

	resp := env.post("/admin/impersonate/adm", nil, elevatedHeaders(adminToken, elevated))
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = env.post("/admin/impersonate/missing", nil, elevatedHeaders(adminToken, elevated))
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = env.post("/admin/impersonate/u3", nil, elevatedHeaders(adminToken, elevated))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Error != "target account is deactivated" {
		t.Fatalf("body = %+v", body)
	}

	// Elevation is required even for admins.
	resp = env.post("/admin/impersonate/u2", nil, bearerHeaders(adminToken))
	wantStatus(t, resp, http.StatusForbidden)
	body = decode[errorBody](t, resp)
	if body.Code != "ELEVATED_SESSION_REQUIRED" {
		t.Fatalf("body = %+v", body)
	}
}

func TestAdminUsersList(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")

	resp := env.get("/admin/users", url.Values{"limit": {"2"}}, bearerHeaders(token))
	wantStatus(t, resp, http.StatusOK)
	payload := decode[listUsersResponse](t, resp)
	if payload.Pagination.Total != 3 {
		t.Fatalf("total = %d", payload.Pagination.Total)
	}
	for _, u := range payload.Users {
		if u.ID == "" || u.Email == "" {
			t.Fatalf("incomplete user view: %+v", u)
		}
	}

	resp = env.get("/admin/users", url.Values{"role": {"superuser"}}, bearerHeaders(token))
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	// Listing requires the admin role but not an elevated session.
	userToken := env.login("bob@example.com", "bob-pass1")
	resp = env.get("/admin/users", nil, bearerHeaders(userToken))
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestRoleChangeGuards(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(token, "admin-pass")

	resp := env.put("/admin/users/adm/role", map[string]any{"role": "user"}, elevatedHeaders(token, elevated))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Error != "cannot change your own role" {
		t.Fatalf("body = %+v", body)
	}

	resp = env.put("/admin/users/u2/role", map[string]any{"role": "superuser"}, elevatedHeaders(token, elevated))
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestStatusChangeGuards(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(token, "admin-pass")

	resp := env.put("/admin/users/adm/status", map[string]any{"is_active": false}, elevatedHeaders(token, elevated))
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = env.put("/admin/users/u2/status", map[string]any{}, elevatedHeaders(token, elevated))
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestAdminPasswordReset(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(token, "admin-pass")

	resp := env.put("/admin/users/u2/password", map[string]any{"newPassword": "fresh-secret"}, elevatedHeaders(token, elevated))
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	if resets := env.audits.byAction(audit.ActionPasswordResetByAdmin); len(resets) != 1 || resets[0].ActorID != "adm" {
		t.Fatalf("password_reset_by_admin audit entries: %+v", resets)
	}

	// Reactivate bob is unnecessary; just log in with the new password.
	if got := env.login("bob@example.com", "fresh-secret"); got == "" {
		t.Fatal("expected login with reset password")
	}
}

func TestUserActivity(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(token, "admin-pass")

	resp := env.put("/admin/users/u2/role", map[string]any{"role": "admin"}, elevatedHeaders(token, elevated))
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.get("/admin/users/u2/activity", nil, bearerHeaders(token))
	wantStatus(t, resp, http.StatusOK)
	payload := decode[activityResponse](t, resp)
	if payload.Pagination.Total != 1 || len(payload.Activity) != 1 {
		t.Fatalf("activity = %+v", payload)
	}
	if payload.Activity[0].Action != audit.ActionRoleChange {
		t.Fatalf("action = %q", payload.Activity[0].Action)
	}
}

func TestAdminRoutesUnknownResource(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")

	resp := env.get("/admin/users/u2/unknown", nil, bearerHeaders(token))
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}
