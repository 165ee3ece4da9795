package httpapi

import (
	"net/http"
	"testing"
	"time"
)

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	env := newTestAPI(t)

	resp := env.get("/admin/users", nil, nil)
	wantStatus(t, resp, http.StatusUnauthorized)
	body := decode[errorBody](t, resp)
	if body.Code != "AUTH_REQUIRED" {
		t.Fatalf("body = %+v", body)
	}
}

func TestAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	env := newTestAPI(t)

	resp := env.get("/admin/users", nil, bearerHeaders("not-a-jwt"))
	wantStatus(t, resp, http.StatusUnauthorized)
	body := decode[errorBody](t, resp)
	if body.Error != "invalid token" {
		t.Fatalf("body = %+v", body)
	}

	resp = env.get("/admin/users", nil, map[string]string{"Authorization": "Basic dXNlcjpwYXNz"})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")

	*env.now = env.now.Add(25 * time.Hour)

	resp := env.get("/admin/users", nil, bearerHeaders(token))
	wantStatus(t, resp, http.StatusUnauthorized)
	body := decode[errorBody](t, resp)
	if body.Error != "token expired" {
		t.Fatalf("body = %+v", body)
	}
}

// A valid signature whose subject was deleted is refused, not treated
// as anonymous.
func TestAuthMiddlewareRejectsDeletedSubject(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("bob@example.com", "bob-pass1")

	env.users.mu.Lock()
	delete(env.users.users, "u2")
	env.users.mu.Unlock()

	resp := env.get("/admin/users", nil, bearerHeaders(token))
	wantStatus(t, resp, http.StatusUnauthorized)
	body := decode[errorBody](t, resp)
	if body.Error != "account no longer exists" {
		t.Fatalf("body = %+v", body)
	}
}

// The two credential kinds never substitute for one another.
func TestCredentialKindsNotInterchangeable(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("root@example.com", "admin-pass")
	elevated := env.elevate(token, "admin-pass")

	// Elevated token on the standard gate.
	resp := env.get("/admin/users", nil, bearerHeaders(elevated))
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// Standard token on the elevated gate.
	resp = env.put("/admin/users/u2/role", map[string]any{"role": "admin"}, elevatedHeaders(token, token))
	wantStatus(t, resp, http.StatusForbidden)
	body := decode[errorBody](t, resp)
	if body.Code != "INVALID_ELEVATED_TOKEN" {
		t.Fatalf("body = %+v", body)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"", "", true},
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"Bearer   abc  ", "abc", false},
		{"Bearer ", "", true},
		{"Token abc", "", true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("header %q: expected error", tc.header)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("header %q: got %q err %v", tc.header, got, err)
		}
	}
}
