package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"jobdesk.org/internal/auth"
)

// Client-actionable error codes carried in the response body.
const (
	codeAuthRequired      = "AUTH_REQUIRED"
	codeAdminRequired     = "ADMIN_REQUIRED"
	codeElevationRequired = "ELEVATED_SESSION_REQUIRED"
	codeElevationExpired  = "ELEVATED_SESSION_EXPIRED"
	codeElevationInvalid  = "INVALID_ELEVATED_TOKEN"
	codeOwnershipRequired = "OWNERSHIP_REQUIRED"
	codeUserIDRequired    = "USER_ID_REQUIRED"

	actionReauthenticate = "reauthenticate"
)

// pagination is the list envelope shared by users and activity.
type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, limit, total int) pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeCodedError(w, r, status, msg, "", "")
}

func writeCodedError(w http.ResponseWriter, r *http.Request, status int, msg, code, action string) {
	payload := map[string]any{
		"error": msg,
	}
	if code != "" {
		payload["code"] = code
	}
	if action != "" {
		payload["action"] = action
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}

// handleAuthError maps the auth package sentinels onto the wire
// taxonomy. Store failures fall through to a generic 500; detail stays
// in the server log, never in the body.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrAuthRequired), errors.Is(err, auth.ErrNoToken):
		writeCodedError(w, r, http.StatusUnauthorized, "authentication required", codeAuthRequired, "")
	case errors.Is(err, auth.ErrTokenExpired):
		writeCodedError(w, r, http.StatusUnauthorized, "token expired", codeAuthRequired, "")
	case errors.Is(err, auth.ErrInvalidToken):
		writeCodedError(w, r, http.StatusUnauthorized, "invalid token", codeAuthRequired, "")
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrAccountLocked):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrAdminRequired):
		writeCodedError(w, r, http.StatusForbidden, "admin role required", codeAdminRequired, "")
	case errors.Is(err, auth.ErrOwnershipRequired):
		writeCodedError(w, r, http.StatusForbidden, "may only act on own account", codeOwnershipRequired, "")
	case errors.Is(err, auth.ErrUserIDRequired):
		writeCodedError(w, r, http.StatusBadRequest, "user id is required", codeUserIDRequired, "")
	case errors.Is(err, auth.ErrElevationRequired):
		writeCodedError(w, r, http.StatusForbidden, "elevated session required", codeElevationRequired, actionReauthenticate)
	case errors.Is(err, auth.ErrElevationExpired):
		writeCodedError(w, r, http.StatusForbidden, "elevated session expired", codeElevationExpired, actionReauthenticate)
	case errors.Is(err, auth.ErrElevationInvalid):
		writeCodedError(w, r, http.StatusForbidden, "invalid elevated token", codeElevationInvalid, actionReauthenticate)
	case errors.Is(err, auth.ErrSelfImpersonation):
		writeError(w, r, http.StatusForbidden, "cannot impersonate yourself")
	case errors.Is(err, auth.ErrSelfRoleChange):
		writeError(w, r, http.StatusForbidden, "cannot change your own role")
	case errors.Is(err, auth.ErrSelfStatusChange):
		writeError(w, r, http.StatusForbidden, "cannot change your own status")
	case errors.Is(err, auth.ErrTargetInactive):
		writeError(w, r, http.StatusForbidden, "target account is deactivated")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "auth: invalid input: "))
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func queryInt(r *http.Request, key string, def, min, max int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min || val > max {
		return def
	}
	return val
}
