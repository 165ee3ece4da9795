package auth

import "errors"

// Credential verification failures. The expired case is distinct from
// the invalid case so clients can tell "log in again" from "malformed".
var (
	ErrNoToken      = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Authorization failures.
var (
	ErrAuthRequired      = errors.New("auth: authentication required")
	ErrAdminRequired     = errors.New("auth: admin role required")
	ErrUserIDRequired    = errors.New("auth: user id is required")
	ErrOwnershipRequired = errors.New("auth: may only act on own account")
)

// Elevated-session failures, each mapped to a distinct client-actionable
// response code by the HTTP layer.
var (
	ErrElevationRequired = errors.New("auth: elevated session required")
	ErrElevationInvalid  = errors.New("auth: invalid elevated token")
	ErrElevationExpired  = errors.New("auth: elevated session expired")
)

// Operation failures.
var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrSelfImpersonation  = errors.New("auth: cannot impersonate yourself")
	ErrSelfRoleChange     = errors.New("auth: cannot change own role")
	ErrSelfStatusChange   = errors.New("auth: cannot change own status")
	ErrTargetInactive     = errors.New("auth: target account is deactivated")
	ErrAccountLocked      = errors.New("auth: account locked")
)
