package auth

import "strings"

// RequireAdmin gates admin-only operations.
func RequireAdmin(principal *User) error {
	if principal == nil {
		return ErrAuthRequired
	}
	if principal.Role != RoleAdmin {
		return ErrAdminRequired
	}
	return nil
}

// RequireOwnershipOrAdmin allows admins to act on any target and other
// principals only on themselves. IDs are compared by value; principals
// are reloaded per request so pointer identity means nothing.
func RequireOwnershipOrAdmin(principal *User, targetID string) error {
	if principal == nil {
		return ErrAuthRequired
	}
	if strings.TrimSpace(targetID) == "" {
		return ErrUserIDRequired
	}
	if principal.Role == RoleAdmin {
		return nil
	}
	if principal.ID != targetID {
		return ErrOwnershipRequired
	}
	return nil
}
