package auth

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account loaded from the user store. It is resolved
// fresh on every request; a User value never outlives the request that
// loaded it.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	IsActive     bool
	PasswordHash string
	FailedLogins int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserView is the JSON projection of a user, safe to return to clients.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View returns the client-safe projection.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ValidRole reports whether role is one of the supported role values.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// UserFilter narrows and orders user listings.
type UserFilter struct {
	Role      string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// Elevation is the successful result of a step-up password check.
type Elevation struct {
	Token     string
	ExpiresAt time.Time
}

// ElevatedSession is the validated elevation attached to a request by
// the elevated gate.
type ElevatedSession struct {
	Subject   string
	ExpiresAt time.Time
}
