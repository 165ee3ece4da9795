package auth

import "context"

// UserStore describes the persistence operations required by the
// subsystem. The relational engine behind it is an external
// collaborator; implementations live in internal/store/pg.
type UserStore interface {
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]User, int, error)
	UpdateRole(ctx context.Context, id, role string) (*User, error)
	UpdateStatus(ctx context.Context, id string, active bool) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	RecordLoginFailure(ctx context.Context, id string) (int, error)
	ResetLoginFailures(ctx context.Context, id string) error
}
