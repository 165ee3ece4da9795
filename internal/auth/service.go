package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Consecutive failed logins before an account is deactivated.
const defaultLockThreshold = 5

// Service implements authentication, step-up elevation and
// impersonation on top of a UserStore and a Tokens signer.
type Service struct {
	users         UserStore
	tokens        *Tokens
	now           func() time.Time
	lockThreshold int
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithLockThreshold overrides the failed-login lock threshold.
func WithLockThreshold(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.lockThreshold = n
		}
	}
}

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth service.
func NewService(users UserStore, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token signer is required")
	}
	s := &Service{
		users:         users,
		tokens:        tokens,
		now:           time.Now,
		lockThreshold: defaultLockThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tokens exposes the credential signer for the HTTP gates.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Authenticate resolves a raw bearer token to a principal. A valid
// signature whose subject no longer exists fails with ErrNotFound,
// never as an anonymous request. Store errors pass through unwrapped
// into sentinels so the HTTP layer maps them to 500 without leaking
// detail.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.VerifyStandard(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("auth: load principal: %w", err)
	}
	return user, nil
}

// LoginResult is the successful outcome of a credential check.
type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// LoginFailure reports a failed credential check against a known
// account. It unwraps to the denial sentinel so errors.Is keeps
// working, while the audit trail gets the resolved user id. Unknown
// accounts fail with the bare sentinel and no id.
type LoginFailure struct {
	UserID string
	Err    error
}

func (e *LoginFailure) Error() string { return e.Err.Error() }

func (e *LoginFailure) Unwrap() error { return e.Err }

// Login verifies email/password and mints a standard credential. All
// failure modes surface as ErrInvalidCredentials so the response never
// signals whether the account exists; ErrAccountLocked additionally
// tells the caller that this attempt crossed the lock threshold.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: login lookup: %w", err)
	}
	if !user.IsActive {
		return nil, &LoginFailure{UserID: user.ID, Err: ErrInvalidCredentials}
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		failures, ferr := s.users.RecordLoginFailure(ctx, user.ID)
		if ferr == nil && failures >= s.lockThreshold {
			if _, derr := s.users.UpdateStatus(ctx, user.ID, false); derr == nil {
				return nil, &LoginFailure{UserID: user.ID, Err: ErrAccountLocked}
			}
		}
		return nil, &LoginFailure{UserID: user.ID, Err: ErrInvalidCredentials}
	}
	if user.FailedLogins > 0 {
		_ = s.users.ResetLoginFailures(ctx, user.ID)
	}
	token, expiresAt, err := s.tokens.IssueStandard(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// GrantElevation re-verifies the acting principal's own password and
// mints the short-lived elevated credential. The check always runs
// against the caller's stored hash, never another subject's, and the
// failure message stays generic.
func (s *Service) GrantElevation(ctx context.Context, principal *User, password string) (Elevation, error) {
	if principal == nil {
		return Elevation{}, ErrAuthRequired
	}
	if password == "" {
		return Elevation{}, ErrInvalidCredentials
	}
	// Reload the hash rather than trusting the request-scoped copy.
	user, err := s.users.Find(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Elevation{}, ErrInvalidCredentials
		}
		return Elevation{}, fmt.Errorf("auth: elevation lookup: %w", err)
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return Elevation{}, ErrInvalidCredentials
	}
	return s.tokens.IssueElevated(user)
}

// ImpersonationResult carries the target principal and its fresh
// standard credential.
type ImpersonationResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Impersonate mints a standard credential for the target principal.
// Nothing server-side is mutated; the caller is responsible for caching
// the acting admin's identity and previous credential before adopting
// the new one, and "switch back" re-adopts that cached credential
// without re-authentication.
func (s *Service) Impersonate(ctx context.Context, acting *User, targetID string) (*ImpersonationResult, error) {
	if acting == nil {
		return nil, ErrAuthRequired
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, ErrUserIDRequired
	}
	if acting.ID == targetID {
		return nil, ErrSelfImpersonation
	}
	target, err := s.users.Find(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("auth: impersonation lookup: %w", err)
	}
	if !target.IsActive {
		return nil, ErrTargetInactive
	}
	token, expiresAt, err := s.tokens.IssueStandard(target)
	if err != nil {
		return nil, err
	}
	return &ImpersonationResult{User: target, Token: token, ExpiresAt: expiresAt}, nil
}

// ListUsers returns a filtered page of users with the total count.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]User, int, error) {
	filter.Role = strings.TrimSpace(strings.ToLower(filter.Role))
	if filter.Role != "" && !ValidRole(filter.Role) {
		return nil, 0, fmt.Errorf("%w: unknown role filter %q", ErrInvalidInput, filter.Role)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.users.List(ctx, filter)
}

// ChangeRole updates a user's role. Admins may never change their own
// role; the UI disables the control but this check is the source of
// truth.
func (s *Service) ChangeRole(ctx context.Context, acting *User, targetID, role string) (*User, error) {
	if acting == nil {
		return nil, ErrAuthRequired
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, ErrUserIDRequired
	}
	role = strings.TrimSpace(strings.ToLower(role))
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, RoleUser, RoleAdmin)
	}
	if acting.ID == targetID {
		return nil, ErrSelfRoleChange
	}
	return s.users.UpdateRole(ctx, targetID, role)
}

// ChangeStatus activates or deactivates a user. Self-deactivation is
// rejected for the same reason self role-change is.
func (s *Service) ChangeStatus(ctx context.Context, acting *User, targetID string, active bool) (*User, error) {
	if acting == nil {
		return nil, ErrAuthRequired
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, ErrUserIDRequired
	}
	if acting.ID == targetID {
		return nil, ErrSelfStatusChange
	}
	user, err := s.users.UpdateStatus(ctx, targetID, active)
	if err != nil {
		return nil, err
	}
	if active {
		_ = s.users.ResetLoginFailures(ctx, targetID)
	}
	return user, nil
}

// ResetPassword sets a new password for the target without checking the
// old one. Used by the elevated admin route only.
func (s *Service) ResetPassword(ctx context.Context, targetID, newPassword string) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return ErrUserIDRequired
	}
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, targetID, hash)
}

// ChangeOwnPassword verifies the current password before setting a new
// one. Only the account owner goes through this path.
func (s *Service) ChangeOwnPassword(ctx context.Context, principal *User, currentPassword, newPassword string) error {
	if principal == nil {
		return ErrAuthRequired
	}
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	user, err := s.users.Find(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("auth: password change lookup: %w", err)
	}
	if err := CheckPassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, principal.ID, hash)
}
