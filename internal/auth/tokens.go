package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultStandardTTL = 24 * time.Hour
	defaultElevatedTTL = 15 * time.Minute
	defaultIssuer      = "jobdesk"
)

// Tokens signs and verifies both credential kinds with an injected
// secret. The two kinds are never interchangeable: a standard credential
// carries no role and an elevated credential is only honored by the
// elevated gate.
type Tokens struct {
	secret      []byte
	issuer      string
	standardTTL time.Duration
	elevatedTTL time.Duration
	now         func() time.Time
}

// TokensOption configures Tokens.
type TokensOption func(*Tokens)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokensOption {
	return func(t *Tokens) {
		if strings.TrimSpace(issuer) != "" {
			t.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithStandardTTL configures standard credential lifetime.
func WithStandardTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) {
		if ttl > 0 {
			t.standardTTL = ttl
		}
	}
}

// WithElevatedTTL configures elevated credential lifetime.
func WithElevatedTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) {
		if ttl > 0 {
			t.elevatedTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokensOption {
	return func(t *Tokens) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTokens constructs the credential signer. The secret is mandatory;
// it is injected here and never read from process-wide state.
func NewTokens(secret string, opts ...TokensOption) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	t := &Tokens{
		secret:      []byte(secret),
		issuer:      defaultIssuer,
		standardTTL: defaultStandardTTL,
		elevatedTTL: defaultElevatedTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// StandardClaims is the payload of the ordinary login credential. Role
// is deliberately absent; it is re-resolved from the store per request.
// Elevated is never set on issue; it exists so a step-up credential
// presented on the standard gate is detected and rejected.
type StandardClaims struct {
	Email    string `json:"email"`
	Elevated bool   `json:"elevated,omitempty"`
	jwt.RegisteredClaims
}

// ElevatedClaims is the payload of the short-lived step-up credential.
// ExpiresAtMS is the authoritative expiry, independent of the transport
// exp claim.
type ElevatedClaims struct {
	Role        string `json:"role"`
	Elevated    bool   `json:"elevated"`
	ExpiresAtMS int64  `json:"expires_at"`
	jwt.RegisteredClaims
}

// IssueStandard mints a standard credential for the user.
func (t *Tokens) IssueStandard(user *User) (string, time.Time, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, errors.New("auth: user is required")
	}
	now := t.now().UTC()
	expiresAt := now.Add(t.standardTTL)
	claims := StandardClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyStandard validates a standard credential. Expired tokens fail
// with ErrTokenExpired, everything else with ErrInvalidToken.
func (t *Tokens) VerifyStandard(token string) (*StandardClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	parsed, err := jwt.ParseWithClaims(token, &StandardClaims{}, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*StandardClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if claims.Elevated {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueElevated mints the step-up credential after a fresh password
// check. Lifetime is fixed and non-sliding; nothing renews it short of
// repeating the password check.
func (t *Tokens) IssueElevated(user *User) (Elevation, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return Elevation{}, errors.New("auth: user is required")
	}
	now := t.now().UTC()
	expiresAt := now.Add(t.elevatedTTL)
	claims := ElevatedClaims{
		Role:        user.Role,
		Elevated:    true,
		ExpiresAtMS: expiresAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return Elevation{}, err
	}
	return Elevation{Token: signed, ExpiresAt: expiresAt}, nil
}

// VerifyElevated validates a step-up credential in a fixed order:
// signature, embedded expiry (boundary: now == expiry is expired), then
// the elevated flag and embedded role. Each failure maps to a distinct
// sentinel so the client can decide between re-prompting for a password
// and a hard denial.
func (t *Tokens) VerifyElevated(token string) (*ElevatedClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrElevationRequired
	}
	parsed, err := jwt.ParseWithClaims(token, &ElevatedClaims{}, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrElevationExpired
		}
		return nil, ErrElevationInvalid
	}
	claims, ok := parsed.Claims.(*ElevatedClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrElevationInvalid
	}
	if claims.ExpiresAtMS <= 0 {
		return nil, ErrElevationInvalid
	}
	expiresAt := time.UnixMilli(claims.ExpiresAtMS)
	if !t.now().Before(expiresAt) {
		return nil, ErrElevationExpired
	}
	if !claims.Elevated || claims.Role != RoleAdmin {
		return nil, ErrAdminRequired
	}
	return claims, nil
}

func (t *Tokens) keyFunc(token *jwt.Token) (any, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, ErrInvalidToken
	}
	return t.secret, nil
}
