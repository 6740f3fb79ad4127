// Package auth verifies callers and carries the resulting principal in the
// request context. Only admins may mutate the queue.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/inkwell/internal/apperr"
)

// ErrUnauthenticated means no valid credential was presented.
var ErrUnauthenticated = errors.New("unauthenticated")

// Mode selects how credentials are verified.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeToken    Mode = "token"
	ModeJWT      Mode = "jwt"
)

// Principal is a verified caller.
type Principal struct {
	Subject string `json:"subject"`
	Admin   bool   `json:"admin"`
}

// System is the principal used by local entry points (CLI, MCP over stdio).
var System = Principal{Subject: "system", Admin: true}

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored in ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// RequireAdmin fails with apperr.ErrForbidden unless ctx carries an admin.
func RequireAdmin(ctx context.Context) error {
	p, ok := FromContext(ctx)
	if !ok || !p.Admin {
		return fmt.Errorf("%w: admin privileges required", apperr.ErrForbidden)
	}
	return nil
}

// Config configures a Verifier.
type Config struct {
	Mode      Mode
	Token     string
	JWTSecret string
	JWTIssuer string
}

// Verifier turns a bearer credential into a Principal.
type Verifier struct {
	cfg Config
	now func() time.Time
}

// NewVerifier validates cfg and returns a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	switch cfg.Mode {
	case ModeDisabled, "":
		cfg.Mode = ModeDisabled
	case ModeToken:
		if cfg.Token == "" {
			return nil, apperr.Validationf("auth: token mode requires a token")
		}
	case ModeJWT:
		if cfg.JWTSecret == "" {
			return nil, apperr.Validationf("auth: jwt mode requires a secret")
		}
	default:
		return nil, apperr.Validationf("auth: unknown mode %q", cfg.Mode)
	}
	return &Verifier{cfg: cfg, now: time.Now}, nil
}

// Mode returns the verification mode.
func (v *Verifier) Mode() Mode { return v.cfg.Mode }

// Verify checks a bearer credential. In disabled mode every caller is the
// System principal.
func (v *Verifier) Verify(credential string) (Principal, error) {
	credential = strings.TrimSpace(credential)
	switch v.cfg.Mode {
	case ModeToken:
		if credential == "" || subtle.ConstantTimeCompare([]byte(credential), []byte(v.cfg.Token)) != 1 {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{Subject: "token", Admin: true}, nil
	case ModeJWT:
		return v.verifyJWT(credential)
	default:
		return System, nil
	}
}

type claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

func (v *Verifier) verifyJWT(raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, ErrUnauthenticated
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(time.Minute),
		jwt.WithTimeFunc(func() time.Time { return v.now().UTC() }),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.JWTIssuer))
	}
	c := claims{}
	parsed, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm")
		}
		return []byte(v.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{Subject: strings.TrimSpace(c.Subject), Admin: c.Admin}, nil
}

// Issue signs an HS256 token for subject, valid for ttl.
func Issue(secret, issuer, subject string, admin bool, ttl time.Duration, now time.Time) (string, error) {
	c := claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
