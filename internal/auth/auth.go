// Package auth turns bearer tokens into callers.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskManager/internal/models/user"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSecret = errors.New("jwt secret is required")
var ErrNoSubject = errors.New("token has no subject")

// Groups accepts both a JSON array and a comma-separated string.
type Groups []string

func (g *Groups) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = list
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("groups claim: %w", err)
	}
	*g = nil
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*g = append(*g, part)
		}
	}
	return nil
}

type Claims struct {
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Groups Groups `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify checks an HS256 token and returns the caller it names.
func (v *Verifier) Verify(token string) (*user.Caller, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}

	return &user.Caller{
		ID:     claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Groups: []string(claims.Groups),
	}, nil
}

// ResolveCaller reads an Authorization header value. Anything missing or
// invalid yields a nil caller.
func (v *Verifier) ResolveCaller(header string) (*user.Caller, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		token, ok = strings.CutPrefix(header, "bearer ")
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil, nil
	}
	return v.Verify(token)
}

// Issue signs a token for c. Used by tests and the dev token flag.
func Issue(secret, issuer string, c user.Caller, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := Claims{
		Email:  c.Email,
		Name:   c.Name,
		Groups: Groups(c.Groups),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  c.ID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type callerKey struct{}

func WithCaller(ctx context.Context, c *user.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns nil for unauthenticated requests.
func CallerFrom(ctx context.Context) *user.Caller {
	c, _ := ctx.Value(callerKey{}).(*user.Caller)
	return c
}
