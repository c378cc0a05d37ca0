package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrMissingToken is returned when a request carries no Bearer token.
var ErrMissingToken = errors.New("missing bearer token")

const jwksRefreshInterval = 15 * time.Minute

// Validator checks Bearer JWTs against a JSON Web Key Set.
type Validator struct {
	jwksURL  string
	cache    *jwk.Cache
	keys     jwk.Set
	issuer   string
	audience string
}

// NewValidator creates a validator that fetches and caches the JWKS at
// jwksURL. The keys are refreshed in the background to follow rotation.
func NewValidator(ctx context.Context, jwksURL, issuer, audience string) (*Validator, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(jwksRefreshInterval)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
	}

	return &Validator{
		jwksURL:  jwksURL,
		cache:    cache,
		issuer:   issuer,
		audience: audience,
	}, nil
}

// NewStaticValidator creates a validator over a fixed key set.
func NewStaticValidator(keys jwk.Set, issuer, audience string) *Validator {
	return &Validator{keys: keys, issuer: issuer, audience: audience}
}

// Validate parses the token, verifies signature, expiry, issuer and
// audience, and returns the caller it identifies.
func (v *Validator) Validate(ctx context.Context, token string) (Caller, error) {
	if strings.TrimSpace(token) == "" {
		return Caller{}, ErrMissingToken
	}

	keys := v.keys
	if v.cache != nil {
		var err error
		keys, err = v.cache.Get(ctx, v.jwksURL)
		if err != nil {
			return Caller{}, fmt.Errorf("failed to get JWKS: %w", err)
		}
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return Caller{}, fmt.Errorf("invalid token: %w", err)
	}

	caller := Anonymous
	if sub := parsed.Subject(); sub != "" {
		caller.Subject = sub
	}
	if name, ok := parsed.Get("preferred_username"); ok {
		if s, ok := name.(string); ok && s != "" {
			caller.Username = s
		}
	}
	return caller, nil
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
