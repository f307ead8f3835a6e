// Package federation verifies identity assertions issued by an external
// identity provider (social login).
package federation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidAssertion = errors.New("invalid identity assertion")

// Identity is what the provider vouches for.
type Identity struct {
	Subject     string
	Email       string
	DisplayName string
}

// Verifier checks an external assertion and returns the identity in it.
type Verifier interface {
	Verify(ctx context.Context, assertion string) (Identity, error)
}

type idTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWKSVerifier validates OpenID Connect style ID tokens against the
// provider's published key set.
type JWKSVerifier struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience string
	now      func() time.Time
}

// keyfuncGet is a seam for testing keyfunc.Get.
var keyfuncGet = keyfunc.Get

// NewJWKSVerifier fetches the key set at jwksURL and keeps it refreshed in
// the background until Close is called. Empty issuer or audience disable
// the corresponding check.
func NewJWKSVerifier(jwksURL, issuer, audience string, logger logging.Logger) (*JWKSVerifier, error) {
	log := logger.With("module", "federation")

	jwks, err := keyfuncGet(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Warn(context.Background(), "failed to refresh JWKS", "url", jwksURL, "error", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load JWKS from %s: %w", jwksURL, err)
	}
	return NewVerifierFromJWKS(jwks, issuer, audience), nil
}

// NewVerifierFromJWKS wraps an already built key set.
func NewVerifierFromJWKS(jwks *keyfunc.JWKS, issuer, audience string) *JWKSVerifier {
	return &JWKSVerifier{jwks: jwks, issuer: issuer, audience: audience, now: time.Now}
}

func (v *JWKSVerifier) Verify(ctx context.Context, assertion string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &idTokenClaims{}
	if _, err := jwt.NewParser(opts...).ParseWithClaims(assertion, claims, v.jwks.Keyfunc); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if claims.Subject == "" || email == "" {
		return Identity{}, fmt.Errorf("%w: subject and email are required", ErrInvalidAssertion)
	}

	return Identity{Subject: claims.Subject, Email: email, DisplayName: claims.Name}, nil
}

// Close stops the background key refresh.
func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}

// Disabled rejects every assertion. It stands in when no provider is
// configured.
type Disabled struct{}

func (Disabled) Verify(context.Context, string) (Identity, error) {
	return Identity{}, fmt.Errorf("%w: %w", common.ErrSocialLoginDisabled, ErrInvalidAssertion)
}
