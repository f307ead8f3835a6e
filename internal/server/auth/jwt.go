// Package auth issues and verifies the bearer tokens of the service.
// Access tokens are HS256-signed JWTs; refresh tokens are opaque random
// strings.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthMethodBearer is the value of the amr claim on every access token.
const AuthMethodBearer = "bearer"

const birthDateLayout = "2006-01-02"

// refreshTokenBytes is the entropy of a refresh token (256 bits).
const refreshTokenBytes = 32

// Claims are the identity claims carried by an access token.
type Claims struct {
	Email      string `json:"email"`
	AuthMethod string `json:"amr"`
	Name       string `json:"name"`
	BirthDate  string `json:"birthdate,omitempty"`
	Gender     int16  `json:"gender"`
	UserID     int64  `json:"uid"`
	jwt.RegisteredClaims
}

// ClaimsForUser builds the identity claims of u.
func ClaimsForUser(u *models.User) Claims {
	c := Claims{
		Email:      u.Email,
		AuthMethod: AuthMethodBearer,
		Name:       u.FullName,
		Gender:     int16(u.Gender),
		UserID:     u.ID,
	}
	if u.Birthday != nil {
		c.BirthDate = u.Birthday.Format(birthDateLayout)
	}
	return c
}

// Codec signs and verifies access tokens for one issuer/audience pair.
type Codec struct {
	issuer   string
	audience string
	key      []byte
	now      func() time.Time
}

func NewCodec(issuer, audience string, key []byte) *Codec {
	return &Codec{issuer: issuer, audience: audience, key: key, now: time.Now}
}

// WithClock returns a copy of c that reads the current time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Issue signs claims valid from now until now+ttl and returns the token
// together with its expiry. Every token gets a fresh jti.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	expires := now.Add(ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Audience:  jwt.ClaimStrings{c.audience},
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires.UTC(), nil
}

// Validate verifies signature, algorithm, issuer and audience and, when
// checkLifetime is set, the exp/nbf window.
func (c *Codec) Validate(token string, checkLifetime bool) (*Claims, error) {
	if !checkLifetime {
		claims, err := c.parse(token, jwt.WithoutClaimsValidation())
		if err != nil {
			return nil, err
		}
		if claims.Issuer != c.issuer || !containsAudience(claims.Audience, c.audience) {
			return nil, common.ErrInvalidClaims
		}
		return claims, nil
	}

	return c.parse(token,
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithTimeFunc(c.now),
	)
}

// DecodeIgnoringExpiry checks only signature and algorithm. It recovers the
// identity of an access token that may already be expired so the session
// can be refreshed.
func (c *Codec) DecodeIgnoringExpiry(token string) (*Claims, error) {
	return c.parse(token, jwt.WithoutClaimsValidation())
}

func (c *Codec) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, c.keyFunc)
	if err != nil {
		return nil, mapError(err)
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, common.ErrAlgorithmMismatch
	}
	return c.key, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, common.ErrAlgorithmMismatch):
		return common.ErrAlgorithmMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", common.ErrInvalidClaims, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

// NewOpaqueRandomToken returns a base64 encoded 256-bit random value used as
// a refresh token.
func NewOpaqueRandomToken() (string, error) {
	return common.MakeRandBase64String(refreshTokenBytes)
}
