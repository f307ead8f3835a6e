package federation

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKID = "test-key"

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return k
}

func signAssertion(t *testing.T, key *rsa.PrivateKey, claims idTokenClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKID
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() idTokenClaims {
	return idTokenClaims{
		Email: "Alice@Example.com",
		Name:  "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "google|123",
			Issuer:    "https://idp.example.com",
			Audience:  jwt.ClaimStrings{"client-1"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func givenVerifier(key *rsa.PrivateKey) *JWKSVerifier {
	jwks := keyfunc.NewGiven(map[string]keyfunc.GivenKey{
		testKID: keyfunc.NewGivenRSA(&key.PublicKey, keyfunc.GivenKeyOptions{Algorithm: "RS256"}),
	})
	return NewVerifierFromJWKS(jwks, "https://idp.example.com", "client-1")
}

func TestJWKSVerifier_Verify(t *testing.T) {
	key := newKey(t)
	v := givenVerifier(key)

	id, err := v.Verify(context.Background(), signAssertion(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "google|123", Email: "alice@example.com", DisplayName: "Alice"}, id)
}

func TestJWKSVerifier_Rejects(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	v := givenVerifier(key)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExp := validClaims()
	noExp.ExpiresAt = nil

	wrongAud := validClaims()
	wrongAud.Audience = jwt.ClaimStrings{"client-2"}

	wrongIss := validClaims()
	wrongIss.Issuer = "https://evil.example.com"

	noEmail := validClaims()
	noEmail.Email = ""

	hmac := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	hmac.Header["kid"] = testKID
	hmacToken, _ := hmac.SignedString([]byte("secret"))

	tests := map[string]string{
		"garbage":         "not-a-token",
		"expired":         signAssertion(t, key, expired),
		"no expiry":       signAssertion(t, key, noExp),
		"wrong audience":  signAssertion(t, key, wrongAud),
		"wrong issuer":    signAssertion(t, key, wrongIss),
		"no email":        signAssertion(t, key, noEmail),
		"foreign key":     signAssertion(t, other, validClaims()),
		"symmetric token": hmacToken,
	}

	for name, assertion := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), assertion)
			assert.True(t, errors.Is(err, ErrInvalidAssertion), "got %v", err)
		})
	}
}

func TestNewJWKSVerifier_FetchesKeySet(t *testing.T) {
	key := newKey(t)

	body, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	v, err := NewJWKSVerifier(srv.URL, "https://idp.example.com", "client-1", logging.Nop{})
	require.NoError(t, err)
	defer v.Close()

	id, err := v.Verify(context.Background(), signAssertion(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "google|123", id.Subject)
}

func TestNewJWKSVerifier_FetchError(t *testing.T) {
	orig := keyfuncGet
	defer func() { keyfuncGet = orig }()
	keyfuncGet = func(string, keyfunc.Options) (*keyfunc.JWKS, error) {
		return nil, errors.New("unreachable")
	}

	_, err := NewJWKSVerifier("http://idp.invalid/jwks", "", "", logging.Nop{})
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Verify(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrInvalidAssertion)
	assert.ErrorIs(t, err, common.ErrSocialLoginDisabled)
}
