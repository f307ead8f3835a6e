package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSHA256Hasher_Deterministic(t *testing.T) {
	h := SHA256Hasher{}

	a, err := h.Hash("Abc#123")
	require.NoError(t, err)
	b, err := h.Hash("Abc#123")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	// base64(sha256("")) is a well-known constant
	empty, _ := h.Hash("")
	assert.Equal(t, "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=", empty)

	ok, err := h.Verify("Abc#123", a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = h.Verify("wrong", a)
	assert.False(t, ok)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	digest, err := h.Hash("Abc#123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))

	ok, err := h.Verify("Abc#123", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("nope", digest)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("x", "$2a$garbage")
	assert.Error(t, err)
}

func TestArgon2Hasher(t *testing.T) {
	h := Argon2Hasher{Params: Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}}

	digest, err := h.Hash("Abc#123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=1024,t=1,p=1$"))

	other, err := h.Hash("Abc#123")
	require.NoError(t, err)
	assert.NotEqual(t, digest, other, "salted digests differ")

	ok, err := h.Verify("Abc#123", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("nope", digest)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("x", "$argon2id$broken")
	assert.Error(t, err)
}

func TestMultiHasher_VerifiesEveryKnownFormat(t *testing.T) {
	shaDigest, _ := SHA256Hasher{}.Hash("Abc#123")
	bcryptDigest, _ := BcryptHasher{Cost: bcrypt.MinCost}.Hash("Abc#123")
	argonDigest, _ := Argon2Hasher{Params: Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}}.Hash("Abc#123")

	for _, alg := range []string{"", AlgorithmSHA256, AlgorithmBcrypt, AlgorithmArgon2id} {
		h, err := NewHasher(alg)
		require.NoError(t, err)

		for _, d := range []string{shaDigest, bcryptDigest, argonDigest} {
			ok, err := h.Verify("Abc#123", d)
			require.NoError(t, err)
			assert.True(t, ok, "alg=%q digest=%q", alg, d)
		}
	}
}

func TestNewHasher_PrimaryAlgorithm(t *testing.T) {
	h, err := NewHasher("sha256")
	require.NoError(t, err)
	d, _ := h.Hash("Abc#123")
	assert.False(t, strings.HasPrefix(d, "$"))

	h, err = NewHasher("ARGON2ID")
	require.NoError(t, err)
	d, _ = h.Hash("Abc#123")
	assert.True(t, strings.HasPrefix(d, "$argon2id$"))

	_, err = NewHasher("md5")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}
