// Package security holds password hashing and the password policy.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmSHA256   = "sha256"
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var ErrUnknownAlgorithm = errors.New("unknown password hash algorithm")

// Hasher produces and checks password digests.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

// SHA256Hasher is the legacy scheme: base64(SHA-256(plain)). It is
// deterministic and unsalted; stored digests from older deployments use it.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(plain string) (string, error) {
	sum := sha256.Sum256([]byte(plain))
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Verify(plain, digest string) (bool, error) {
	computed, _ := h.Hash(plain)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1, nil
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (BcryptHasher) Verify(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("bcrypt: %w", err)
}

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Argon2Hasher encodes digests as $argon2id$v=19$m=..,t=..,p=..$salt$hash.
type Argon2Hasher struct {
	Params Argon2Params
}

func (h Argon2Hasher) Hash(plain string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(plain), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism, b64Salt, b64Hash), nil
}

func (Argon2Hasher) Verify(plain, digest string) (bool, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false, errors.New("invalid argon2id hash format")
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("parse params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(plain), salt, iterations, memory, parallelism, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

// MultiHasher hashes with one algorithm and verifies digests of any known
// algorithm, detected by prefix. Switching the configured algorithm
// therefore keeps existing passwords valid.
type MultiHasher struct {
	primary Hasher
}

// NewHasher returns a MultiHasher whose new digests use algorithm.
func NewHasher(algorithm string) (*MultiHasher, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmSHA256:
		return &MultiHasher{primary: SHA256Hasher{}}, nil
	case AlgorithmBcrypt:
		return &MultiHasher{primary: BcryptHasher{}}, nil
	case AlgorithmArgon2id:
		return &MultiHasher{primary: Argon2Hasher{Params: DefaultArgon2Params}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

func (m *MultiHasher) Hash(plain string) (string, error) {
	return m.primary.Hash(plain)
}

func (m *MultiHasher) Verify(plain, digest string) (bool, error) {
	return hasherFor(digest).Verify(plain, digest)
}

func hasherFor(digest string) Hasher {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return Argon2Hasher{}
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return BcryptHasher{}
	default:
		return SHA256Hasher{}
	}
}
