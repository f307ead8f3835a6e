package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/auth"
	"github.com/dmitrijs2005/gophaccount/internal/server/blob"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/device"
	"github.com/dmitrijs2005/gophaccount/internal/server/federation"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccount/internal/server/security"
)

// --- helpers ---

const validPassword = "Abc#123"

type fixture struct {
	cfg      *config.Config
	rm       repomanager.RepositoryManager
	blobs    *blob.MemoryStore
	codec    *auth.Codec
	sessions *SessionService
	accounts *AccountService
}

type fixtureOption func(cfg *config.Config)

func newFixture(t *testing.T, verifier federation.Verifier, opts ...fixtureOption) *fixture {
	t.Helper()
	return newFixtureWith(t, repomanager.NewMemoryRepositoryManager(), verifier, opts...)
}

func newFixtureWith(t *testing.T, rm repomanager.RepositoryManager, verifier federation.Verifier, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	for _, o := range opts {
		o(cfg)
	}

	hasher, err := security.NewHasher(cfg.PasswordHashAlgorithm)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	codec := auth.NewCodec(cfg.TokenIssuer, cfg.TokenAudience, []byte(cfg.SecretKey))
	detector := device.Static{ClientName: "test-client", ClientType: "application"}
	blobs := blob.NewMemoryStore()

	sessions := NewSessionService(rm, cfg, codec, hasher, verifier, detector, logging.Nop{})
	accounts := NewAccountService(rm, cfg, hasher, sessions, blobs, logging.Nop{})

	return &fixture{
		cfg:      cfg,
		rm:       rm,
		blobs:    blobs,
		codec:    codec,
		sessions: sessions,
		accounts: accounts,
	}
}

func (f *fixture) signUp(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.accounts.SignUp(context.Background(), SignUpRequest{
		Email:    email,
		FullName: "John Doe",
		Password: validPassword,
	})
	if err != nil {
		t.Fatalf("SignUp(%s) error: %v", email, err)
	}
	return u
}

func (f *fixture) login(t *testing.T, email string) *Session {
	t.Helper()
	s, err := f.sessions.Login(context.Background(), email, validPassword, "ua")
	if err != nil {
		t.Fatalf("Login(%s) error: %v", email, err)
	}
	return s
}

type fakeVerifier struct {
	identity federation.Identity
	err      error
	calls    int
}

func (f *fakeVerifier) Verify(ctx context.Context, assertion string) (federation.Identity, error) {
	f.calls++
	return f.identity, f.err
}
