package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/api"
	"github.com/dmitrijs2005/gophaccount/internal/client/client"
	"github.com/dmitrijs2005/gophaccount/internal/client/models"
	"github.com/dmitrijs2005/gophaccount/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophaccount/internal/filex"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	client.Client

	tokens    api.Tokens
	onRefresh func(api.Tokens)

	loginResp *api.LoginResponse
	loginErr  error
	logoutErr error
	userErr   error

	lastValidated string
	avatarName    string
	avatarType    string
	avatarData    []byte
}

func (f *fakeClient) SetTokens(t api.Tokens)                { f.tokens = t }
func (f *fakeClient) Tokens() api.Tokens                    { return f.tokens }
func (f *fakeClient) OnTokensRefreshed(fn func(api.Tokens)) { f.onRefresh = fn }
func (f *fakeClient) Close() error                          { return nil }

func (f *fakeClient) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.tokens = f.loginResp.Tokens
	return f.loginResp, nil
}

func (f *fakeClient) LoginSocial(ctx context.Context, assertion string) (*api.LoginResponse, error) {
	return f.Login(ctx, "", "")
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.tokens = api.Tokens{}
	return f.logoutErr
}

func (f *fakeClient) GlobalLogout(ctx context.Context) error {
	f.tokens = api.Tokens{}
	return f.logoutErr
}

func (f *fakeClient) GetUser(ctx context.Context) (*api.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &f.loginResp.User, nil
}

func (f *fakeClient) ValidateToken(ctx context.Context, token string) (bool, error) {
	f.lastValidated = token
	return token == "A1", nil
}

func (f *fakeClient) UploadAvatar(ctx context.Context, fileName, contentType string, data []byte) (*api.User, error) {
	f.avatarName, f.avatarType, f.avatarData = fileName, contentType, data
	return &f.loginResp.User, nil
}

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*accountService, *fakeClient, session.Repository) {
	t.Helper()

	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := session.NewSQLiteRepository(db)
	fc := &fakeClient{loginResp: &api.LoginResponse{
		User: api.User{Identity: "01HZX", Email: "a@example.com"},
		Tokens: api.Tokens{
			AccessToken:      "A1",
			RefreshToken:     "R1",
			AccessExpiresAt:  now.Add(time.Hour),
			RefreshExpiresAt: now.Add(24 * time.Hour),
		},
	}}

	svc := NewAccountService(fc, repo, 16, logging.Nop{}).(*accountService)
	svc.now = func() time.Time { return now }
	return svc, fc, repo
}

func TestLogin_RemembersSession(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()

	u, err := svc.Login(ctx, "a@example.com", "Abc#123")
	require.NoError(t, err)
	assert.Equal(t, "01HZX", u.Identity)

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "a@example.com", saved.Email)
	assert.Equal(t, "R1", saved.RefreshToken)
}

func TestLogin_FailureStoresNothing(t *testing.T) {
	svc, fc, repo := newTestService(t)
	ctx := context.Background()
	fc.loginErr = client.ErrUnauthorized

	_, err := svc.Login(ctx, "a@example.com", "bad")
	require.ErrorIs(t, err, client.ErrUnauthorized)

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestRefreshedTokensArePersisted(t *testing.T) {
	svc, fc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "a@example.com", "Abc#123")
	require.NoError(t, err)

	require.NotNil(t, fc.onRefresh, "service must subscribe to refreshes")
	fc.onRefresh(api.Tokens{AccessToken: "A2", RefreshToken: "R2", RefreshExpiresAt: now.Add(48 * time.Hour)})

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A2", saved.AccessToken)
	assert.Equal(t, "R2", saved.RefreshToken)
	assert.Equal(t, "01HZX", saved.Identity)
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing stored", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		s, err := svc.Resume(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("live session restores tokens", func(t *testing.T) {
		svc, fc, repo := newTestService(t)
		require.NoError(t, repo.Save(ctx, &models.Session{
			Identity: "01HZX", Email: "a@example.com",
			AccessToken: "A9", RefreshToken: "R9",
			RefreshExpiresAt: now.Add(time.Hour), SavedAt: now,
		}))

		s, err := svc.Resume(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "A9", fc.tokens.AccessToken)
		assert.Equal(t, "R9", fc.tokens.RefreshToken)
	})

	t.Run("expired session is dropped", func(t *testing.T) {
		svc, fc, repo := newTestService(t)
		require.NoError(t, repo.Save(ctx, &models.Session{
			AccessToken: "A9", RefreshToken: "R9",
			RefreshExpiresAt: now.Add(-time.Minute), SavedAt: now,
		}))

		s, err := svc.Resume(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Empty(t, fc.tokens.AccessToken)

		left, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, left)
	})
}

func TestLogout_ForgetsSessionEvenWhenServerForgotFirst(t *testing.T) {
	svc, fc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "a@example.com", "Abc#123")
	require.NoError(t, err)

	fc.logoutErr = client.ErrUnauthorized
	require.NoError(t, svc.Logout(ctx))

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestGlobalLogout_ReportsUnavailableButClearsLocally(t *testing.T) {
	svc, fc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "a@example.com", "Abc#123")
	require.NoError(t, err)

	fc.logoutErr = client.ErrUnavailable
	require.ErrorIs(t, svc.GlobalLogout(ctx), client.ErrUnavailable)

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestProfile_UnauthorizedDropsSession(t *testing.T) {
	svc, fc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "a@example.com", "Abc#123")
	require.NoError(t, err)

	fc.userErr = errors.Join(client.ErrUnauthorized, errors.New("refresh rejected"))
	_, err = svc.Profile(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Empty(t, fc.tokens.AccessToken)
}

func TestProfile_OtherErrorsKeepSession(t *testing.T) {
	svc, fc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "a@example.com", "Abc#123")
	require.NoError(t, err)

	fc.userErr = client.ErrUnavailable
	_, err = svc.Profile(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, saved)
}

func TestCheckSession(t *testing.T) {
	svc, fc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CheckSession(ctx)
	require.ErrorIs(t, err, client.ErrNotLoggedIn)

	_, err = svc.Login(ctx, "a@example.com", "Abc#123")
	require.NoError(t, err)

	ok, err := svc.CheckSession(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A1", fc.lastValidated)
}

func TestUploadAvatar(t *testing.T) {
	svc, fc, _ := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()

	png := filepath.Join(dir, "me.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	_, err := svc.UploadAvatar(ctx, png)
	require.NoError(t, err)
	assert.Equal(t, "me.png", fc.avatarName)
	assert.Equal(t, "image/png", fc.avatarType)
	assert.Len(t, fc.avatarData, 8)

	big := filepath.Join(dir, "big.jpg")
	require.NoError(t, os.WriteFile(big, make([]byte, 17), 0o600))
	_, err = svc.UploadAvatar(ctx, big)
	require.ErrorIs(t, err, filex.ErrTooLarge)
}

func TestContentTypeOf_SniffsWithoutExtension(t *testing.T) {
	assert.Equal(t, "image/png", contentTypeOf("avatar", []byte("\x89PNG\r\n\x1a\n")))
	assert.Equal(t, "text/plain", contentTypeOf("notes", []byte("hello")))
}
